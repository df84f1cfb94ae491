package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	domainerrors "github.com/lanrat/wireguard-warp-generator/pkg/errors"
)

// EnvPrefix is prepended to every configuration key when read from the environment.
const EnvPrefix = "WARP"

// Loader handles configuration loading from multiple sources.
// Precedence: environment (including .env) > config file > defaults.
type Loader struct {
	v          *viper.Viper
	dotEnvPath string
	configFile string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v:          viper.New(),
		dotEnvPath: ".env",
	}
}

// WithConfigFile makes the loader read exactly this file; a missing file is an error.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// WithDotEnv changes the .env file consulted before reading the environment.
// An empty path disables .env loading.
func (l *Loader) WithDotEnv(path string) *Loader {
	l.dotEnvPath = path
	return l
}

// Load loads configuration from the .env file, config file and environment.
func (l *Loader) Load() (*Config, error) {
	if err := l.loadDotEnv(); err != nil {
		return nil, err
	}

	l.setDefaults()
	l.setupEnvVars()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, configError(fmt.Sprintf("error reading config file %s", l.configFile), err)
		}
	} else {
		l.setupConfigPaths()
		if err := l.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, configError("error reading config file", err)
			}
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, configError("failed to unmarshal config", err)
	}

	if err := l.validate(&cfg); err != nil {
		return nil, configError("configuration validation failed", err)
	}

	return &cfg, nil
}

// loadDotEnv exports variables from the .env file without overriding ones
// already present in the environment.
func (l *Loader) loadDotEnv() error {
	if l.dotEnvPath == "" {
		return nil
	}
	if _, err := os.Stat(l.dotEnvPath); err != nil {
		return nil
	}
	if err := godotenv.Load(l.dotEnvPath); err != nil {
		return configError(fmt.Sprintf("error reading %s", l.dotEnvPath), err)
	}
	return nil
}

// setDefaults sets default configuration values.
func (l *Loader) setDefaults() {
	l.v.SetDefault("api_url", DefaultAPIURL)
	l.v.SetDefault("timeout", 30)
	l.v.SetDefault("dns", "1.1.1.1, 1.0.0.1, 2606:4700:4700::1111, 2606:4700:4700::1001")
	l.v.SetDefault("mtu", 1280)
	l.v.SetDefault("allowed_ips", "0.0.0.0/0, ::/0")
	l.v.SetDefault("listen_port", 0)
	l.v.SetDefault("persistent_keepalive", 0)
	l.v.SetDefault("device_type", "Linux")
	l.v.SetDefault("locale", "en_US")
	l.v.SetDefault("tos", "")
	l.v.SetDefault("install_id", "")
	l.v.SetDefault("key_generator", "native")
	l.v.SetDefault("qr_renderer", "terminal")
	l.v.SetDefault("log_level", "info")
	l.v.SetDefault("log_format", "text")
}

// setupConfigPaths configures where to search for config files.
func (l *Loader) setupConfigPaths() {
	l.v.SetConfigName("warp-generator")
	l.v.SetConfigType("yaml")

	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(filepath.Join(home, ".config", "warp-generator"))
	}
	l.v.AddConfigPath(".")
}

// setupEnvVars configures environment variable handling.
func (l *Loader) setupEnvVars() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
}

// validate checks only what the generator itself depends on. DNS, MTU and
// allowed IPs are passed through to the tunnel configuration unchecked.
func (l *Loader) validate(cfg *Config) error {
	if cfg.APIURL == "" {
		return fmt.Errorf("%w: api_url is required", domainerrors.ErrInvalidConfig)
	}
	u, err := url.Parse(cfg.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: invalid api_url: %s (must be an absolute http or https URL)", domainerrors.ErrInvalidConfig, cfg.APIURL)
	}

	if cfg.Timeout < 1 {
		return fmt.Errorf("%w: timeout must be at least 1 second", domainerrors.ErrInvalidConfig)
	}

	if cfg.ListenPort < 0 || cfg.ListenPort > 65535 {
		return fmt.Errorf("%w: invalid listen_port: %d (must be between 0 and 65535)", domainerrors.ErrInvalidConfig, cfg.ListenPort)
	}

	if cfg.PersistentKeepalive < 0 || cfg.PersistentKeepalive > 65535 {
		return fmt.Errorf("%w: invalid persistent_keepalive: %d (must be between 0 and 65535)", domainerrors.ErrInvalidConfig, cfg.PersistentKeepalive)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("%w: invalid log_level: %s (must be debug, info, warn, or error)", domainerrors.ErrInvalidConfig, cfg.LogLevel)
	}

	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return fmt.Errorf("%w: invalid log_format: %s (must be text or json)", domainerrors.ErrInvalidConfig, cfg.LogFormat)
	}

	return nil
}

func configError(message string, cause error) error {
	return domainerrors.NewSystemError(domainerrors.ErrCodeConfiguration, message, false, cause)
}
