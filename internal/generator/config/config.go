package config

import (
	"strings"
	"time"
)

// DefaultAPIURL is the provisioning endpoint devices register against.
const DefaultAPIURL = "https://api.cloudflareclient.com/v0i1909051800/reg"

// TOSLayout formats the terms-of-service timestamp: millisecond precision
// with an explicit numeric offset (+00:00 for UTC).
const TOSLayout = "2006-01-02T15:04:05.000-07:00"

// Config holds the generator configuration.
type Config struct {
	APIURL  string `mapstructure:"api_url"`
	Timeout int    `mapstructure:"timeout"` // seconds

	// Tunnel options, carried into the emitted configuration as-is.
	DNS                 string `mapstructure:"dns"`
	MTU                 int    `mapstructure:"mtu"`
	AllowedIPs          string `mapstructure:"allowed_ips"`
	ListenPort          int    `mapstructure:"listen_port"`
	PersistentKeepalive int    `mapstructure:"persistent_keepalive"`

	// Registration options.
	DeviceType string `mapstructure:"device_type"`
	Locale     string `mapstructure:"locale"`
	TOS        string `mapstructure:"tos"`
	InstallID  string `mapstructure:"install_id"`

	KeyGenerator string `mapstructure:"key_generator"`
	QRRenderer   string `mapstructure:"qr_renderer"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// Set from command-line flags only.
	Verbose     bool `mapstructure:"-"`
	ShowQR      bool `mapstructure:"-"`
	ShowAccount bool `mapstructure:"-"`
}

// RequestTimeout returns Timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// DNSServers returns the DNS option as an ordered list.
func (c *Config) DNSServers() []string {
	return SplitList(c.DNS)
}

// AllowedIPRanges returns the allowed_ips option as an ordered list.
func (c *Config) AllowedIPRanges() []string {
	return SplitList(c.AllowedIPs)
}

// TOSTimestamp returns the configured terms-of-service timestamp, or now
// formatted with TOSLayout when unset.
func (c *Config) TOSTimestamp(now func() time.Time) string {
	if c.TOS != "" {
		return c.TOS
	}
	if now == nil {
		now = time.Now
	}
	return now().UTC().Format(TOSLayout)
}

// SplitList splits a comma separated option into trimmed, non-empty items
// preserving order.
func SplitList(s string) []string {
	var items []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}
