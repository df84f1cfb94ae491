package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lanrat/wireguard-warp-generator/internal/generator"
	"github.com/lanrat/wireguard-warp-generator/internal/generator/config"
	"github.com/lanrat/wireguard-warp-generator/pkg/logger"
)

// Version is stamped at build time.
var Version = "dev"

// runFailure marks an error that has already been logged.
type runFailure struct{ err error }

func (f *runFailure) Error() string { return f.err.Error() }
func (f *runFailure) Unwrap() error { return f.err }

// NewRootCmd builds the warp-generator command.
func NewRootCmd() *cobra.Command {
	var configFile, envFile string
	var verbose, showQR, showAccount bool

	rootCmd := &cobra.Command{
		Use:   "warp-generator",
		Short: "Register a new WARP device and print its WireGuard configuration",
		Long: `Generate a WireGuard key pair, register it as a new WARP device and
print a ready-to-use WireGuard configuration on stdout.

Diagnostics, account information and the QR code are written to stderr,
so the output can be redirected straight into a file.

Examples:
  # Write a configuration file
  warp-generator > warp.conf

  # Show account details and a QR code for the mobile app
  warp-generator -s -q > warp.conf

  # Keep the tunnel alive behind NAT
  WARP_PERSISTENT_KEEPALIVE=25 warp-generator`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := config.NewLoader().WithDotEnv(envFile)
			if configFile != "" {
				loader = loader.WithConfigFile(configFile)
			}
			cfg, err := loader.Load()
			if err != nil {
				return err
			}
			cfg.Verbose = verbose
			cfg.ShowQR = showQR
			cfg.ShowAccount = showAccount

			logCfg := logger.DefaultConfig()
			logCfg.Level = logger.LogLevel(cfg.LogLevel)
			logCfg.Format = logger.OutputFormat(cfg.LogFormat)
			logCfg.Version = Version
			logCfg.Output = cmd.ErrOrStderr()
			if cfg.Verbose {
				logCfg.Level = logger.LevelDebug
			}
			log := logger.New(logCfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			gen := generator.New(cfg, log, generator.WithOutput(cmd.OutOrStdout(), cmd.ErrOrStderr()))
			if err := gen.Run(ctx); err != nil {
				log.ErrorCtx(ctx, "failed to generate configuration", err)
				return &runFailure{err: err}
			}
			return nil
		},
	}

	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log request and response details to stderr")
	rootCmd.Flags().BoolVarP(&showQR, "qrcode", "q", false, "render the configuration as a QR code on stderr")
	rootCmd.Flags().BoolVarP(&showAccount, "status", "s", false, "show account information on stderr")
	rootCmd.Flags().StringVar(&configFile, "config", "", "config file (default $HOME/.config/warp-generator/warp-generator.yaml)")
	rootCmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file with WARP_ overrides; empty disables it")

	rootCmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		c.PrintErrln(c.UsageString())
		return err
	})

	return rootCmd
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var logged *runFailure
		if !errors.As(err, &logged) {
			fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		}
		return 1
	}
	return 0
}
