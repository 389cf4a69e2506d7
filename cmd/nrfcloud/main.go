package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/shohag/nrfcloud"
	"github.com/shohag/nrfcloud/internal/config"
)

var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "nrfcloud",
		Short:        "Command line client for the nRF Cloud REST API",
		SilenceUsage: true,
	}

	var configPath string
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	rootCmd.AddCommand(messagesCmd(&configPath))
	rootCmd.AddCommand(getCmd(&configPath))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "nrfcloud v%s\n", version)
		},
	}
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	if cfg.Format == "console" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(level).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

// clientFromConfig loads config and builds an API client with the configured
// transport. It fails early when no token is configured.
func clientFromConfig(configPath string) (*nrfcloud.Client, *config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg.Logging)

	if cfg.API.Token == "" {
		return nil, nil, log, fmt.Errorf("no API token: set api.token or NRFCLOUD_API_TOKEN")
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = cfg.API.MaxIdleConnsPerHost

	client := nrfcloud.NewClient(cfg.API.Token,
		nrfcloud.WithHTTPClient(&http.Client{
			Transport: transport,
			Timeout:   cfg.API.Timeout,
		}),
		nrfcloud.WithLogger(log),
	)
	return client, cfg, log, nil
}
