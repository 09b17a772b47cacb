package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"whisperasr/internal/app"
	"whisperasr/internal/config"
	httpserver "whisperasr/internal/http"
	"whisperasr/internal/logging"
)

var version = "dev"

func main() {
	var envFile, port string

	rootCmd := &cobra.Command{
		Use:           "whisperasr",
		Short:         "Speech-to-text service with speaker separation and zh/en translation",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				if err := godotenv.Load(envFile); err != nil {
					return fmt.Errorf("load env file: %w", err)
				}
			} else {
				_ = godotenv.Load()
			}
			if port != "" {
				os.Setenv("PORT", port)
			}
			return run(cmd.Context())
		},
	}
	rootCmd.Flags().StringVar(&envFile, "env-file", "", "path to a .env file (defaults to ./.env when present)")
	rootCmd.Flags().StringVar(&port, "port", "", "listen port, overrides PORT")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	a.Start()

	srv := httpserver.NewServer(a)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
