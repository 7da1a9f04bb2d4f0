package main

import (
	"fmt"
	"os"
	"time"

	"github.com/de-tools/export-consolidator/pkg/runtime/app"
	"github.com/de-tools/export-consolidator/pkg/server"
	"github.com/de-tools/export-consolidator/pkg/services/config"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var cfgPath string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the web server for the export consolidator",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "",
		"Path to the YAML config file; settings can also come from EXPORTS_* variables")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return err
	}

	a, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer a.Close()

	// Fail fast on a missing host, user or key instead of on the first request.
	desc, err := a.Descriptor()
	if err != nil {
		return fmt.Errorf("invalid connection settings: %w", err)
	}
	logger.Info().Str("host", desc.Host).Str("user", desc.User).Msg("remote store configured")

	deps := server.Dependencies{
		Service:     a.Service,
		Runs:        a.Runs,
		DefaultFile: cfg.DefaultFile,
		Logger:      logger,
	}

	return server.NewWebAPI(server.Config{
		Addr:            cfg.Server.Addr,
		ShutdownTimeout: 30 * time.Second,
		Dependencies:    deps,
	}).Start()
}
