package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/satheeshds/roomrent/config"
	"github.com/satheeshds/roomrent/db"
	"github.com/spf13/cobra"
)

var version = "1.0.0"

var (
	configFile string
	cfg        *config.Config
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "roomrent",
	Short: "Room rental back-office API",
	Long: `roomrent manages rooms, tenants, monthly invoices and payments for a
small rental business. Run "roomrent serve" to start the HTTP API.

Configuration is read from config.yaml (or --config) and environment
variables such as DATABASE_URL and AUTH_JWT_SECRET.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return err
		}
		logger = cfg.Logging.NewLogger(os.Stdout)
		slog.SetDefault(logger)
		if cfg.Auth.EphemeralSecret {
			logger.Warn("auth.jwt_secret is not set, using a random secret; tokens will not survive a restart",
				"env", cfg.Env)
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./config.yaml)")
}

// openDB connects using the loaded configuration.
func openDB(ctx context.Context) (*pgxpool.Pool, error) {
	return db.Open(ctx, cfg.Database.URL, cfg.Database.MaxConns)
}
