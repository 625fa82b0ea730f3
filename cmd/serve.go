package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/satheeshds/roomrent/auth"
	"github.com/satheeshds/roomrent/billing"
	"github.com/satheeshds/roomrent/db"
	"github.com/satheeshds/roomrent/handlers"
	"github.com/satheeshds/roomrent/jobs"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API and, when enabled, the background scheduler that
marks overdue invoices and generates monthly invoices.

The server shuts down gracefully on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
	}

	handlers.DB = pool
	handlers.Billing = billing.NewService(billing.NewPgStore(pool), logger)
	handlers.Tokens = auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)
	handlers.ExportDir = cfg.Export.Dir
	handlers.Version = version

	limiter := handlers.NewLoginLimiter(cfg.Auth.LoginPerMinute, cfg.Auth.LoginBurst)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handlers.NewRouter(limiter, cfg.Server.CORSOrigins, cfg.Server.TrustProxy),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	var wg sync.WaitGroup
	if cfg.Scheduler.Enabled {
		sched := jobs.New(handlers.Billing, cfg.Scheduler.Interval, cfg.Scheduler.GenerateDay, logger)
		wg.Go(func() { sched.Run(ctx) })
	}
	wg.Go(func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Prune(30 * time.Minute)
			}
		}
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "address", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		stop()
		wg.Wait()
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	wg.Wait()
	logger.Info("server stopped")
	return nil
}
