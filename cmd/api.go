package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"example.com/alumni/services/events/internal/api"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long:  `Start the HTTP API server for RSVPs, recurring events and analytics`,
	RunE:  runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	checks := map[string]api.HealthCheck{
		"database": func(ctx context.Context) error { return a.conn.Ping() },
	}
	if a.cache.Enabled() {
		checks["redis"] = a.cache.Ping
	}

	server := api.NewServer(cfg.Server, api.Services{
		Participation: a.participation,
		Analytics:     a.analytics,
		Recurring:     a.recurring,
	}, a.metrics, a.tracer, checks)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	if err := server.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("API server stopped")
	return nil
}
