package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var asOfFlag string

var generateInstancesCmd = &cobra.Command{
	Use:   "generate-instances",
	Short: "Materialise occurrences of every active recurring event",
	RunE: func(cmd *cobra.Command, args []string) error {
		asOf := time.Now()
		if asOfFlag != "" {
			t, err := time.Parse(time.RFC3339, asOfFlag)
			if err != nil {
				return err
			}
			asOf = t
		}

		return runOnce("generate-instances", func(ctx context.Context, a *app) error {
			n, err := a.recurring.GenerateInstances(ctx, asOf)
			if err == nil {
				log.Info().Int64("created", n).Msg("Instance generation finished")
			}
			return err
		})
	},
}

var recalculateCmd = &cobra.Command{
	Use:   "recalculate",
	Short: "Re-derive attendance and engagement rates for every event",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce("recalculate-analytics", func(ctx context.Context, a *app) error {
			_, err := a.analytics.RecalculateAll(ctx)
			return err
		})
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recount the participant counter of every event",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce("reconcile-counters", func(ctx context.Context, a *app) error {
			_, err := a.participation.ReconcileCounters(ctx)
			return err
		})
	},
}

func init() {
	generateInstancesCmd.Flags().StringVar(&asOfFlag, "as-of", "", "expansion reference time (RFC 3339), defaults to now")
	rootCmd.AddCommand(generateInstancesCmd, recalculateCmd, reconcileCmd)
}

// runOnce wires the app, runs one job under a background transaction and exits
func runOnce(name string, job func(ctx context.Context, a *app) error) error {
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

	return a.traced(ctx, name, func(ctx context.Context) error {
		return job(ctx, a)
	})
}
