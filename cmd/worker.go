package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example.com/alumni/services/events/internal/messaging"
	"example.com/alumni/services/events/internal/services"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long: `Start the background worker that feeds analytics from Azure Service Bus and runs the
periodic jobs: rate recalculation, recurring instance generation and counter reconciliation`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
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

	g, ctx := errgroup.WithContext(ctx)

	if a.bus != nil {
		dispatcher := newDispatcher(a)
		for _, queue := range []string{cfg.Azure.ParticipationQueue, cfg.Azure.AnalyticsQueue} {
			queue := queue
			g.Go(func() error {
				return a.bus.StartConsumers(ctx, queue, dispatcher)
			})
		}
	} else {
		log.Warn().Msg("Service Bus is not configured, analytics will only change through the API and scheduled jobs")
	}

	g.Go(func() error {
		return runScheduler(ctx, a)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}

// newDispatcher routes ledger snapshots and engagement counts into the analytics aggregator
func newDispatcher(a *app) *messaging.Dispatcher {
	d := messaging.NewDispatcher()
	d.Handle(messaging.TypeParticipationChanged, messaging.JSONHandler(
		tracedHandler(a, "message-participation-changed", a.analytics.ApplyParticipationSnapshot)))
	d.Handle(messaging.TypeEngagementCounts, messaging.JSONHandler(
		tracedHandler(a, "message-engagement-counts", a.analytics.ApplyEngagementCounts)))
	return d
}

// tracedHandler wraps fn in a transaction and acknowledges messages that can never apply
func tracedHandler[T any](a *app, name string, fn func(ctx context.Context, msg *T) error) func(ctx context.Context, msg *T) error {
	return func(ctx context.Context, msg *T) error {
		err := a.traced(ctx, name, func(ctx context.Context) error {
			return fn(ctx, msg)
		})
		if errors.Is(err, services.ErrInvalidArgument) || errors.Is(err, services.ErrInvalidCounters) {
			log.Error().Err(err).Str("handler", name).Msg("dropping invalid message")
			return nil
		}
		return err
	}
}

func runScheduler(ctx context.Context, a *app) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	jobs := []struct {
		name     string
		interval time.Duration
		run      func(ctx context.Context) error
	}{
		{"recalculate-analytics", a.cfg.Jobs.RecalculateInterval, func(ctx context.Context) error {
			_, err := a.analytics.RecalculateAll(ctx)
			return err
		}},
		{"generate-instances", a.cfg.Jobs.GenerateInstancesInterval, func(ctx context.Context) error {
			_, err := a.recurring.GenerateInstances(ctx, time.Now())
			return err
		}},
		{"reconcile-counters", a.cfg.Jobs.ReconcileInterval, func(ctx context.Context) error {
			_, err := a.participation.ReconcileCounters(ctx)
			return err
		}},
	}

	for _, job := range jobs {
		if job.interval <= 0 {
			log.Info().Str("job", job.name).Msg("job disabled")
			continue
		}

		job := job
		_, err := scheduler.NewJob(
			gocron.DurationJob(job.interval),
			gocron.NewTask(func() {
				if err := a.traced(ctx, job.name, job.run); err != nil {
					log.Error().Err(err).Str("job", job.name).Msg("scheduled job failed")
				}
			}),
			gocron.WithName(job.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return errors.Wrapf(err, "failed to schedule %s", job.name)
		}
		log.Info().Str("job", job.name).Dur("interval", job.interval).Msg("job scheduled")
	}

	scheduler.Start()

	<-ctx.Done()

	return scheduler.Shutdown()
}
