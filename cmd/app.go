package cmd

import (
	"context"

	"example.com/alumni/services/events/config"
	"example.com/alumni/services/events/internal/cache"
	"example.com/alumni/services/events/internal/database"
	"example.com/alumni/services/events/internal/messaging"
	"example.com/alumni/services/events/internal/metrics"
	"example.com/alumni/services/events/internal/repositories"
	"example.com/alumni/services/events/internal/search"
	"example.com/alumni/services/events/internal/services"
	"example.com/alumni/services/events/internal/tracing"

	"github.com/rs/zerolog/log"
)

// app holds the wired dependencies shared by every command
type app struct {
	cfg       config.Config
	conn      *database.Connection
	metrics   *metrics.Metrics
	tracer    *tracing.NewRelicTracer
	cache     *cache.RedisCache
	bus       *messaging.ServiceBusClient
	publisher *messaging.ServiceBusPublisher

	participation *services.ParticipationService
	analytics     *services.AnalyticsService
	recurring     *services.RecurringEventService
}

// newApp connects to storage and builds the services. Optional backends (Redis,
// Elasticsearch, Service Bus, New Relic) that fail to initialise are logged and left out.
func newApp(cfg config.Config) (*app, error) {
	conn, err := database.Connect(cfg.DB)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, conn: conn, metrics: metrics.Default()}

	a.tracer, err = tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		a.tracer, _ = tracing.NewTracer(config.TracingConfig{})
	}

	a.cache, err = cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
		a.cache = cache.NewDisabledCache()
	}

	var indexer services.Indexer
	if cfg.Elastic.Enabled {
		elasticClient, err := search.NewElasticClient(cfg.Elastic)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search indexing")
		} else {
			indexer = elasticClient
		}
	}

	var publisher messaging.Publisher
	if cfg.Azure.QueueConnStr != "" {
		a.bus, err = messaging.NewServiceBusClient(cfg.Azure.QueueConnStr)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Azure Service Bus, participation snapshots will not be published")
		} else if a.publisher, err = a.bus.NewPublisher(cfg.Azure.ParticipationQueue, "events-service"); err != nil {
			log.Warn().Err(err).Msg("Failed to create participation publisher")
		} else {
			publisher = a.publisher
		}
	} else {
		log.Warn().Msg("Azure Service Bus connection string not provided, messaging is disabled")
	}

	tx := database.NewTransactor(conn.Write, cfg.DB)
	events := repositories.NewEventRepository(conn.Write, conn.Read)

	a.participation = services.NewParticipationService(
		tx, events, repositories.NewParticipationRepository(conn.Write, conn.Read), publisher, a.metrics)
	a.analytics = services.NewAnalyticsService(
		tx,
		repositories.NewAnalyticsRepository(conn.Write, conn.Read),
		events,
		services.EngagementSources{
			Comments:  repositories.NewCommentCountRepository(conn.Read),
			Media:     repositories.NewMediaCountRepository(conn.Read),
			Reminders: repositories.NewReminderCountRepository(conn.Read),
		},
		a.cache,
		indexer,
		a.metrics,
	)
	a.recurring = services.NewRecurringEventService(
		repositories.NewRecurringEventRepository(conn.Write, conn.Read), events, services.NewExpander(cfg.Jobs), a.metrics)

	return a, nil
}

// traced runs fn inside a New Relic background transaction
func (a *app) traced(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, txn := a.tracer.StartTransaction(ctx, name)
	err := fn(ctx)
	a.tracer.EndTransaction(txn, err)
	return err
}

// Close releases every connection the app opened
func (a *app) Close() {
	ctx := context.Background()
	if a.publisher != nil {
		if err := a.publisher.Close(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to close publisher")
		}
	}
	if a.bus != nil {
		if err := a.bus.Close(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to close Service Bus client")
		}
	}
	if err := a.cache.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close Redis cache")
	}
	a.tracer.Close()
	if err := a.conn.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close database")
	}
}
