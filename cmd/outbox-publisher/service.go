package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/groupcart-backend/pkg/config"
	"github.com/angelmondragon/groupcart-backend/pkg/db/models"
	"github.com/angelmondragon/groupcart-backend/pkg/logger"
	"github.com/angelmondragon/groupcart-backend/pkg/metrics"
	"github.com/angelmondragon/groupcart-backend/pkg/outbox/registry"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxIdleWait           = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	DomainPublisher() *gcppubsub.Publisher
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type outboxMetrics interface {
	Observe(eventType, outcome string)
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory
	Metrics          outboxMetrics
}

func (p ServiceParams) validate() error {
	switch {
	case p.Config == nil:
		return errors.New("config is required")
	case p.Logger == nil:
		return errors.New("logger is required")
	case p.DB == nil:
		return errors.New("database client is required")
	case p.PubSub == nil:
		return errors.New("pubsub client is required")
	case p.Repository == nil:
		return errors.New("outbox repository is required")
	case p.Registry == nil:
		return errors.New("event registry is required")
	}
	return nil
}

// Service relays committed shared-cart events from outbox_events to Pub/Sub.
type Service struct {
	logg         *logger.Logger
	db           dbClient
	pubsub       pubSubClient
	repo         outboxRepository
	registry     registryResolver
	metrics      outboxMetrics
	topics       *topicPublishers
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
	jitter       func(time.Duration) time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	collector := params.Metrics
	if collector == nil {
		collector = metrics.NewOutboxMetrics(nil)
	}
	factory := params.PublisherFactory
	if factory == nil {
		factory = pubsubFactory(params.PubSub, params.Config.PubSub.DomainTopic)
	}

	outboxCfg := params.Config.Outbox
	return &Service{
		logg:         params.Logger,
		db:           params.DB,
		pubsub:       params.PubSub,
		repo:         params.Repository,
		registry:     params.Registry,
		metrics:      collector,
		topics:       newTopicPublishers(factory),
		batchSize:    positiveOr(outboxCfg.BatchSize, defaultBatchSize),
		maxAttempts:  positiveOr(outboxCfg.MaxAttempts, defaultMaxAttempts),
		pollInterval: time.Duration(positiveOr(outboxCfg.PollIntervalMS, defaultPollMs)) * time.Millisecond,
		jitter:       withJitter,
	}, nil
}

func positiveOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func (s *Service) ensureReady(ctx context.Context) error {
	for _, dep := range []struct {
		name string
		ping func(context.Context) error
	}{
		{"database", s.db.Ping},
		{"pubsub", s.pubsub.Ping},
	} {
		if err := dep.ping(ctx); err != nil {
			s.logg.Error(ctx, dep.name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}
	return nil
}

// Run relays batches until ctx is canceled. A batch that moved rows out of
// the queue is followed immediately by the next one; a batch where every row
// was retried or held widens the wait up to maxIdleWait.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.ensureReady(ctx); err != nil {
		return err
	}

	wait := s.pollInterval
	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox publisher context canceled")
			return err
		}

		report, err := s.relayBatch(ctx)
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox relay batch failed", err)
			wait = widenWait(wait, s.pollInterval)
		case report.progressed():
			wait = s.pollInterval
			continue
		case report.fetched > 0:
			wait = widenWait(wait, s.pollInterval)
		default:
			wait = s.pollInterval
		}

		if err := sleepCtx(ctx, s.jitter(wait)); err != nil {
			return err
		}
	}
}

// Stop flushes and stops every cached topic publisher.
func (s *Service) Stop() {
	s.topics.stopAll()
}

func widenWait(current, base time.Duration) time.Duration {
	if current < base {
		current = base
	}
	if next := current * 2; next < maxIdleWait {
		return next
	}
	return maxIdleWait
}

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(jitterSource.Int63n(int64(jitterWindow)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
