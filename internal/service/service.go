package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"retailpro/backend/internal/activity"
	"retailpro/backend/internal/analytics"
	"retailpro/backend/internal/domain"
	"retailpro/backend/internal/metrics"
	"retailpro/backend/internal/store"
)

var ErrForbidden = errors.New("role not allowed")

const (
	systemActorID   = "SYSTEM"
	systemActorName = "System"

	defaultMaxRetries = 3
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Options struct {
	// Location buckets invoice years and report days. UTC when nil.
	Location *time.Location
	// MaxRetries bounds how often a checkout is replayed after a
	// concurrency conflict. Zero means 3; negative disables retries.
	MaxRetries int
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
	Activity   *activity.Recorder
	Now        func() time.Time
}

type Service struct {
	repo       store.Repository
	activity   *activity.Recorder
	analytics  *analytics.Aggregator
	metrics    *metrics.Metrics
	logger     *zap.Logger
	loc        *time.Location
	maxRetries int
	now        func() time.Time
}

func New(repo store.Repository, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	} else if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Activity == nil {
		opts.Activity = activity.NewRecorder(repo, nil, opts.Logger, opts.Metrics)
	}

	return &Service{
		repo:       repo,
		activity:   opts.Activity,
		analytics:  analytics.New(repo, opts.Location).WithClock(opts.Now),
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		loc:        opts.Location,
		maxRetries: opts.MaxRetries,
		now:        opts.Now,
	}
}

func (s *Service) DashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	return s.analytics.Dashboard(ctx)
}

func (s *Service) Report(ctx context.Context) (domain.Report, error) {
	return s.analytics.Report(ctx)
}

func (s *Service) ListActivity(ctx context.Context, limit int) ([]domain.ActivityLogEntry, error) {
	if limit < 1 {
		limit = 100
	}
	return s.activity.List(ctx, limit)
}

func requireRole(ctx context.Context, roles ...string) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || !slices.Contains(roles, actor.Role) {
		return domain.Actor{}, ErrForbidden
	}
	return actor, nil
}

func defaultString(value string, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
