// Package service implements the registry engine: quoting, registration,
// renewal, and owner-gated metadata updates. All name uniqueness decisions
// happen inside the store's Allocate; the service owns payment handling,
// policy checks, and the audit trail.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"registrar/internal/account"
	"registrar/internal/funds"
	"registrar/internal/platform/config"
	"registrar/internal/registry/metrics"
	"registrar/internal/registry/models"
	"registrar/internal/registry/pricing"
	"registrar/pkg/domain"
	"registrar/pkg/platform/audit"
	"registrar/pkg/requestcontext"
)

// RecordStore is the slice of the registry store the service depends on.
type RecordStore interface {
	Allocate(ctx context.Context, record *models.Domain, now time.Time, grace time.Duration) error
	ResolveHash(ctx context.Context, hash domain.NameHash) (*models.Domain, error)
	FindByID(ctx context.Context, id domain.DomainID) (*models.Domain, error)
	ListAll(ctx context.Context) ([]*models.Domain, error)
	ListByOwner(ctx context.Context, owner domain.OwnerAddress) ([]*models.Domain, error)
	Execute(ctx context.Context, id domain.DomainID, validate func(*models.Domain) error, mutate func(*models.Domain)) (*models.Domain, error)
	Health(ctx context.Context) error
}

// AuditPublisher records one event per successful write operation.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// QuoteCache caches rent quotes keyed by name length and duration.
type QuoteCache interface {
	Get(ctx context.Context, nameLen int, duration time.Duration) (domain.Amount, bool, error)
	Set(ctx context.Context, nameLen int, duration time.Duration, cost domain.Amount) error
}

// Service orchestrates the name registry.
type Service struct {
	records RecordStore
	gate    *account.Gate
	funds   funds.Source
	pricer  *pricing.Pricer
	policy  config.Registry

	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	quotes         QuoteCache
	tracer         trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithQuoteCache(c QuoteCache) Option {
	return func(s *Service) {
		s.quotes = c
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// New constructs a Service.
func New(records RecordStore, gate *account.Gate, source funds.Source, pricer *pricing.Pricer, policy config.Registry, opts ...Option) *Service {
	s := &Service{
		records: records,
		gate:    gate,
		funds:   source,
		pricer:  pricer,
		policy:  policy,
		tracer:  noop.NewTracerProvider().Tracer("registrar"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) namePolicy() models.NamePolicy {
	return models.NamePolicy{
		MinLength: s.policy.MinNameLength,
		MaxLength: s.policy.MaxNameLength,
	}
}

// Health reports whether the backing store is reachable.
func (s *Service) Health(ctx context.Context) error {
	return s.records.Health(ctx)
}

func (s *Service) logAudit(ctx context.Context, event audit.RegistryEvent, e audit.Event) {
	e.Action = string(event)
	e.RequestID = requestcontext.RequestID(ctx)

	if s.logger != nil {
		s.logger.InfoContext(ctx, string(event),
			"event", string(event),
			"log_type", "audit",
			"owner", e.Owner.String(),
			"domain_id", e.DomainID,
			"request_id", e.RequestID,
		)
	}
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, e); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"event", string(event), "error", err)
	}
}

// refund returns a withdrawal after the guarded operation failed. A deposit
// failure here leaks funds, so it is logged loudly rather than swallowed.
func (s *Service) refund(ctx context.Context, owner domain.OwnerAddress, amount domain.Amount) {
	if err := s.funds.Deposit(ctx, owner, amount); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to refund withdrawal",
			"owner", owner.String(),
			"amount", amount.String(),
			"error", err,
		)
	}
}

func (s *Service) incrementRegistrations() {
	if s.metrics != nil {
		s.metrics.Registrations.Inc()
	}
}

func (s *Service) incrementRenewals() {
	if s.metrics != nil {
		s.metrics.Renewals.Inc()
	}
}
