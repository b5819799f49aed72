package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"registrar/internal/funds"
	"registrar/internal/registry/models"
	"registrar/internal/registry/namehash"
	"registrar/pkg/domain"
	dErrors "registrar/pkg/domain-errors"
	"registrar/pkg/platform/audit"
	"registrar/pkg/platform/sentinel"
	"registrar/pkg/requestcontext"
)

// QuoteRentCost prices a lease of the given duration for the name. The quote
// is deterministic: registering the same name for the same duration charges
// exactly this amount.
func (s *Service) QuoteRentCost(ctx context.Context, name string, duration time.Duration) (domain.Amount, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveQuote(start)
		}
	}()

	canonical, err := models.CanonicalName(name, s.namePolicy())
	if err != nil {
		return 0, err
	}
	if err := s.requireMinDuration(duration); err != nil {
		return 0, err
	}

	// Pricing depends only on name length and duration, so cache hits are
	// exact. A cache error degrades to computing the price directly.
	if s.quotes != nil {
		cost, ok, err := s.quotes.Get(ctx, len(canonical), duration)
		if err == nil && ok {
			return cost, nil
		}
		if err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "quote cache read failed", "error", err)
		}
	}

	cost, err := s.pricer.Price(canonical, duration)
	if err != nil {
		return 0, err
	}

	if s.quotes != nil {
		if err := s.quotes.Set(ctx, len(canonical), duration, cost); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "quote cache write failed", "error", err)
		}
	}
	return cost, nil
}

// IsAvailable reports whether the name could be registered right now. The
// answer is advisory: only Allocate decides availability authoritatively.
func (s *Service) IsAvailable(ctx context.Context, name string) (bool, error) {
	canonical, err := models.CanonicalName(name, s.namePolicy())
	if err != nil {
		return false, err
	}
	record, err := s.records.ResolveHash(ctx, namehash.Hash(canonical))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return true, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve name")
	}
	return record.IsReclaimableAt(requestcontext.Now(ctx), s.policy.GracePeriod), nil
}

// Register leases the name to the caller for the given duration, charging
// exactly the quoted rent. If payment is non-nil it must equal the quote.
// Funds withdrawn before a lost allocation race are returned in full.
func (s *Service) Register(ctx context.Context, name string, duration time.Duration, payment *domain.Amount) (*models.Domain, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveRegister(start)
		}
	}()

	ctx, span := s.tracer.Start(ctx, "registry.Register")
	defer span.End()

	caller := requestcontext.Caller(ctx)
	if caller.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	canonical, err := models.CanonicalName(name, s.namePolicy())
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("name.length", len(canonical)))

	if err := s.requireMinDuration(duration); err != nil {
		return nil, err
	}

	// A record can only be delivered into an initialized collection.
	initialized, err := s.gate.IsInitialized(ctx, caller)
	if err != nil {
		return nil, err
	}
	if !initialized {
		return nil, dErrors.New(dErrors.CodeConflict, "account is not initialized")
	}

	cost, err := s.pricer.Price(canonical, duration)
	if err != nil {
		return nil, err
	}
	if err := s.requireExactPayment(payment, cost); err != nil {
		return nil, err
	}

	if err := s.funds.Withdraw(ctx, caller, cost); err != nil {
		if errors.Is(err, funds.ErrInsufficientFunds) {
			return nil, dErrors.New(dErrors.CodeInsufficientPayment, "insufficient funds for rent")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to withdraw rent")
	}

	now := requestcontext.Now(ctx)
	record := &models.Domain{
		Name:      canonical,
		NameHash:  namehash.Hash(canonical),
		Owner:     caller,
		CreatedAt: now,
		ExpiresAt: now.Add(duration),
	}
	if err := s.records.Allocate(ctx, record, now, s.policy.GracePeriod); err != nil {
		s.refund(ctx, caller, cost)
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "name is not available")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate name")
	}
	span.SetAttributes(attribute.Int64("domain.id", int64(record.ID)))

	s.logAudit(ctx, audit.EventDomainRegistered, audit.Event{
		Owner:     caller,
		DomainID:  record.ID,
		Name:      record.Name,
		NameHash:  record.NameHash,
		Cost:      cost,
		ExpiresAt: record.ExpiresAt,
	})
	s.incrementRegistrations()
	return record, nil
}

// Renew extends the lease on the caller's record by the given duration,
// measured from the current expiry. Time already paid for is never lost by
// renewing early. If payment is non-nil it must equal the quote.
func (s *Service) Renew(ctx context.Context, id domain.DomainID, duration time.Duration, payment *domain.Amount) (*models.Domain, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveRenew(start)
		}
	}()

	ctx, span := s.tracer.Start(ctx, "registry.Renew",
		trace.WithAttributes(attribute.Int64("domain.id", int64(id))))
	defer span.End()

	caller := requestcontext.Caller(ctx)
	grant, err := s.gate.Authorize(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireMinDuration(duration); err != nil {
		return nil, err
	}

	current, err := s.records.FindByID(ctx, grant.DomainID())
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "domain not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load domain")
	}

	cost, err := s.pricer.Price(current.Name, duration)
	if err != nil {
		return nil, err
	}
	if err := s.requireExactPayment(payment, cost); err != nil {
		return nil, err
	}

	if err := s.funds.Withdraw(ctx, caller, cost); err != nil {
		if errors.Is(err, funds.ErrInsufficientFunds) {
			return nil, dErrors.New(dErrors.CodeInsufficientPayment, "insufficient funds for rent")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to withdraw rent")
	}

	now := requestcontext.Now(ctx)
	record, err := s.records.Execute(ctx, grant.DomainID(),
		func(d *models.Domain) error {
			if d.IsExpiredAt(now) && !s.policy.AllowExpiredRenewal {
				return dErrors.New(dErrors.CodeInvalidExtension, "lease has expired; register the name again")
			}
			return d.CanExtend(d.ExpiresAt.Add(duration))
		},
		func(d *models.Domain) {
			d.ApplyExtension(d.ExpiresAt.Add(duration))
		},
	)
	if err != nil {
		s.refund(ctx, caller, cost)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "domain not found")
		}
		return nil, err
	}

	s.logAudit(ctx, audit.EventDomainRenewed, audit.Event{
		Owner:     grant.Owner(),
		DomainID:  record.ID,
		Name:      record.Name,
		NameHash:  record.NameHash,
		Cost:      cost,
		ExpiresAt: record.ExpiresAt,
	})
	s.incrementRenewals()
	return record, nil
}

// maxBioLength bounds the owner-writable bio field.
const maxBioLength = 1024

// UpdateBio replaces the record's bio. Owner only.
func (s *Service) UpdateBio(ctx context.Context, id domain.DomainID, bio string) (*models.Domain, error) {
	bio = strings.TrimSpace(bio)
	if len(bio) > maxBioLength {
		return nil, dErrors.Newf(dErrors.CodeValidation, "bio must be at most %d characters", maxBioLength)
	}

	grant, err := s.gate.Authorize(ctx, requestcontext.Caller(ctx), id)
	if err != nil {
		return nil, err
	}

	record, err := s.records.Execute(ctx, grant.DomainID(),
		func(*models.Domain) error { return nil },
		func(d *models.Domain) { d.ApplyBio(bio) },
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "domain not found")
		}
		return nil, err
	}

	s.logAudit(ctx, audit.EventDomainBioChanged, audit.Event{
		Owner:    grant.Owner(),
		DomainID: record.ID,
		Name:     record.Name,
		NameHash: record.NameHash,
	})
	return record, nil
}

// UpdateAddress repoints where the record resolves. Owner only.
func (s *Service) UpdateAddress(ctx context.Context, id domain.DomainID, addr domain.OwnerAddress) (*models.Domain, error) {
	grant, err := s.gate.Authorize(ctx, requestcontext.Caller(ctx), id)
	if err != nil {
		return nil, err
	}

	record, err := s.records.Execute(ctx, grant.DomainID(),
		func(*models.Domain) error { return nil },
		func(d *models.Domain) { d.ApplyResolvedAddress(addr) },
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "domain not found")
		}
		return nil, err
	}

	s.logAudit(ctx, audit.EventDomainAddressChanged, audit.Event{
		Owner:    grant.Owner(),
		DomainID: record.ID,
		Name:     record.Name,
		NameHash: record.NameHash,
	})
	return record, nil
}

// ListAllDomains returns the public projection of every live record.
func (s *Service) ListAllDomains(ctx context.Context) ([]models.DomainInfo, error) {
	records, err := s.records.ListAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list domains")
	}
	return projectInfos(records), nil
}

// ListDomainsOf returns the public projection of the owner's records,
// expired ones included. An owner without an initialized collection has
// nothing to list.
func (s *Service) ListDomainsOf(ctx context.Context, owner domain.OwnerAddress) ([]models.DomainInfo, error) {
	initialized, err := s.gate.IsInitialized(ctx, owner)
	if err != nil {
		return nil, err
	}
	if !initialized {
		return nil, dErrors.New(dErrors.CodeNotFound, "owner has no collection")
	}
	records, err := s.records.ListByOwner(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list domains")
	}
	return projectInfos(records), nil
}

// GetDomainInfo returns the public projection of the record the owner's
// collection holds under the given name hash.
func (s *Service) GetDomainInfo(ctx context.Context, owner domain.OwnerAddress, hash domain.NameHash) (models.DomainInfo, error) {
	initialized, err := s.gate.IsInitialized(ctx, owner)
	if err != nil {
		return models.DomainInfo{}, err
	}
	if !initialized {
		return models.DomainInfo{}, dErrors.New(dErrors.CodeNotFound, "owner has no collection")
	}

	record, err := s.records.ResolveHash(ctx, hash)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.DomainInfo{}, dErrors.New(dErrors.CodeNotFound, "domain not found")
		}
		return models.DomainInfo{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve name")
	}
	if record.Owner != owner {
		return models.DomainInfo{}, dErrors.New(dErrors.CodeNotFound, "domain not found in this collection")
	}
	return record.Info(), nil
}

// ResolveName returns the public projection of the live record for a name
// hash, regardless of owner.
func (s *Service) ResolveName(ctx context.Context, hash domain.NameHash) (models.DomainInfo, error) {
	record, err := s.records.ResolveHash(ctx, hash)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.DomainInfo{}, dErrors.New(dErrors.CodeNotFound, "domain not found")
		}
		return models.DomainInfo{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve name")
	}
	return record.Info(), nil
}

// InitializeAccount sets up the caller's collection. One-time per owner.
func (s *Service) InitializeAccount(ctx context.Context) error {
	caller := requestcontext.Caller(ctx)
	if err := s.gate.Initialize(ctx, caller, requestcontext.Now(ctx)); err != nil {
		return err
	}
	s.logAudit(ctx, audit.EventAccountInitialized, audit.Event{Owner: caller})
	return nil
}

// IsInitialized reports whether the owner has set up a collection.
func (s *Service) IsInitialized(ctx context.Context, owner domain.OwnerAddress) (bool, error) {
	return s.gate.IsInitialized(ctx, owner)
}

func (s *Service) requireMinDuration(duration time.Duration) error {
	if duration < s.policy.MinRentDuration {
		return dErrors.Newf(dErrors.CodeValidation,
			"duration must be at least %d seconds", int64(s.policy.MinRentDuration/time.Second))
	}
	return nil
}

// requireExactPayment enforces that a client-asserted payment matches the
// quote. Underpayment and overpayment are both rejected; the engine never
// makes change.
func (s *Service) requireExactPayment(payment *domain.Amount, cost domain.Amount) error {
	if payment == nil {
		return nil
	}
	switch payment.Cmp(cost) {
	case -1:
		return dErrors.Newf(dErrors.CodeInsufficientPayment, "payment %s is less than the quoted cost %s", payment.String(), cost.String())
	case 1:
		return dErrors.Newf(dErrors.CodeValidation, "payment %s exceeds the quoted cost %s", payment.String(), cost.String())
	}
	return nil
}

func projectInfos(records []*models.Domain) []models.DomainInfo {
	infos := make([]models.DomainInfo, 0, len(records))
	for _, r := range records {
		infos = append(infos, r.Info())
	}
	return infos
}
