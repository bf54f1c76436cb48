package registry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/boltshop/domain-gateway/internal/core"
	"github.com/boltshop/domain-gateway/internal/metrics"
	"github.com/boltshop/domain-gateway/internal/verify"
)

// Store is the persistence surface the registry writes through. The
// postgres implementation lives in internal/db; tests supply an
// in-memory fake.
type Store interface {
	Create(ctx context.Context, b *core.DomainBinding) error
	ByTenant(ctx context.Context, tenantID string) (*core.DomainBinding, error)
	ByDomain(ctx context.Context, domain string) (*core.DomainBinding, error)
	DeleteByTenant(ctx context.Context, tenantID string) (string, error)
	UpdateEnabled(ctx context.Context, tenantID string, enabled bool) error
	// Mutate applies fn to the tenant's binding under a per-binding
	// lock and persists the result.
	Mutate(ctx context.Context, tenantID string, fn func(b *core.DomainBinding) error) (*core.DomainBinding, error)
}

// Cache is the router-facing read-through cache over binding snapshots.
type Cache interface {
	Get(ctx context.Context, domain string) (*core.DomainBinding, bool, error)
	Set(ctx context.Context, domain string, b *core.DomainBinding) error
	Invalidate(ctx context.Context, domain string) error
}

// Checker performs the live DNS ownership check.
type Checker interface {
	Check(ctx context.Context, domain, expectedToken string) verify.Result
}

// DomainInfoFn looks up informational WHOIS data at registration time.
type DomainInfoFn func(domain string) verify.DomainInfo

// Service owns all domain binding state transitions.
type Service struct {
	store      Store
	cache      Cache
	checker    Checker
	limiter    AttemptLimiter
	domainInfo DomainInfoFn

	servingIP     string
	canonicalHost string

	logger  *zap.Logger
	metrics *metrics.Collector
}

type Options struct {
	ServingIP     string
	CanonicalHost string
	MaxAttempts   int
	// DomainInfo is optional; nil disables the WHOIS snapshot.
	DomainInfo DomainInfoFn
	Metrics    *metrics.Collector
}

func NewService(store Store, cache Cache, checker Checker, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:         store,
		cache:         cache,
		checker:       checker,
		limiter:       NewAttemptLimiter(opts.MaxAttempts),
		domainInfo:    opts.DomainInfo,
		servingIP:     opts.ServingIP,
		canonicalHost: opts.CanonicalHost,
		logger:        logger,
		metrics:       opts.Metrics,
	}
}

// Register claims a domain for a tenant and issues a fresh verification
// challenge. A tenant holds at most one binding, and a domain belongs to
// at most one tenant.
func (s *Service) Register(ctx context.Context, tenantID, tenantSlug, rawDomain string) (*core.DomainBinding, error) {
	domain, err := core.NormalizeDomain(rawDomain)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.ByTenant(ctx, tenantID)
	if err != nil {
		return nil, core.WrapE(core.KindInternal, err, "failed to look up tenant binding")
	}
	if existing != nil {
		return nil, core.E(core.KindConflict, "tenant already has a bound domain; remove it first")
	}

	claimed, err := s.store.ByDomain(ctx, domain)
	if err != nil {
		return nil, core.WrapE(core.KindInternal, err, "failed to look up domain")
	}
	if claimed != nil {
		return nil, core.E(core.KindConflict, "domain %s is already bound to another store", domain)
	}

	token, err := verify.GenerateToken()
	if err != nil {
		return nil, core.WrapE(core.KindInternal, err, "failed to issue verification challenge")
	}

	b := &core.DomainBinding{
		ID:                uuid.New(),
		TenantID:          tenantID,
		TenantSlug:        tenantSlug,
		Domain:            domain,
		VerificationToken: token,
		State:             core.StatePending,
		Enabled:           false,
		AttemptCount:      0,
		SSLStatus:         core.SSLNone,
		CreatedAt:         time.Now().UTC(),
	}

	if s.domainInfo != nil {
		info := s.domainInfo(domain)
		b.Registrar = info.Registrar
		b.DomainExpiresAt = info.ExpiresAt
	}

	if err := s.store.Create(ctx, b); err != nil {
		if core.KindOf(err) == core.KindConflict {
			return nil, err
		}
		return nil, core.WrapE(core.KindInternal, err, "failed to create domain binding")
	}

	s.invalidate(ctx, domain)
	s.metrics.RecordRegistryWrite("register")
	s.logger.Info("domain registered",
		zap.String("tenant_id", tenantID),
		zap.String("domain", domain),
	)
	return b, nil
}

// Unregister deletes the tenant's binding and frees the domain for any
// tenant to claim again. Idempotent: removing a tenant with no binding
// is a no-op.
func (s *Service) Unregister(ctx context.Context, tenantID string) error {
	domain, err := s.store.DeleteByTenant(ctx, tenantID)
	if err != nil {
		return core.WrapE(core.KindInternal, err, "failed to remove domain binding")
	}
	if domain == "" {
		return nil
	}

	s.invalidate(ctx, domain)
	s.metrics.RecordRegistryWrite("unregister")
	s.logger.Info("domain unregistered",
		zap.String("tenant_id", tenantID),
		zap.String("domain", domain),
	)
	return nil
}

// Status returns the tenant's binding with the DNS records it should
// have published. Routing records appear only once verified.
func (s *Service) Status(ctx context.Context, tenantID string) (*core.DomainBinding, []verify.DNSRecord, error) {
	b, err := s.store.ByTenant(ctx, tenantID)
	if err != nil {
		return nil, nil, core.WrapE(core.KindInternal, err, "failed to look up tenant binding")
	}
	if b == nil {
		return nil, nil, core.E(core.KindNotFound, "no domain bound for this store")
	}

	records := verify.Instructions(b.VerificationToken, s.servingIP, s.canonicalHost, b.State == core.StateVerified)
	return b, records, nil
}

// SetEnabled toggles visitor routing for a verified binding.
func (s *Service) SetEnabled(ctx context.Context, tenantID string, enabled bool) error {
	b, err := s.store.ByTenant(ctx, tenantID)
	if err != nil {
		return core.WrapE(core.KindInternal, err, "failed to look up tenant binding")
	}
	if b == nil {
		return core.E(core.KindNotFound, "no domain bound for this store")
	}
	if b.State != core.StateVerified {
		return core.E(core.KindPrecondition, "domain must be verified before it can be enabled")
	}

	if err := s.store.UpdateEnabled(ctx, tenantID, enabled); err != nil {
		return core.WrapE(core.KindInternal, err, "failed to update domain binding")
	}

	s.invalidate(ctx, b.Domain)
	s.metrics.RecordRegistryWrite("set_enabled")
	return nil
}

// Verify runs one ownership check for the tenant's binding. Attempt
// accounting happens under the binding's lock so concurrent calls
// cannot slip past the cap. The rawDomain from the request must match
// the bound domain.
func (s *Service) Verify(ctx context.Context, tenantID, rawDomain string) (*core.DomainBinding, bool, error) {
	domain, err := core.NormalizeDomain(rawDomain)
	if err != nil {
		return nil, false, err
	}

	var verifyErr error
	var verified bool

	b, err := s.store.Mutate(ctx, tenantID, func(b *core.DomainBinding) error {
		if b.Domain != domain {
			return core.E(core.KindNotFound, "domain %s is not bound to this store", domain)
		}

		if b.State == core.StateVerified {
			verified = true
			return nil
		}

		if s.limiter.Exhausted(b) {
			// Persist the locked transition even though the call fails.
			b.State = core.StateLocked
			verifyErr = core.E(core.KindRateLimit, "verification attempt limit reached; contact support")
			return nil
		}

		res := s.checker.Check(ctx, b.Domain, b.VerificationToken)
		s.metrics.RecordVerification(string(res.Outcome))

		s.limiter.Record(b, res.Outcome)
		switch res.Outcome {
		case verify.OutcomeVerified:
			now := time.Now().UTC()
			b.State = core.StateVerified
			b.VerifiedAt = &now
			if b.SSLStatus == core.SSLNone {
				b.SSLStatus = core.SSLProvisioning
			}
			verified = true
		case verify.OutcomeTransient:
			verifyErr = core.E(core.KindTransientDNS, "verification failed, try again")
		case verify.OutcomeNotFound:
			// Reported as is_verified=false, not as an error.
		}
		s.logger.Info("verification attempt",
			zap.String("tenant_id", tenantID),
			zap.String("domain", b.Domain),
			zap.String("outcome", string(res.Outcome)),
			zap.Int("attempt_count", b.AttemptCount),
		)
		return nil
	})
	if err != nil {
		if core.KindOf(err) == core.KindInternal {
			return nil, false, core.WrapE(core.KindInternal, err, "verification failed")
		}
		return nil, false, err
	}

	s.invalidate(ctx, b.Domain)
	if verifyErr != nil {
		return b, false, verifyErr
	}
	return b, verified, nil
}

// Instructions exposes the DNS record set for a binding, for handlers
// that already hold one.
func (s *Service) Instructions(b *core.DomainBinding) []verify.DNSRecord {
	return verify.Instructions(b.VerificationToken, s.servingIP, s.canonicalHost, b.State == core.StateVerified)
}

// LookupByDomain is the router's hot-path read. It consults the cache
// first and falls back to the store, caching both hits and misses.
func (s *Service) LookupByDomain(ctx context.Context, domain string) (*core.DomainBinding, error) {
	if s.cache != nil {
		b, found, err := s.cache.Get(ctx, domain)
		if err == nil && found {
			s.metrics.RecordCacheLookup("hit")
			return b, nil
		}
		if err != nil {
			s.logger.Warn("binding cache read failed", zap.String("domain", domain), zap.Error(err))
		}
	}
	s.metrics.RecordCacheLookup("miss")

	b, err := s.store.ByDomain(ctx, domain)
	if err != nil {
		return nil, core.WrapE(core.KindInternal, err, "failed to look up domain")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, domain, b); err != nil {
			s.logger.Warn("binding cache write failed", zap.String("domain", domain), zap.Error(err))
		}
	}
	return b, nil
}

// invalidate drops the router cache entry for a domain synchronously
// with the registry write that changed it.
func (s *Service) invalidate(ctx context.Context, domain string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, domain); err != nil {
		s.logger.Error("cache invalidation failed", zap.String("domain", domain), zap.Error(err))
	}
}
