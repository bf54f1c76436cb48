package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boltshop/domain-gateway/internal/core"
	"github.com/boltshop/domain-gateway/internal/verify"
)

// memStore mirrors the postgres repository contract with a mutex
// standing in for the row lock.
type memStore struct {
	mu       sync.Mutex
	byTenant map[string]*core.DomainBinding
}

func newMemStore() *memStore {
	return &memStore{byTenant: make(map[string]*core.DomainBinding)}
}

func (s *memStore) Create(_ context.Context, b *core.DomainBinding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byTenant[b.TenantID]; ok {
		return core.E(core.KindConflict, "tenant already has a binding")
	}
	for _, other := range s.byTenant {
		if other.Domain == b.Domain {
			return core.E(core.KindConflict, "domain already bound")
		}
	}
	cp := *b
	s.byTenant[b.TenantID] = &cp
	return nil
}

func (s *memStore) ByTenant(_ context.Context, tenantID string) (*core.DomainBinding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.byTenant[tenantID]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, nil
}

func (s *memStore) ByDomain(_ context.Context, domain string) (*core.DomainBinding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.byTenant {
		if b.Domain == domain {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) DeleteByTenant(_ context.Context, tenantID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.byTenant[tenantID]
	if !ok {
		return "", nil
	}
	delete(s.byTenant, tenantID)
	return b.Domain, nil
}

func (s *memStore) UpdateEnabled(_ context.Context, tenantID string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.byTenant[tenantID]; ok {
		b.Enabled = enabled
	}
	return nil
}

func (s *memStore) Mutate(_ context.Context, tenantID string, fn func(b *core.DomainBinding) error) (*core.DomainBinding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.byTenant[tenantID]
	if !ok {
		return nil, core.E(core.KindNotFound, "no domain binding for tenant")
	}
	cp := *b
	if err := fn(&cp); err != nil {
		return nil, err
	}
	s.byTenant[tenantID] = &cp
	out := cp
	return &out, nil
}

type memCache struct {
	mu          sync.Mutex
	entries     map[string]*core.DomainBinding
	invalidated []string
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]*core.DomainBinding)}
}

func (c *memCache) Get(_ context.Context, domain string) (*core.DomainBinding, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.entries[domain]
	return b, ok, nil
}

func (c *memCache) Set(_ context.Context, domain string, b *core.DomainBinding) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[domain] = b
	return nil
}

func (c *memCache) Invalidate(_ context.Context, domain string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, domain)
	c.invalidated = append(c.invalidated, domain)
	return nil
}

// stubChecker returns a scripted outcome and records whether it ran.
type stubChecker struct {
	outcome verify.Outcome
	calls   int
}

func (s *stubChecker) Check(_ context.Context, _, _ string) verify.Result {
	s.calls++
	return verify.Result{Outcome: s.outcome}
}

func newTestService(checker Checker) (*Service, *memStore, *memCache) {
	store := newMemStore()
	cache := newMemCache()
	svc := NewService(store, cache, checker, nil, Options{
		ServingIP:     "203.0.113.10",
		CanonicalHost: "shops.boltshop.io",
	})
	return svc, store, cache
}

func TestRegister(t *testing.T) {
	svc, _, cache := newTestService(&stubChecker{})
	ctx := context.Background()

	b, err := svc.Register(ctx, "tenant-a", "acme", "Example.COM")
	require.NoError(t, err)

	assert.Equal(t, "example.com", b.Domain)
	assert.Equal(t, core.StatePending, b.State)
	assert.Equal(t, 0, b.AttemptCount)
	assert.False(t, b.Enabled)
	assert.NotEmpty(t, b.VerificationToken)
	assert.Equal(t, core.SSLNone, b.SSLStatus)
	assert.Contains(t, cache.invalidated, "example.com")
}

func TestRegisterRejectsInvalidDomain(t *testing.T) {
	svc, _, _ := newTestService(&stubChecker{})

	_, err := svc.Register(context.Background(), "tenant-a", "acme", "not a domain")
	require.Error(t, err)
	assert.Equal(t, core.KindValidation, core.KindOf(err))
}

func TestRegisterDomainUniqueness(t *testing.T) {
	svc, _, _ := newTestService(&stubChecker{})
	ctx := context.Background()

	_, err := svc.Register(ctx, "tenant-a", "acme", "example.com")
	require.NoError(t, err)

	// Same domain, different tenant, different casing.
	_, err = svc.Register(ctx, "tenant-b", "globex", "EXAMPLE.com")
	require.Error(t, err)
	assert.Equal(t, core.KindConflict, core.KindOf(err))
}

func TestRegisterOneBindingPerTenant(t *testing.T) {
	svc, _, _ := newTestService(&stubChecker{})
	ctx := context.Background()

	_, err := svc.Register(ctx, "tenant-a", "acme", "example.com")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "tenant-a", "acme", "other.com")
	require.Error(t, err)
	assert.Equal(t, core.KindConflict, core.KindOf(err))
}

func TestUnregisterIdempotentAndFreesDomain(t *testing.T) {
	svc, _, cache := newTestService(&stubChecker{})
	ctx := context.Background()

	_, err := svc.Register(ctx, "tenant-a", "acme", "example.com")
	require.NoError(t, err)

	require.NoError(t, svc.Unregister(ctx, "tenant-a"))
	assert.Contains(t, cache.invalidated, "example.com")

	// Second remove is a no-op, not an error.
	require.NoError(t, svc.Unregister(ctx, "tenant-a"))

	// The freed domain can be claimed by a different tenant.
	_, err = svc.Register(ctx, "tenant-b", "globex", "example.com")
	require.NoError(t, err)
}

func TestVerifySuccess(t *testing.T) {
	checker := &stubChecker{outcome: verify.OutcomeVerified}
	svc, _, cache := newTestService(checker)
	ctx := context.Background()

	_, err := svc.Register(ctx, "tenant-a", "acme", "example.com")
	require.NoError(t, err)

	b, verified, err := svc.Verify(ctx, "tenant-a", "example.com")
	require.NoError(t, err)

	assert.True(t, verified)
	assert.Equal(t, core.StateVerified, b.State)
	assert.Equal(t, 0, b.AttemptCount)
	assert.NotNil(t, b.VerifiedAt)
	assert.Equal(t, core.SSLProvisioning, b.SSLStatus)
	assert.Contains(t, cache.invalidated, "example.com")

	records := svc.Instructions(b)
	types := make([]string, 0, len(records))
	for _, r := range records {
		types = append(types, r.Type)
	}
	assert.ElementsMatch(t, []string{"TXT", "A", "CNAME"}, types)
}

func TestVerifyMismatchCountsAttempt(t *testing.T) {
	checker := &stubChecker{outcome: verify.OutcomeNotFound}
	svc, _, _ := newTestService(checker)
	ctx := context.Background()

	_, err := svc.Register(ctx, "tenant-a", "acme", "example.com")
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		b, verified, err := svc.Verify(ctx, "tenant-a", "example.com")
		require.NoError(t, err)
		assert.False(t, verified)
		assert.Equal(t, i, b.AttemptCount)
		assert.Equal(t, core.StatePending, b.State)
	}
}

func TestVerifyAttemptCap(t *testing.T) {
	checker := &stubChecker{outcome: verify.OutcomeNotFound}
	svc, _, _ := newTestService(checker)
	ctx := context.Background()

	_, err := svc.Register(ctx, "tenant-a", "acme", "example.com")
	require.NoError(t, err)

	var last *core.DomainBinding
	for i := 0; i < DefaultMaxAttempts; i++ {
		last, _, err = svc.Verify(ctx, "tenant-a", "example.com")
		require.NoError(t, err)
	}
	assert.Equal(t, DefaultMaxAttempts, last.AttemptCount)
	assert.Equal(t, core.StateLocked, last.State)

	// The record is now correct, but the cap wins: no DNS I/O happens.
	checker.outcome = verify.OutcomeVerified
	calls := checker.calls

	b, verified, err := svc.Verify(ctx, "tenant-a", "example.com")
	require.Error(t, err)
	assert.Equal(t, core.KindRateLimit, core.KindOf(err))
	assert.False(t, verified)
	assert.Equal(t, core.StateLocked, b.State)
	assert.Equal(t, calls, checker.calls)
}

func TestVerifyTransientNotCounted(t *testing.T) {
	checker := &stubChecker{outcome: verify.OutcomeTransient}
	svc, _, _ := newTestService(checker)
	ctx := context.Background()

	_, err := svc.Register(ctx, "tenant-a", "acme", "example.com")
	require.NoError(t, err)

	b, verified, err := svc.Verify(ctx, "tenant-a", "example.com")
	require.Error(t, err)
	assert.Equal(t, core.KindTransientDNS, core.KindOf(err))
	assert.False(t, verified)
	assert.Equal(t, 0, b.AttemptCount)
	assert.Equal(t, core.StatePending, b.State)
}

func TestVerifyWrongDomain(t *testing.T) {
	svc, _, _ := newTestService(&stubChecker{outcome: verify.OutcomeVerified})
	ctx := context.Background()

	_, err := svc.Register(ctx, "tenant-a", "acme", "example.com")
	require.NoError(t, err)

	_, _, err = svc.Verify(ctx, "tenant-a", "other.com")
	require.Error(t, err)
	assert.Equal(t, core.KindNotFound, core.KindOf(err))
}

func TestVerifyNoBinding(t *testing.T) {
	svc, _, _ := newTestService(&stubChecker{})

	_, _, err := svc.Verify(context.Background(), "tenant-a", "example.com")
	require.Error(t, err)
	assert.Equal(t, core.KindNotFound, core.KindOf(err))
}

func TestVerifyAlreadyVerified(t *testing.T) {
	checker := &stubChecker{outcome: verify.OutcomeVerified}
	svc, _, _ := newTestService(checker)
	ctx := context.Background()

	_, err := svc.Register(ctx, "tenant-a", "acme", "example.com")
	require.NoError(t, err)

	_, _, err = svc.Verify(ctx, "tenant-a", "example.com")
	require.NoError(t, err)
	calls := checker.calls

	// Re-verifying a verified binding is a no-op, no new DNS lookup.
	b, verified, err := svc.Verify(ctx, "tenant-a", "example.com")
	require.NoError(t, err)
	assert.True(t, verified)
	assert.Equal(t, core.StateVerified, b.State)
	assert.Equal(t, calls, checker.calls)
}

func TestSetEnabled(t *testing.T) {
	checker := &stubChecker{outcome: verify.OutcomeVerified}
	svc, _, cache := newTestService(checker)
	ctx := context.Background()

	_, err := svc.Register(ctx, "tenant-a", "acme", "example.com")
	require.NoError(t, err)

	// Pending binding cannot be enabled.
	err = svc.SetEnabled(ctx, "tenant-a", true)
	require.Error(t, err)
	assert.Equal(t, core.KindPrecondition, core.KindOf(err))

	_, _, err = svc.Verify(ctx, "tenant-a", "example.com")
	require.NoError(t, err)

	require.NoError(t, svc.SetEnabled(ctx, "tenant-a", true))
	assert.Contains(t, cache.invalidated, "example.com")

	b, _, err := svc.Status(ctx, "tenant-a")
	require.NoError(t, err)
	assert.True(t, b.Enabled)
}

func TestSetEnabledNoBinding(t *testing.T) {
	svc, _, _ := newTestService(&stubChecker{})

	err := svc.SetEnabled(context.Background(), "tenant-a", true)
	require.Error(t, err)
	assert.Equal(t, core.KindNotFound, core.KindOf(err))
}

func TestStatusInstructions(t *testing.T) {
	checker := &stubChecker{outcome: verify.OutcomeVerified}
	svc, _, _ := newTestService(checker)
	ctx := context.Background()

	_, err := svc.Register(ctx, "tenant-a", "acme", "example.com")
	require.NoError(t, err)

	// Pending: challenge record only.
	_, records, err := svc.Status(ctx, "tenant-a")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "TXT", records[0].Type)

	_, _, err = svc.Verify(ctx, "tenant-a", "example.com")
	require.NoError(t, err)

	// Verified: routing records appear.
	_, records, err = svc.Status(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestLookupByDomainReadThrough(t *testing.T) {
	svc, _, cache := newTestService(&stubChecker{})
	ctx := context.Background()

	_, err := svc.Register(ctx, "tenant-a", "acme", "example.com")
	require.NoError(t, err)

	b, err := svc.LookupByDomain(ctx, "example.com")
	require.NoError(t, err)
	require.NotNil(t, b)

	// Snapshot is now cached, including negative entries for misses.
	_, found, _ := cache.Get(ctx, "example.com")
	assert.True(t, found)

	miss, err := svc.LookupByDomain(ctx, "unknown.com")
	require.NoError(t, err)
	assert.Nil(t, miss)
	_, found, _ = cache.Get(ctx, "unknown.com")
	assert.True(t, found)
}

func TestAttemptLimiterMonotonic(t *testing.T) {
	l := NewAttemptLimiter(0)
	require.Equal(t, DefaultMaxAttempts, l.Max)

	b := &core.DomainBinding{State: core.StatePending}
	prev := 0
	for i := 0; i < 4; i++ {
		l.Record(b, verify.OutcomeNotFound)
		assert.Greater(t, b.AttemptCount, prev)
		prev = b.AttemptCount
	}

	l.Record(b, verify.OutcomeTransient)
	assert.Equal(t, prev, b.AttemptCount)

	l.Record(b, verify.OutcomeVerified)
	assert.Equal(t, 0, b.AttemptCount)
}
