package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/boltshop/domain-gateway/internal/core"
)

const pqUniqueViolation = "23505"

func NewConnection(databaseURL string, maxOpen, maxIdle int) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// Repository is the single write path for domain binding state.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Ping() error {
	return r.db.Ping()
}

func (r *Repository) Create(ctx context.Context, b *core.DomainBinding) error {
	query := `
        INSERT INTO domain_bindings (
            id, tenant_id, tenant_slug, domain, verification_token,
            state, enabled, attempt_count, ssl_status,
            registrar, domain_expires_at, created_at, verified_at
        ) VALUES (
            :id, :tenant_id, :tenant_slug, :domain, :verification_token,
            :state, :enabled, :attempt_count, :ssl_status,
            :registrar, :domain_expires_at, :created_at, :verified_at
        )`

	_, err := r.db.NamedExecContext(ctx, query, b)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
		return core.WrapE(core.KindConflict, err, "domain or tenant already has a binding")
	}
	return err
}

// ByTenant returns the tenant's binding, or (nil, nil) if none exists.
func (r *Repository) ByTenant(ctx context.Context, tenantID string) (*core.DomainBinding, error) {
	var b core.DomainBinding
	query := `SELECT * FROM domain_bindings WHERE tenant_id = $1`
	err := r.db.GetContext(ctx, &b, query, tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ByDomain returns the binding for a normalized domain, or (nil, nil).
func (r *Repository) ByDomain(ctx context.Context, domain string) (*core.DomainBinding, error) {
	var b core.DomainBinding
	query := `SELECT * FROM domain_bindings WHERE domain = $1`
	err := r.db.GetContext(ctx, &b, query, domain)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// DeleteByTenant removes the tenant's binding and returns the freed
// domain so callers can invalidate caches. Deleting when no binding
// exists is a no-op and returns an empty domain.
func (r *Repository) DeleteByTenant(ctx context.Context, tenantID string) (string, error) {
	var domain string
	query := `DELETE FROM domain_bindings WHERE tenant_id = $1 RETURNING domain`
	err := r.db.GetContext(ctx, &domain, query, tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return domain, nil
}

func (r *Repository) UpdateEnabled(ctx context.Context, tenantID string, enabled bool) error {
	query := `UPDATE domain_bindings SET enabled = $2 WHERE tenant_id = $1`
	_, err := r.db.ExecContext(ctx, query, tenantID, enabled)
	return err
}

// Mutate loads the tenant's binding under a row lock, applies fn, and
// writes the mutable fields back in the same transaction. The row lock
// serializes concurrent verification attempts for a binding so they
// cannot race past the attempt cap. A non-nil error from fn rolls the
// transaction back.
func (r *Repository) Mutate(ctx context.Context, tenantID string, fn func(b *core.DomainBinding) error) (*core.DomainBinding, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var b core.DomainBinding
	query := `SELECT * FROM domain_bindings WHERE tenant_id = $1 FOR UPDATE`
	err = tx.GetContext(ctx, &b, query, tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.E(core.KindNotFound, "no domain binding for tenant")
	}
	if err != nil {
		return nil, err
	}

	if err := fn(&b); err != nil {
		return nil, err
	}

	update := `
        UPDATE domain_bindings SET
            state = :state,
            enabled = :enabled,
            attempt_count = :attempt_count,
            ssl_status = :ssl_status,
            verified_at = :verified_at
        WHERE tenant_id = :tenant_id`

	if _, err := tx.NamedExecContext(ctx, update, &b); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &b, nil
}

// ResetAttempts clears the attempt counter and unlocks a binding. Not
// exposed over HTTP; support tooling only.
func (r *Repository) ResetAttempts(ctx context.Context, tenantID string) error {
	query := `
        UPDATE domain_bindings
        SET attempt_count = 0, state = 'pending'
        WHERE tenant_id = $1 AND state = 'locked'`
	_, err := r.db.ExecContext(ctx, query, tenantID)
	return err
}
