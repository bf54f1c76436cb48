package core

import (
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

type BindingState string

const (
	StatePending  BindingState = "pending"
	StateVerified BindingState = "verified"
	StateLocked   BindingState = "locked"
)

type SSLStatus string

const (
	SSLNone         SSLStatus = "none"
	SSLProvisioning SSLStatus = "provisioning"
	SSLActive       SSLStatus = "active"
)

// DomainBinding ties a custom domain to the tenant that claimed it.
// At most one binding exists per tenant, and a domain can be bound by
// at most one tenant at a time.
type DomainBinding struct {
	ID                uuid.UUID    `json:"id" db:"id"`
	TenantID          string       `json:"tenant_id" db:"tenant_id"`
	TenantSlug        string       `json:"tenant_slug" db:"tenant_slug"`
	Domain            string       `json:"domain" db:"domain"`
	VerificationToken string       `json:"-" db:"verification_token"`
	State             BindingState `json:"state" db:"state"`
	Enabled           bool         `json:"enabled" db:"enabled"`
	AttemptCount      int          `json:"attempt_count" db:"attempt_count"`

	// SSLStatus is informational; the hosting platform writes it through
	// once certificate provisioning starts.
	SSLStatus SSLStatus `json:"ssl_status" db:"ssl_status"`

	// WHOIS snapshot taken at registration time.
	Registrar       *string    `json:"registrar,omitempty" db:"registrar"`
	DomainExpiresAt *time.Time `json:"domain_expires_at,omitempty" db:"domain_expires_at"`

	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	VerifiedAt *time.Time `json:"verified_at,omitempty" db:"verified_at"`
}

// Routable reports whether visitor traffic on this domain may be served.
// Enabled is only ever true for verified bindings, but the router checks
// both so a bad row can never route traffic.
func (b *DomainBinding) Routable() bool {
	return b.State == StateVerified && b.Enabled
}

var labelPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)
var tldPattern = regexp.MustCompile(`^[a-z]{2,}$`)

// NormalizeDomain lowercases and validates a fully-qualified domain name.
// It rejects IPs, single labels, wildcard entries and malformed labels.
func NormalizeDomain(raw string) (string, error) {
	domain := strings.ToLower(strings.TrimSpace(raw))
	if domain == "" {
		return "", E(KindValidation, "domain is required")
	}
	if strings.HasSuffix(domain, ".") {
		return "", E(KindValidation, "domain must not have a trailing dot")
	}
	if len(domain) > 253 {
		return "", E(KindValidation, "domain exceeds maximum length of 253 characters")
	}
	if strings.Contains(domain, "*") {
		return "", E(KindValidation, "wildcard domains are not supported")
	}
	if ip := net.ParseIP(domain); ip != nil {
		return "", E(KindValidation, "domain must be a hostname, not an IP address")
	}

	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return "", E(KindValidation, "domain must include at least one dot")
	}
	for _, label := range labels {
		if !labelPattern.MatchString(label) {
			return "", E(KindValidation, "invalid domain label %q", label)
		}
	}
	if !tldPattern.MatchString(labels[len(labels)-1]) {
		return "", E(KindValidation, "top-level domain must be at least two letters")
	}
	return domain, nil
}
