package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/boltshop/domain-gateway/internal/core"
	"github.com/boltshop/domain-gateway/internal/verify"
)

// DomainRegistry is the registry surface the HTTP layer depends on.
type DomainRegistry interface {
	Register(ctx context.Context, tenantID, tenantSlug, rawDomain string) (*core.DomainBinding, error)
	Unregister(ctx context.Context, tenantID string) error
	Status(ctx context.Context, tenantID string) (*core.DomainBinding, []verify.DNSRecord, error)
	SetEnabled(ctx context.Context, tenantID string, enabled bool) error
	Verify(ctx context.Context, tenantID, rawDomain string) (*core.DomainBinding, bool, error)
	Instructions(b *core.DomainBinding) []verify.DNSRecord
}

// Pinger is the readiness probe dependency.
type Pinger interface {
	Ping() error
}

type Handler struct {
	registry DomainRegistry
	db       Pinger
	logger   *zap.Logger
}

func NewHandler(registry DomainRegistry, db Pinger, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		registry: registry,
		db:       db,
		logger:   logger,
	}
}

func statusForKind(kind core.ErrorKind) int {
	switch kind {
	case core.KindValidation:
		return http.StatusBadRequest
	case core.KindAuth:
		return http.StatusUnauthorized
	case core.KindAuthorization:
		return http.StatusForbidden
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindConflict:
		return http.StatusConflict
	case core.KindPrecondition:
		return http.StatusPreconditionFailed
	case core.KindRateLimit:
		return http.StatusTooManyRequests
	case core.KindTransientDNS:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError maps a typed error to its status code. Internal causes
// are logged, never leaked.
func (h *Handler) respondError(c *gin.Context, err error) {
	kind := core.KindOf(err)
	status := statusForKind(kind)

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("tenant_id", c.GetString("tenant_id")),
			zap.Error(err),
		)
		c.JSON(status, gin.H{"error": "Internal error"})
		return
	}

	message := err.Error()
	var typed *core.Error
	if errors.As(err, &typed) {
		message = typed.Message
	}
	c.JSON(status, gin.H{"error": message})
}
