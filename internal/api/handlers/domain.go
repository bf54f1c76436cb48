package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/boltshop/domain-gateway/internal/verify"
)

type AddDomainRequest struct {
	Domain string `json:"domain" binding:"required"`
}

type VerifyDomainRequest struct {
	Domain string `json:"domain" binding:"required"`
}

type SetEnabledRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// AddDomain claims a domain for the authenticated store and returns the
// ownership challenge the tenant must publish.
func (h *Handler) AddDomain(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	tenantSlug := c.GetString("tenant_slug")

	var req AddDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "domain is required"})
		return
	}

	b, err := h.registry.Register(c.Request.Context(), tenantID, tenantSlug, req.Domain)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"domain":            b.Domain,
		"verification_code": b.VerificationToken,
		"txt_record_name":   verify.RecordName(b.Domain),
	})
}

// RemoveDomain deletes the store's binding. Idempotent: removing when
// nothing is bound still succeeds.
func (h *Handler) RemoveDomain(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	if err := h.registry.Unregister(c.Request.Context(), tenantID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Custom domain removed"})
}

// GetDomainStatus returns the binding summary and the DNS records the
// tenant should have in place.
func (h *Handler) GetDomainStatus(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	b, records, err := h.registry.Status(c.Request.Context(), tenantID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"binding":          b,
		"txt_record_name":  verify.RecordName(b.Domain),
		"dns_instructions": records,
	})
}

// VerifyDomain runs one ownership check. A definite mismatch is not an
// HTTP error; the caller gets is_verified=false and tries again after
// fixing their DNS.
func (h *Handler) VerifyDomain(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	var req VerifyDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "domain is required"})
		return
	}

	b, verified, err := h.registry.Verify(c.Request.Context(), tenantID, req.Domain)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"is_verified":      verified,
		"attempt_count":    b.AttemptCount,
		"dns_instructions": h.registry.Instructions(b),
	})
}

// SetDomainEnabled toggles visitor routing for a verified binding.
func (h *Handler) SetDomainEnabled(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	var req SetEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "enabled is required"})
		return
	}

	if err := h.registry.SetEnabled(c.Request.Context(), tenantID, *req.Enabled); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"enabled": *req.Enabled})
}
