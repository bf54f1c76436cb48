package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PremiumChecker reports whether a tenant holds the custom-domain
// entitlement.
type PremiumChecker interface {
	Premium(ctx context.Context, tenantID string) (bool, error)
}

// RequirePremium gates write operations on the tenant's entitlement.
// Verification of an already-claimed domain is deliberately not behind
// this gate: a tenant whose plan lapsed mid-flow may still finish
// proving ownership.
func RequirePremium(gate PremiumChecker, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetString("tenant_id")

		premium, err := gate.Premium(c.Request.Context(), tenantID)
		if err != nil {
			logger.Error("entitlement check failed",
				zap.String("tenant_id", tenantID),
				zap.Error(err),
			)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Unable to verify plan, try again"})
			c.Abort()
			return
		}
		if !premium {
			c.JSON(http.StatusForbidden, gin.H{"error": "Custom domains require a premium plan"})
			c.Abort()
			return
		}

		c.Next()
	}
}
