// Package entitlement talks to the platform's entitlement service. The
// gateway consumes premium status as a boolean; billing and plan logic
// live upstream.
package entitlement

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/boltshop/domain-gateway/internal/config"
	"github.com/boltshop/domain-gateway/internal/core"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(cfg config.EntitlementConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Premium reports whether the tenant currently holds the custom-domain
// entitlement.
func (c *Client) Premium(ctx context.Context, tenantID string) (bool, error) {
	url := fmt.Sprintf("%s/internal/tenants/%s/entitlement", c.baseURL, tenantID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, core.WrapE(core.KindInternal, err, "failed to build entitlement request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, core.WrapE(core.KindInternal, err, "entitlement service unreachable")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusNotFound:
		return false, core.E(core.KindAuth, "unknown tenant")
	default:
		return false, core.E(core.KindInternal, "entitlement service returned %d", resp.StatusCode)
	}

	var body struct {
		Premium bool `json:"premium"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, core.WrapE(core.KindInternal, err, "failed to decode entitlement response")
	}
	return body.Premium, nil
}
