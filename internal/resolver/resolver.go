package resolver

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/boltshop/domain-gateway/internal/core"
	"github.com/boltshop/domain-gateway/internal/metrics"
)

// Lookup resolves a normalized hostname to its binding, or (nil, nil)
// when the domain is unknown.
type Lookup interface {
	LookupByDomain(ctx context.Context, domain string) (*core.DomainBinding, error)
}

// Decision branches, recorded per request.
const (
	branchBypass   = "bypass"
	branchPlatform = "platform"
	branchRewrite  = "rewrite"
	branchRedirect = "redirect"
)

// Resolver decides, for every inbound request, whether the host is the
// platform's own domain or a bound custom domain, and rewrites the
// request to the owning tenant's content. Unknown or unverifiable hosts
// are redirected to the platform root; no error ever escapes it.
type Resolver struct {
	platformHosts map[string]struct{}
	redirectURL   string
	bypass        []string
	lookup        Lookup
	logger        *zap.Logger
	metrics       *metrics.Collector
}

type Config struct {
	// RootDomain is the platform's apex domain.
	RootDomain string
	// CanonicalHost is the platform's own serving hostname.
	CanonicalHost string
	// LocalHosts are development hosts treated as the platform's own.
	LocalHosts []string
	// RedirectURL is where visitors on unroutable hosts are sent.
	RedirectURL string
	// BypassPrefixes are platform-internal path prefixes that always
	// pass through regardless of hostname.
	BypassPrefixes []string
}

func New(cfg Config, lookup Lookup, logger *zap.Logger, collector *metrics.Collector) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}

	hosts := make(map[string]struct{})
	hosts[strings.ToLower(cfg.RootDomain)] = struct{}{}
	hosts[strings.ToLower(cfg.CanonicalHost)] = struct{}{}
	for _, h := range cfg.LocalHosts {
		hosts[strings.ToLower(h)] = struct{}{}
	}

	return &Resolver{
		platformHosts: hosts,
		redirectURL:   cfg.RedirectURL,
		bypass:        cfg.BypassPrefixes,
		lookup:        lookup,
		logger:        logger,
		metrics:       collector,
	}
}

// Middleware wraps the full handler chain. It must run before any
// routing so path rewrites take effect.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				// Fail safe: a visitor must never see a raw error page.
				r.logger.Error("panic in hostname resolver",
					zap.Any("panic", rec),
					zap.String("host", req.Host),
					zap.String("path", req.URL.Path),
				)
				r.redirect(w, req)
			}
		}()
		r.resolve(w, req, next)
	})
}

func (r *Resolver) resolve(w http.ResponseWriter, req *http.Request, next http.Handler) {
	// Platform-internal paths always pass through untouched.
	if r.isBypassPath(req.URL.Path) {
		r.metrics.RecordRouterDecision(branchBypass)
		next.ServeHTTP(w, req)
		return
	}

	host := normalizeHost(req.Host)
	if _, ok := r.platformHosts[host]; ok {
		r.metrics.RecordRouterDecision(branchPlatform)
		next.ServeHTTP(w, req)
		return
	}

	b, err := r.lookup.LookupByDomain(req.Context(), host)
	if err != nil {
		r.logger.Warn("binding lookup failed", zap.String("host", host), zap.Error(err))
		r.redirect(w, req)
		return
	}
	if b == nil || !b.Routable() {
		r.redirect(w, req)
		return
	}

	// Internal rewrite: the visible URL stays on the custom domain.
	req.URL.Path = rewritePath(b.TenantSlug, req.URL.Path)
	r.metrics.RecordRouterDecision(branchRewrite)
	next.ServeHTTP(w, req)
}

func (r *Resolver) redirect(w http.ResponseWriter, req *http.Request) {
	r.metrics.RecordRouterDecision(branchRedirect)
	http.Redirect(w, req, r.redirectURL, http.StatusFound)
}

func (r *Resolver) isBypassPath(path string) bool {
	for _, prefix := range r.bypass {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// rewritePath maps "/" to "/<slug>" and deeper paths to
// "/<slug><subpath>". The query string is untouched on the request URL.
func rewritePath(slug, path string) string {
	if path == "" || path == "/" {
		return "/" + slug
	}
	return "/" + slug + path
}

// normalizeHost strips the port and lowercases the Host header.
func normalizeHost(host string) string {
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		if !strings.Contains(host[idx:], "]") {
			host = host[:idx]
		}
	}
	return strings.ToLower(strings.TrimSuffix(host, "."))
}
