package handlers

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StorefrontProxy forwards rewritten storefront requests to the
// rendering service. By the time a request reaches it, the hostname
// resolver has already mapped custom domains onto /<tenantSlug> paths.
type StorefrontProxy struct {
	proxy  *httputil.ReverseProxy
	logger *zap.Logger
}

func NewStorefrontProxy(upstreamURL string, logger *zap.Logger) (*StorefrontProxy, error) {
	upstream, err := url.Parse(upstreamURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	proxy := httputil.NewSingleHostReverseProxy(upstream)
	proxy.Transport = &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("storefront upstream failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		w.WriteHeader(http.StatusBadGateway)
	}

	return &StorefrontProxy{proxy: proxy, logger: logger}, nil
}

func (p *StorefrontProxy) Handle(c *gin.Context) {
	p.proxy.ServeHTTP(c.Writer, c.Request)
}
