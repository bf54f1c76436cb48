package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/boltshop/domain-gateway/internal/api/handlers"
	"github.com/boltshop/domain-gateway/internal/api/middleware"
	"github.com/boltshop/domain-gateway/internal/config"
)

type Server struct {
	Config *config.Config
	Router *gin.Engine

	handler    *handlers.Handler
	gate       middleware.PremiumChecker
	storefront *handlers.StorefrontProxy
	logger     *zap.Logger
}

func NewServer(cfg *config.Config, handler *handlers.Handler, gate middleware.PremiumChecker, storefront *handlers.StorefrontProxy, logger *zap.Logger) *Server {
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()

	router.Use(middleware.Logger(logger))
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())

	server := &Server{
		Config:     cfg,
		Router:     router,
		handler:    handler,
		gate:       gate,
		storefront: storefront,
		logger:     logger,
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	s.Router.GET("/health", s.handler.Health)
	s.Router.GET("/ready", s.handler.Ready)
	s.Router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.Router.Group("/api/v1")
	api.Use(middleware.AuthRequired(s.Config.Auth.JWTSecret))

	premium := middleware.RequirePremium(s.gate, s.logger)
	throttle := middleware.NewVerifyThrottle(
		s.Config.Verify.ThrottleInterval,
		s.Config.Verify.ThrottleBurst,
	)

	// Domain binding routes
	{
		api.POST("/domain", premium, s.handler.AddDomain)
		api.DELETE("/domain", premium, s.handler.RemoveDomain)
		api.GET("/domain", s.handler.GetDomainStatus)
		api.PUT("/domain/enabled", premium, s.handler.SetDomainEnabled)
		// Verify intentionally skips the premium gate; see RequirePremium.
		api.POST("/domain/verify", throttle.Handler(), s.handler.VerifyDomain)
	}

	// Everything else is storefront content, already rewritten to
	// /<tenantSlug>/... by the hostname resolver.
	if s.storefront != nil {
		s.Router.NoRoute(s.storefront.Handle)
	}
}
