package server

import (
	"net/http"

	"github.com/gofiber/fiber/v3/middleware/adaptor"

	"hitokoto/internal/handlers/api"
	"hitokoto/internal/middleware"
	"hitokoto/internal/stats"
)

// Deps are the components the routes serve.
type Deps struct {
	Sampler   api.Sampler
	Store     api.Pinger
	Cache     api.Refresher
	Counter   stats.Counter
	Refreshes api.RefreshObserver
	Metrics   http.Handler
}

// RegisterRoutes registers all application routes.
func (s *Server) RegisterRoutes(deps Deps) {
	// Initialize middleware
	adminAuth := middleware.NewAdminAuth(s.Cfg.AdminToken)
	countRequests := middleware.CountRequests(deps.Counter)

	// Initialize handlers
	quoteHandler := api.NewQuoteHandler(deps.Sampler)
	serviceHandler := api.NewServiceHandler(deps.Store, deps.Cache, deps.Counter, deps.Refreshes)

	// Operational routes
	if deps.Metrics != nil {
		s.App.Get("/metrics", adaptor.HTTPHandler(deps.Metrics))
	}
	s.App.Get("/healthz", serviceHandler.Health)
	s.App.Get("/stats", serviceHandler.Stats)
	s.App.Get("/update_count", adminAuth.RequireToken, serviceHandler.UpdateCount)

	// Quote routes - /:uuid must be last (catch-all)
	s.App.Get("/", countRequests, quoteHandler.Random)
	s.App.Get("/:uuid", countRequests, quoteHandler.ByUUID)
}
