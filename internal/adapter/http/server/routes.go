package server

import (
	"net/http"

	"github.com/torimichi/guide-match-system/internal/adapter/http/middleware"
	"github.com/torimichi/guide-match-system/internal/domain/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// setupRoutes - setups http routes
func setupRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	// System
	mux.HandleFunc("/health", routes.health.HealthCheck)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/swagger/", httpSwagger.Handler())

	// Auth
	mux.HandleFunc("POST /auth/register", routes.auth.Register)
	mux.HandleFunc("POST /auth/login", routes.auth.Login)
	mux.HandleFunc("POST /auth/refresh", routes.auth.Refresh)
	mux.Handle("GET /auth/me", m.RequireRoles(routes.auth.Me))

	// Profile, any authenticated account; polygon editing is guide-only
	mux.Handle("GET /profile", m.RequireRoles(routes.profile.Get))
	mux.Handle("PUT /profile", m.RequireRoles(routes.profile.Update))
	mux.Handle("POST /profile/presence", m.RequireRoles(routes.profile.SetPresence, types.RoleGuide))
	mux.Handle("POST /profile/polygon/vertices", m.RequireRoles(routes.profile.AppendVertex, types.RoleGuide))
	mux.Handle("DELETE /profile/polygon/vertices", m.RequireRoles(routes.profile.UndoVertex, types.RoleGuide))
	mux.Handle("DELETE /profile/polygon", m.RequireRoles(routes.profile.ClearPolygon, types.RoleGuide))

	// Guide discovery
	mux.Handle("GET /guides", m.RequireRoles(routes.guide.List))
	mux.Handle("GET /guides/{guide_id}", m.RequireRoles(routes.guide.Get))

	// Match lifecycle
	mux.Handle("POST /matches", m.RequireRoles(routes.match.Create, types.RoleTraveler))
	mux.Handle("GET /matches", m.RequireRoles(routes.match.List))
	mux.Handle("GET /matches/{match_id}", m.RequireRoles(routes.match.Get))
	mux.Handle("POST /matches/{match_id}/accept", m.RequireRoles(routes.match.Accept, types.RoleGuide))
	mux.Handle("POST /matches/{match_id}/reject", m.RequireRoles(routes.match.Reject, types.RoleGuide))
	mux.Handle("POST /matches/{match_id}/end", m.RequireRoles(routes.match.End))

	// Chat
	mux.Handle("GET /matches/{match_id}/messages", m.RequireRoles(routes.chat.History))
	mux.Handle("POST /matches/{match_id}/messages", m.RequireRoles(routes.chat.Send))
	mux.HandleFunc("GET /ws/chats/{match_id}", routes.chat.HandleWebSocket) // token via header or query param

	// Reviews
	mux.Handle("GET /reviews/prompts", m.RequireRoles(routes.review.Prompts, types.RoleTraveler))
	mux.Handle("POST /reviews", m.RequireRoles(routes.review.Submit, types.RoleTraveler))
	mux.Handle("POST /reviews/prompts/{match_id}/dismiss", m.RequireRoles(routes.review.Dismiss, types.RoleTraveler))
}
