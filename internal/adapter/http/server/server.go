package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/torimichi/guide-match-system/config"
	"github.com/torimichi/guide-match-system/internal/adapter/http/handler"
	"github.com/torimichi/guide-match-system/internal/adapter/http/middleware"
	"github.com/torimichi/guide-match-system/pkg/logger"
	wrap "github.com/torimichi/guide-match-system/pkg/logger/wrapper"
	ws "github.com/torimichi/guide-match-system/pkg/wsHub"
)

const serviceName = "guide-match"

const serverIPAddress = "%s:%s"

type API struct {
	mux    *http.ServeMux
	server *http.Server
	routes *handlers
	m      *middleware.Middleware

	addr string
	cfg  config.Config
	log  logger.Logger
}

type handlers struct {
	health  *handler.Health
	auth    *handler.Auth
	profile *handler.Profile
	guide   *handler.Guide
	match   *handler.Match
	chat    *handler.Chat
	review  *handler.Review
}

// Services bundles everything the HTTP layer talks to.
type Services struct {
	Auth      handler.AuthService
	Profile   handler.ProfileService
	Directory handler.GuideDirectory
	Matching  handler.MatchingService
	Chat      handler.ChatStream
	Reviews   handler.ReviewService
	Ratings   handler.RatingSource
}

func New(cfg config.Config, svcs Services, hub *ws.ConnectionHub, log logger.Logger) (*API, error) {
	if svcs.Auth == nil {
		return nil, errors.New("auth service is required")
	}

	routes := &handlers{
		health:  handler.NewHealth(serviceName, log),
		auth:    handler.NewAuth(svcs.Auth, log),
		profile: handler.NewProfile(svcs.Profile, log),
		guide:   handler.NewGuide(svcs.Directory, svcs.Ratings, log),
		match:   handler.NewMatch(svcs.Matching, log),
		chat:    handler.NewChat(svcs.Chat, svcs.Auth, hub, log),
		review:  handler.NewReview(svcs.Reviews, log),
	}

	mid := middleware.NewMiddleware(svcs.Auth, log)

	api := &API{
		mux:    http.NewServeMux(),
		routes: routes,
		m:      mid,
		addr:   fmt.Sprintf(serverIPAddress, "0.0.0.0", cfg.Server.Port),
		cfg:    cfg,
		log:    log,
	}

	api.server = &http.Server{
		Addr:    api.addr,
		Handler: api.withMiddleware(),
	}

	setupRoutes(api.mux, api.routes, api.m)

	return api, nil
}

func (a *API) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ctx = wrap.WithAction(ctx, "http_server_stop")

	a.log.Debug(ctx, "shutting down HTTP server...", "address", a.addr)
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.log.Debug(ctx, "shutting down HTTP server completed")

	return nil
}

func (a *API) Run(ctx context.Context, errCh chan<- error) {
	go func() {
		ctx = wrap.WithAction(ctx, "http_server_start")
		a.log.Info(ctx, "started http server", "address", a.addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
			return
		}
	}()
}

// withMiddleware applies the outer middleware chain to the mux
func (a *API) withMiddleware() http.Handler {
	chain := a.m.Metrics(serviceName)(a.mux)
	chain = a.m.Auth(chain)
	chain = a.m.Logging(chain)
	chain = a.m.RequestID(chain)
	return a.m.Recover(chain)
}
