package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/slidetab/slidetab/internal/pairing/service"
	"github.com/slidetab/slidetab/internal/pairing/store"
	"github.com/slidetab/slidetab/pkg/httpx"
	"github.com/slidetab/slidetab/pkg/jwtx"
	"github.com/slidetab/slidetab/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store

	RegistrarService *service.RegistrarService
	LinkingService   *service.LinkingService
	ExchangeService  *service.ExchangeService
	TokenService     *service.TokenService
}

func NewRouter(
	keys *jwtx.KeySet,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerPairing()
	r.registerTokens()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerPairing() {
	// POST /pairing/register - tight per-IP limit (codes are a finite namespace)
	registerHandler := &RegisterHandler{Registrar: r.RegistrarService}
	r.Mux.Handle("POST /v1/pairing/register",
		httpx.Chain(registerHandler,
			httpx.RateLimitByIP(httpx.PairingLimit),
		),
	)

	// POST /pairing/link - the user's IdP credential is checked downstream;
	// the limit just blunts code guessing through this surface
	linkHandler := &LinkHandler{Linking: r.LinkingService}
	r.Mux.Handle("POST /v1/pairing/link",
		httpx.Chain(linkHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /pairing/exchange - sized for polling devices
	exchangeHandler := &ExchangeHandler{Exchange: r.ExchangeService}
	r.Mux.Handle("POST /v1/pairing/exchange",
		httpx.Chain(exchangeHandler,
			httpx.RateLimitByIP(httpx.PollLimit),
		),
	)

	// POST /pairing/unlink - authenticated device operation
	unlinkHandler := &UnlinkHandler{Tokens: r.TokenService}
	r.Mux.Handle("POST /v1/pairing/unlink",
		httpx.Chain(unlinkHandler,
			httpx.RateLimitByDevice(httpx.ModerateLimit),
			httpx.AuthnMiddleware(r.TokenService),
		),
	)
}

func (r *Router) registerTokens() {
	// POST /tokens/refresh - authenticated rotation
	refreshHandler := &RefreshHandler{Tokens: r.TokenService}
	r.Mux.Handle("POST /v1/tokens/refresh",
		httpx.Chain(refreshHandler,
			httpx.RateLimitByDevice(httpx.ModerateLimit),
			httpx.AuthnMiddleware(r.TokenService),
		),
	)

	// GET /device - authenticated device view
	deviceHandler := &DeviceHandler{Tokens: r.TokenService}
	r.Mux.Handle("GET /v1/device",
		httpx.Chain(deviceHandler,
			httpx.RateLimitByDevice(httpx.ModerateLimit),
			httpx.AuthnMiddleware(r.TokenService),
		),
	)

	// GET /jwks.json - public endpoint with high limit
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - monitoring systems may poll frequently
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}
