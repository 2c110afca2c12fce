package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/pkg/httpx"
	"github.com/aussiebroadwan/accounts/pkg/jwtx"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
	"github.com/graphql-go/graphql"

	_ "github.com/aussiebroadwan/accounts/api/accounts" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store  store.Store
	Schema graphql.Schema
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	schema graphql.Schema,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		store:        st,
		Schema:       schema,
	}

	// Every request gets a logger first, then the caller's identity if the
	// bearer token checks out.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.OptionalAuthn(verifier),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerGraphQL()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Accounts Service API
//	@version		0.1.0
//	@description	GraphQL user account service. Everything except the health probes goes through POST /graphql.
//	@description
//	@description				Tokens returned by the login mutation are HS256 JWTs and are sent back as bearer tokens.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/accounts
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerGraphQL() {
	// login and addUser are credential operations: strict limit by IP.
	// Everything else shares a moderate limit keyed by user.
	limited := httpx.Chain(&GraphQLHandler{Schema: r.Schema},
		httpx.RateLimitTiered(classifyOperation,
			httpx.RateLimitByCaller(httpx.ModerateLimit),
			map[string]httpx.Middleware{
				tierStrict: httpx.RateLimitByIP(httpx.StrictLimit),
			},
		),
	)

	r.Mux.Handle("POST /graphql", limited)
	r.Mux.Handle("GET /graphql", limited)
	r.Mux.Handle("GET /playground", playground.Handler("Accounts", "/graphql"))
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
