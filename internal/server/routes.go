package server

import (
	"log/slog"
	"net/http"

	authHandlers "wego-server/internal/auth/handlers"
	"wego-server/internal/battle"
	battleHandlers "wego-server/internal/battle/handlers"
	"wego-server/internal/game"
	gameHandlers "wego-server/internal/game/handlers"
	"wego-server/internal/middleware"
	serverHandlers "wego-server/internal/server/handlers"
	"wego-server/internal/shared/cookies"
)

type Routes struct {
	db             serverHandlers.Pinger
	gameService    *game.Service
	battleManager  *battle.Manager
	bus            battleHandlers.Subscriber
	authenticator  *middleware.Authenticator
	jar            *cookies.Jar
	allowedOrigins []string
}

func NewRoutes(
	db serverHandlers.Pinger,
	gameService *game.Service,
	battleManager *battle.Manager,
	bus battleHandlers.Subscriber,
	authenticator *middleware.Authenticator,
	jar *cookies.Jar,
	allowedOrigins []string,
) *Routes {
	return &Routes{
		db:             db,
		gameService:    gameService,
		battleManager:  battleManager,
		bus:            bus,
		authenticator:  authenticator,
		jar:            jar,
		allowedOrigins: allowedOrigins,
	}
}

func (r *Routes) Setup() *http.ServeMux {
	logger := slog.With("component", "routes", "operation", "setup")
	logger.Debug("Setting up application routes")

	mux := http.NewServeMux()
	protect := r.authenticator.Middleware

	healthHandler := serverHandlers.NewHealthHandler(r.db, r.battleManager)
	sessionHandler := authHandlers.NewSessionHandler(r.jar)
	gameHandler := gameHandlers.NewGameHandler(r.gameService)
	battleHandler := battleHandlers.NewBattleHandler(r.battleManager, r.gameService)
	streamHandler := battleHandlers.NewStreamHandler(r.battleManager, r.bus, r.allowedOrigins)

	// Public endpoints
	mux.Handle("GET /api/server/health", healthHandler)
	mux.HandleFunc("POST /api/auth/logout", sessionHandler.Logout)
	mux.HandleFunc("GET /api/games", gameHandler.GetGames)
	mux.HandleFunc("GET /api/battles/{id}", battleHandler.GetBattle)

	// Protected endpoints (authenticated players)
	mux.Handle("GET /api/me", protect(http.HandlerFunc(sessionHandler.Me)))
	mux.Handle("POST /api/auth/session", protect(http.HandlerFunc(sessionHandler.CreateSession)))
	mux.Handle("POST /api/games", protect(http.HandlerFunc(gameHandler.CreateGame)))
	mux.Handle("POST /api/games/{id}/commanders", protect(http.HandlerFunc(gameHandler.JoinAsCommander)))
	mux.Handle("POST /api/games/{id}/pawns", protect(http.HandlerFunc(gameHandler.JoinAsPawn)))
	mux.Handle("POST /api/battles", protect(http.HandlerFunc(battleHandler.CreateBattle)))
	mux.Handle("POST /api/battles/{id}/orders", protect(http.HandlerFunc(battleHandler.SubmitOrder)))
	mux.Handle("POST /api/battles/{id}/retreat", protect(http.HandlerFunc(battleHandler.Retreat)))
	mux.Handle("POST /api/battles/{id}/end", protect(http.HandlerFunc(battleHandler.EndBattle)))
	mux.Handle("GET /api/battles/{id}/stream", protect(streamHandler))

	logger.Info("Routes configured successfully",
		"public_endpoints", []string{"/api/server/health", "/api/auth/logout", "/api/games", "/api/battles/{id}"},
		"protected_endpoints", []string{
			"/api/me", "/api/auth/session", "/api/games", "/api/games/{id}/commanders", "/api/games/{id}/pawns",
			"/api/battles", "/api/battles/{id}/orders", "/api/battles/{id}/retreat",
			"/api/battles/{id}/end", "/api/battles/{id}/stream",
		},
	)

	return mux
}

// Handler wraps the routes in the middleware chain, outermost first:
// CORS, rate limit, mux.
func Handler(mux http.Handler, cors *middleware.CORSMiddleware, limiter *middleware.RateLimiter) http.Handler {
	return cors.Middleware(limiter.Middleware(mux))
}
