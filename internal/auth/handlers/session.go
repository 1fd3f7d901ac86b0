package handlers

import (
	"log/slog"
	"net/http"

	"wego-server/internal/middleware"
	"wego-server/internal/shared/cookies"
	"wego-server/internal/shared/errors"
	"wego-server/internal/shared/response"
)

// PlayerResponse describes the authenticated player.
type PlayerResponse struct {
	PlayerID string `json:"player_id"`
	Username string `json:"username,omitempty"`
}

// SessionHandler moves player tokens between the Authorization header and
// the auth cookie browsers send on websocket upgrades.
type SessionHandler struct {
	jar *cookies.Jar
}

func NewSessionHandler(jar *cookies.Jar) *SessionHandler {
	return &SessionHandler{jar: jar}
}

func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "me")

	claims := middleware.GetUserFromContext(r)
	if claims == nil {
		response.Error(w, r, logger, errors.Unauthorized("no user claims found in context"))
		return
	}

	response.Success(w, http.StatusOK, PlayerResponse{PlayerID: claims.PlayerID, Username: claims.Username})
}

// CreateSession stores the request's bearer token in the auth cookie.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "create_session", "remote_addr", r.RemoteAddr)

	claims := middleware.GetUserFromContext(r)
	if claims == nil {
		response.Error(w, r, logger, errors.Unauthorized("no user claims found in context"))
		return
	}

	token := middleware.BearerToken(r)
	if token == "" {
		response.Error(w, r, logger, errors.Validation("a bearer token is required to open a cookie session"))
		return
	}

	h.jar.SetAuthCookie(w, token)
	logger.Info("Cookie session opened", "player_id", claims.PlayerID)

	response.Success(w, http.StatusOK, PlayerResponse{PlayerID: claims.PlayerID, Username: claims.Username})
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "logout", "remote_addr", r.RemoteAddr)
	logger.Debug("Logout requested")

	h.jar.ClearAuthCookie(w)
	w.WriteHeader(http.StatusNoContent)

	logger.Info("Player logged out")
}
