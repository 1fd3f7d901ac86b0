package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"wego-server/internal/game"
	"wego-server/internal/middleware"
	"wego-server/internal/shared/errors"
	"wego-server/internal/shared/response"
)

const maxBodyBytes = 1 << 20

type GameHandler struct {
	service *game.Service
}

func NewGameHandler(service *game.Service) *GameHandler {
	return &GameHandler{service: service}
}

func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "create_game")

	claims := middleware.GetUserFromContext(r)
	if claims == nil {
		response.Error(w, r, logger, errors.Unauthorized("authentication required"))
		return
	}

	var gameConfig game.GameConfig
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&gameConfig); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid JSON in request body", err))
		return
	}

	createdGame, err := h.service.CreateGame(ctx, gameConfig, claims.PlayerID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, createdGame)
}

func (h *GameHandler) GetGames(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "get_games")

	games, err := h.service.GetAllGames(r.Context())
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, games)
}

func (h *GameHandler) JoinAsCommander(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "join_as_commander")

	claims := middleware.GetUserFromContext(r)
	if claims == nil {
		response.Error(w, r, logger, errors.Unauthorized("authentication required"))
		return
	}

	gameID, err := gameIDFromPath(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	updated, err := h.service.JoinAsCommander(r.Context(), gameID, claims.PlayerID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, updated)
}

func (h *GameHandler) JoinAsPawn(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "join_as_pawn")

	claims := middleware.GetUserFromContext(r)
	if claims == nil {
		response.Error(w, r, logger, errors.Unauthorized("authentication required"))
		return
	}

	gameID, err := gameIDFromPath(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	var req game.JoinAsPawnRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid JSON in request body", err))
		return
	}

	updated, err := h.service.JoinAsPawn(r.Context(), gameID, claims.PlayerID, req)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, updated)
}

func gameIDFromPath(r *http.Request) (int, error) {
	gameIDStr := r.PathValue("id")
	if gameIDStr == "" {
		return 0, errors.Validation("game ID is required")
	}

	gameID, err := strconv.Atoi(gameIDStr)
	if err != nil {
		return 0, errors.WrapValidation("invalid game ID format", err)
	}
	return gameID, nil
}
