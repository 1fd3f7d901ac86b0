package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"wego-server/internal/auth"
	"wego-server/internal/battle"
	"wego-server/internal/game"
	"wego-server/internal/middleware"
	"wego-server/internal/shared/errors"
	"wego-server/internal/shared/response"
	"wego-server/internal/shared/validation"
)

const maxBodyBytes = 1 << 20

// GameLookup resolves the lobby a battle is fought for.
type GameLookup interface {
	GetGame(ctx context.Context, gameID int) (*game.Game, error)
}

type BattleHandler struct {
	manager *battle.Manager
	games   GameLookup
}

// NewBattleHandler builds the REST handlers. games may be nil, in which
// case battles are not checked against a lobby.
func NewBattleHandler(manager *battle.Manager, games GameLookup) *BattleHandler {
	return &BattleHandler{manager: manager, games: games}
}

func (h *BattleHandler) CreateBattle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "create_battle")

	claims, ok := requireClaims(w, r, logger)
	if !ok {
		return
	}

	var req CreateBattleRequest
	if !decode(w, r, logger, &req) {
		return
	}

	if claims.PlayerID != req.AttackingCommanderID && claims.PlayerID != req.DefendingCommanderID {
		response.Error(w, r, logger, errors.Forbidden("only a commander of the battle can start it"))
		return
	}

	if req.GameID != nil && h.games != nil {
		g, err := h.games.GetGame(ctx, *req.GameID)
		if err != nil {
			response.Error(w, r, logger, err)
			return
		}
		for _, commander := range []string{req.AttackingCommanderID, req.DefendingCommanderID} {
			if !g.IsCommander(commander) {
				response.Error(w, r, logger, errors.Validationf("commander %s is not in game %d", commander, g.ID))
				return
			}
		}
	}

	state, err := h.manager.Create(ctx, req.toInput())
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, state)
}

func (h *BattleHandler) GetBattle(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "get_battle")

	state, err := h.manager.Get(r.Context(), battleIDFromPath(r))
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, state)
}

func (h *BattleHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "submit_order")

	claims, ok := requireClaims(w, r, logger)
	if !ok {
		return
	}

	var req OrderRequest
	if !decode(w, r, logger, &req) {
		return
	}

	id := battleIDFromPath(r)
	err := h.manager.SubmitOrder(r.Context(), id, battle.PlayerID(claims.PlayerID), battle.UnitID(req.UnitID), req.Order)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	state, err := h.manager.Get(r.Context(), id)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusAccepted, state.Units[battle.UnitID(req.UnitID)])
}

func (h *BattleHandler) Retreat(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "retreat")

	claims, ok := requireClaims(w, r, logger)
	if !ok {
		return
	}

	var req RetreatRequest
	if !decode(w, r, logger, &req) {
		return
	}

	id := battleIDFromPath(r)
	if err := h.manager.Withdraw(r.Context(), id, battle.PlayerID(claims.PlayerID), battle.UnitID(req.UnitID)); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *BattleHandler) EndBattle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "end_battle")

	claims, ok := requireClaims(w, r, logger)
	if !ok {
		return
	}

	var req EndBattleRequest
	if r.ContentLength != 0 && !decode(w, r, logger, &req) {
		return
	}

	id := battleIDFromPath(r)
	current, err := h.manager.Get(ctx, id)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	player := battle.CommanderID(claims.PlayerID)
	if player != current.AttackingCommanderID && player != current.DefendingCommanderID {
		response.Error(w, r, logger, errors.Forbidden("only a commander of the battle can end it"))
		return
	}

	final, err := h.manager.End(ctx, id, req.Reason)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, final)
}

func battleIDFromPath(r *http.Request) battle.BattleID {
	return battle.BattleID(r.PathValue("id"))
}

func requireClaims(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*auth.Claims, bool) {
	claims := middleware.GetUserFromContext(r)
	if claims == nil {
		response.Error(w, r, logger, errors.Unauthorized("authentication required"))
		return nil, false
	}
	return claims, true
}

// decode reads and validates a JSON body, writing the error response
// itself when it fails.
func decode(w http.ResponseWriter, r *http.Request, logger *slog.Logger, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid JSON in request body", err))
		return false
	}
	if err := validation.Struct(dst); err != nil {
		response.Error(w, r, logger, err)
		return false
	}
	return true
}
