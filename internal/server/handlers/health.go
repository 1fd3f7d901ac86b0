package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"wego-server/internal/battle"
	"wego-server/internal/shared/response"
)

type HealthResponse struct {
	Status        string `json:"status"`
	Timestamp     string `json:"timestamp"`
	Database      string `json:"database"`
	ActiveBattles int    `json:"active_battles"`
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

type ActiveBattles interface {
	Active() []battle.BattleID
}

type HealthHandler struct {
	db      Pinger
	battles ActiveBattles
}

func NewHealthHandler(db Pinger, battles ActiveBattles) *HealthHandler {
	return &HealthHandler{db: db, battles: battles}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "health")

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	dbStatus := "disconnected"
	if err := h.db.PingContext(ctx); err == nil {
		dbStatus = "connected"
	} else {
		logger.Warn("Database ping failed", "error", err)
	}

	resp := HealthResponse{
		Status:        "healthy",
		Timestamp:     time.Now().Format(time.RFC3339),
		Database:      dbStatus,
		ActiveBattles: len(h.battles.Active()),
	}

	response.Success(w, http.StatusOK, resp)
}
