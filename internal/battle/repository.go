package battle

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "wego-server/internal/shared/errors"
)

type BattleStatus string

const (
	BattleStatusActive BattleStatus = "active"
	BattleStatusEnded  BattleStatus = "ended"
)

// Record is the persisted summary of a battle.
type Record struct {
	ID                   BattleID     `json:"id"`
	GameID               *int         `json:"gameId,omitempty"`
	AttackingCommanderID CommanderID  `json:"attackingCommanderId"`
	DefendingCommanderID CommanderID  `json:"defendingCommanderId"`
	Status               BattleStatus `json:"status"`
	CurrentTurn          int          `json:"currentTurn"`
	EndReason            *string      `json:"endReason,omitempty"`
	FinalState           *BattleState `json:"finalState,omitempty"`
	CreatedAt            time.Time    `json:"createdAt"`
	EndedAt              *time.Time   `json:"endedAt,omitempty"`
}

type Repository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewRepository(db *sql.DB, logger *slog.Logger) *Repository {
	logger.Debug("Initializing battle repository")

	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) CreateBattle(ctx context.Context, state BattleState, gameID *int) error {
	logger := r.logger.With(
		"component", "battle_repository",
		"operation", "create_battle",
		"battle_id", state.ID,
	)
	logger.Debug("Recording new battle")

	query := `
		INSERT INTO battles (id, game_id, attacking_commander_id, defending_commander_id, status, current_turn)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		state.ID,
		gameID,
		state.AttackingCommanderID,
		state.DefendingCommanderID,
		BattleStatusActive,
		state.CurrentTurn,
	)
	if err != nil {
		logger.Error("Failed to record battle", "error", err)
		return fmt.Errorf("failed to record battle: %w", err)
	}

	logger.Info("Battle recorded")
	return nil
}

// RecordOutcome stores the final state of an ended battle.
func (r *Repository) RecordOutcome(ctx context.Context, state BattleState) error {
	logger := r.logger.With(
		"component", "battle_repository",
		"operation", "record_outcome",
		"battle_id", state.ID,
		"turn", state.CurrentTurn,
		"reason", state.EndReason,
	)
	logger.Debug("Recording battle outcome")

	finalState, err := json.Marshal(state)
	if err != nil {
		logger.Error("Failed to encode final state", "error", err)
		return fmt.Errorf("failed to encode final state: %w", err)
	}

	query := `
		UPDATE battles
		SET status = $1, current_turn = $2, end_reason = $3, final_state = $4, ended_at = NOW()
		WHERE id = $5
	`

	result, err := r.db.ExecContext(ctx, query, BattleStatusEnded, state.CurrentTurn, state.EndReason, string(finalState), state.ID)
	if err != nil {
		logger.Error("Failed to record battle outcome", "error", err)
		return fmt.Errorf("failed to record battle outcome: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		logger.Error("Failed to get rows affected", "error", err)
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		logger.Warn("Battle not found for outcome")
		return apperrors.WrapNotFound(fmt.Sprintf("battle %s", state.ID), ErrBattleNotFound)
	}

	logger.Info("Battle outcome recorded")
	return nil
}

// GetBattle returns nil when no battle has the id.
func (r *Repository) GetBattle(ctx context.Context, id BattleID) (*Record, error) {
	logger := r.logger.With("component", "battle_repository", "operation", "get_battle", "battle_id", id)
	logger.Debug("Getting battle by ID")

	query := `
		SELECT id, game_id, attacking_commander_id, defending_commander_id, status, current_turn, end_reason, final_state, created_at, ended_at
		FROM battles
		WHERE id = $1
	`

	var (
		rec        Record
		gameID     sql.NullInt64
		endReason  sql.NullString
		finalState []byte
		endedAt    sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID,
		&gameID,
		&rec.AttackingCommanderID,
		&rec.DefendingCommanderID,
		&rec.Status,
		&rec.CurrentTurn,
		&endReason,
		&finalState,
		&rec.CreatedAt,
		&endedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logger.Debug("Battle not found")
			return nil, nil
		}
		logger.Error("Database error getting battle", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	if gameID.Valid {
		g := int(gameID.Int64)
		rec.GameID = &g
	}
	if endReason.Valid {
		rec.EndReason = &endReason.String
	}
	if endedAt.Valid {
		rec.EndedAt = &endedAt.Time
	}
	if len(finalState) > 0 {
		var state BattleState
		if err := json.Unmarshal(finalState, &state); err != nil {
			logger.Error("Failed to decode final state", "error", err)
			return nil, fmt.Errorf("failed to decode final state: %w", err)
		}
		rec.FinalState = &state
	}

	logger.Debug("Battle retrieved", "status", rec.Status)
	return &rec, nil
}
