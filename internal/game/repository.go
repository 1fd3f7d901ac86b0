package game

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
)

type Repository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewRepository(db *sql.DB, logger *slog.Logger) *Repository {
	logger.Debug("Initializing game repository")

	return &Repository{
		db:     db,
		logger: logger,
	}
}

// CreateGame inserts the game and makes its creator the first commander.
func (r *Repository) CreateGame(ctx context.Context, config GameConfig, creatorID string) (*Game, error) {
	logger := r.logger.With(
		"component", "game_repository",
		"operation", "create_game",
		"name", config.Name,
		"max_commanders", config.MaxCommanders,
		"max_pawns", config.MaxPawns,
	)
	logger.Info("Creating new game")

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("Failed to begin transaction", "error", err)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO games (name, max_commanders, max_pawns, map_type, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, max_commanders, max_pawns, map_type, status, created_at
	`

	var game Game
	err = tx.QueryRowContext(ctx, query, config.Name, config.MaxCommanders, config.MaxPawns, config.MapType, GameStatusLobby).Scan(
		&game.ID,
		&game.Name,
		&game.MaxCommanders,
		&game.MaxPawns,
		&game.MapType,
		&game.Status,
		&game.CreatedAt,
	)
	if err != nil {
		logger.Error("Failed to create game", "error", err)
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	var creator Commander
	err = tx.QueryRowContext(ctx,
		`INSERT INTO game_commanders (game_id, player_id) VALUES ($1, $2) RETURNING player_id, joined_at`,
		game.ID, creatorID,
	).Scan(&creator.PlayerID, &creator.JoinedAt)
	if err != nil {
		logger.Error("Failed to add creator as commander", "error", err)
		return nil, fmt.Errorf("failed to add creator as commander: %w", err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("Failed to commit game creation", "error", err)
		return nil, fmt.Errorf("failed to commit game creation: %w", err)
	}

	game.Commanders = []Commander{creator}
	game.Pawns = []Pawn{}

	logger.Info("Game created successfully", "game_id", game.ID)
	return &game, nil
}

// GetGameByID returns nil when the game does not exist.
func (r *Repository) GetGameByID(ctx context.Context, gameID int) (*Game, error) {
	logger := r.logger.With("component", "game_repository", "operation", "get_game", "game_id", gameID)
	logger.Debug("Getting game by ID")

	query := `
		SELECT id, name, max_commanders, max_pawns, map_type, status, created_at
		FROM games
		WHERE id = $1
	`

	var game Game
	err := r.db.QueryRowContext(ctx, query, gameID).Scan(
		&game.ID,
		&game.Name,
		&game.MaxCommanders,
		&game.MaxPawns,
		&game.MapType,
		&game.Status,
		&game.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logger.Debug("Game not found")
			return nil, nil
		}
		logger.Error("Database error getting game", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	games := []Game{game}
	if err := r.loadMembers(ctx, games); err != nil {
		return nil, err
	}

	logger.Debug("Game retrieved", "name", game.Name, "status", game.Status)
	return &games[0], nil
}

// GetAllGames lists games newest first with their commanders and pawns.
func (r *Repository) GetAllGames(ctx context.Context) ([]Game, error) {
	logger := r.logger.With("component", "game_repository", "operation", "get_all_games")
	logger.Debug("Getting all games")

	query := `
		SELECT id, name, max_commanders, max_pawns, map_type, status, created_at
		FROM games
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		logger.Error("Failed to query games", "error", err)
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var games []Game
	for rows.Next() {
		var game Game
		err := rows.Scan(
			&game.ID,
			&game.Name,
			&game.MaxCommanders,
			&game.MaxPawns,
			&game.MapType,
			&game.Status,
			&game.CreatedAt,
		)
		if err != nil {
			logger.Error("Failed to scan game row", "error", err)
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, game)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating games: %w", err)
	}

	if err := r.loadMembers(ctx, games); err != nil {
		return nil, err
	}

	logger.Debug("Games retrieved", "count", len(games))
	return games, nil
}

// AddCommander joins playerID to the game as a commander.
func (r *Repository) AddCommander(ctx context.Context, gameID int, playerID string) error {
	logger := r.logger.With("component", "game_repository", "operation", "add_commander", "game_id", gameID, "player_id", playerID)
	logger.Debug("Adding commander")

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("Failed to begin transaction", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	maxCommanders, _, err := lockGame(ctx, tx, gameID)
	if err != nil {
		return err
	}

	var count int
	var joined bool
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(BOOL_OR(player_id = $2), false) FROM game_commanders WHERE game_id = $1`,
		gameID, playerID,
	).Scan(&count, &joined)
	if err != nil {
		logger.Error("Failed to count commanders", "error", err)
		return fmt.Errorf("failed to count commanders: %w", err)
	}
	if joined {
		return ErrAlreadyJoined
	}
	if count >= maxCommanders {
		logger.Debug("Game has no commander slots left", "commanders", count)
		return ErrGameFull
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO game_commanders (game_id, player_id) VALUES ($1, $2)`,
		gameID, playerID,
	); err != nil {
		logger.Error("Failed to insert commander", "error", err)
		return fmt.Errorf("failed to insert commander: %w", err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("Failed to commit commander", "error", err)
		return fmt.Errorf("failed to commit commander: %w", err)
	}

	logger.Info("Commander joined game")
	return nil
}

// AddPawn joins playerID to the game under commanderID.
func (r *Repository) AddPawn(ctx context.Context, gameID int, playerID, commanderID string) error {
	logger := r.logger.With(
		"component", "game_repository",
		"operation", "add_pawn",
		"game_id", gameID,
		"player_id", playerID,
		"commander_id", commanderID,
	)
	logger.Debug("Adding pawn")

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("Failed to begin transaction", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, maxPawns, err := lockGame(ctx, tx, gameID)
	if err != nil {
		return err
	}

	var commanderExists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM game_commanders WHERE game_id = $1 AND player_id = $2)`,
		gameID, commanderID,
	).Scan(&commanderExists)
	if err != nil {
		logger.Error("Failed to check commander", "error", err)
		return fmt.Errorf("failed to check commander: %w", err)
	}
	if !commanderExists {
		return ErrCommanderNotInGame
	}

	var count int
	var joined bool
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(BOOL_OR(player_id = $2), false) FROM game_pawns WHERE game_id = $1`,
		gameID, playerID,
	).Scan(&count, &joined)
	if err != nil {
		logger.Error("Failed to count pawns", "error", err)
		return fmt.Errorf("failed to count pawns: %w", err)
	}
	if joined {
		return ErrAlreadyJoined
	}
	if count >= maxPawns {
		logger.Debug("Game has no pawn slots left", "pawns", count)
		return ErrGameFull
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO game_pawns (game_id, player_id, commander_id) VALUES ($1, $2, $3)`,
		gameID, playerID, commanderID,
	); err != nil {
		logger.Error("Failed to insert pawn", "error", err)
		return fmt.Errorf("failed to insert pawn: %w", err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("Failed to commit pawn", "error", err)
		return fmt.Errorf("failed to commit pawn: %w", err)
	}

	logger.Info("Pawn joined game")
	return nil
}

func (r *Repository) UpdateGameStatus(ctx context.Context, gameID int, status GameStatus) error {
	logger := r.logger.With("component", "game_repository", "operation", "update_status", "game_id", gameID, "status", status)
	logger.Debug("Updating game status")

	result, err := r.db.ExecContext(ctx, `UPDATE games SET status = $1 WHERE id = $2`, status, gameID)
	if err != nil {
		logger.Error("Failed to update game status", "error", err)
		return fmt.Errorf("failed to update game status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		logger.Error("Failed to get rows affected", "error", err)
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		logger.Warn("Game not found for status update")
		return ErrGameNotFound
	}

	logger.Debug("Game status updated")
	return nil
}

// lockGame takes a row lock on the game for the rest of tx and returns
// its slot limits.
func lockGame(ctx context.Context, tx *sql.Tx, gameID int) (maxCommanders, maxPawns int, err error) {
	err = tx.QueryRowContext(ctx,
		`SELECT max_commanders, max_pawns FROM games WHERE id = $1 FOR UPDATE`,
		gameID,
	).Scan(&maxCommanders, &maxPawns)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, ErrGameNotFound
	}
	if err != nil {
		return 0, 0, fmt.Errorf("failed to lock game: %w", err)
	}
	return maxCommanders, maxPawns, nil
}

// loadMembers fills Commanders and Pawns for every game in place.
func (r *Repository) loadMembers(ctx context.Context, games []Game) error {
	if len(games) == 0 {
		return nil
	}
	logger := r.logger.With("component", "game_repository", "operation", "load_members", "games", len(games))

	ids := make([]int64, len(games))
	index := make(map[int]int, len(games))
	for i := range games {
		ids[i] = int64(games[i].ID)
		index[games[i].ID] = i
		games[i].Commanders = []Commander{}
		games[i].Pawns = []Pawn{}
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT game_id, player_id, joined_at FROM game_commanders WHERE game_id = ANY($1) ORDER BY joined_at`,
		pq.Array(ids),
	)
	if err != nil {
		logger.Error("Failed to query commanders", "error", err)
		return fmt.Errorf("failed to query commanders: %w", err)
	}
	for rows.Next() {
		var gameID int
		var c Commander
		if err := rows.Scan(&gameID, &c.PlayerID, &c.JoinedAt); err != nil {
			_ = rows.Close()
			return fmt.Errorf("failed to scan commander: %w", err)
		}
		g := &games[index[gameID]]
		g.Commanders = append(g.Commanders, c)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("error iterating commanders: %w", err)
	}
	_ = rows.Close()

	rows, err = r.db.QueryContext(ctx,
		`SELECT game_id, player_id, commander_id, joined_at FROM game_pawns WHERE game_id = ANY($1) ORDER BY joined_at`,
		pq.Array(ids),
	)
	if err != nil {
		logger.Error("Failed to query pawns", "error", err)
		return fmt.Errorf("failed to query pawns: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var gameID int
		var p Pawn
		if err := rows.Scan(&gameID, &p.PlayerID, &p.CommanderID, &p.JoinedAt); err != nil {
			return fmt.Errorf("failed to scan pawn: %w", err)
		}
		g := &games[index[gameID]]
		g.Pawns = append(g.Pawns, p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating pawns: %w", err)
	}
	return nil
}
