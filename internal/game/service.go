package game

import (
	"context"
	"errors"
	"log/slog"

	apperrors "wego-server/internal/shared/errors"
	"wego-server/internal/shared/validation"
)

// Store is the persistence the lobby needs.
type Store interface {
	CreateGame(ctx context.Context, config GameConfig, creatorID string) (*Game, error)
	GetGameByID(ctx context.Context, gameID int) (*Game, error)
	GetAllGames(ctx context.Context) ([]Game, error)
	AddCommander(ctx context.Context, gameID int, playerID string) error
	AddPawn(ctx context.Context, gameID int, playerID, commanderID string) error
}

type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// CreateGame validates config and opens a lobby with creatorID as its
// first commander.
func (s *Service) CreateGame(ctx context.Context, config GameConfig, creatorID string) (*Game, error) {
	logger := s.logger.With("component", "game_service", "operation", "create_game", "name", config.Name)

	if err := validation.Struct(config); err != nil {
		return nil, err
	}

	game, err := s.store.CreateGame(ctx, config, creatorID)
	if err != nil {
		return nil, apperrors.WrapInternal("failed to create game", err)
	}

	logger.Info("Game lobby opened", "game_id", game.ID, "creator", creatorID)
	return game, nil
}

func (s *Service) GetAllGames(ctx context.Context) ([]Game, error) {
	games, err := s.store.GetAllGames(ctx)
	if err != nil {
		return nil, apperrors.WrapInternal("failed to list games", err)
	}
	if games == nil {
		games = []Game{}
	}
	return games, nil
}

func (s *Service) GetGame(ctx context.Context, gameID int) (*Game, error) {
	game, err := s.store.GetGameByID(ctx, gameID)
	if err != nil {
		return nil, apperrors.WrapInternal("failed to get game", err)
	}
	if game == nil {
		return nil, apperrors.NotFoundf("game not found with id: %d", gameID)
	}
	return game, nil
}

// JoinAsCommander adds playerID as a commander and returns the updated game.
func (s *Service) JoinAsCommander(ctx context.Context, gameID int, playerID string) (*Game, error) {
	logger := s.logger.With("component", "game_service", "operation", "join_as_commander", "game_id", gameID, "player_id", playerID)

	if err := s.store.AddCommander(ctx, gameID, playerID); err != nil {
		return nil, mapJoinError(gameID, err)
	}

	logger.Info("Player joined as commander")
	return s.GetGame(ctx, gameID)
}

// JoinAsPawn adds playerID under commanderID and returns the updated game.
func (s *Service) JoinAsPawn(ctx context.Context, gameID int, playerID string, req JoinAsPawnRequest) (*Game, error) {
	logger := s.logger.With("component", "game_service", "operation", "join_as_pawn", "game_id", gameID, "player_id", playerID)

	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	if err := s.store.AddPawn(ctx, gameID, playerID, req.CommanderID); err != nil {
		return nil, mapJoinError(gameID, err)
	}

	logger.Info("Player joined as pawn", "commander_id", req.CommanderID)
	return s.GetGame(ctx, gameID)
}

func mapJoinError(gameID int, err error) error {
	switch {
	case errors.Is(err, ErrGameNotFound):
		return apperrors.WrapNotFound("game not found", err)
	case errors.Is(err, ErrGameFull), errors.Is(err, ErrAlreadyJoined):
		return apperrors.WrapConflict("cannot join game", err)
	case errors.Is(err, ErrCommanderNotInGame):
		return apperrors.WrapValidation("cannot join game", err)
	default:
		return apperrors.WrapInternal("failed to join game", err)
	}
}
