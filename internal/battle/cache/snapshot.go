package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"wego-server/internal/battle"
	apperrors "wego-server/internal/shared/errors"
)

const keyPrefix = "battle:snapshot:"

func snapshotKey(id battle.BattleID) string {
	return keyPrefix + string(id)
}

// NewStore returns a redis backed store, or an in-memory one when client
// is nil because redis is disabled.
func NewStore(client *redis.Client, ttl time.Duration, logger *slog.Logger) battle.SnapshotStore {
	if client == nil {
		logger.Info("Redis unavailable, keeping battle snapshots in memory", "component", "snapshot_store")
		return NewMemoryStore()
	}
	return NewRedisStore(client, ttl, logger)
}

// RedisStore keeps snapshots as JSON strings with a TTL so that ended
// battles age out.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisStore(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: logger.With("component", "snapshot_store"),
	}
}

func (s *RedisStore) Save(ctx context.Context, state battle.BattleState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := s.client.Set(ctx, snapshotKey(state.ID), data, s.ttl).Err(); err != nil {
		s.logger.Error("Failed to save snapshot", "operation", "save", "battle_id", state.ID, "error", err)
		return apperrors.WrapExternal("failed to save battle snapshot", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, id battle.BattleID) (battle.BattleState, error) {
	data, err := s.client.Get(ctx, snapshotKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return battle.BattleState{}, apperrors.WrapNotFound(fmt.Sprintf("no snapshot for battle %s", id), battle.ErrBattleNotFound)
		}
		s.logger.Error("Failed to load snapshot", "operation", "load", "battle_id", id, "error", err)
		return battle.BattleState{}, apperrors.WrapExternal("failed to load battle snapshot", err)
	}

	var state battle.BattleState
	if err := json.Unmarshal(data, &state); err != nil {
		return battle.BattleState{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return state, nil
}

func (s *RedisStore) Delete(ctx context.Context, id battle.BattleID) error {
	if err := s.client.Del(ctx, snapshotKey(id)).Err(); err != nil {
		return apperrors.WrapExternal("failed to delete battle snapshot", err)
	}
	return nil
}

// MemoryStore is the process-local fallback. It has no expiry.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[battle.BattleID]battle.BattleState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[battle.BattleID]battle.BattleState)}
}

func (s *MemoryStore) Save(_ context.Context, state battle.BattleState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.ID] = copyState(state)
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id battle.BattleID) (battle.BattleState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[id]
	if !ok {
		return battle.BattleState{}, apperrors.WrapNotFound(fmt.Sprintf("no snapshot for battle %s", id), battle.ErrBattleNotFound)
	}
	return copyState(state), nil
}

func (s *MemoryStore) Delete(_ context.Context, id battle.BattleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, id)
	return nil
}

func copyState(state battle.BattleState) battle.BattleState {
	units := make(map[battle.UnitID]battle.Unit, len(state.Units))
	for id, u := range state.Units {
		units[id] = u.Clone()
	}
	state.Units = units
	return state
}
