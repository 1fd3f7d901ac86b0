package battle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"wego-server/internal/shared/events"
	apperrors "wego-server/internal/shared/errors"
)

const (
	EndReasonRequested = "ended by request"
	EndReasonShutdown  = "server shutdown"
)

// Recorder persists battle summaries.
type Recorder interface {
	CreateBattle(ctx context.Context, state BattleState, gameID *int) error
	RecordOutcome(ctx context.Context, state BattleState) error
	GetBattle(ctx context.Context, id BattleID) (*Record, error)
}

type ManagerConfig struct {
	Durations    PhaseDurations
	TickInterval time.Duration
	Weapons      WeaponTable
	Publisher    Publisher
	Snapshots    SnapshotStore
	Recorder     Recorder
	Logger       *slog.Logger
}

// CreateInput seeds a new battle.
type CreateInput struct {
	GameID               *int
	AttackingCommanderID CommanderID
	DefendingCommanderID CommanderID
	Units                []Unit
}

// Manager is the registry of live battles.
type Manager struct {
	mu      sync.RWMutex
	runners map[BattleID]*Runner
	cfg     ManagerConfig
	// runCtx outlives the request that created a battle.
	runCtx    context.Context
	runCancel context.CancelFunc
	logger    *slog.Logger
}

func NewManager(cfg ManagerConfig) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	runCtx, runCancel := context.WithCancel(context.Background())

	return &Manager{
		runners:   make(map[BattleID]*Runner),
		cfg:       cfg,
		runCtx:    runCtx,
		runCancel: runCancel,
		logger:    logger,
	}
}

// Create validates the roster, starts a runner for the new battle and
// returns its initial state. Units without an id get a generated one.
func (m *Manager) Create(ctx context.Context, input CreateInput) (BattleState, error) {
	id := BattleID(uuid.NewString())
	logger := m.logger.With("component", "battle_manager", "operation", "create", "battle_id", id)

	units := make([]Unit, len(input.Units))
	for i, u := range input.Units {
		if u.ID == "" {
			u.ID = UnitID(uuid.NewString())
		}
		units[i] = u
	}

	session, err := NewSession(SessionConfig{
		ID:                   id,
		AttackingCommanderID: input.AttackingCommanderID,
		DefendingCommanderID: input.DefendingCommanderID,
		Durations:            m.cfg.Durations,
		Weapons:              m.cfg.Weapons,
		Logger:               m.logger,
	}, units)
	if err != nil {
		return BattleState{}, err
	}

	state := session.State()
	if m.cfg.Recorder != nil {
		if err := m.cfg.Recorder.CreateBattle(ctx, state, input.GameID); err != nil {
			return BattleState{}, apperrors.WrapInternal("failed to record battle", err)
		}
	}

	runner := NewRunner(session, RunnerConfig{
		TickInterval: m.cfg.TickInterval,
		Publisher:    m.cfg.Publisher,
		Snapshots:    m.cfg.Snapshots,
		Logger:       m.logger,
		OnEnded: func(ctx context.Context, r *Runner) {
			m.finish(ctx, r)
		},
	})

	m.mu.Lock()
	m.runners[id] = runner
	m.mu.Unlock()

	runner.Start(m.runCtx)

	logger.Info("Battle created", "units", len(units))
	return runner.Session().State(), nil
}

// Get returns the live state of a battle, or the last known state of one
// that has already ended.
func (m *Manager) Get(ctx context.Context, id BattleID) (BattleState, error) {
	if r, ok := m.runner(id); ok {
		return r.Session().State(), nil
	}

	if m.cfg.Snapshots != nil {
		state, err := m.cfg.Snapshots.Load(ctx, id)
		if err == nil {
			return state, nil
		}
		if apperrors.GetType(err) != apperrors.ErrorTypeNotFound {
			m.logger.Warn("Failed to load battle snapshot",
				"component", "battle_manager", "operation", "get", "battle_id", id, "error", err)
		}
	}

	if m.cfg.Recorder != nil {
		rec, err := m.cfg.Recorder.GetBattle(ctx, id)
		if err != nil {
			return BattleState{}, apperrors.WrapInternal("failed to load battle", err)
		}
		if rec != nil && rec.FinalState != nil {
			return *rec.FinalState, nil
		}
	}

	return BattleState{}, apperrors.WrapNotFound(fmt.Sprintf("battle %s", id), ErrBattleNotFound)
}

// SubmitOrder forwards an order from player to a unit the player controls.
func (m *Manager) SubmitOrder(ctx context.Context, id BattleID, player PlayerID, unitID UnitID, order Order) error {
	r, err := m.liveRunner(id)
	if err != nil {
		return err
	}
	if err := authorize(r.Session(), player, unitID); err != nil {
		return err
	}
	return r.Session().SubmitOrder(unitID, order)
}

// Withdraw removes a unit the player controls from the battle.
func (m *Manager) Withdraw(ctx context.Context, id BattleID, player PlayerID, unitID UnitID) error {
	r, err := m.liveRunner(id)
	if err != nil {
		return err
	}
	if err := authorize(r.Session(), player, unitID); err != nil {
		return err
	}
	if err := r.Session().RemoveUnit(unitID); err != nil {
		return err
	}

	for commander, alive := range r.Session().Survivors() {
		if alive == 0 {
			m.logger.Info("Commander has no units left",
				"component", "battle_manager", "operation", "withdraw", "battle_id", id, "commander_id", commander)
			_, err := m.End(ctx, id, fmt.Sprintf("commander %s withdrew", commander))
			return err
		}
	}
	return nil
}

// End stops a battle, records its outcome and returns the final state.
func (m *Manager) End(ctx context.Context, id BattleID, reason string) (BattleState, error) {
	r, err := m.liveRunner(id)
	if err != nil {
		return BattleState{}, err
	}

	r.Stop()
	if reason == "" {
		reason = EndReasonRequested
	}
	r.Session().End(reason)
	m.finish(ctx, r)

	return r.Session().State(), nil
}

// Active lists the ids of live battles.
func (m *Manager) Active() []BattleID {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]BattleID, 0, len(m.runners))
	for id := range m.runners {
		ids = append(ids, id)
	}
	return ids
}

// Shutdown ends every live battle.
func (m *Manager) Shutdown(ctx context.Context) {
	logger := m.logger.With("component", "battle_manager", "operation", "shutdown")

	m.mu.RLock()
	runners := make([]*Runner, 0, len(m.runners))
	for _, r := range m.runners {
		runners = append(runners, r)
	}
	m.mu.RUnlock()

	logger.Info("Stopping live battles", "count", len(runners))
	for _, r := range runners {
		r.Stop()
		r.Session().End(EndReasonShutdown)
		m.finish(ctx, r)
	}
	m.runCancel()
}

// finish unregisters a runner and persists its outcome once.
func (m *Manager) finish(ctx context.Context, r *Runner) {
	id := r.Session().ID()
	logger := m.logger.With("component", "battle_manager", "operation", "finish", "battle_id", id)

	m.mu.Lock()
	if m.runners[id] != r {
		m.mu.Unlock()
		return
	}
	delete(m.runners, id)
	m.mu.Unlock()

	state := r.Session().State()

	if m.cfg.Snapshots != nil {
		if err := m.cfg.Snapshots.Save(ctx, state); err != nil {
			logger.Warn("Failed to save final snapshot", "error", err)
		}
	}
	if m.cfg.Recorder != nil {
		if err := m.cfg.Recorder.RecordOutcome(ctx, state); err != nil {
			logger.Error("Failed to record battle outcome", "error", err)
		}
	}
	if m.cfg.Publisher != nil {
		if err := m.cfg.Publisher.PublishJSON(ctx, events.TopicBattleEnded, string(id), state); err != nil {
			logger.Warn("Failed to publish battle end", "error", err)
		}
	}

	logger.Info("Battle finished", "reason", state.EndReason, "turn", state.CurrentTurn, "survivors", state.Survivors())
}

func (m *Manager) runner(id BattleID) (*Runner, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runners[id]
	return r, ok
}

func (m *Manager) liveRunner(id BattleID) (*Runner, error) {
	if r, ok := m.runner(id); ok {
		return r, nil
	}
	return nil, apperrors.WrapNotFound(fmt.Sprintf("no live battle %s", id), ErrBattleNotFound)
}

func authorize(s *Session, player PlayerID, unitID UnitID) error {
	u, ok := s.Unit(unitID)
	if !ok {
		return apperrors.WrapNotFound(fmt.Sprintf("unit %s not in battle %s", unitID, s.ID()), ErrUnknownUnit)
	}
	if u.ControlledBy == nil || *u.ControlledBy != player {
		return apperrors.Forbidden(fmt.Sprintf("player %s does not control unit %s", player, unitID))
	}
	return nil
}
