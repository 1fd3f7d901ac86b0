package battle

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	apperrors "wego-server/internal/shared/errors"
)

// SessionConfig seeds a battle session.
type SessionConfig struct {
	ID                   BattleID
	AttackingCommanderID CommanderID
	DefendingCommanderID CommanderID
	Durations            PhaseDurations
	Weapons              WeaponTable
	Logger               *slog.Logger
}

// TickReport lists what happened during one Tick call.
type TickReport struct {
	Transitions []PhaseTransition
	Resolutions []Resolution
}

// PlanningStarted reports whether a PLANNING phase began during the tick.
func (r TickReport) PlanningStarted() bool {
	for _, tr := range r.Transitions {
		if tr.To == TurnPhasePlanning {
			return true
		}
	}
	return false
}

// Session owns one battle. All methods are safe for concurrent use and
// serialized against each other.
type Session struct {
	mu        sync.Mutex
	id        BattleID
	attacking CommanderID
	defending CommanderID
	clock     PhaseClock
	units     map[UnitID]Unit
	weapons   WeaponTable
	ended     bool
	endReason string
	logger    *slog.Logger
}

// NewSession validates the configuration and roster and returns a session
// in PLANNING on turn 1. Any invalid setting is a configuration error and
// no session is created.
func NewSession(cfg SessionConfig, roster []Unit) (*Session, error) {
	if err := validateSessionConfig(cfg, roster); err != nil {
		return nil, apperrors.WrapConfiguration(err.Error(), ErrInvalidConfiguration)
	}

	clock, err := NewPhaseClock(cfg.Durations)
	if err != nil {
		return nil, apperrors.WrapConfiguration(err.Error(), ErrInvalidConfiguration)
	}

	weapons := cfg.Weapons
	if weapons == nil {
		weapons = DefaultWeapons
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	units := make(map[UnitID]Unit, len(roster))
	for _, u := range roster {
		units[u.ID] = u.Clone()
	}

	s := &Session{
		id:        cfg.ID,
		attacking: cfg.AttackingCommanderID,
		defending: cfg.DefendingCommanderID,
		clock:     clock,
		units:     units,
		weapons:   weapons,
		logger:    logger.With("component", "battle_session", "battle_id", cfg.ID),
	}

	s.logger.Info("Battle session created",
		"attacking_commander_id", cfg.AttackingCommanderID,
		"defending_commander_id", cfg.DefendingCommanderID,
		"units", len(units),
		"planning_seconds", cfg.Durations.Planning,
		"animation_seconds", cfg.Durations.Animation,
	)
	return s, nil
}

func (s *Session) ID() BattleID {
	return s.id
}

// SubmitOrder merges order into the unit's pending order. Only allowed
// during PLANNING.
func (s *Session) SubmitOrder(unitID UnitID, order Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger := s.logger.With("operation", "submit_order", "unit_id", unitID)

	if s.ended {
		return apperrors.WrapConflict(fmt.Sprintf("battle %s", s.id), ErrBattleEnded)
	}
	if s.clock.Phase != TurnPhasePlanning {
		return apperrors.WrapInvalidPhase(
			fmt.Sprintf("orders are only accepted during %s, battle %s is in %s", TurnPhasePlanning, s.id, s.clock.Phase),
			ErrInvalidPhase)
	}

	unit, ok := s.units[unitID]
	if !ok {
		return apperrors.WrapNotFound(fmt.Sprintf("unit %s not in battle %s", unitID, s.id), ErrUnknownUnit)
	}
	if err := order.validate(); err != nil {
		return apperrors.WrapValidation("invalid order", err)
	}
	if order.AttackTargetID != nil {
		target := *order.AttackTargetID
		if target == unitID {
			return apperrors.Validationf("unit %s cannot target itself", unitID)
		}
		if _, ok := s.units[target]; !ok {
			return apperrors.WrapNotFound(fmt.Sprintf("attack target %s not in battle %s", target, s.id), ErrUnknownUnit)
		}
	}

	var merged Order
	if unit.Order != nil {
		merged = unit.Order.Merge(order)
	} else {
		merged = order.Clone()
	}
	if merged.IsEmpty() {
		unit.Order = nil
	} else {
		unit.Order = &merged
	}
	s.units[unitID] = unit

	logger.Debug("Order accepted",
		"has_move", merged.HasMove(),
		"has_attack", merged.HasAttack(),
		"turn", s.clock.CurrentTurn,
	)
	return nil
}

// Tick advances the phase clock by deltaSeconds. Crossing the end of
// ANIMATION resolves the turn. If resolution fails nothing changes, the
// clock included, and the next tick retries.
func (s *Session) Tick(deltaSeconds float64) (TickReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return TickReport{}, apperrors.WrapConflict(fmt.Sprintf("battle %s", s.id), ErrBattleEnded)
	}
	if math.IsNaN(deltaSeconds) || math.IsInf(deltaSeconds, 0) || deltaSeconds < 0 {
		return TickReport{}, apperrors.Validationf("tick delta must be a non-negative number, got %v", deltaSeconds)
	}

	units := s.units
	var resolutions []Resolution

	clock, transitions, err := s.clock.Advance(deltaSeconds, func(turn int) error {
		res, err := Resolve(units, s.weapons)
		if err != nil {
			return err
		}
		res.Turn = turn
		units = res.Units
		resolutions = append(resolutions, res)
		return nil
	})
	if err != nil {
		s.logger.Error("Turn resolution failed, battle state left unchanged",
			"operation", "tick", "turn", s.clock.CurrentTurn, "error", err)
		return TickReport{}, apperrors.WrapInternal(fmt.Sprintf("resolve turn %d of battle %s", s.clock.CurrentTurn, s.id), err)
	}

	s.clock = clock
	s.units = units

	for _, res := range resolutions {
		s.logger.Info("Turn resolved",
			"operation", "tick",
			"turn", res.Turn,
			"attacks", len(res.Attacks),
			"destroyed", len(res.Destroyed),
			"dangling_targets", len(res.Dangling),
			"survivors", len(units),
		)
	}

	return TickReport{Transitions: transitions, Resolutions: resolutions}, nil
}

// RemoveUnit withdraws a unit from the battle. Orders still naming it are
// discarded at resolution.
func (s *Session) RemoveUnit(unitID UnitID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return apperrors.WrapConflict(fmt.Sprintf("battle %s", s.id), ErrBattleEnded)
	}
	if _, ok := s.units[unitID]; !ok {
		return apperrors.WrapNotFound(fmt.Sprintf("unit %s not in battle %s", unitID, s.id), ErrUnknownUnit)
	}
	delete(s.units, unitID)

	s.logger.Info("Unit withdrawn", "operation", "remove_unit", "unit_id", unitID, "remaining", len(s.units))
	return nil
}

// End marks the battle as finished. It returns false if it already was.
func (s *Session) End(reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return false
	}
	s.ended = true
	s.endReason = reason

	s.logger.Info("Battle ended",
		"operation", "end",
		"reason", reason,
		"turn", s.clock.CurrentTurn,
		"survivors", countSurvivors(s.units, s.attacking, s.defending),
	)
	return true
}

func (s *Session) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// State returns a deep copy of the current battle state.
func (s *Session) State() BattleState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Survivors counts live units per commander.
func (s *Session) Survivors() map[CommanderID]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return countSurvivors(s.units, s.attacking, s.defending)
}

// Unit returns a copy of one unit.
func (s *Session) Unit(unitID UnitID) (Unit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.units[unitID]
	if !ok {
		return Unit{}, false
	}
	return u.Clone(), true
}

// Autopilot issues orders for every AI controlled unit. It does nothing
// outside PLANNING and returns the number of units that received orders.
func (s *Session) Autopilot() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended || s.clock.Phase != TurnPhasePlanning {
		return 0
	}

	orders := PlanAutopilot(s.units, s.weapons)
	for id, o := range orders {
		u := s.units[id]
		order := o
		u.Order = &order
		s.units[id] = u
	}

	if len(orders) > 0 {
		s.logger.Debug("Autopilot orders issued", "operation", "autopilot", "units", len(orders), "turn", s.clock.CurrentTurn)
	}
	return len(orders)
}

func (s *Session) snapshot() BattleState {
	return BattleState{
		ID:                   s.id,
		AttackingCommanderID: s.attacking,
		DefendingCommanderID: s.defending,
		CurrentTurn:          s.clock.CurrentTurn,
		TurnPhase:            s.clock.Phase,
		TimeRemaining:        s.clock.TimeRemaining,
		Units:                cloneUnits(s.units),
		Ended:                s.ended,
		EndReason:            s.endReason,
	}
}

func validateSessionConfig(cfg SessionConfig, roster []Unit) error {
	if cfg.ID == "" {
		return fmt.Errorf("battle id is required")
	}
	if cfg.AttackingCommanderID == "" || cfg.DefendingCommanderID == "" {
		return fmt.Errorf("attacking and defending commanders are required")
	}
	if cfg.AttackingCommanderID == cfg.DefendingCommanderID {
		return fmt.Errorf("commander %s cannot fight itself", cfg.AttackingCommanderID)
	}
	if len(roster) == 0 {
		return fmt.Errorf("roster is empty")
	}

	seen := make(map[UnitID]bool, len(roster))
	for _, u := range roster {
		if u.ID == "" {
			return fmt.Errorf("unit id is required")
		}
		if seen[u.ID] {
			return fmt.Errorf("duplicate unit id %s", u.ID)
		}
		seen[u.ID] = true

		if u.CommanderID != cfg.AttackingCommanderID && u.CommanderID != cfg.DefendingCommanderID {
			return fmt.Errorf("unit %s belongs to commander %s who is not in this battle", u.ID, u.CommanderID)
		}
		if !u.ShipType.IsValid() {
			return fmt.Errorf("unit %s has unknown ship type %q", u.ID, u.ShipType)
		}
		if !(u.MaxSpeed > 0 && u.MaxSpeed <= MaxUnitSpeed) {
			return fmt.Errorf("unit %s max speed must be within (0,%g], got %v", u.ID, float64(MaxUnitSpeed), u.MaxSpeed)
		}
		if !(u.Acceleration > 0) || math.IsInf(u.Acceleration, 0) {
			return fmt.Errorf("unit %s acceleration must be positive, got %v", u.ID, u.Acceleration)
		}
		if !(u.Health > 0) {
			return fmt.Errorf("unit %s health must be positive, got %v", u.ID, u.Health)
		}
		if !(u.Shields >= 0) {
			return fmt.Errorf("unit %s shields must not be negative, got %v", u.ID, u.Shields)
		}
		if !u.Position.IsFinite() || !u.Velocity.IsFinite() || !u.Rotation.IsFinite() {
			return fmt.Errorf("unit %s has a non-finite position, velocity or rotation", u.ID)
		}
		if !withinBounds(u.Position) {
			return fmt.Errorf("unit %s position %s is outside +/-%g", u.ID, u.Position, float64(MaxCoordinate))
		}
		if u.Order != nil {
			if err := u.Order.validate(); err != nil {
				return fmt.Errorf("unit %s: %w", u.ID, err)
			}
		}
	}
	return nil
}
