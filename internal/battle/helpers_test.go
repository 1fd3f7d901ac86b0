package battle

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"wego-server/internal/battle/vector"
)

const (
	attacker CommanderID = "commander1"
	defender CommanderID = "commander2"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fighter(id UnitID, commander CommanderID, pos vector.Vector3) Unit {
	return Unit{
		ID:           id,
		CommanderID:  commander,
		ShipType:     ShipTypeFighter,
		Position:     pos,
		MaxSpeed:     2,
		Acceleration: 1,
		Health:       100,
		Shields:      50,
	}
}

func controlled(u Unit, player PlayerID) Unit {
	u.ControlledBy = &player
	return u
}

// duelRoster is the stock two ship engagement.
func duelRoster() []Unit {
	return []Unit{
		controlled(fighter("unit1", attacker, vector.New(0, 0, -5)), "player1"),
		controlled(fighter("unit2", defender, vector.New(0, 0, 5)), "player2"),
	}
}

func newTestSession(t *testing.T, roster []Unit) *Session {
	t.Helper()
	s, err := NewSession(SessionConfig{
		ID:                   "battle1",
		AttackingCommanderID: attacker,
		DefendingCommanderID: defender,
		Durations:            DefaultPhaseDurations,
		Logger:               discardLogger(),
	}, roster)
	require.NoError(t, err)
	return s
}

// overflowingSession returns a duel whose first resolution cannot produce a
// finite position. NewSession refuses such a unit, so it is planted directly.
func overflowingSession(t *testing.T) *Session {
	t.Helper()
	s := newTestSession(t, duelRoster())

	u := controlled(fighter("unit1", attacker, vector.New(1e308, 0, 0)), "player1")
	u.MaxSpeed = 1e308
	order := MoveOrder(vector.New(1.7e308, 0, 0), 1)
	u.Order = &order

	s.mu.Lock()
	s.units[u.ID] = u
	s.mu.Unlock()
	return s
}

// tickN ticks one second at a time.
func tickN(t *testing.T, s *Session, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := s.Tick(1)
		require.NoError(t, err)
	}
}

// fullCycle runs one PLANNING plus ANIMATION cycle from a fresh PLANNING phase.
func fullCycle(t *testing.T, s *Session) {
	t.Helper()
	tickN(t, s, int(DefaultPhaseDurations.Planning+DefaultPhaseDurations.Animation))
}

func ptr[T any](v T) *T {
	return &v
}
