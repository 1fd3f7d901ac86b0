package battle

import "fmt"

// PhaseDurations configures the length of each phase in seconds.
type PhaseDurations struct {
	Planning  float64
	Animation float64
}

var DefaultPhaseDurations = PhaseDurations{Planning: 15, Animation: 5}

func (d PhaseDurations) validate() error {
	if !(d.Planning > 0) {
		return fmt.Errorf("planning duration must be positive, got %v", d.Planning)
	}
	if !(d.Animation > 0) {
		return fmt.Errorf("animation duration must be positive, got %v", d.Animation)
	}
	return nil
}

// PhaseTransition describes one phase boundary crossed during a tick.
type PhaseTransition struct {
	From TurnPhase `json:"from"`
	To   TurnPhase `json:"to"`
	// Turn is the current turn after the transition.
	Turn int `json:"turn"`
}

// PhaseClock is the PLANNING/ANIMATION cycle. It has no terminal state.
type PhaseClock struct {
	Phase         TurnPhase
	TimeRemaining float64
	CurrentTurn   int
	durations     PhaseDurations
}

func NewPhaseClock(d PhaseDurations) (PhaseClock, error) {
	if err := d.validate(); err != nil {
		return PhaseClock{}, err
	}
	return PhaseClock{
		Phase:         TurnPhasePlanning,
		TimeRemaining: d.Planning,
		CurrentTurn:   1,
		durations:     d,
	}, nil
}

// Advance returns the clock delta seconds later together with the
// transitions crossed on the way. resolve runs on every ANIMATION to
// PLANNING boundary with the turn being closed; if it fails Advance stops
// and returns the error, and the receiver is untouched since it is a copy.
func (c PhaseClock) Advance(delta float64, resolve func(turn int) error) (PhaseClock, []PhaseTransition, error) {
	var transitions []PhaseTransition

	c.TimeRemaining -= delta
	for c.TimeRemaining <= 0 {
		overflow := -c.TimeRemaining
		tr := PhaseTransition{From: c.Phase}

		switch c.Phase {
		case TurnPhasePlanning:
			c.Phase = TurnPhaseAnimation
			c.TimeRemaining = c.durations.Animation - overflow
		case TurnPhaseAnimation:
			if err := resolve(c.CurrentTurn); err != nil {
				return c, transitions, err
			}
			c.Phase = TurnPhasePlanning
			c.CurrentTurn++
			c.TimeRemaining = c.durations.Planning - overflow
		default:
			return c, transitions, fmt.Errorf("unknown turn phase %q", c.Phase)
		}

		tr.To = c.Phase
		tr.Turn = c.CurrentTurn
		transitions = append(transitions, tr)
	}

	return c, transitions, nil
}
