package battle

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"wego-server/internal/shared/events"
)

// Publisher sends battle events to whoever is listening.
type Publisher interface {
	PublishJSON(ctx context.Context, topic, battleID string, payload any) error
}

// SnapshotStore keeps the latest state of every battle for readers that
// are not attached to a live session.
type SnapshotStore interface {
	Save(ctx context.Context, state BattleState) error
	Load(ctx context.Context, id BattleID) (BattleState, error)
	Delete(ctx context.Context, id BattleID) error
}

const (
	EndReasonAnnihilation     = "annihilation"
	EndReasonResolutionFailed = "resolution failed"
)

type RunnerConfig struct {
	TickInterval time.Duration
	Publisher    Publisher
	Snapshots    SnapshotStore
	Logger       *slog.Logger
	// OnEnded runs on the runner goroutine after the battle ends by itself.
	OnEnded func(ctx context.Context, r *Runner)
}

// UnitDestroyed is the payload of a unit destroyed event.
type UnitDestroyed struct {
	UnitID UnitID `json:"unitId"`
	Turn   int    `json:"turn"`
}

// Runner drives one session with a fixed-period ticker and reports what
// happens on the event bus.
type Runner struct {
	session   *Session
	interval  time.Duration
	publisher Publisher
	snapshots SnapshotStore
	onEnded   func(ctx context.Context, r *Runner)
	logger    *slog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewRunner(session *Session, cfg RunnerConfig) *Runner {
	interval := cfg.TickInterval
	if interval <= 0 {
		interval = time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		session:   session,
		interval:  interval,
		publisher: cfg.Publisher,
		snapshots: cfg.Snapshots,
		onEnded:   cfg.OnEnded,
		logger:    logger.With("component", "battle_runner", "battle_id", session.ID()),
		done:      make(chan struct{}),
	}
}

func (r *Runner) Session() *Session {
	return r.session
}

// Start plans the first turn for AI units and begins ticking. Calling it
// more than once has no effect.
func (r *Runner) Start(ctx context.Context) {
	r.startOnce.Do(func() {
		ctx, r.cancel = context.WithCancel(ctx)

		r.session.Autopilot()
		state := r.session.State()
		r.saveSnapshot(ctx, state)
		r.publish(ctx, events.TopicBattleState, state)

		r.logger.Info("Battle runner started", "operation", "start", "tick_interval", r.interval)
		go r.loop(ctx)
	})
}

// Stop halts the ticker and waits for the loop to exit. It is safe to call
// more than once and before Start.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		r.startOnce.Do(func() { close(r.done) })
		if r.cancel != nil {
			r.cancel()
		}
		<-r.done
		r.logger.Debug("Battle runner stopped", "operation", "stop")
	})
}

// Done is closed once the loop has exited.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

func (r *Runner) loop(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Step(ctx, r.interval.Seconds()); err != nil {
				if errors.Is(err, ErrBattleEnded) {
					return
				}
				r.logger.Error("Tick failed", "operation", "tick", "error", err)
				if !r.session.Ended() {
					continue
				}
			}
			if r.session.Ended() {
				if r.onEnded != nil {
					r.onEnded(ctx, r)
				}
				return
			}
		}
	}
}

// Step advances the session by delta seconds and publishes the outcome.
// The runner loop calls it on every tick; tools drive it by hand. A turn
// whose resolution overflows would fail on every retry, so it ends the
// battle instead.
func (r *Runner) Step(ctx context.Context, delta float64) (TickReport, error) {
	report, err := r.session.Tick(delta)
	if err != nil {
		if errors.Is(err, ErrNonFiniteResult) && r.session.End(EndReasonResolutionFailed) {
			r.logger.Error("Turn cannot be resolved, ending battle", "operation", "tick", "error", err)
			state := r.session.State()
			r.saveSnapshot(ctx, state)
			r.publish(ctx, events.TopicBattleState, state)
		}
		return report, err
	}

	for _, tr := range report.Transitions {
		r.publish(ctx, events.TopicPhaseChanged, tr)
	}
	for _, res := range report.Resolutions {
		r.publish(ctx, events.TopicTurnResolved, res)
		for _, unitID := range res.Destroyed {
			r.publish(ctx, events.TopicUnitDestroyed, UnitDestroyed{UnitID: unitID, Turn: res.Turn})
		}
	}

	if len(report.Resolutions) > 0 {
		for commander, alive := range r.session.Survivors() {
			if alive == 0 {
				r.session.End(EndReasonAnnihilation)
				r.logger.Info("Side annihilated", "operation", "tick", "commander_id", commander)
				break
			}
		}
	}

	if report.PlanningStarted() && !r.session.Ended() {
		r.session.Autopilot()
	}

	state := r.session.State()
	if len(report.Transitions) > 0 {
		r.saveSnapshot(ctx, state)
	}
	r.publish(ctx, events.TopicBattleState, state)

	r.logger.Debug("Tick processed", "operation", "tick", "phase", state.TurnPhase, "time_remaining", state.TimeRemaining)
	return report, nil
}

func (r *Runner) publish(ctx context.Context, topic string, payload any) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.PublishJSON(ctx, topic, string(r.session.ID()), payload); err != nil {
		r.logger.Warn("Failed to publish battle event", "operation", "publish", "topic", topic, "error", err)
	}
}

func (r *Runner) saveSnapshot(ctx context.Context, state BattleState) {
	if r.snapshots == nil {
		return
	}
	if err := r.snapshots.Save(ctx, state); err != nil {
		r.logger.Warn("Failed to save battle snapshot", "operation", "save_snapshot", "error", err)
	}
}
