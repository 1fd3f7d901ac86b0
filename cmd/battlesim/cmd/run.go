package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"wego-server/internal/battle"
	"wego-server/internal/battle/cache"
	"wego-server/internal/shared/config"
	"wego-server/internal/shared/logger"
)

// stepSeconds is the simulated time advanced per manual tick.
const stepSeconds = 1.0

// Scenario is a battle roster plus orders scripted per turn.
type Scenario struct {
	ID                   battle.BattleID         `json:"id"`
	AttackingCommanderID battle.CommanderID      `json:"attackingCommanderId"`
	DefendingCommanderID battle.CommanderID      `json:"defendingCommanderId"`
	Durations            *battle.PhaseDurations  `json:"durations,omitempty"`
	Units                []battle.Unit           `json:"units"`
	Orders               map[int][]ScriptedOrder `json:"orders,omitempty"`
}

// ScriptedOrder is submitted when PLANNING of its turn begins.
type ScriptedOrder struct {
	UnitID battle.UnitID `json:"unitId"`
	battle.Order
}

func newRunCmd() *cobra.Command {
	var (
		scenarioPath string
		turns        int
		verbose      bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Play a scenario file and print every resolved turn",
		Long: `Load a roster and scripted orders from a JSON scenario, then drive the
battle with manual one second ticks until it ends or the turn limit is hit.
Units without a controlling player are flown by the autopilot.

Examples:
  battlesim run --scenario scenarios/duel.json
  battlesim run --scenario scenarios/duel.json --turns 3 --verbose`,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := "warn"
			if verbose {
				level = "debug"
			}
			log := logger.New(config.LoggingConfig{Level: level, Format: "text"}, cmd.ErrOrStderr())

			sc, err := loadScenario(scenarioPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			_, err = simulate(ctx, sc, turns, cmd.OutOrStdout(), log)
			return err
		},
	}

	cmd.Flags().StringVarP(&scenarioPath, "scenario", "s", "", "path to the scenario JSON file")
	cmd.Flags().IntVarP(&turns, "turns", "n", 10, "maximum number of turns to resolve")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every tick to stderr")
	_ = cmd.MarkFlagRequired("scenario")

	return cmd
}

func loadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("failed to read scenario: %w", err)
	}
	return parseScenario(data)
}

func parseScenario(data []byte) (Scenario, error) {
	var sc Scenario
	if err := json.Unmarshal(data, &sc); err != nil {
		return Scenario{}, fmt.Errorf("invalid scenario: %w", err)
	}
	if sc.ID == "" {
		sc.ID = battle.BattleID(uuid.NewString())
	}
	return sc, nil
}

// simulate plays sc for at most turns resolutions and writes a report of
// every resolved turn to out. It returns the final battle state.
func simulate(ctx context.Context, sc Scenario, turns int, out io.Writer, log *slog.Logger) (battle.BattleState, error) {
	if turns <= 0 {
		return battle.BattleState{}, fmt.Errorf("turns must be positive, got %d", turns)
	}

	durations := battle.DefaultPhaseDurations
	if sc.Durations != nil {
		durations = *sc.Durations
	}

	session, err := battle.NewSession(battle.SessionConfig{
		ID:                   sc.ID,
		AttackingCommanderID: sc.AttackingCommanderID,
		DefendingCommanderID: sc.DefendingCommanderID,
		Durations:            durations,
		Logger:               log,
	}, sc.Units)
	if err != nil {
		return battle.BattleState{}, err
	}

	snapshots := cache.NewMemoryStore()
	runner := battle.NewRunner(session, battle.RunnerConfig{
		TickInterval: time.Duration(stepSeconds * float64(time.Second)),
		Snapshots:    snapshots,
		Logger:       log,
	})

	session.Autopilot()
	fmt.Fprintf(out, "battle %s: %s attacks %s with %d units\n",
		sc.ID, sc.AttackingCommanderID, sc.DefendingCommanderID, len(sc.Units))

	scripted := 0
	for {
		if err := ctx.Err(); err != nil {
			return session.State(), err
		}

		state := session.State()
		if state.Ended || state.CurrentTurn > turns {
			break
		}

		if state.TurnPhase == battle.TurnPhasePlanning && scripted < state.CurrentTurn {
			for _, o := range sc.Orders[state.CurrentTurn] {
				if err := session.SubmitOrder(o.UnitID, o.Order); err != nil {
					fmt.Fprintf(out, "turn %d: order for %s rejected: %v\n", state.CurrentTurn, o.UnitID, err)
				}
			}
			scripted = state.CurrentTurn
		}

		report, err := runner.Step(ctx, stepSeconds)
		if err != nil {
			return session.State(), err
		}
		for _, res := range report.Resolutions {
			writeResolution(out, res)
		}
	}

	final, err := snapshots.Load(ctx, sc.ID)
	if err != nil {
		final = session.State()
	}
	writeSummary(out, final, turns)
	return final, nil
}

func writeResolution(out io.Writer, res battle.Resolution) {
	fmt.Fprintf(out, "turn %d resolved\n", res.Turn)
	for _, a := range res.Attacks {
		if a.OutOfRange {
			fmt.Fprintf(out, "  %s -> %s %s out of range\n", a.AttackerID, a.TargetID, a.WeaponMode)
			continue
		}
		fmt.Fprintf(out, "  %s -> %s %s shield=%.1f hull=%.1f\n",
			a.AttackerID, a.TargetID, a.WeaponMode, a.ShieldDamage, a.HullDamage)
	}
	if len(res.Destroyed) > 0 {
		ids := make([]string, len(res.Destroyed))
		for i, id := range res.Destroyed {
			ids[i] = string(id)
		}
		fmt.Fprintf(out, "  destroyed: %s\n", strings.Join(ids, ", "))
	}
}

func writeSummary(out io.Writer, state battle.BattleState, turns int) {
	if state.Ended {
		fmt.Fprintf(out, "battle ended: %s\n", state.EndReason)
	} else {
		fmt.Fprintf(out, "stopped after %d turns\n", turns)
	}

	survivors := state.Survivors()
	commanders := make([]string, 0, len(survivors))
	for c := range survivors {
		commanders = append(commanders, string(c))
	}
	sort.Strings(commanders)
	for _, c := range commanders {
		fmt.Fprintf(out, "  %s: %d units left\n", c, survivors[battle.CommanderID(c)])
	}
}
