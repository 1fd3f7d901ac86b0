package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wego-server/internal/battle"
	"wego-server/internal/shared/events"
)

func dialStream(t *testing.T, srv *httptest.Server, id battle.BattleID, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/battles/" + string(id) + "/stream"
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return websocket.DefaultDialer.Dial(url, header)
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var frame Frame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestStreamSendsStateAndEnd(t *testing.T) {
	f := newFixture(t, nil)
	state := f.createDuel(t)
	srv := httptest.NewServer(f.mux)
	t.Cleanup(srv.Close)

	conn, _, err := dialStream(t, srv, state.ID, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	first := readFrame(t, conn)
	assert.Equal(t, events.TopicBattleState, first.Topic)
	var initial battle.BattleState
	require.NoError(t, json.Unmarshal(first.Data, &initial))
	assert.Equal(t, state.ID, initial.ID)

	ctx := context.Background()
	require.NoError(t, f.bus.PublishJSON(ctx, events.TopicBattleState, "another-battle", battle.BattleState{ID: "another-battle"}))
	updated := initial
	updated.TimeRemaining = 3
	require.NoError(t, f.bus.PublishJSON(ctx, events.TopicBattleState, string(state.ID), updated))

	next := readFrame(t, conn)
	assert.Equal(t, events.TopicBattleState, next.Topic)
	var got battle.BattleState
	require.NoError(t, json.Unmarshal(next.Data, &got))
	assert.Equal(t, state.ID, got.ID)
	assert.Equal(t, 3.0, got.TimeRemaining)

	_, err = f.manager.End(ctx, state.ID, "truce")
	require.NoError(t, err)

	// The runner may publish one more state before the end.
	var ended Frame
	for ended.Topic != events.TopicBattleEnded {
		ended = readFrame(t, conn)
	}
	var final battle.BattleState
	require.NoError(t, json.Unmarshal(ended.Data, &final))
	assert.Equal(t, "truce", final.EndReason)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestStreamOfEndedBattleClosesAfterFinalState(t *testing.T) {
	f := newFixture(t, nil)
	state := f.createDuel(t)
	_, err := f.manager.End(context.Background(), state.ID, "")
	require.NoError(t, err)

	srv := httptest.NewServer(f.mux)
	t.Cleanup(srv.Close)

	conn, _, err := dialStream(t, srv, state.ID, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	frame := readFrame(t, conn)
	assert.Equal(t, events.TopicBattleEnded, frame.Topic)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestStreamRejectsUnknownBattleAndForeignOrigin(t *testing.T) {
	f := newFixture(t, nil)
	state := f.createDuel(t)
	srv := httptest.NewServer(f.mux)
	t.Cleanup(srv.Close)

	_, resp, err := dialStream(t, srv, "missing", "")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, resp, err = dialStream(t, srv, state.ID, "http://evil.example")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := dialStream(t, srv, state.ID, "http://localhost:3000")
	require.NoError(t, err)
	_ = conn.Close()
}

func TestStreamForwardsTurnEvents(t *testing.T) {
	f := newFixture(t, nil)
	state := f.createDuel(t)
	srv := httptest.NewServer(f.mux)
	t.Cleanup(srv.Close)

	conn, _, err := dialStream(t, srv, state.ID, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	readFrame(t, conn)

	ctx := context.Background()
	id := string(state.ID)
	require.NoError(t, f.bus.PublishJSON(ctx, events.TopicPhaseChanged, id,
		battle.PhaseTransition{From: battle.TurnPhaseAnimation, To: battle.TurnPhasePlanning, Turn: 2}))
	require.NoError(t, f.bus.PublishJSON(ctx, events.TopicTurnResolved, id, battle.Resolution{
		Turn:      1,
		Attacks:   []battle.AttackOutcome{{AttackerID: "a1", TargetID: "b1", WeaponMode: battle.WeaponModeLaserEnergy, HullDamage: 20}},
		Destroyed: []battle.UnitID{"b1"},
	}))
	require.NoError(t, f.bus.PublishJSON(ctx, events.TopicUnitDestroyed, id, battle.UnitDestroyed{UnitID: "b1", Turn: 1}))

	seen := map[string]Frame{}
	for len(seen) < 3 {
		frame := readFrame(t, conn)
		seen[frame.Topic] = frame
	}

	var transition battle.PhaseTransition
	require.NoError(t, json.Unmarshal(seen[events.TopicPhaseChanged].Data, &transition))
	assert.Equal(t, 2, transition.Turn)

	var resolved battle.Resolution
	require.NoError(t, json.Unmarshal(seen[events.TopicTurnResolved].Data, &resolved))
	require.Len(t, resolved.Attacks, 1)
	assert.Equal(t, battle.UnitID("a1"), resolved.Attacks[0].AttackerID)
	assert.Equal(t, []battle.UnitID{"b1"}, resolved.Destroyed)

	var destroyed battle.UnitDestroyed
	require.NoError(t, json.Unmarshal(seen[events.TopicUnitDestroyed].Data, &destroyed))
	assert.Equal(t, battle.UnitID("b1"), destroyed.UnitID)
}

func TestStreamSkipsStaleStates(t *testing.T) {
	f := newFixture(t, nil)
	state := f.createDuel(t)
	srv := httptest.NewServer(f.mux)
	t.Cleanup(srv.Close)

	conn, _, err := dialStream(t, srv, state.ID, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	var initial battle.BattleState
	require.NoError(t, json.Unmarshal(readFrame(t, conn).Data, &initial))

	publishAt := func(remaining float64) {
		s := initial
		s.TimeRemaining = remaining
		require.NoError(t, f.bus.PublishJSON(context.Background(), events.TopicBattleState, string(state.ID), s))
	}
	readRemaining := func() float64 {
		var s battle.BattleState
		require.NoError(t, json.Unmarshal(readFrame(t, conn).Data, &s))
		return s.TimeRemaining
	}

	publishAt(3)
	assert.Equal(t, 3.0, readRemaining())

	// Whichever of these arrives first, the 10 second state is older than
	// what the client already has.
	publishAt(10)
	publishAt(2)
	assert.Equal(t, 2.0, readRemaining())
}

func TestForwarderNeverDropsTheEnd(t *testing.T) {
	frames := make(chan Frame, 1)
	ended := make(chan Frame, 1)
	forward := forwarder("b-1", frames, ended, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	require.NoError(t, forward(ctx, events.Message{Topic: events.TopicBattleState, BattleID: "b-1", Payload: []byte(`1`)}))
	require.NoError(t, forward(ctx, events.Message{Topic: events.TopicBattleState, BattleID: "b-1", Payload: []byte(`2`)}))
	require.NoError(t, forward(ctx, events.Message{Topic: events.TopicTurnResolved, BattleID: "other", Payload: []byte(`3`)}))
	require.NoError(t, forward(ctx, events.Message{Topic: events.TopicBattleEnded, BattleID: "b-1", Payload: []byte(`{}`)}))

	require.Len(t, frames, 1)
	assert.Equal(t, json.RawMessage(`1`), (<-frames).Data)
	require.Len(t, ended, 1)
	assert.Equal(t, events.TopicBattleEnded, (<-ended).Topic)
}

func TestStateClockOrdering(t *testing.T) {
	planning := func(turn int, remaining float64) stateClock {
		return stateClock{Turn: turn, Phase: battle.TurnPhasePlanning, TimeRemaining: remaining}
	}
	animation := func(turn int, remaining float64) stateClock {
		return stateClock{Turn: turn, Phase: battle.TurnPhaseAnimation, TimeRemaining: remaining}
	}

	tests := []struct {
		name   string
		c, o   stateClock
		before bool
	}{
		{"earlier turn", animation(1, 1), planning(2, 15), true},
		{"later turn", planning(3, 15), animation(2, 1), false},
		{"planning before animation", planning(1, 1), animation(1, 5), true},
		{"animation after planning", animation(1, 5), planning(1, 1), false},
		{"more time left is earlier", planning(1, 10), planning(1, 3), true},
		{"equal is not earlier", planning(1, 3), planning(1, 3), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.before, tt.c.before(tt.o))
		})
	}
}
