package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"wego-server/internal/battle"
	"wego-server/internal/shared/errors"
	"wego-server/internal/shared/events"
	"wego-server/internal/shared/response"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	streamBuffer   = 16
	maxClientFrame = 512
)

// streamTopics are forwarded to clients. battle.ended closes the stream.
var streamTopics = []string{
	events.TopicBattleState,
	events.TopicPhaseChanged,
	events.TopicTurnResolved,
	events.TopicUnitDestroyed,
	events.TopicBattleEnded,
}

type Subscriber interface {
	Subscribe(ctx context.Context, topic string, handler events.Handler) error
}

// Frame is one message written to a stream client.
type Frame struct {
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

// StreamHandler pushes battle snapshots to websocket clients.
type StreamHandler struct {
	manager  *battle.Manager
	bus      Subscriber
	upgrader websocket.Upgrader
}

// NewStreamHandler accepts upgrades from allowedOrigins, and from clients
// that send no Origin header at all.
func NewStreamHandler(manager *battle.Manager, bus Subscriber, allowedOrigins []string) *StreamHandler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}

	return &StreamHandler{
		manager: manager,
		bus:     bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins[origin]
			},
		},
	}
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := battleIDFromPath(r)
	logger := slog.With("handler", "battle_stream", "battle_id", id)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Subscribe before reading the initial state so that nothing published
	// in between is lost.
	frames := make(chan Frame, streamBuffer)
	ended := make(chan Frame, 1)
	forward := forwarder(id, frames, ended, logger)
	for _, topic := range streamTopics {
		if err := h.bus.Subscribe(ctx, topic, forward); err != nil {
			response.Error(w, r, logger, errors.WrapInternal("failed to subscribe to battle events", err))
			return
		}
	}

	initial, err := h.manager.Get(r.Context(), id)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		logger.Warn("Websocket upgrade failed", "error", err)
		return
	}

	logger.Info("Stream client connected", "remote_addr", r.RemoteAddr)

	go readPump(conn, cancel)
	h.writePump(ctx, conn, initial, frames, ended, logger)

	logger.Info("Stream client disconnected")
}

// forwarder queues the battle's messages for the writer. Ordinary frames
// are dropped when the client falls behind; the end frame has its own slot
// and is never dropped.
func forwarder(id battle.BattleID, frames, ended chan<- Frame, logger *slog.Logger) events.Handler {
	return func(_ context.Context, msg events.Message) error {
		if msg.BattleID != string(id) {
			return nil
		}
		frame := Frame{Topic: msg.Topic, Data: msg.Payload}

		if msg.Topic == events.TopicBattleEnded {
			select {
			case ended <- frame:
			default:
			}
			return nil
		}

		select {
		case frames <- frame:
		default:
			logger.Warn("Stream client too slow, dropping frame", "topic", msg.Topic)
		}
		return nil
	}
}

// readPump discards client frames and cancels ctx once the client goes away.
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(maxClientFrame)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump is the connection's only writer. The bus may deliver state
// frames out of order, so a state older than the last one sent is skipped.
func (h *StreamHandler) writePump(ctx context.Context, conn *websocket.Conn, initial battle.BattleState, frames <-chan Frame, ended <-chan Frame, logger *slog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	data, err := json.Marshal(initial)
	if err != nil {
		logger.Error("Failed to encode initial state", "error", err)
		return
	}
	first := events.TopicBattleState
	if initial.Ended {
		first = events.TopicBattleEnded
	}
	if err := writeFrame(conn, Frame{Topic: first, Data: data}); err != nil {
		return
	}
	if initial.Ended {
		closeNormally(conn, "battle ended")
		return
	}

	last := clockOf(initial)
	send := func(frame Frame) error {
		if frame.Topic == events.TopicBattleState {
			var next stateClock
			if err := json.Unmarshal(frame.Data, &next); err == nil {
				if next.before(last) {
					logger.Debug("Skipping stale state frame", "turn", next.Turn, "phase", next.Phase)
					return nil
				}
				last = next
			}
		}
		return writeFrame(conn, frame)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-frames:
			if err := send(frame); err != nil {
				logger.Debug("Stream write failed", "error", err)
				return
			}
		case frame := <-ended:
			// Flush what is already queued, then the end.
			for pending := len(frames); pending > 0; pending-- {
				if err := send(<-frames); err != nil {
					return
				}
			}
			if err := writeFrame(conn, frame); err != nil {
				return
			}
			closeNormally(conn, "battle ended")
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// stateClock is the position of a state frame in the battle's timeline.
type stateClock struct {
	Turn          int              `json:"currentTurn"`
	Phase         battle.TurnPhase `json:"turnPhase"`
	TimeRemaining float64          `json:"timeRemaining"`
}

func clockOf(state battle.BattleState) stateClock {
	return stateClock{Turn: state.CurrentTurn, Phase: state.TurnPhase, TimeRemaining: state.TimeRemaining}
}

// before reports whether c is strictly earlier than o. Within a turn
// PLANNING comes before ANIMATION and the time remaining counts down.
func (c stateClock) before(o stateClock) bool {
	if c.Turn != o.Turn {
		return c.Turn < o.Turn
	}
	if c.Phase != o.Phase {
		return c.Phase == battle.TurnPhasePlanning
	}
	return c.TimeRemaining > o.TimeRemaining
}

func writeFrame(conn *websocket.Conn, frame Frame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(frame)
}

func closeNormally(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason),
		time.Now().Add(writeWait))
}
