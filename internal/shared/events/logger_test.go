package events

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func textLogger(w *lockedBuffer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func TestBusRoutesWatermillLogsThroughSlog(t *testing.T) {
	out := &lockedBuffer{}
	bus := NewBus(16, textLogger(out, slog.LevelDebug))
	t.Cleanup(func() { _ = bus.Close() })

	require.NoError(t, bus.PublishJSON(context.Background(), TopicPhaseChanged, "battle1", "ANIMATION"))

	logged := out.String()
	assert.Contains(t, logged, "No subscribers to send message")
	assert.Contains(t, logged, "level=DEBUG")
	assert.Contains(t, logged, "component=event_bus")
	assert.Contains(t, logged, "topic="+TopicPhaseChanged)
}

func TestBusPublishWithoutSubscribersIsQuietAtInfo(t *testing.T) {
	out := &lockedBuffer{}
	bus := NewBus(16, textLogger(out, slog.LevelInfo))

	for i := 0; i < 3; i++ {
		require.NoError(t, bus.PublishJSON(context.Background(), TopicBattleState, "battle1", struct{}{}))
	}

	assert.Empty(t, out.String())
	_ = bus.Close()
}

func TestSlogAdapterLevelsAndFields(t *testing.T) {
	out := &lockedBuffer{}
	adapter := newSlogAdapter(textLogger(out, slog.LevelDebug)).With(watermill.LogFields{"subscriber": "stream"})

	adapter.Trace("hidden", nil)
	assert.Empty(t, out.String())

	adapter.Error("publish failed", errors.New("boom"), watermill.LogFields{"topic": "battle.state"})
	logged := out.String()
	assert.Contains(t, logged, "level=ERROR")
	assert.Contains(t, logged, "error=boom")
	assert.Contains(t, logged, "subscriber=stream")
	assert.Contains(t, logged, "topic=battle.state")
	assert.Contains(t, logged, "source=watermill")
}
