package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wego-server/internal/battle"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

type fixedBattles []battle.BattleID

func (b fixedBattles) Active() []battle.BattleID { return b }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name   string
		ping   error
		wantDB string
	}{
		{name: "connected", wantDB: "connected"},
		{name: "disconnected", ping: assert.AnError, wantDB: "disconnected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(pingFunc(func(context.Context) error { return tt.ping }), fixedBattles{"b1", "b2"})

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/server/health", nil))
			require.Equal(t, http.StatusOK, rec.Code)

			var resp HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "healthy", resp.Status)
			assert.Equal(t, tt.wantDB, resp.Database)
			assert.Equal(t, 2, resp.ActiveBattles)
		})
	}
}
