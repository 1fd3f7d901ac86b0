package game

import (
	"time"
)

type GameStatus string

const (
	GameStatusLobby     GameStatus = "lobby"
	GameStatusActive    GameStatus = "active"
	GameStatusCompleted GameStatus = "completed"
)

type Game struct {
	ID            int         `json:"id"`
	Name          string      `json:"name"`
	MaxCommanders int         `json:"max_commanders"`
	MaxPawns      int         `json:"max_pawns"`
	MapType       string      `json:"map_type"`
	Status        GameStatus  `json:"status"`
	Commanders    []Commander `json:"commanders"`
	Pawns         []Pawn      `json:"pawns"`
	CreatedAt     time.Time   `json:"created_at"`
}

// Commander is a player leading a side in a game.
type Commander struct {
	PlayerID string    `json:"player_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// Pawn is a player serving under a commander.
type Pawn struct {
	PlayerID    string    `json:"player_id"`
	CommanderID string    `json:"commander_id"`
	JoinedAt    time.Time `json:"joined_at"`
}

type GameConfig struct {
	Name          string `json:"name" validate:"required,max=100"`
	MaxCommanders int    `json:"max_commanders" validate:"min=2,max=4"`
	MaxPawns      int    `json:"max_pawns" validate:"min=4,max=1000"`
	MapType       string `json:"map_type" validate:"required,max=50"`
}

type JoinAsPawnRequest struct {
	CommanderID string `json:"commander_id" validate:"required"`
}

// IsCommander reports whether playerID commands in the game.
func (g *Game) IsCommander(playerID string) bool {
	for _, c := range g.Commanders {
		if c.PlayerID == playerID {
			return true
		}
	}
	return false
}
