package game

import "errors"

var (
	ErrGameNotFound       = errors.New("game not found")
	ErrGameFull           = errors.New("game is full")
	ErrAlreadyJoined      = errors.New("player already joined this game")
	ErrCommanderNotInGame = errors.New("commander is not in this game")
)
