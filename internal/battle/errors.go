package battle

import "errors"

var (
	ErrInvalidPhase         = errors.New("invalid phase")
	ErrUnknownUnit          = errors.New("unknown unit")
	ErrBattleEnded          = errors.New("battle has ended")
	ErrInvalidConfiguration = errors.New("invalid battle configuration")
	ErrBattleNotFound       = errors.New("battle not found")
)
