package apperror

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrGameFinished            = errors.New("game is already finished")
	ErrGameIsNotStarted        = errors.New("game is not started")
	ErrNotYourTurn             = errors.New("it's not your turn")
	ErrUnknownPlayer           = errors.New("player is not part of this game")
	ErrInvalidMove             = errors.New("invalid move")
	ErrInvalidCoordinateFormat = errors.New("invalid coordinate format")
	ErrGameNotFound            = errors.New("game not found")
	ErrGameAlreadyExists       = errors.New("game already exists")
	ErrInvalidPairing          = errors.New("a game needs two different players")
	ErrNotFound                = errors.New("not found")

	ErrTurnCheckTimeout  = errors.New("turn check timeout")
	ErrTurnChangeTimeout = errors.New("turn change timeout")

	// ErrInternal marks a broken caller contract. Requests failing with it are aborted
	// and nothing they touched is saved.
	ErrInternal = errors.New("internal error")
)

// TimeoutError is returned when a move arrives after one of the turn deadlines passed.
// The turn has already been handed over when the caller sees it.
type TimeoutError struct {
	Kind    error
	Elapsed time.Duration
}

func (that *TimeoutError) Error() string {
	return fmt.Sprintf("%v: %d seconds elapsed", that.Kind, int(that.Elapsed/time.Second))
}

func (that *TimeoutError) Is(target error) bool {
	return target == that.Kind
}

// ElapsedSeconds - whole seconds since the expired deadline was stamped.
func (that *TimeoutError) ElapsedSeconds() int {
	return int(that.Elapsed / time.Second)
}

// domainErrors are the outcomes a player can cause. Anything else is a server fault.
var domainErrors = []error{
	ErrGameFinished,
	ErrGameIsNotStarted,
	ErrNotYourTurn,
	ErrUnknownPlayer,
	ErrInvalidMove,
	ErrInvalidCoordinateFormat,
	ErrGameNotFound,
	ErrGameAlreadyExists,
	ErrInvalidPairing,
	ErrNotFound,
	ErrTurnCheckTimeout,
	ErrTurnChangeTimeout,
}

func IsDomain(err error) bool {
	if errors.Is(err, ErrInternal) {
		return false
	}

	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}
