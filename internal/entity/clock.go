package entity

import (
	"time"

	"github.com/rocketscienceinc/othello-backend/internal/apperror"
)

const (
	DefaultTurnCheckTimeout  = 15 * time.Second
	DefaultTurnChangeTimeout = 60 * time.Second
)

// Timeouts - how long the active player may stay idle.
// TurnCheck runs from the first "is it my turn" poll, TurnChange from the moment the turn changed.
type Timeouts struct {
	TurnCheck  time.Duration `json:"turn_check"`
	TurnChange time.Duration `json:"turn_change"`
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		TurnCheck:  DefaultTurnCheckTimeout,
		TurnChange: DefaultTurnChangeTimeout,
	}
}

// TurnClock stores when the current turn started and when its owner first polled it.
// Nothing fires on its own: expiry is only evaluated when a move arrives.
type TurnClock struct {
	TurnCheckAt  time.Time `json:"turn_check_at"`
	TurnChangeAt time.Time `json:"turn_change_at"`
	Polled       bool      `json:"polled"`
}

// Reset starts a new turn.
func (that *TurnClock) Reset(now time.Time) {
	that.TurnChangeAt = now
	that.TurnCheckAt = time.Time{}
	that.Polled = false
}

// Start stamps both deadlines at the beginning of a game.
func (that *TurnClock) Start(now time.Time) {
	that.TurnChangeAt = now
	that.TurnCheckAt = now
	that.Polled = false
}

// MarkPolled stamps the turn-check deadline. Only the first poll of a turn counts.
func (that *TurnClock) MarkPolled(now time.Time) {
	if that.Polled {
		return
	}

	that.TurnCheckAt = now
	that.Polled = true
}

// ClearPoll forgets the poll flag but keeps the stamped deadline.
func (that *TurnClock) ClearPoll() {
	that.Polled = false
}

// Expired reports the first deadline that has passed at now, as an *apperror.TimeoutError.
// A player who polled within the turn-change window is only bound by the turn-check timeout.
func (that *TurnClock) Expired(now time.Time, timeouts Timeouts) error {
	polledInTime := that.Polled &&
		!that.TurnCheckAt.After(that.TurnChangeAt.Add(timeouts.TurnChange))

	if polledInTime {
		if elapsed := now.Sub(that.TurnCheckAt); elapsed > timeouts.TurnCheck {
			return &apperror.TimeoutError{Kind: apperror.ErrTurnCheckTimeout, Elapsed: elapsed}
		}
		return nil
	}

	if elapsed := now.Sub(that.TurnChangeAt); elapsed > timeouts.TurnChange {
		return &apperror.TimeoutError{Kind: apperror.ErrTurnChangeTimeout, Elapsed: elapsed}
	}

	return nil
}
