package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/othello-backend/internal/apperror"
)

var clockEpoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestTurnClock_Expired(t *testing.T) {
	timeouts := DefaultTimeouts()

	t.Run("Within the turn change window", func(t *testing.T) {
		var clock TurnClock
		clock.Reset(clockEpoch)

		require.NoError(t, clock.Expired(clockEpoch.Add(timeouts.TurnChange), timeouts))
	})

	t.Run("Turn change window passed without a poll", func(t *testing.T) {
		var clock TurnClock
		clock.Reset(clockEpoch)

		err := clock.Expired(clockEpoch.Add(timeouts.TurnChange+5*time.Second), timeouts)

		require.ErrorIs(t, err, apperror.ErrTurnChangeTimeout)

		var timeoutErr *apperror.TimeoutError
		require.ErrorAs(t, err, &timeoutErr)
		assert.Equal(t, 65, timeoutErr.ElapsedSeconds())
		assert.Equal(t, "turn change timeout: 65 seconds elapsed", err.Error())
	})

	t.Run("Poll switches to the turn check timeout", func(t *testing.T) {
		// Given: the player polled 10s into the turn
		var clock TurnClock
		clock.Reset(clockEpoch)
		clock.MarkPolled(clockEpoch.Add(10 * time.Second))

		// Then: 15s after the poll is still fine, 16s is not
		require.NoError(t, clock.Expired(clockEpoch.Add(25*time.Second), timeouts))

		err := clock.Expired(clockEpoch.Add(26*time.Second), timeouts)
		require.ErrorIs(t, err, apperror.ErrTurnCheckTimeout)
		assert.NotErrorIs(t, err, apperror.ErrTurnChangeTimeout)
	})

	t.Run("Late poll falls back to the turn change timeout", func(t *testing.T) {
		// Given: the first poll came after the turn change window closed
		var clock TurnClock
		clock.Reset(clockEpoch)
		clock.MarkPolled(clockEpoch.Add(timeouts.TurnChange + time.Second))

		err := clock.Expired(clockEpoch.Add(timeouts.TurnChange+2*time.Second), timeouts)

		require.ErrorIs(t, err, apperror.ErrTurnChangeTimeout)
	})

	t.Run("Only the first poll counts", func(t *testing.T) {
		var clock TurnClock
		clock.Reset(clockEpoch)
		clock.MarkPolled(clockEpoch.Add(time.Second))
		clock.MarkPolled(clockEpoch.Add(10 * time.Second))

		assert.Equal(t, clockEpoch.Add(time.Second), clock.TurnCheckAt)

		err := clock.Expired(clockEpoch.Add(17*time.Second), timeouts)
		require.ErrorIs(t, err, apperror.ErrTurnCheckTimeout)
	})

	t.Run("Reset forgets the poll", func(t *testing.T) {
		var clock TurnClock
		clock.Start(clockEpoch)
		clock.MarkPolled(clockEpoch)

		clock.Reset(clockEpoch.Add(30 * time.Second))

		assert.False(t, clock.Polled)
		assert.True(t, clock.TurnCheckAt.IsZero())
		require.NoError(t, clock.Expired(clockEpoch.Add(80*time.Second), timeouts))
	})
}
