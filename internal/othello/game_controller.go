package othello

import (
	"errors"
	"fmt"
	"time"

	"github.com/rocketscienceinc/othello-backend/internal/apperror"
	"github.com/rocketscienceinc/othello-backend/internal/entity"
)

// TurnResult describes what a submitted move did to the game.
type TurnResult struct {
	Flipped  int  `json:"flipped"`
	Skipped  bool `json:"skipped"`
	Finished bool `json:"finished"`
}

// MakeTurn plays playerID's move at p.
//
// Timeouts and invalid moves are returned as errors but still change the game:
// the turn passes to the opponent, and a third invalid move ends the game.
func MakeTurn(game *entity.Game, playerID string, p entity.Position, now time.Time) (TurnResult, error) {
	var result TurnResult

	if err := validateTurn(game, playerID); err != nil {
		return result, err
	}

	if !p.Valid() {
		return result, fmt.Errorf("%w: %s", apperror.ErrInvalidCoordinateFormat, p)
	}

	color := game.ColorOf(playerID)

	expired := game.Clock.Expired(now, game.Timeouts)
	game.Clock.ClearPoll()
	if expired != nil {
		passTurn(game, color, now)
		return result, expired
	}

	flipped, err := Apply(&game.Board, color, p)
	if errors.Is(err, apperror.ErrInvalidMove) {
		game.HandTurnTo(color.Opponent(), now)

		if game.AddInvalidMove(color) >= entity.MaxInvalidMoves {
			game.Forfeit(color, now)
			result.Finished = true
		}

		return result, err
	}

	if err != nil {
		return result, fmt.Errorf("failed to apply move: %w", err)
	}

	result.Flipped = flipped
	result.Skipped = !passTurn(game, color, now)

	if game.ShouldEnd() || !HasAnyMove(&game.Board, game.ActiveColor()) {
		game.FinishByCount(now)
		result.Finished = true
	}

	return result, nil
}

// validateTurn - checks, in order, that the game runs and that it is playerID's move.
func validateTurn(game *entity.Game, playerID string) error {
	switch {
	case game.IsFinished():
		return apperror.ErrGameFinished
	case game.IsWaiting():
		return apperror.ErrGameIsNotStarted
	}

	if err := game.ConfirmOngoingState(); err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrInternal, err)
	}

	if game.Player1 == nil || game.Player2 == nil {
		return entity.ErrPlayersNotBound
	}

	color := game.ColorOf(playerID)
	if color == entity.Empty {
		return apperror.ErrUnknownPlayer
	}

	if color != game.ActiveColor() {
		return apperror.ErrNotYourTurn
	}

	return nil
}

// passTurn hands the turn to the opponent of color, unless the opponent cannot move,
// in which case color keeps it. Either way a new turn starts.
func passTurn(game *entity.Game, color entity.Cell, now time.Time) bool {
	next := color.Opponent()
	if !HasAnyMove(&game.Board, next) {
		game.HandTurnTo(color, now)
		return false
	}

	game.HandTurnTo(next, now)
	return true
}
