// Package dto holds the JSON shapes both façades send to clients.
package dto

import (
	"errors"
	"time"

	"github.com/rocketscienceinc/othello-backend/internal/apperror"
	"github.com/rocketscienceinc/othello-backend/internal/entity"
	"github.com/rocketscienceinc/othello-backend/internal/othello"
)

const internalErrorMessage = "internal server error"

// Game is the client view of a session. Player IDs and clock internals stay on the server.
type Game struct {
	ID           string         `json:"id"`
	Ref          entity.GameRef `json:"ref"`
	Board        string         `json:"board"`
	Status       string         `json:"status"`
	ActiveColor  string         `json:"active_color,omitempty"`
	ActivePlayer string         `json:"active_player,omitempty"`
	White        string         `json:"white"`
	Black        string         `json:"black"`
	ScoreWhite   int            `json:"score_white"`
	ScoreBlack   int            `json:"score_black"`
	InvalidWhite int            `json:"invalid_moves_white"`
	InvalidBlack int            `json:"invalid_moves_black"`
	Winner       string         `json:"winner,omitempty"`
	FinishedAt   *time.Time     `json:"finished_at,omitempty"`
}

func NewGame(game *entity.Game) *Game {
	if game == nil {
		return nil
	}

	view := &Game{
		ID:           game.Ref.String(),
		Ref:          game.Ref,
		Board:        game.Board.String(),
		Status:       game.Status,
		White:        game.Ref.Player1,
		Black:        game.Ref.Player2,
		ScoreWhite:   game.ScoreWhite,
		ScoreBlack:   game.ScoreBlack,
		InvalidWhite: game.InvalidMovesWhite,
		InvalidBlack: game.InvalidMovesBlack,
	}

	if active := game.ActiveColor(); active != entity.Empty {
		view.ActiveColor = active.String()
		if player := game.PlayerOf(active); player != nil {
			view.ActivePlayer = player.Name
		}
	}

	if game.IsFinished() {
		finishedAt := game.FinishedAt
		view.FinishedAt = &finishedAt

		if winner := game.WinnerPlayer(); winner != nil {
			view.Winner = winner.Name
		}
	}

	return view
}

// Move answers a submitted move. Game is set whenever the attempt changed the session,
// rejected moves included.
type Move struct {
	Game     *Game  `json:"game,omitempty"`
	Flipped  int    `json:"flipped"`
	Skipped  bool   `json:"skipped"`
	Finished bool   `json:"finished"`
	Error    string `json:"error,omitempty"`
	Elapsed  int    `json:"elapsed_seconds,omitempty"`
}

func NewMove(game *entity.Game, result othello.TurnResult, err error) *Move {
	move := &Move{
		Game:     NewGame(game),
		Flipped:  result.Flipped,
		Skipped:  result.Skipped,
		Finished: result.Finished,
	}

	if err != nil {
		move.Error = ErrorMessage(err)

		var timeoutErr *apperror.TimeoutError
		if errors.As(err, &timeoutErr) {
			move.Elapsed = timeoutErr.ElapsedSeconds()
		}
	}

	return move
}

// ErrorMessage hides server faults behind a generic text.
func ErrorMessage(err error) string {
	if !apperror.IsDomain(err) {
		return internalErrorMessage
	}

	return err.Error()
}
