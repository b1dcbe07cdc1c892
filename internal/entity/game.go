package entity

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rocketscienceinc/othello-backend/internal/apperror"
)

const (
	StatusFinished = "finished"
	StatusOngoing  = "ongoing"
	StatusWaiting  = "waiting"
)

const (
	// MaxInvalidMoves - strikes after which a player loses the game outright.
	MaxInvalidMoves = 3

	forfeitLoserScore  = 1
	forfeitWinnerScore = 63
)

var (
	ErrUnknownGameStatus = errors.New("unknown game status")
	ErrPlayersNotBound   = fmt.Errorf("%w: game has no players bound", apperror.ErrInternal)
)

// GameRef addresses a game: the ordered pair of player names and the pair's game number.
type GameRef struct {
	Player1 string `json:"player1"`
	Player2 string `json:"player2"`
	Seq     int    `json:"seq"`
}

// Key - storage key of the referenced game. It is derived, never parsed back.
func (r GameRef) Key() string {
	return r.PairKey() + ":" + strconv.Itoa(r.Seq)
}

// PairKey - key shared by every game of the same ordered pair.
func (r GameRef) PairKey() string {
	return url.QueryEscape(r.Player1) + ":" + url.QueryEscape(r.Player2)
}

// String - human readable form, e.g. "john-peter-1".
func (r GameRef) String() string {
	return fmt.Sprintf("%s-%s-%d", r.Player1, r.Player2, r.Seq)
}

// Game - one Othello session. Player1 plays White, Player2 plays Black.
type Game struct {
	ID      string  `json:"id"`
	Ref     GameRef `json:"ref"`
	Player1 *Player `json:"player1,omitempty"`
	Player2 *Player `json:"player2,omitempty"`

	Board       Board     `json:"board"`
	Player1Turn bool      `json:"player1_turn"`
	Status      string    `json:"status"`
	Clock       TurnClock `json:"clock"`
	Timeouts    Timeouts  `json:"timeouts"`

	InvalidMovesWhite int `json:"invalid_moves_white"`
	InvalidMovesBlack int `json:"invalid_moves_black"`

	ScoreWhite int  `json:"score_white"`
	ScoreBlack int  `json:"score_black"`
	Winner     Cell `json:"winner"`

	CreatedAt  time.Time `json:"created_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func NewGame(ref GameRef, player1, player2 *Player, timeouts Timeouts, now time.Time) *Game {
	return &Game{
		ID:        ref.Key(),
		Ref:       ref,
		Player1:   player1,
		Player2:   player2,
		Board:     NewBoard(),
		Status:    StatusWaiting,
		Timeouts:  timeouts,
		CreatedAt: now,
	}
}

// Start opens play. Black moves first.
func (that *Game) Start(now time.Time) error {
	if that.Player1 == nil || that.Player2 == nil {
		return ErrPlayersNotBound
	}

	switch {
	case that.IsFinished():
		return apperror.ErrGameFinished
	case that.IsOngoing():
		return nil
	}

	that.Status = StatusOngoing
	that.Player1Turn = false
	that.Clock.Start(now)

	return nil
}

// PollTurn reports whether it is playerID's turn. The first positive answer of a turn
// starts the turn-check timeout.
func (that *Game) PollTurn(playerID string, now time.Time) (bool, error) {
	if that.IsWaiting() {
		return false, apperror.ErrGameIsNotStarted
	}

	color := that.ColorOf(playerID)
	if color == Empty {
		return false, apperror.ErrUnknownPlayer
	}

	if that.IsFinished() || color != that.ActiveColor() {
		return false, nil
	}

	that.Clock.MarkPolled(now)

	return true, nil
}

// ColorOf returns Empty for players outside the game.
func (that *Game) ColorOf(playerID string) Cell {
	switch {
	case that.Player1 != nil && that.Player1.ID == playerID:
		return White
	case that.Player2 != nil && that.Player2.ID == playerID:
		return Black
	default:
		return Empty
	}
}

func (that *Game) PlayerOf(color Cell) *Player {
	switch color {
	case White:
		return that.Player1
	case Black:
		return that.Player2
	default:
		return nil
	}
}

// ActiveColor is Empty unless the game is in progress.
func (that *Game) ActiveColor() Cell {
	if !that.IsOngoing() {
		return Empty
	}

	if that.Player1Turn {
		return White
	}

	return Black
}

// HandTurnTo gives the turn to color and starts a fresh turn clock.
func (that *Game) HandTurnTo(color Cell, now time.Time) {
	that.Player1Turn = color == White
	that.Clock.Reset(now)
}

func (that *Game) InvalidMoves(color Cell) int {
	if color == White {
		return that.InvalidMovesWhite
	}
	return that.InvalidMovesBlack
}

// AddInvalidMove records a strike against color and returns the new total.
func (that *Game) AddInvalidMove(color Cell) int {
	if color == White {
		that.InvalidMovesWhite++
		return that.InvalidMovesWhite
	}

	that.InvalidMovesBlack++
	return that.InvalidMovesBlack
}

// Forfeit ends the game against loser regardless of the discs on the board.
func (that *Game) Forfeit(loser Cell, now time.Time) {
	winner := loser.Opponent()
	if winner == White {
		that.finish(forfeitWinnerScore, forfeitLoserScore, winner, now)
		return
	}

	that.finish(forfeitLoserScore, forfeitWinnerScore, winner, now)
}

// ShouldEnd reports whether the board alone ends the game: a color wiped out or no empty cell left.
func (that *Game) ShouldEnd() bool {
	white, black := that.Board.Count(White), that.Board.Count(Black)
	return white == 0 || black == 0 || white+black == cellCount
}

// FinishByCount scores the board. Equal counts leave the game without a winner.
func (that *Game) FinishByCount(now time.Time) {
	white, black := that.Board.Count(White), that.Board.Count(Black)

	winner := Empty
	switch {
	case white > black:
		winner = White
	case black > white:
		winner = Black
	}

	that.finish(white, black, winner, now)
}

func (that *Game) finish(scoreWhite, scoreBlack int, winner Cell, now time.Time) {
	that.ScoreWhite = scoreWhite
	that.ScoreBlack = scoreBlack
	that.Winner = winner
	that.Status = StatusFinished
	that.FinishedAt = now
}

// WinnerPlayer is nil while the game runs and after a tie.
func (that *Game) WinnerPlayer() *Player {
	return that.PlayerOf(that.Winner)
}

func (that *Game) IsFinished() bool {
	return that.Status == StatusFinished
}

func (that *Game) IsOngoing() bool {
	return that.Status == StatusOngoing
}

func (that *Game) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Game) ConfirmOngoingState() error {
	switch {
	case that.IsWaiting():
		return apperror.ErrGameIsNotStarted
	case that.IsFinished():
		return apperror.ErrGameFinished
	case that.IsOngoing():
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownGameStatus, that.Status)
	}
}

// GameResult - final standing of a finished game, as archived.
type GameResult struct {
	GameID       string    `json:"game_id"`
	Player1      string    `json:"player1"`
	Player2      string    `json:"player2"`
	Seq          int       `json:"seq"`
	ScorePlayer1 int       `json:"score_player1"`
	ScorePlayer2 int       `json:"score_player2"`
	Winner       string    `json:"winner,omitempty"`
	FinishedAt   time.Time `json:"finished_at"`
}

func (that *Game) Result() GameResult {
	result := GameResult{
		GameID:       that.ID,
		Player1:      that.Ref.Player1,
		Player2:      that.Ref.Player2,
		Seq:          that.Ref.Seq,
		ScorePlayer1: that.ScoreWhite,
		ScorePlayer2: that.ScoreBlack,
		FinishedAt:   that.FinishedAt,
	}

	if winner := that.WinnerPlayer(); winner != nil {
		result.Winner = winner.Name
	}

	return result
}
