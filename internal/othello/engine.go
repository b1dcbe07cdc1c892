// Package othello holds the rules: move legality, disc flipping and the turn protocol.
package othello

import (
	"fmt"
	"slices"

	"github.com/rocketscienceinc/othello-backend/internal/apperror"
	"github.com/rocketscienceinc/othello-backend/internal/entity"
)

// IsLegal - p is empty and placing color there outflanks at least one run.
func IsLegal(board *entity.Board, color entity.Cell, p entity.Position) bool {
	if !p.Valid() || board.CellAt(p) != entity.Empty {
		return false
	}

	for range board.FlipRuns(color, p) {
		return true
	}

	return false
}

// Apply plays color at p and returns how many discs flipped.
// The board is left untouched when the move is illegal.
func Apply(board *entity.Board, color entity.Cell, p entity.Position) (int, error) {
	if !p.Valid() {
		return 0, fmt.Errorf("%w: %s is off the board", apperror.ErrInvalidMove, p)
	}

	if board.CellAt(p) != entity.Empty {
		return 0, fmt.Errorf("%w: %s is occupied", apperror.ErrInvalidMove, p)
	}

	dirs := slices.Collect(board.FlipRuns(color, p))
	if len(dirs) == 0 {
		return 0, fmt.Errorf("%w: %s flips nothing", apperror.ErrInvalidMove, p)
	}

	return board.ApplyMove(color, p, dirs), nil
}

func HasAnyMove(board *entity.Board, color entity.Cell) bool {
	for range board.LegalMoves(color) {
		return true
	}

	return false
}
