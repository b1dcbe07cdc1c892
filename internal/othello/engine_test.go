package othello

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/othello-backend/internal/apperror"
	"github.com/rocketscienceinc/othello-backend/internal/entity"
)

func mustBoard(t *testing.T, rows ...string) entity.Board {
	t.Helper()

	s := strings.Join(rows, "")
	s += strings.Repeat("0", 64-len(s))

	board, err := entity.ParseBoard(s)
	require.NoError(t, err)

	return board
}

func TestIsLegal(t *testing.T) {
	board := entity.NewBoard()

	assert.True(t, IsLegal(&board, entity.Black, entity.Position{Row: 3, Col: 2}))
	assert.False(t, IsLegal(&board, entity.White, entity.Position{Row: 3, Col: 2}), "flips nothing for White")
	assert.False(t, IsLegal(&board, entity.Black, entity.Position{Row: 3, Col: 3}), "occupied")
	assert.False(t, IsLegal(&board, entity.Black, entity.Position{Row: 0, Col: 0}), "no neighbour")
	assert.False(t, IsLegal(&board, entity.Black, entity.Position{Row: -1, Col: 0}), "off the board")
}

func TestApply(t *testing.T) {
	t.Run("Opening move", func(t *testing.T) {
		// Given: the opening board
		board := entity.NewBoard()

		// When: Black plays (3,2)
		flipped, err := Apply(&board, entity.Black, entity.Position{Row: 3, Col: 2})

		// Then: exactly the White disc at (3,3) turns Black
		require.NoError(t, err)
		assert.Equal(t, 1, flipped)
		assert.Equal(t, entity.Black, board.CellAt(entity.Position{Row: 3, Col: 3}))
		assert.Equal(t, 4, board.Count(entity.Black))
		assert.Equal(t, 1, board.Count(entity.White))
	})

	t.Run("Whole row", func(t *testing.T) {
		board := mustBoard(t, "02222221")

		flipped, err := Apply(&board, entity.White, entity.Position{Row: 0, Col: 0})

		require.NoError(t, err)
		assert.Equal(t, 6, flipped)
		assert.Equal(t, "11111111"+strings.Repeat("0", 56), board.String())
	})

	invalid := map[string]entity.Position{
		"occupied":       {Row: 3, Col: 3},
		"flips nothing":  {Row: 0, Col: 0},
		"off the board":  {Row: 8, Col: 8},
		"negative index": {Row: 0, Col: -1},
	}

	for name, p := range invalid {
		t.Run("Invalid "+name, func(t *testing.T) {
			board := entity.NewBoard()

			flipped, err := Apply(&board, entity.Black, p)

			require.ErrorIs(t, err, apperror.ErrInvalidMove)
			assert.Zero(t, flipped)
			assert.Equal(t, entity.NewBoard(), board, "board must be untouched")
		})
	}
}

func TestHasAnyMove(t *testing.T) {
	board := entity.NewBoard()
	assert.True(t, HasAnyMove(&board, entity.Black))
	assert.True(t, HasAnyMove(&board, entity.White))

	// discs in opposite corners leave nothing to outflank
	board = mustBoard(t, "20000000", "00000000", "00000000", "00000000",
		"00000000", "00000000", "00000000", "00000001")
	assert.False(t, HasAnyMove(&board, entity.Black))
	assert.False(t, HasAnyMove(&board, entity.White))
}
