package entity

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/rocketscienceinc/othello-backend/internal/apperror"
)

// BoardSize - number of rows and columns. Only the classic 8x8 board is played.
const BoardSize = 8

const cellCount = BoardSize * BoardSize

var ErrInvalidBoard = errors.New("invalid board")

// Cell - content of one square. The numeric values are the board serialization alphabet.
type Cell uint8

const (
	Empty Cell = iota
	White
	Black
)

// Opponent returns the other disc color. Empty has no opponent.
func (c Cell) Opponent() Cell {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		return Empty
	}
}

func (c Cell) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	default:
		return "empty"
	}
}

// Position - zero-indexed row and column.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (p Position) Valid() bool {
	return p.Row >= 0 && p.Row < BoardSize && p.Col >= 0 && p.Col < BoardSize
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

func (p Position) step(d Direction) Position {
	return Position{Row: p.Row + d.Row, Col: p.Col + d.Col}
}

func (p Position) index() int {
	return p.Row*BoardSize + p.Col
}

// ParsePosition reads a coordinate such as "3,2", "(3,2)" or "[3, 2]".
// Both numbers must be single digits in [0,7].
func ParsePosition(raw string) (Position, error) {
	s := strings.TrimSpace(raw)
	if len(s) >= 2 && (s[0] == '(' && s[len(s)-1] == ')' || s[0] == '[' && s[len(s)-1] == ']') {
		s = s[1 : len(s)-1]
	}

	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Position{}, fmt.Errorf("%w: %q", apperror.ErrInvalidCoordinateFormat, raw)
	}

	var coords [2]int
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if len(part) != 1 || part[0] < '0' || part[0] >= '0'+BoardSize {
			return Position{}, fmt.Errorf("%w: %q", apperror.ErrInvalidCoordinateFormat, raw)
		}
		coords[i] = int(part[0] - '0')
	}

	return Position{Row: coords[0], Col: coords[1]}, nil
}

// Direction - unit step towards one of the eight compass points.
type Direction struct {
	Row int
	Col int
}

// Directions in scan order: N, NE, E, SE, S, SW, W, NW.
var Directions = [8]Direction{
	{Row: -1, Col: 0},
	{Row: -1, Col: 1},
	{Row: 0, Col: 1},
	{Row: 1, Col: 1},
	{Row: 1, Col: 0},
	{Row: 1, Col: -1},
	{Row: 0, Col: -1},
	{Row: -1, Col: -1},
}

// Board - 64 cells in row-major order.
type Board [cellCount]Cell

// initialBoard is never handed out by reference; NewBoard returns a copy.
var initialBoard = Board{
	27: White, 28: Black,
	35: Black, 36: White,
}

// NewBoard returns the standard opening layout.
func NewBoard() Board {
	return initialBoard
}

// ParseBoard reads the 64-symbol serialization produced by Board.String.
func ParseBoard(s string) (Board, error) {
	var b Board
	if len(s) != cellCount {
		return b, fmt.Errorf("%w: expected %d cells, got %d", ErrInvalidBoard, cellCount, len(s))
	}

	for i := range len(s) {
		switch s[i] {
		case '0':
			b[i] = Empty
		case '1':
			b[i] = White
		case '2':
			b[i] = Black
		default:
			return b, fmt.Errorf("%w: unexpected symbol %q at %d", ErrInvalidBoard, s[i], i)
		}
	}

	return b, nil
}

func (b Board) String() string {
	out := make([]byte, cellCount)
	for i, c := range b {
		out[i] = '0' + byte(c)
	}
	return string(out)
}

func (b Board) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *Board) UnmarshalText(text []byte) error {
	parsed, err := ParseBoard(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// CellAt panics on positions outside the board; callers validate first.
func (b *Board) CellAt(p Position) Cell {
	if !p.Valid() {
		panic(fmt.Sprintf("board: position %s out of range", p))
	}
	return b[p.index()]
}

func (b *Board) Count(c Cell) int {
	n := 0
	for _, cell := range b {
		if cell == c {
			n++
		}
	}
	return n
}

// LegalMoves yields every empty cell where c would flip at least one disc.
// The scan is redone on every iteration.
func (b *Board) LegalMoves(c Cell) iter.Seq[Position] {
	return func(yield func(Position) bool) {
		for row := range BoardSize {
			for col := range BoardSize {
				p := Position{Row: row, Col: col}
				if b.CellAt(p) != Empty || !b.hasFlipRun(c, p) {
					continue
				}
				if !yield(p) {
					return
				}
			}
		}
	}
}

// FlipRuns yields the directions in which placing c at p would outflank opponent discs.
func (b *Board) FlipRuns(c Cell, p Position) iter.Seq[Direction] {
	return func(yield func(Direction) bool) {
		for _, d := range Directions {
			if b.runLength(c, p, d) == 0 {
				continue
			}
			if !yield(d) {
				return
			}
		}
	}
}

// ApplyMove places c at p and flips every run in dirs. Returns the number of flipped discs.
func (b *Board) ApplyMove(c Cell, p Position, dirs []Direction) int {
	b[p.index()] = c

	flipped := 0
	for _, d := range dirs {
		for q := p.step(d); q.Valid() && b.CellAt(q) == c.Opponent(); q = q.step(d) {
			b[q.index()] = c
			flipped++
		}
	}

	return flipped
}

func (b *Board) hasFlipRun(c Cell, p Position) bool {
	for range b.FlipRuns(c, p) {
		return true
	}
	return false
}

// runLength counts opponent discs between p and the first disc of color c along d.
// Zero means there is no closing disc.
func (b *Board) runLength(c Cell, p Position, d Direction) int {
	opponent := c.Opponent()
	if opponent == Empty {
		return 0
	}

	n := 0
	for q := p.step(d); q.Valid(); q = q.step(d) {
		switch b.CellAt(q) {
		case opponent:
			n++
		case c:
			return n
		default:
			return 0
		}
	}

	return 0
}
