package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/othello-backend/internal/apperror"
	"github.com/rocketscienceinc/othello-backend/internal/entity"
	"github.com/rocketscienceinc/othello-backend/internal/repository"
	"github.com/rocketscienceinc/othello-backend/testing/suite"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (that *fakeClock) Now() time.Time {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.now
}

func (that *fakeClock) Advance(d time.Duration) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.now = that.now.Add(d)
}

type mockResultRepo struct {
	mock.Mock
}

func (that *mockResultRepo) Save(ctx context.Context, result entity.GameResult) error {
	args := that.Called(ctx, result)
	return args.Error(0)
}

func newManager(t *testing.T, opts ...Option) (*GameManager, *fakeClock) {
	t.Helper()

	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.Now)}, opts...)

	manager := NewGameManager(suite.NewLogger(),
		repository.NewMemoryPlayerRepository(),
		repository.NewMemoryGameRepository(),
		opts...)

	return manager, clock
}

func TestGameManager_CreateAndPair(t *testing.T) {
	ctx := context.Background()

	t.Run("First game of a pair", func(t *testing.T) {
		manager, _ := newManager(t)

		// When: two players connect
		game, err := manager.CreateAndPair(ctx, "john", "peter")

		// Then: game number 1 is started with Black to move
		require.NoError(t, err)
		assert.Equal(t, entity.GameRef{Player1: "john", Player2: "peter", Seq: 1}, game.Ref)
		assert.Equal(t, "john-peter-1", game.Ref.String())
		assert.True(t, game.IsOngoing())
		assert.Equal(t, entity.Black, game.ActiveColor())
		assert.Equal(t, "peter", game.PlayerOf(entity.Black).Name)
	})

	t.Run("Running game is not reused", func(t *testing.T) {
		manager, _ := newManager(t)

		_, err := manager.CreateAndPair(ctx, "john", "peter")
		require.NoError(t, err)

		game, err := manager.CreateAndPair(ctx, "john", "peter")

		require.NoError(t, err)
		assert.Equal(t, 2, game.Ref.Seq)
	})

	t.Run("Order of names matters", func(t *testing.T) {
		manager, _ := newManager(t)

		_, err := manager.CreateAndPair(ctx, "john", "peter")
		require.NoError(t, err)

		game, err := manager.CreateAndPair(ctx, "peter", "john")

		require.NoError(t, err)
		assert.Equal(t, 1, game.Ref.Seq)
		assert.Equal(t, "peter", game.Player1.Name)
	})

	t.Run("Waiting game is started", func(t *testing.T) {
		manager, _ := newManager(t)

		// Given: an opened but unstarted game
		opened, err := manager.OpenGame(ctx, "john", "peter")
		require.NoError(t, err)
		require.True(t, opened.IsWaiting())

		// When: the pair connects
		game, err := manager.CreateAndPair(ctx, "john", "peter")

		// Then: that same game is started
		require.NoError(t, err)
		assert.Equal(t, opened.ID, game.ID)
		assert.True(t, game.IsOngoing())

		stored, err := manager.GetGame(ctx, game.Ref)
		require.NoError(t, err)
		assert.True(t, stored.IsOngoing())
	})

	t.Run("Players are reused by name", func(t *testing.T) {
		manager, _ := newManager(t)

		first, err := manager.CreateAndPair(ctx, "john", "peter")
		require.NoError(t, err)

		second, err := manager.CreateAndPair(ctx, "peter", "john")
		require.NoError(t, err)

		assert.Equal(t, first.Player1.ID, second.Player2.ID)
		assert.Equal(t, first.Player2.ID, second.Player1.ID)
	})

	t.Run("Invalid pairing", func(t *testing.T) {
		manager, _ := newManager(t)

		for _, names := range [][2]string{{"", "peter"}, {"john", " "}, {"john", "john"}} {
			_, err := manager.CreateAndPair(ctx, names[0], names[1])
			require.ErrorIs(t, err, apperror.ErrInvalidPairing)
		}
	})
}

func TestGameManager_GetBoard(t *testing.T) {
	ctx := context.Background()
	manager, _ := newManager(t)

	t.Run("Opening board", func(t *testing.T) {
		game, err := manager.CreateAndPair(ctx, "john", "peter")
		require.NoError(t, err)

		board, err := manager.GetBoard(ctx, game.Ref)

		require.NoError(t, err)
		assert.Equal(t, "0000000000000000000000000001200000021000000000000000000000000000", board)
	})

	t.Run("Unknown game", func(t *testing.T) {
		_, err := manager.GetBoard(ctx, entity.GameRef{Player1: "a", Player2: "b", Seq: 7})

		require.ErrorIs(t, err, apperror.ErrGameNotFound)
	})
}

func TestGameManager_PollTurn(t *testing.T) {
	ctx := context.Background()
	manager, clock := newManager(t)

	game, err := manager.CreateAndPair(ctx, "john", "peter")
	require.NoError(t, err)

	t.Run("Active player", func(t *testing.T) {
		clock.Advance(time.Second)

		ok, err := manager.PollTurn(ctx, game.Ref, "peter")

		require.NoError(t, err)
		assert.True(t, ok)

		stored, err := manager.GetGame(ctx, game.Ref)
		require.NoError(t, err)
		assert.True(t, stored.Clock.Polled)
		assert.Equal(t, clock.Now(), stored.Clock.TurnCheckAt)
	})

	t.Run("Waiting player", func(t *testing.T) {
		ok, err := manager.PollTurn(ctx, game.Ref, "john")

		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Unknown player", func(t *testing.T) {
		_, err := manager.PollTurn(ctx, game.Ref, "stranger")

		require.ErrorIs(t, err, apperror.ErrUnknownPlayer)
	})

	t.Run("Player of another game", func(t *testing.T) {
		_, err := manager.CreateAndPair(ctx, "anna", "maria")
		require.NoError(t, err)

		_, err = manager.PollTurn(ctx, game.Ref, "anna")

		require.ErrorIs(t, err, apperror.ErrUnknownPlayer)
	})

	t.Run("Unknown game", func(t *testing.T) {
		_, err := manager.PollTurn(ctx, entity.GameRef{Player1: "john", Player2: "peter", Seq: 9}, "peter")

		require.ErrorIs(t, err, apperror.ErrGameNotFound)
	})
}

func TestGameManager_SubmitMove(t *testing.T) {
	ctx := context.Background()

	t.Run("Legal move", func(t *testing.T) {
		manager, _ := newManager(t)

		game, err := manager.CreateAndPair(ctx, "john", "peter")
		require.NoError(t, err)

		// When: Black plays (3,2)
		updated, result, err := manager.SubmitMove(ctx, game.Ref, "peter", entity.Position{Row: 3, Col: 2})

		// Then: the flip is stored and White is to move
		require.NoError(t, err)
		assert.Equal(t, 1, result.Flipped)
		assert.Equal(t, entity.White, updated.ActiveColor())

		board, err := manager.GetBoard(ctx, game.Ref)
		require.NoError(t, err)
		assert.Equal(t, updated.Board.String(), board)
		assert.Equal(t, 4, updated.Board.Count(entity.Black))
	})

	t.Run("Rejected move still changes the game", func(t *testing.T) {
		manager, _ := newManager(t)

		game, err := manager.CreateAndPair(ctx, "john", "peter")
		require.NoError(t, err)

		updated, _, err := manager.SubmitMove(ctx, game.Ref, "peter", entity.Position{Row: 0, Col: 0})

		require.ErrorIs(t, err, apperror.ErrInvalidMove)
		require.NotNil(t, updated)
		assert.Equal(t, entity.White, updated.ActiveColor())

		stored, err := manager.GetGame(ctx, game.Ref)
		require.NoError(t, err)
		assert.Equal(t, 1, stored.InvalidMovesBlack)
	})

	t.Run("Timeout passes the turn", func(t *testing.T) {
		manager, clock := newManager(t)

		game, err := manager.CreateAndPair(ctx, "john", "peter")
		require.NoError(t, err)

		// Given: Black polled, then waited too long
		_, err = manager.PollTurn(ctx, game.Ref, "peter")
		require.NoError(t, err)
		clock.Advance(20 * time.Second)

		// When: Black finally moves
		updated, _, err := manager.SubmitMove(ctx, game.Ref, "peter", entity.Position{Row: 3, Col: 2})

		// Then: the move is refused and the turn belongs to White
		require.ErrorIs(t, err, apperror.ErrTurnCheckTimeout)
		assert.Equal(t, entity.White, updated.ActiveColor())
		assert.Equal(t, entity.NewBoard(), updated.Board)
	})

	t.Run("Unknown player", func(t *testing.T) {
		manager, _ := newManager(t)

		game, err := manager.CreateAndPair(ctx, "john", "peter")
		require.NoError(t, err)

		updated, _, err := manager.SubmitMove(ctx, game.Ref, "stranger", entity.Position{Row: 3, Col: 2})

		require.ErrorIs(t, err, apperror.ErrUnknownPlayer)
		assert.Nil(t, updated)
	})

	t.Run("Unknown game", func(t *testing.T) {
		manager, _ := newManager(t)

		_, err := manager.CreateAndPair(ctx, "john", "peter")
		require.NoError(t, err)

		_, _, err = manager.SubmitMove(ctx, entity.GameRef{Player1: "john", Player2: "peter", Seq: 3},
			"peter", entity.Position{Row: 3, Col: 2})

		require.ErrorIs(t, err, apperror.ErrGameNotFound)
	})

	t.Run("Forfeit is archived once", func(t *testing.T) {
		results := &mockResultRepo{}
		manager, clock := newManager(t, WithResults(results))

		game, err := manager.CreateAndPair(ctx, "john", "peter")
		require.NoError(t, err)

		results.On("Save", mock.Anything, mock.MatchedBy(func(result entity.GameResult) bool {
			return result.GameID == game.ID && result.Winner == "john" &&
				result.ScorePlayer1 == 63 && result.ScorePlayer2 == 1
		})).Return(nil).Once()

		// When: both players keep sending an illegal move until Black has three strikes
		var updated *entity.Game
		for _, name := range []string{"peter", "john", "peter", "john", "peter"} {
			clock.Advance(time.Second)
			updated, _, err = manager.SubmitMove(ctx, game.Ref, name, entity.Position{Row: 0, Col: 0})
			require.ErrorIs(t, err, apperror.ErrInvalidMove)
		}

		// Then: the game is over and archived
		assert.True(t, updated.IsFinished())

		_, _, err = manager.SubmitMove(ctx, game.Ref, "john", entity.Position{Row: 2, Col: 4})
		require.ErrorIs(t, err, apperror.ErrGameFinished)

		results.AssertExpectations(t)
	})

	t.Run("Archive failure is not returned", func(t *testing.T) {
		results := &mockResultRepo{}
		manager, _ := newManager(t, WithResults(results))

		game, err := manager.CreateAndPair(ctx, "john", "peter")
		require.NoError(t, err)

		results.On("Save", mock.Anything, mock.Anything).Return(assert.AnError).Once()

		for _, name := range []string{"peter", "john", "peter", "john"} {
			_, _, err = manager.SubmitMove(ctx, game.Ref, name, entity.Position{Row: 0, Col: 0})
			require.ErrorIs(t, err, apperror.ErrInvalidMove)
		}

		updated, _, err := manager.SubmitMove(ctx, game.Ref, "peter", entity.Position{Row: 0, Col: 0})

		require.ErrorIs(t, err, apperror.ErrInvalidMove)
		assert.True(t, updated.IsFinished())
		results.AssertExpectations(t)
	})

	t.Run("Concurrent moves are serialized", func(t *testing.T) {
		manager, _ := newManager(t)

		game, err := manager.CreateAndPair(ctx, "john", "peter")
		require.NoError(t, err)

		// When: the same legal move arrives twice at once
		const attempts = 2

		errs := make([]error, attempts)

		var wg sync.WaitGroup
		for i := range attempts {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, errs[i] = manager.SubmitMove(ctx, game.Ref, "peter", entity.Position{Row: 3, Col: 2})
			}()
		}
		wg.Wait()

		// Then: exactly one is applied, the other finds White to move
		applied := 0
		for _, err := range errs {
			if err == nil {
				applied++
				continue
			}
			assert.ErrorIs(t, err, apperror.ErrNotYourTurn)
		}
		assert.Equal(t, 1, applied)

		stored, err := manager.GetGame(ctx, game.Ref)
		require.NoError(t, err)
		assert.Equal(t, 4, stored.Board.Count(entity.Black))
		assert.Zero(t, manager.locks.size())
	})
}
