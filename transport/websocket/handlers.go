package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/othello-backend/internal/apperror"
	"github.com/rocketscienceinc/othello-backend/internal/entity"
	"github.com/rocketscienceinc/othello-backend/transport/dto"
)

var (
	errMalformedPayload = errors.New("malformed payload")
	errMissingGame      = errors.New("game reference is required")
)

func decodeRequest(msg *Message) (Request, error) {
	var request Request
	if len(msg.Payload) == 0 {
		return request, nil
	}

	if err := json.Unmarshal(msg.Payload, &request); err != nil {
		return request, fmt.Errorf("%w: %w", errMalformedPayload, err)
	}

	return request, nil
}

func (that *Server) reply(c *client, action string, response Response) error {
	if err := c.send(action, response); err != nil {
		return fmt.Errorf("failed to send %s response: %w", action, err)
	}
	return nil
}

// replyError sends the client-facing text of err. Server faults are also returned for logging.
func (that *Server) replyError(c *client, action string, err error) error {
	badRequest := errors.Is(err, errMalformedPayload) || errors.Is(err, errMissingGame)

	message := dto.ErrorMessage(err)
	if badRequest {
		message = err.Error()
	}

	if sendErr := that.reply(c, action, Response{Error: message}); sendErr != nil {
		return sendErr
	}

	if !badRequest && !apperror.IsDomain(err) {
		return err
	}

	return nil
}

func (that *Server) handleConnect(ctx context.Context, msg *Message, c *client) error {
	return that.startGame(ctx, msg, c, that.games.CreateAndPair)
}

func (that *Server) handleNewGame(ctx context.Context, msg *Message, c *client) error {
	return that.startGame(ctx, msg, c, that.games.OpenGame)
}

func (that *Server) startGame(
	ctx context.Context,
	msg *Message,
	c *client,
	open func(ctx context.Context, player1Name, player2Name string) (*entity.Game, error),
) error {
	request, err := decodeRequest(msg)
	if err != nil {
		return that.replyError(c, msg.Action, err)
	}

	game, err := open(ctx, request.Player1, request.Player2)
	if err != nil {
		return that.replyError(c, msg.Action, err)
	}

	that.subscribe(game.ID, c)

	return that.reply(c, msg.Action, Response{Game: dto.NewGame(game)})
}

func (that *Server) handleJoinGame(ctx context.Context, msg *Message, c *client) error {
	request, err := decodeGameRequest(msg)
	if err != nil {
		return that.replyError(c, msg.Action, err)
	}

	game, err := that.games.GetGame(ctx, *request.Game)
	if err != nil {
		return that.replyError(c, msg.Action, err)
	}

	that.subscribe(game.ID, c)

	return that.reply(c, msg.Action, Response{Game: dto.NewGame(game)})
}

func (that *Server) handleGameTurn(ctx context.Context, msg *Message, c *client) error {
	request, err := decodeGameRequest(msg)
	if err != nil {
		return that.replyError(c, msg.Action, err)
	}

	yourTurn, err := that.games.PollTurn(ctx, *request.Game, request.Player)
	if err != nil {
		return that.replyError(c, msg.Action, err)
	}

	return that.reply(c, msg.Action, Response{YourTurn: &yourTurn})
}

func (that *Server) handleGameMove(ctx context.Context, msg *Message, c *client) error {
	request, err := decodeGameRequest(msg)
	if err != nil {
		return that.replyError(c, msg.Action, err)
	}

	p, err := entity.ParsePosition(request.Move)
	if err != nil {
		return that.replyError(c, msg.Action, err)
	}

	game, result, err := that.games.SubmitMove(ctx, *request.Game, request.Player, p)
	if game != nil {
		that.NotifyGame(game)
	}

	if sendErr := that.reply(c, msg.Action, Response{Move: dto.NewMove(game, result, err)}); sendErr != nil {
		return sendErr
	}

	if err != nil && !apperror.IsDomain(err) {
		return err
	}

	return nil
}

func (that *Server) handleGameBoard(ctx context.Context, msg *Message, c *client) error {
	request, err := decodeGameRequest(msg)
	if err != nil {
		return that.replyError(c, msg.Action, err)
	}

	board, err := that.games.GetBoard(ctx, *request.Game)
	if err != nil {
		return that.replyError(c, msg.Action, err)
	}

	return that.reply(c, msg.Action, Response{Board: board})
}

func decodeGameRequest(msg *Message) (Request, error) {
	request, err := decodeRequest(msg)
	if err != nil {
		return request, err
	}

	if request.Game == nil {
		return request, errMissingGame
	}

	return request, nil
}
