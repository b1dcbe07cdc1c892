package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/othello-backend/internal/entity"
	"github.com/rocketscienceinc/othello-backend/transport/dto"
)

const (
	actionConnect    = "connect"
	actionGameNew    = "game:new"
	actionGameJoin   = "game:join"
	actionGameTurn   = "game:turn"
	actionGameMove   = "game:move"
	actionGameBoard  = "game:board"
	actionGameUpdate = "game:update"
	actionError      = "error"
)

// Message - envelope of every frame in both directions.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Request struct {
	Player1 string          `json:"player1,omitempty"`
	Player2 string          `json:"player2,omitempty"`
	Game    *entity.GameRef `json:"game,omitempty"`
	Player  string          `json:"player,omitempty"`
	Move    string          `json:"move,omitempty"`
}

type Response struct {
	Game     *dto.Game `json:"game,omitempty"`
	Board    string    `json:"board,omitempty"`
	YourTurn *bool     `json:"your_turn,omitempty"`
	Move     *dto.Move `json:"move,omitempty"`
	Error    string    `json:"error,omitempty"`
}
