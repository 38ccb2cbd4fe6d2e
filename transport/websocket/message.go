package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/tictactoe-arbiter/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arbiter/internal/entity"
)

const (
	ActionSubscribe = "game:subscribe"
	ActionTurn      = "game:turn"
	ActionUpdate    = "game:update"
	ActionError     = "error"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type SubscribePayload struct {
	GameID string `json:"game_id"`
}

type TurnPayload struct {
	GameID    string  `json:"game_id"`
	Position  *int    `json:"position"`
	Player    *string `json:"player,omitempty"`
	RequestID string  `json:"request_id,omitempty"`
}

type ResponsePayload struct {
	Game   *entity.Game            `json:"game,omitempty"`
	Update *entity.GameMessage     `json:"update,omitempty"`
	Error  *apperror.ErrorResponse `json:"error,omitempty"`
}
