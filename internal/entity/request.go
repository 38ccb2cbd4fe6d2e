package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

// ProcessedRequest is a ledger entry: the frozen response of the move a client request triggered.
type ProcessedRequest struct {
	RequestID string    `json:"request_id"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

func NewProcessedRequest(requestID string, game *Game) (*ProcessedRequest, error) {
	response, err := json.Marshal(game)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal game snapshot: %w", err)
	}

	return &ProcessedRequest{
		RequestID: requestID,
		Response:  string(response),
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}, nil
}

// Snapshot decodes the frozen game state.
func (that *ProcessedRequest) Snapshot() (*Game, error) {
	var game Game
	if err := json.Unmarshal([]byte(that.Response), &game); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game snapshot: %w", err)
	}

	if err := game.Validate(); err != nil {
		return nil, fmt.Errorf("invalid game snapshot: %w", err)
	}

	return &game, nil
}
