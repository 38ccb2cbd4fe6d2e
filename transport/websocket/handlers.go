package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-arbiter/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arbiter/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arbiter/internal/tictactoe"
)

// handleSubscribe registers the connection as an observer and replies with the current game.
func (that *Server) handleSubscribe(ctx context.Context, msg *Message, conn *connection) error {
	log := that.logger.With("method", "handleSubscribe")

	var payloadReq SubscribePayload
	if err := json.Unmarshal(msg.Payload, &payloadReq); err != nil || payloadReq.GameID == "" {
		return that.sendError(conn, msg.Action, invalidRequest("game_id is required"))
	}

	log = log.With("gameID", payloadReq.GameID)

	game, err := that.uGame.GetGame(ctx, payloadReq.GameID)
	if err != nil {
		log.Warn("failed to get game", "error", err)
		return that.sendError(conn, msg.Action, err)
	}

	if err = that.hub.subscribe(game.ID, conn); err != nil {
		log.Error("failed to subscribe observer", "error", err)
		return that.sendError(conn, msg.Action, err)
	}

	log.Info("observer subscribed")

	return conn.send(msg.Action, ResponsePayload{Game: game})
}

func (that *Server) handleGameTurn(ctx context.Context, msg *Message, conn *connection) error {
	log := that.logger.With("method", "handleGameTurn")

	var payloadReq TurnPayload
	if err := json.Unmarshal(msg.Payload, &payloadReq); err != nil || payloadReq.GameID == "" {
		return that.sendError(conn, msg.Action, invalidRequest("game_id is required"))
	}

	if payloadReq.Position == nil {
		return that.sendError(conn, msg.Action, invalidRequest("position is required"))
	}

	if err := tictactoe.CheckPosition(*payloadReq.Position); err != nil {
		return that.sendError(conn, msg.Action, err)
	}

	var player entity.Player
	if payloadReq.Player != nil {
		parsed, err := entity.ParsePlayer(*payloadReq.Player)
		if err != nil {
			return that.sendError(conn, msg.Action, invalidRequest(err.Error()))
		}
		player = parsed
	}

	log = log.With("gameID", payloadReq.GameID, "requestID", payloadReq.RequestID)

	game, err := that.uGame.MakeMove(ctx, payloadReq.GameID, *payloadReq.Position, player, payloadReq.RequestID)
	if err != nil {
		log.Warn("failed to make move", "error", err)
		return that.sendError(conn, msg.Action, err)
	}

	return conn.send(msg.Action, ResponsePayload{Game: game})
}

func (that *Server) sendError(conn *connection, action string, err error) error {
	response := apperror.NewErrorResponse(err)
	if sendErr := conn.send(action, ResponsePayload{Error: &response}); sendErr != nil {
		return fmt.Errorf("failed to send error response: %w", sendErr)
	}

	return nil
}

func invalidRequest(reason string) error {
	return fmt.Errorf("%w: %s", apperror.ErrInvalidRequest, reason)
}
