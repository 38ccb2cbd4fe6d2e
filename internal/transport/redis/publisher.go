package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-arbiter/internal/entity"
)

const gameTopicPrefix = "topic:game:"

// Publisher sends game change events to redis pub/sub, one channel per game.
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

func GameTopic(gameID string) string {
	return gameTopicPrefix + gameID
}

// Notify - publishes the event; delivery is best effort, nobody listening is not an error.
func (that *Publisher) Notify(ctx context.Context, message entity.GameMessage) error {
	messageJSON, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal game message: %w", err)
	}

	if err = that.client.Publish(ctx, GameTopic(message.ID), messageJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish game message: %w", err)
	}

	return nil
}

// Subscribe - returns decoded events for one game until ctx is done.
func (that *Publisher) Subscribe(ctx context.Context, gameID string) (<-chan entity.GameMessage, error) {
	pubsub := that.client.Subscribe(ctx, GameTopic(gameID))

	// wait for the subscription to be confirmed so no event published after return is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	messages := make(chan entity.GameMessage)

	go func() {
		defer close(messages)
		defer pubsub.Close()

		channel := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-channel:
				if !ok {
					return
				}

				var message entity.GameMessage
				if err := json.Unmarshal([]byte(raw.Payload), &message); err != nil {
					continue
				}

				select {
				case messages <- message:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return messages, nil
}
