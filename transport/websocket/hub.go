package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-arbiter/internal/entity"
)

const writeWait = 10 * time.Second

// connection serialises writes; gorilla allows one concurrent writer per conn.
type connection struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func newConnection(conn *websocket.Conn) *connection {
	return &connection{conn: conn}
}

func (that *connection) send(action string, payload ResponsePayload) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	if err = that.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if err = that.conn.WriteJSON(Message{Action: action, Payload: payloadJSON}); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

// gameFeed streams the change events of one game published by any instance.
type gameFeed interface {
	Subscribe(ctx context.Context, gameID string) (<-chan entity.GameMessage, error)
}

// Hub keeps the observers of every game and pushes change events to them.
type Hub struct {
	logger *slog.Logger
	feed   gameFeed

	// feedsMutex is taken before connectionsMutex.
	feedsMutex sync.Mutex
	feeds      map[string]context.CancelFunc

	connectionsMutex sync.RWMutex
	connections      map[string]map[*connection]struct{}
}

// NewHub returns a hub fed directly through Notify by the moves of this process.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:      logger.With("component", "websocket.Hub"),
		feeds:       make(map[string]context.CancelFunc),
		connections: make(map[string]map[*connection]struct{}),
	}
}

// NewRelayHub returns a hub that follows feed for every watched game,
// so observers see moves made by other instances too.
func NewRelayHub(logger *slog.Logger, feed gameFeed) *Hub {
	hub := NewHub(logger)
	hub.feed = feed

	return hub
}

func (that *Hub) subscribe(gameID string, conn *connection) error {
	that.feedsMutex.Lock()
	defer that.feedsMutex.Unlock()

	if err := that.follow(gameID); err != nil {
		return err
	}

	that.connectionsMutex.Lock()
	defer that.connectionsMutex.Unlock()

	observers, ok := that.connections[gameID]
	if !ok {
		observers = make(map[*connection]struct{})
		that.connections[gameID] = observers
	}

	observers[conn] = struct{}{}

	return nil
}

// unsubscribe drops conn from every game it watches and stops following games nobody watches.
func (that *Hub) unsubscribe(conn *connection) {
	that.feedsMutex.Lock()
	defer that.feedsMutex.Unlock()

	that.connectionsMutex.Lock()
	var idle []string
	for gameID, observers := range that.connections {
		delete(observers, conn)
		if len(observers) == 0 {
			delete(that.connections, gameID)
			idle = append(idle, gameID)
		}
	}
	that.connectionsMutex.Unlock()

	for _, gameID := range idle {
		if cancel, ok := that.feeds[gameID]; ok {
			cancel()
			delete(that.feeds, gameID)
		}
	}
}

// follow starts relaying the feed of gameID; callers hold feedsMutex.
func (that *Hub) follow(gameID string) error {
	if that.feed == nil {
		return nil
	}

	if _, ok := that.feeds[gameID]; ok {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	messages, err := that.feed.Subscribe(ctx, gameID)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to follow game %s: %w", gameID, err)
	}

	that.feeds[gameID] = cancel

	go that.relay(ctx, gameID, messages)

	return nil
}

func (that *Hub) relay(ctx context.Context, gameID string, messages <-chan entity.GameMessage) {
	log := that.logger.With("method", "relay", "gameID", gameID)
	log.Debug("following game")

	for message := range messages {
		// push failures are logged by Notify
		_ = that.Notify(ctx, message)
	}

	log.Debug("stopped following game")
}

// Close stops following every game.
func (that *Hub) Close() {
	that.feedsMutex.Lock()
	defer that.feedsMutex.Unlock()

	for gameID, cancel := range that.feeds {
		cancel()
		delete(that.feeds, gameID)
	}
}

func (that *Hub) Subscribers(gameID string) int {
	that.connectionsMutex.RLock()
	defer that.connectionsMutex.RUnlock()

	return len(that.connections[gameID])
}

// Notify - sends a game:update to every observer of the game.
func (that *Hub) Notify(_ context.Context, message entity.GameMessage) error {
	that.connectionsMutex.RLock()
	observers := make([]*connection, 0, len(that.connections[message.ID]))
	for conn := range that.connections[message.ID] {
		observers = append(observers, conn)
	}
	that.connectionsMutex.RUnlock()

	var errs []error
	for _, conn := range observers {
		if err := conn.send(ActionUpdate, ResponsePayload{Update: &message}); err != nil {
			that.logger.Warn("failed to push game update", "gameID", message.ID, "error", err)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
