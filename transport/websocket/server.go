package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-arbiter/internal/usecase"
)

const shutdownTimeout = 5 * time.Second

type handlerFunc func(ctx context.Context, message *Message, conn *connection) error

type Server struct {
	logger *slog.Logger
	uGame  usecase.GameUseCase
	hub    *Hub

	upgrader websocket.Upgrader
	handlers map[string]handlerFunc
}

func New(logger *slog.Logger, uGame usecase.GameUseCase, hub *Hub) *Server {
	server := &Server{
		logger: logger.With("component", "websocket.Server"),
		uGame:  uGame,
		hub:    hub,

		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
		handlers: make(map[string]handlerFunc),
	}

	server.handlers[ActionSubscribe] = server.handleSubscribe
	server.handlers[ActionTurn] = server.handleGameTurn

	return server
}

func (that *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", that.upgradeToWebSocket)

	return mux
}

// Start - starts WebSocket server and stops it when ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     that.Handler(),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shutdown server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// upgradeToWebSocket - upgrades the connection and serves it until the client leaves.
func (that *Server) upgradeToWebSocket(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "upgradeToWebSocket")

	ws, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error
		log.Warn("failed to upgrade connection", "error", err)
		return
	}

	conn := newConnection(ws)
	defer func() {
		that.hub.unsubscribe(conn)
		_ = ws.Close()
	}()

	log.Info("WebSocket connection established", "remote", req.RemoteAddr)

	that.handleMessages(req.Context(), conn)
}

// handleMessages - processes messages from the client.
func (that *Server) handleMessages(ctx context.Context, conn *connection) {
	log := that.logger.With("method", "handleMessages")

	for {
		_, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("connection closed unexpectedly", "error", err)
			}
			return
		}

		var message Message
		if err = json.Unmarshal(data, &message); err != nil {
			log.Warn("failed to unmarshal message", "error", err)
			_ = that.sendError(conn, ActionError, invalidRequest("malformed message"))
			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Warn("unknown action", "action", message.Action)
			_ = that.sendError(conn, message.Action, invalidRequest("unknown action"))
			continue
		}

		if err = handler(ctx, &message, conn); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
		}
	}
}
