package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/tictactoe-arbiter/internal/config"
	"github.com/rocketscienceinc/tictactoe-arbiter/internal/notifier"
	"github.com/rocketscienceinc/tictactoe-arbiter/internal/repository"
	"github.com/rocketscienceinc/tictactoe-arbiter/internal/repository/memory"
	"github.com/rocketscienceinc/tictactoe-arbiter/internal/repository/sqlite"
	"github.com/rocketscienceinc/tictactoe-arbiter/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-arbiter/internal/service"
	redistransport "github.com/rocketscienceinc/tictactoe-arbiter/internal/transport/redis"
	"github.com/rocketscienceinc/tictactoe-arbiter/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-arbiter/transport/rest"
	"github.com/rocketscienceinc/tictactoe-arbiter/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// stores is what a storage backend provides to the rest of the app.
type stores struct {
	games     repository.GameRepository
	requests  repository.RequestRepository
	publisher *redistransport.Publisher // nil unless moves are shared with other instances
	close     func() error
}

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	st, err := openStores(ctx, conf)
	if err != nil {
		return err
	}

	defer func() {
		if err = st.close(); err != nil {
			log.Error("could not close storage", "error", err)
		}
	}()

	log.Info("storage ready", "storage", conf.Storage)

	var (
		hub    *websocket.Hub
		fanout notifier.Fanout
	)
	if st.publisher != nil {
		// observers hear every move through pub/sub, the ones made here included.
		hub = websocket.NewRelayHub(logger, st.publisher)
		fanout = notifier.NewFanout(st.publisher)
	} else {
		hub = websocket.NewHub(logger)
		fanout = notifier.NewFanout(hub)
	}
	defer hub.Close()

	gameManager := usecase.NewGameManager(logger, st.games, st.requests, fanout, usecase.RetryPolicy{
		MaxAttempts: conf.Move.MaxAttempts,
		RetryDelay:  conf.Move.RetryDelay,
	})

	cleanup := service.NewRequestCleanupService(logger, st.requests, conf.ProcessedRequests.Retention)
	if err = cleanup.Schedule(ctx, conf.ProcessedRequests.CleanupCron); err != nil {
		return fmt.Errorf("could not schedule processed request cleanup: %w", err)
	}

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := rest.Start(ctx, logger, conf.HTTPPort, rest.NewRouter(logger, gameManager)); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		wsServer := websocket.New(logger, gameManager, hub)
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}

func openStores(ctx context.Context, conf *config.Config) (*stores, error) {
	switch conf.Storage {
	case config.StorageSQLite:
		sqliteStorage, err := storage.NewSQLiteStorage(conf.SQLiteStoragePath)
		if err != nil {
			return nil, fmt.Errorf("could not open sqlite storage: %w", err)
		}

		if err = sqliteStorage.Init(ctx); err != nil {
			_ = sqliteStorage.Close()
			return nil, fmt.Errorf("could not init sqlite storage: %w", err)
		}

		return &stores{
			games:    sqlite.NewGameStore(sqliteStorage.Connection),
			requests: sqlite.NewRequestStore(sqliteStorage.Connection),
			close:    sqliteStorage.Close,
		}, nil

	case config.StorageMemory:
		return &stores{
			games:    memory.NewGameStore(),
			requests: memory.NewRequestStore(),
			close:    func() error { return nil },
		}, nil

	default:
		redisAddrString := conf.Redis.GetRedisAddr()
		if redisAddrString == "" {
			return nil, ErrAddrNotFound
		}

		redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString)
		if err != nil {
			return nil, fmt.Errorf("could not connect to redis storage: %w", err)
		}

		return &stores{
			games:     repository.NewGameRepository(redisStorage.Connection),
			requests:  repository.NewRequestRepository(redisStorage.Connection),
			publisher: redistransport.NewPublisher(redisStorage.Connection),
			close:     redisStorage.Close,
		}, nil
	}
}
