package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

type Config struct {
	LogLevel          string            `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort          string            `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort        string            `yaml:"socket-port" env:"SOCKET_PORT" env-default:"9091"`
	Storage           string            `yaml:"storage" env:"STORAGE" env-default:"redis"`
	Redis             Redis             `yaml:"redis"`
	SQLiteStoragePath string            `yaml:"sqlite-storage-path" env:"SQLITE_STORAGE_PATH" env-default:"arbiter.db"`
	Move              Move              `yaml:"move"`
	ProcessedRequests ProcessedRequests `yaml:"processed-requests"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

// Move bounds the retry loop a move runs when it loses a version race.
type Move struct {
	MaxAttempts int           `yaml:"max-attempts" env:"MOVE_MAX_ATTEMPTS" env-default:"3"`
	RetryDelay  time.Duration `yaml:"retry-delay" env:"MOVE_RETRY_DELAY" env-default:"100ms"`
}

type ProcessedRequests struct {
	Retention   time.Duration `yaml:"retention" env:"PROCESSED_REQUESTS_RETENTION" env-default:"24h"`
	CleanupCron string        `yaml:"cleanup-cron" env:"PROCESSED_REQUESTS_CLEANUP_CRON" env-default:"0 0 0 * * *"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	switch config.Storage {
	case StorageRedis, StorageSQLite, StorageMemory:
	default:
		return nil, fmt.Errorf("unknown storage %q", config.Storage)
	}

	if config.Move.MaxAttempts < 1 {
		return nil, fmt.Errorf("move.max-attempts must be at least 1, got %d", config.Move.MaxAttempts)
	}

	return config, nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
