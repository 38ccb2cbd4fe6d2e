package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-arbiter/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arbiter/internal/entity"
)

const (
	requestKeyPrefix = "request:"
	requestsIndexKey = "requests:created"
)

// createRequestScript is the write-once insert; the retention index is written with the entry.
var createRequestScript = redis.NewScript(`
if not redis.call("SET", KEYS[1], ARGV[1], "NX") then
	return 0
end
redis.call("ZADD", KEYS[2], ARGV[2], ARGV[3])
return 1
`)

// RequestRepository is the idempotency ledger. Entries are insert-only.
type RequestRepository interface {
	Exists(ctx context.Context, requestID string) (bool, error)
	GetByID(ctx context.Context, requestID string) (*entity.ProcessedRequest, error)
	// Create fails with apperror.ErrDuplicateRequest when the id is already recorded.
	Create(ctx context.Context, request *entity.ProcessedRequest) error
	// DeleteCreatedBefore removes entries strictly older than cutoff and returns how many were removed.
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type dbRequest struct {
	client *redis.Client
}

func NewRequestRepository(client *redis.Client) RequestRepository {
	return &dbRequest{
		client: client,
	}
}

func requestKey(id string) string {
	return requestKeyPrefix + id
}

func (that *dbRequest) Exists(ctx context.Context, requestID string) (bool, error) {
	count, err := that.client.Exists(ctx, requestKey(requestID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check request: %w", err)
	}

	return count > 0, nil
}

func (that *dbRequest) GetByID(ctx context.Context, requestID string) (*entity.ProcessedRequest, error) {
	response, err := that.client.Get(ctx, requestKey(requestID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrRequestNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get request by id: %w", err)
	}

	var request entity.ProcessedRequest
	if err = json.Unmarshal(response, &request); err != nil {
		return nil, fmt.Errorf("failed to unmarshal request: %w", err)
	}

	return &request, nil
}

func (that *dbRequest) Create(ctx context.Context, request *entity.ProcessedRequest) error {
	requestJSON, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	stored, err := createRequestScript.Run(ctx, that.client,
		[]string{requestKey(request.RequestID), requestsIndexKey},
		requestJSON, request.CreatedAt.UnixMilli(), request.RequestID,
	).Int()
	if err != nil {
		return fmt.Errorf("failed to set request: %w", err)
	}

	if stored == 0 {
		return fmt.Errorf("%w: %s", apperror.ErrDuplicateRequest, request.RequestID)
	}

	return nil
}

func (that *dbRequest) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ids, err := that.client.ZRangeByScore(ctx, requestsIndexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to find expired requests: %w", err)
	}

	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(ids))
	members := make([]any, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, requestKey(id))
		members = append(members, id)
	}

	var deleted *redis.IntCmd
	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, keys...)
		pipe.ZRem(ctx, requestsIndexKey, members...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired requests: %w", err)
	}

	return deleted.Val(), nil
}
