package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-arbiter/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arbiter/internal/entity"
)

type RequestStore struct {
	mu       sync.RWMutex
	requests map[string]entity.ProcessedRequest
}

func NewRequestStore() *RequestStore {
	return &RequestStore{
		requests: make(map[string]entity.ProcessedRequest),
	}
}

func (that *RequestStore) Exists(_ context.Context, requestID string) (bool, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	_, ok := that.requests[requestID]

	return ok, nil
}

func (that *RequestStore) GetByID(_ context.Context, requestID string) (*entity.ProcessedRequest, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	request, ok := that.requests[requestID]
	if !ok {
		return nil, apperror.ErrRequestNotFound
	}

	return &request, nil
}

func (that *RequestStore) Create(_ context.Context, request *entity.ProcessedRequest) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.requests[request.RequestID]; ok {
		return fmt.Errorf("%w: %s", apperror.ErrDuplicateRequest, request.RequestID)
	}

	that.requests[request.RequestID] = *request

	return nil
}

func (that *RequestStore) DeleteCreatedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	var deleted int64
	for id, request := range that.requests {
		if request.CreatedAt.Before(cutoff) {
			delete(that.requests, id)
			deleted++
		}
	}

	return deleted, nil
}
