package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rocketscienceinc/tictactoe-arbiter/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arbiter/internal/entity"
)

type RequestStore struct {
	db *sql.DB
}

func NewRequestStore(db *sql.DB) *RequestStore {
	return &RequestStore{db: db}
}

func (that *RequestStore) Exists(ctx context.Context, requestID string) (bool, error) {
	var exists int
	err := that.db.QueryRowContext(ctx,
		`SELECT 1 FROM processed_requests WHERE request_id = ?`, requestID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("failed to check request: %w", err)
	}

	return true, nil
}

func (that *RequestStore) GetByID(ctx context.Context, requestID string) (*entity.ProcessedRequest, error) {
	var (
		request   entity.ProcessedRequest
		createdAt int64
	)

	err := that.db.QueryRowContext(ctx,
		`SELECT request_id, response, created_at FROM processed_requests WHERE request_id = ?`, requestID).
		Scan(&request.RequestID, &request.Response, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrRequestNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get request by id: %w", err)
	}

	request.CreatedAt = fromMillis(createdAt)

	return &request, nil
}

func (that *RequestStore) Create(ctx context.Context, request *entity.ProcessedRequest) error {
	result, err := that.db.ExecContext(ctx,
		`INSERT INTO processed_requests (request_id, response, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(request_id) DO NOTHING`,
		request.RequestID,
		request.Response,
		toMillis(request.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert request: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to insert request: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("%w: %s", apperror.ErrDuplicateRequest, request.RequestID)
	}

	return nil
}

func (that *RequestStore) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := that.db.ExecContext(ctx,
		`DELETE FROM processed_requests WHERE created_at < ?`, toMillis(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired requests: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired requests: %w", err)
	}

	return deleted, nil
}
