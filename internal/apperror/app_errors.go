package apperror

import (
	"errors"
	"net/http"
)

var (
	ErrGameFinished    = errors.New("game is already finished")
	ErrNotYourTurn     = errors.New("it's not your turn")
	ErrCellOccupied    = errors.New("position already taken")
	ErrInvalidPosition = errors.New("invalid position, position must be between 0 and 8")
	ErrInvalidRequest  = errors.New("invalid move request")

	ErrGameNotFound      = errors.New("game not found")
	ErrGameAlreadyExists = errors.New("game already exists")
	ErrRequestNotFound   = errors.New("processed request not found")

	ErrVersionConflict  = errors.New("game was modified concurrently, retry the request")
	ErrDuplicateRequest = errors.New("request already processed")
)

type Category string

const (
	CategoryValidation Category = "Validation Error"
	CategoryNotFound   Category = "Not Found"
	CategoryConflict   Category = "Concurrency Conflict"
	CategoryInternal   Category = "Internal Server Error"

	unexpectedMessage = "An unexpected error occurred"
)

// ErrorResponse is the structured error returned to clients.
type ErrorResponse struct {
	Message  string   `json:"message"`
	Category Category `json:"category"`
	Status   int      `json:"status"`
}

type classified struct {
	err      error
	category Category
	status   int
}

var known = []classified{
	{ErrGameFinished, CategoryValidation, http.StatusBadRequest},
	{ErrNotYourTurn, CategoryValidation, http.StatusBadRequest},
	{ErrCellOccupied, CategoryValidation, http.StatusBadRequest},
	{ErrInvalidPosition, CategoryValidation, http.StatusBadRequest},
	{ErrInvalidRequest, CategoryValidation, http.StatusBadRequest},
	{ErrGameNotFound, CategoryNotFound, http.StatusNotFound},
	{ErrRequestNotFound, CategoryNotFound, http.StatusNotFound},
	{ErrVersionConflict, CategoryConflict, http.StatusConflict},
}

// Classify maps an error chain to its category and HTTP status equivalent.
func Classify(err error) (Category, int) {
	for _, entry := range known {
		if errors.Is(err, entry.err) {
			return entry.category, entry.status
		}
	}

	return CategoryInternal, http.StatusInternalServerError
}

// NewErrorResponse builds the client facing error. Unknown errors are reported
// with an opaque message so internals never leak.
func NewErrorResponse(err error) ErrorResponse {
	for _, entry := range known {
		if errors.Is(err, entry.err) {
			return ErrorResponse{
				Message:  entry.err.Error(),
				Category: entry.category,
				Status:   entry.status,
			}
		}
	}

	return ErrorResponse{
		Message:  unexpectedMessage,
		Category: CategoryInternal,
		Status:   http.StatusInternalServerError,
	}
}

func IsValidation(err error) bool {
	category, _ := Classify(err)
	return category == CategoryValidation
}

func IsRetryable(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
