package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates the entity does not exist or is not owned by the caller.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized indicates a missing or invalid session.
	ErrUnauthorized = errors.New("login required")
	// ErrInvalidInput indicates a request that failed validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict indicates a unique key (e.g. username) is already taken.
	ErrConflict = errors.New("already exists")
	// ErrInsertFailed indicates the warehouse reported row-level insert errors.
	ErrInsertFailed = errors.New("insert failed")
	// ErrRecentlyWritten indicates the warehouse refused to mutate a row that
	// is still inside its streaming-buffer window.
	ErrRecentlyWritten = errors.New("row is in the streaming buffer")
)

// RecentlyWrittenMessage is the user-facing explanation for ErrRecentlyWritten.
const RecentlyWrittenMessage = "This record was saved very recently and cannot be changed or deleted for up to about two hours because of a warehouse restriction. Please try again later."

// ClassifyWarehouseError maps the warehouse's streaming-buffer refusal onto
// ErrRecentlyWritten. Any other error is returned unchanged.
func ClassifyWarehouseError(err error) error {
	if err == nil || errors.Is(err, ErrRecentlyWritten) {
		return err
	}
	if strings.Contains(strings.ToLower(err.Error()), "streaming buffer") {
		return fmt.Errorf("%w: %w", ErrRecentlyWritten, err)
	}
	return err
}
