// Package storage stores Jenkins API tokens per user.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no token is stored for a user.
var ErrNotFound = errors.New("token not found")

// TokenStorage is an interface for storing and retrieving API tokens.
type TokenStorage interface {
	// SaveToken stores the token for user.
	SaveToken(ctx context.Context, user, token string) error
	// LoadToken retrieves the token for user.
	LoadToken(ctx context.Context, user string) (string, error)
	// DeleteToken removes the token for user.
	DeleteToken(ctx context.Context, user string) error
}
