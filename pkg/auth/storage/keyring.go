package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringStorage implements OS keyring-based token storage.
type KeyringStorage struct {
	service string
}

// NewKeyringStorage creates a keyring storage under service.
func NewKeyringStorage(service string) (*KeyringStorage, error) {
	if service == "" {
		return nil, fmt.Errorf("keyring service is required for keyring storage")
	}
	return &KeyringStorage{service: service}, nil
}

// SaveToken saves a token to the OS keyring.
func (k *KeyringStorage) SaveToken(ctx context.Context, user, token string) error {
	if user == "" {
		return fmt.Errorf("user is required")
	}
	if token == "" {
		return fmt.Errorf("token is empty")
	}

	if err := keyring.Set(k.service, user, token); err != nil {
		return fmt.Errorf("failed to store token in keyring: %w", err)
	}
	return nil
}

// LoadToken loads a token from the OS keyring.
func (k *KeyringStorage) LoadToken(ctx context.Context, user string) (string, error) {
	token, err := keyring.Get(k.service, user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to retrieve token from keyring: %w", err)
	}
	return token, nil
}

// DeleteToken deletes the token from the OS keyring.
func (k *KeyringStorage) DeleteToken(ctx context.Context, user string) error {
	if err := keyring.Delete(k.service, user); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete token from keyring: %w", err)
	}
	return nil
}

// Service returns the keyring service name.
func (k *KeyringStorage) Service() string {
	return k.service
}
