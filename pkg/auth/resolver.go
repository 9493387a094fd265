// Package auth resolves the Jenkins API token used by the harness.
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/CliForge/jenkins-acceptance/pkg/auth/storage"
)

// TokenSource represents where a token was found.
type TokenSource string

const (
	TokenSourceConfig  TokenSource = "config"
	TokenSourceEnv     TokenSource = "env"
	TokenSourceStorage TokenSource = "storage"
	TokenSourcePrompt  TokenSource = "prompt"
	TokenSourceNone    TokenSource = "none"
)

// DefaultTokenEnv is the variable Jenkins tooling conventionally reads the
// API token from.
const DefaultTokenEnv = "JENKINS_API_TOKEN"

// TokenResolver finds the API token for a user.
type TokenResolver struct {
	user        string
	configToken string
	envVar      string
	storage     storage.TokenStorage
	promptFunc  func(user string) (string, error)
}

// TokenResolverOption configures the resolver.
type TokenResolverOption func(*TokenResolver)

// NewTokenResolver creates a resolver for user.
func NewTokenResolver(user string, opts ...TokenResolverOption) *TokenResolver {
	r := &TokenResolver{
		user:   user,
		envVar: DefaultTokenEnv,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// WithConfigToken sets the token given by configuration or flag.
func WithConfigToken(token string) TokenResolverOption {
	return func(r *TokenResolver) {
		r.configToken = token
	}
}

// WithEnvVar sets the environment variable name.
func WithEnvVar(name string) TokenResolverOption {
	return func(r *TokenResolver) {
		if name != "" {
			r.envVar = name
		}
	}
}

// WithStorage sets the token storage.
func WithStorage(s storage.TokenStorage) TokenResolverOption {
	return func(r *TokenResolver) {
		r.storage = s
	}
}

// WithPromptFunc sets the interactive prompt function.
func WithPromptFunc(fn func(user string) (string, error)) TokenResolverOption {
	return func(r *TokenResolver) {
		r.promptFunc = fn
	}
}

// Resolve finds a token.
// Order: config → environment → storage → prompt.
// An anonymous resolver (no user) only consults config and environment.
func (r *TokenResolver) Resolve(ctx context.Context) (string, TokenSource, error) {
	if r.configToken != "" {
		return r.configToken, TokenSourceConfig, nil
	}

	if token := os.Getenv(r.envVar); token != "" {
		return token, TokenSourceEnv, nil
	}

	if r.user == "" {
		return "", TokenSourceNone, nil
	}

	if r.storage != nil {
		token, err := r.storage.LoadToken(ctx, r.user)
		switch {
		case err == nil && token != "":
			return token, TokenSourceStorage, nil
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			return "", TokenSourceNone, fmt.Errorf("failed to load token: %w", err)
		}
	}

	if r.promptFunc != nil {
		token, err := r.promptFunc(r.user)
		if err != nil {
			return "", TokenSourceNone, fmt.Errorf("prompt failed: %w", err)
		}
		if token != "" {
			return token, TokenSourcePrompt, nil
		}
	}

	return "", TokenSourceNone, nil
}
