// Package session holds the bearer token the client sends with each request.
//
// The token is persisted through a Storage under a single well-known key.
// Every Set or Clear starts a new generation; Invalidate only clears the token
// it was asked about, so a 401 for an old token cannot log out a newer one.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gaborage/backoffice-client/logger"
)

// DefaultKey is the storage key of the auth token.
const DefaultKey = "auth_token"

// Session is the identity decoded from a stored token.
type Session struct {
	Token     string
	UserID    string
	Email     string
	Name      string
	ExpiresAt time.Time
}

// Store guards the current token. It is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	storage    Storage
	key        string
	log        logger.Logger
	token      string
	loaded     bool
	generation uint64
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides the storage key.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithLogger sets the logger used for storage failures.
func WithLogger(log logger.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// NewStore creates a store backed by storage. A nil storage keeps the token in memory.
func NewStore(storage Storage, opts ...Option) *Store {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	s := &Store{
		storage: storage,
		key:     DefaultKey,
		log:     logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Set stores token and starts a new generation.
func (s *Store) Set(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Set(ctx, s.key, []byte(token)); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	s.token = token
	s.loaded = true
	s.generation++
	s.log.Debug().Uint64("generation", s.generation).Msg("Session token stored")
	return nil
}

// Get decodes the stored token. It returns (nil, nil) when no token is stored.
// A token that cannot be decoded is deleted and reported as absent.
func (s *Store) Get(ctx context.Context) (*Session, error) {
	token, gen, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, nil
	}

	sess, decodeErr := Decode(token)
	if decodeErr == nil {
		return sess, nil
	}

	s.log.Warn().Err(decodeErr).Msg("Discarding malformed session token")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation == gen && s.token == token {
		if err := s.storage.Delete(ctx, s.key); err != nil {
			return nil, fmt.Errorf("delete malformed token: %w", err)
		}
		s.token = ""
	}
	return nil, nil
}

// Token returns the raw token (empty when absent) and the generation it belongs to.
// Storage failures are logged and treated as an absent token.
func (s *Store) Token(ctx context.Context) (string, uint64) {
	token, gen, err := s.current(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("Session storage unavailable, sending request unauthenticated")
		return "", gen
	}
	return token, gen
}

// Generation returns the current session generation.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Clear removes the token and starts a new generation.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	s.token = ""
	s.loaded = true
	s.generation++
	s.log.Debug().Uint64("generation", s.generation).Msg("Session cleared")
	return nil
}

// Invalidate removes the token observed at generation. It reports whether a
// token was removed; it is a no-op when a newer token has been stored since or
// when the token is already gone.
func (s *Store) Invalidate(ctx context.Context, generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != generation || (s.loaded && s.token == "") {
		return false
	}
	if err := s.storage.Delete(ctx, s.key); err != nil {
		s.log.Error().Err(err).Msg("Failed to delete rejected session token")
	}
	hadToken := s.token != "" || !s.loaded
	s.token = ""
	s.loaded = true
	s.log.Info().Uint64("generation", generation).Msg("Session invalidated after unauthorized response")
	return hadToken
}

func (s *Store) current(ctx context.Context) (string, uint64, error) {
	s.mu.RLock()
	if s.loaded {
		token, gen := s.token, s.generation
		s.mu.RUnlock()
		return token, gen, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		raw, err := s.storage.Get(ctx, s.key)
		if err != nil {
			return "", s.generation, fmt.Errorf("load token: %w", err)
		}
		s.token = string(raw)
		s.loaded = true
	}
	return s.token, s.generation, nil
}
