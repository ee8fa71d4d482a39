// Package auth implements the account guard: credential registration and
// verification with a per-username failed-attempt lockout policy. All mutable
// state lives in an in-process attempt tracker; accounts themselves are read
// through the record store and never modified after creation.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pfm/internal/core"
)

const (
	// DefaultMaxAttempts consecutive failures lock the username.
	DefaultMaxAttempts = 3
	// DefaultLockoutDuration is how long a locked username refuses logins.
	DefaultLockoutDuration = time.Minute
	// MinPasswordLength is the registration-time password floor.
	MinPasswordLength = 8
)

// CredentialStore is the record-store slice the guard needs. Lookups return
// core.ErrNotFound for unknown usernames; InsertAccount returns
// core.ErrConflict when the username unique constraint rejects the row.
type CredentialStore interface {
	FindAccountByUsername(ctx context.Context, username string) (*core.Account, error)
	InsertAccount(ctx context.Context, username, passwordHash string) (*core.Account, error)
}

// Config carries the lockout policy. The zero value selects the defaults;
// Now is a clock override for tests.
type Config struct {
	MaxAttempts     int
	LockoutDuration time.Duration
	Now             func() time.Time
}

// Guard verifies credentials and enforces the lockout policy.
type Guard struct {
	store   CredentialStore
	hasher  PasswordHasher
	tracker *lockoutTracker
}

func NewGuard(store CredentialStore, hasher PasswordHasher, cfg Config) *Guard {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = DefaultLockoutDuration
	}
	return &Guard{
		store:   store,
		hasher:  hasher,
		tracker: newLockoutTracker(cfg.MaxAttempts, cfg.LockoutDuration, cfg.Now),
	}
}

// Register creates a new account. The plaintext password is hashed before it
// reaches the store and is never logged. The store's unique index on username
// is the authoritative duplicate check; the pre-lookup only gives a friendlier
// failure without an insert attempt.
func (g *Guard) Register(ctx context.Context, username, password string) error {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return ErrEmptyCredential
	}
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}

	_, err := g.store.FindAccountByUsername(ctx, username)
	switch {
	case err == nil:
		return ErrDuplicateUsername
	case !errors.Is(err, core.ErrNotFound):
		return fmt.Errorf("check username: %w", err)
	}

	digest, err := g.hasher.Hash(password)
	if err != nil {
		return err
	}

	if _, err := g.store.InsertAccount(ctx, username, digest); err != nil {
		if errors.Is(err, core.ErrConflict) {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// Authenticate verifies the credentials and returns the account ID on success.
//
// The check order is part of the contract: blank fields first, then the
// lockout (without touching the store or the counter), then the lookup and
// the password check, each of which counts as a failed attempt. Unknown
// username and wrong password are indistinguishable to the caller.
func (g *Guard) Authenticate(ctx context.Context, username, password string) (int64, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return 0, ErrEmptyCredential
	}
	if g.tracker.isLocked(username) {
		return 0, ErrAccountLocked
	}

	account, err := g.store.FindAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			g.tracker.recordFailure(username)
			return 0, ErrInvalidCredential
		}
		return 0, fmt.Errorf("find account: %w", err)
	}

	if !g.hasher.Verify(password, account.PasswordHash) {
		g.tracker.recordFailure(username)
		return 0, ErrInvalidCredential
	}

	g.tracker.reset(username)
	return account.ID, nil
}

// Logout resets the attempt state for the given username. The reset is scoped
// to the one username; session teardown itself belongs to the caller.
func (g *Guard) Logout(username string) {
	g.tracker.reset(username)
}

// Close stops the tracker's background cleanup.
func (g *Guard) Close() {
	g.tracker.stop()
}
