package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"pfm/internal/core"
)

type fakeStore struct {
	accounts  map[string]*core.Account
	nextID    int64
	findCalls int
	findErr   error
	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{accounts: make(map[string]*core.Account)}
}

func (s *fakeStore) FindAccountByUsername(_ context.Context, username string) (*core.Account, error) {
	s.findCalls++
	if s.findErr != nil {
		return nil, s.findErr
	}
	account, ok := s.accounts[username]
	if !ok {
		return nil, core.ErrNotFound
	}
	return account, nil
}

func (s *fakeStore) InsertAccount(_ context.Context, username, passwordHash string) (*core.Account, error) {
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	if _, ok := s.accounts[username]; ok {
		return nil, core.ErrConflict
	}
	s.nextID++
	account := &core.Account{ID: s.nextID, Username: username, PasswordHash: passwordHash}
	s.accounts[username] = account
	return account, nil
}

// testClock lets tests advance time manually; lockout expiry is lazy, so
// moving the clock forward is all a test needs.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestGuard(t *testing.T, store CredentialStore) (*Guard, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)}
	guard := NewGuard(store, BcryptHasher{Cost: bcrypt.MinCost}, Config{Now: clock.Now})
	t.Cleanup(guard.Close)
	return guard, clock
}

func registerUser(t *testing.T, guard *Guard, username, password string) {
	t.Helper()
	require.NoError(t, guard.Register(context.Background(), username, password))
}

func TestRegisterValidation(t *testing.T) {
	guard, _ := newTestGuard(t, newFakeStore())
	ctx := context.Background()

	assert.ErrorIs(t, guard.Register(ctx, "", "whatever123"), ErrEmptyCredential)
	assert.ErrorIs(t, guard.Register(ctx, "user", ""), ErrEmptyCredential)
	assert.ErrorIs(t, guard.Register(ctx, "   ", "whatever123"), ErrEmptyCredential)
	assert.ErrorIs(t, guard.Register(ctx, "user", "short1!"), ErrWeakPassword)

	require.NoError(t, guard.Register(ctx, "user", "longenough1"))
	assert.ErrorIs(t, guard.Register(ctx, "user", "anotherpass"), ErrDuplicateUsername)
}

func TestRegisterDuplicateFromConstraint(t *testing.T) {
	// Even when the pre-check misses (lost race), the store's unique index
	// still yields ErrDuplicateUsername.
	store := newFakeStore()
	guard, _ := newTestGuard(t, store)

	registerUser(t, guard, "racer", "password123")
	store.findErr = core.ErrNotFound // force the pre-check to miss
	assert.ErrorIs(t, guard.Register(context.Background(), "racer", "password456"), ErrDuplicateUsername)
}

func TestRegisterNeverStoresPlaintext(t *testing.T) {
	store := newFakeStore()
	guard, _ := newTestGuard(t, store)

	registerUser(t, guard, "user", "supersecret99")
	account := store.accounts["user"]
	require.NotNil(t, account)
	assert.NotEqual(t, "supersecret99", account.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte("supersecret99")))
}

func TestAuthenticateSuccess(t *testing.T) {
	store := newFakeStore()
	guard, _ := newTestGuard(t, store)
	registerUser(t, guard, "alice", "password123")

	id, err := guard.Authenticate(context.Background(), "alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, store.accounts["alice"].ID, id)
}

func TestAuthenticateEmptyFieldsCheckedBeforeLockout(t *testing.T) {
	guard, _ := newTestGuard(t, newFakeStore())
	ctx := context.Background()

	// Lock the (unknown) username first.
	for i := 0; i < DefaultMaxAttempts; i++ {
		_, err := guard.Authenticate(ctx, "ghost", "wrongpass")
		assert.ErrorIs(t, err, ErrInvalidCredential)
	}

	_, err := guard.Authenticate(ctx, "ghost", "")
	assert.ErrorIs(t, err, ErrEmptyCredential)
}

func TestAuthenticateWrongPasswordIndistinguishableFromUnknownUser(t *testing.T) {
	guard, _ := newTestGuard(t, newFakeStore())
	ctx := context.Background()

	_, unknownErr := guard.Authenticate(ctx, "nobody", "password123")
	assert.ErrorIs(t, unknownErr, ErrInvalidCredential)

	registerUser(t, guard, "bob", "password123")
	_, wrongErr := guard.Authenticate(ctx, "bob", "password456")
	assert.ErrorIs(t, wrongErr, ErrInvalidCredential)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestSuccessResetsCounter(t *testing.T) {
	guard, _ := newTestGuard(t, newFakeStore())
	ctx := context.Background()
	registerUser(t, guard, "carol", "password123")

	// Two failures, then a success: counter back to zero, so two more
	// failures still do not lock.
	for i := 0; i < DefaultMaxAttempts-1; i++ {
		_, err := guard.Authenticate(ctx, "carol", "wrongpass")
		assert.ErrorIs(t, err, ErrInvalidCredential)
	}
	_, err := guard.Authenticate(ctx, "carol", "password123")
	require.NoError(t, err)

	for i := 0; i < DefaultMaxAttempts-1; i++ {
		_, err := guard.Authenticate(ctx, "carol", "wrongpass")
		assert.ErrorIs(t, err, ErrInvalidCredential)
	}
	_, err = guard.Authenticate(ctx, "carol", "password123")
	assert.NoError(t, err)
}

func TestLockoutAfterThreeFailures(t *testing.T) {
	store := newFakeStore()
	guard, _ := newTestGuard(t, store)
	ctx := context.Background()
	registerUser(t, guard, "dave", "password123")

	for i := 0; i < DefaultMaxAttempts; i++ {
		_, err := guard.Authenticate(ctx, "dave", "wrongpass")
		assert.ErrorIs(t, err, ErrInvalidCredential)
	}

	// Correct credentials during the window still fail with AccountLocked,
	// and the store is not consulted.
	findCallsBefore := store.findCalls
	_, err := guard.Authenticate(ctx, "dave", "password123")
	assert.ErrorIs(t, err, ErrAccountLocked)
	assert.Equal(t, findCallsBefore, store.findCalls)
}

func TestLockoutExpiry(t *testing.T) {
	guard, clock := newTestGuard(t, newFakeStore())
	ctx := context.Background()
	registerUser(t, guard, "erin", "password123")

	for i := 0; i < DefaultMaxAttempts; i++ {
		guard.Authenticate(ctx, "erin", "wrongpass")
	}
	_, err := guard.Authenticate(ctx, "erin", "password123")
	require.ErrorIs(t, err, ErrAccountLocked)

	clock.Advance(DefaultLockoutDuration + time.Second)

	// Window elapsed: the account is open again and the counter restarted
	// from zero, so a single failure does not re-lock.
	_, err = guard.Authenticate(ctx, "erin", "wrongpass")
	require.ErrorIs(t, err, ErrInvalidCredential)
	_, err = guard.Authenticate(ctx, "erin", "password123")
	assert.NoError(t, err)
}

func TestUnknownUsernameFailuresLock(t *testing.T) {
	guard, _ := newTestGuard(t, newFakeStore())
	ctx := context.Background()

	for i := 0; i < DefaultMaxAttempts; i++ {
		_, err := guard.Authenticate(ctx, "phantom", "password123")
		assert.ErrorIs(t, err, ErrInvalidCredential)
	}
	_, err := guard.Authenticate(ctx, "phantom", "password123")
	assert.ErrorIs(t, err, ErrAccountLocked)
}

func TestLogoutResetsOnlyThatUsername(t *testing.T) {
	guard, _ := newTestGuard(t, newFakeStore())
	ctx := context.Background()
	registerUser(t, guard, "frank", "password123")
	registerUser(t, guard, "grace", "password123")

	for i := 0; i < DefaultMaxAttempts-1; i++ {
		guard.Authenticate(ctx, "frank", "wrongpass")
		guard.Authenticate(ctx, "grace", "wrongpass")
	}

	guard.Logout("frank")

	// frank's counter restarted; one more failure for grace locks her.
	_, err := guard.Authenticate(ctx, "grace", "wrongpass")
	require.ErrorIs(t, err, ErrInvalidCredential)
	_, err = guard.Authenticate(ctx, "grace", "password123")
	assert.ErrorIs(t, err, ErrAccountLocked)

	_, err = guard.Authenticate(ctx, "frank", "wrongpass")
	require.ErrorIs(t, err, ErrInvalidCredential)
	_, err = guard.Authenticate(ctx, "frank", "password123")
	assert.NoError(t, err)
}

func TestStoreFaultDoesNotCountAsFailure(t *testing.T) {
	store := newFakeStore()
	guard, _ := newTestGuard(t, store)
	ctx := context.Background()
	registerUser(t, guard, "henry", "password123")

	store.findErr = fmt.Errorf("query accounts: %w", core.ErrStoreUnavailable)
	for i := 0; i < DefaultMaxAttempts+1; i++ {
		_, err := guard.Authenticate(ctx, "henry", "password123")
		require.ErrorIs(t, err, core.ErrStoreUnavailable)
		require.False(t, errors.Is(err, ErrInvalidCredential))
	}

	// Faulted attempts never incremented the counter.
	store.findErr = nil
	_, err := guard.Authenticate(ctx, "henry", "password123")
	assert.NoError(t, err)
}

func TestConcurrentFailuresLockExactlyOnce(t *testing.T) {
	guard, _ := newTestGuard(t, newFakeStore())
	ctx := context.Background()

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			guard.Authenticate(ctx, "swarm", "wrongpass")
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	_, err := guard.Authenticate(ctx, "swarm", "password123")
	assert.ErrorIs(t, err, ErrAccountLocked)
}
