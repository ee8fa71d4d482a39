package auth

import (
	"sync"
	"time"
)

// attemptState tracks the failed-attempt counter for one username. It is
// process-local and deliberately not persisted: a restart forgets all
// lockouts.
type attemptState struct {
	failures    int
	lastFailure time.Time
	lockedUntil time.Time
}

// lockoutTracker is the per-username failed-attempt table. A single mutex
// guards the map; lockout expiry is evaluated lazily on the next check, never
// by a background timer. A cleanup goroutine only drops entries that are both
// unlocked and stale, so it can never shorten an active lockout.
type lockoutTracker struct {
	mu       sync.Mutex
	attempts map[string]*attemptState

	maxAttempts int
	lockout     time.Duration
	now         func() time.Time

	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

const staleAttemptAge = 30 * time.Minute

func newLockoutTracker(maxAttempts int, lockout time.Duration, now func() time.Time) *lockoutTracker {
	if now == nil {
		now = time.Now
	}
	t := &lockoutTracker{
		attempts:    make(map[string]*attemptState),
		maxAttempts: maxAttempts,
		lockout:     lockout,
		now:         now,
		stopCleanup: make(chan struct{}),
	}
	go t.startCleanup()
	return t
}

// recordFailure increments the counter and arms the lockout once the counter
// reaches the threshold. The counter is not reset by mere passage of time.
func (t *lockoutTracker) recordFailure(username string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.attempts[username]
	if !ok {
		state = &attemptState{}
		t.attempts[username] = state
	}
	state.failures++
	state.lastFailure = t.now()
	if state.failures >= t.maxAttempts {
		state.lockedUntil = t.now().Add(t.lockout)
	}
}

// isLocked reports whether the username is inside its lockout window. An
// expired lockout is cleared here, counter included, so the next failure
// starts counting from zero again.
func (t *lockoutTracker) isLocked(username string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.attempts[username]
	if !ok || state.lockedUntil.IsZero() {
		return false
	}
	if state.lockedUntil.After(t.now()) {
		return true
	}
	delete(t.attempts, username)
	return false
}

// reset clears the counter and any lockout for one username.
func (t *lockoutTracker) reset(username string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.attempts, username)
}

func (t *lockoutTracker) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.cleanupStaleEntries()
		case <-t.stopCleanup:
			return
		}
	}
}

func (t *lockoutTracker) cleanupStaleEntries() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for username, state := range t.attempts {
		if state.lockedUntil.After(now) {
			continue
		}
		if now.Sub(state.lastFailure) > staleAttemptAge {
			delete(t.attempts, username)
		}
	}
}

// stop shuts down the cleanup goroutine.
func (t *lockoutTracker) stop() {
	t.shutdownOnce.Do(func() {
		close(t.stopCleanup)
	})
}
