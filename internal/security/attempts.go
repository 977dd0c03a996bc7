package security

import (
	"log/slog"
	"sync"
	"time"
)

// AttemptTrackerConfig holds the lockout policy for the tracker
type AttemptTrackerConfig struct {
	MaxAttempts     int
	AttemptWindow   time.Duration
	LockoutDuration time.Duration

	// DistributedAttackThreshold is the in-window failure count for one email,
	// summed across all origins, that flags a credential-stuffing run.
	DistributedAttackThreshold int

	// ResetClearsGlobal makes a successful login from any single origin clear
	// the cross-origin counter too. Kept as a policy switch: it lets an
	// attacker who completes one legitimate login cleanse the distributed
	// signal, so operators may want to turn it off.
	ResetClearsGlobal bool
}

type attemptKey struct {
	email  string
	origin string
}

type attemptRecord struct {
	failures    []time.Time
	lockedUntil time.Time
}

// LoginAttemptTracker counts failed logins per (email, origin) pair in a
// sliding window and derives lockout state from them. A separate per-email
// window aggregates failures across all origins for distributed-attack
// detection. All state is in-process; expiry is lazy, computed from stored
// timestamps on every read and write.
type LoginAttemptTracker struct {
	mu      sync.Mutex
	records map[attemptKey]*attemptRecord
	global  map[string][]time.Time
	config  AttemptTrackerConfig
	now     func() time.Time
	logger  *slog.Logger
}

// NewLoginAttemptTracker creates a tracker with the given policy
func NewLoginAttemptTracker(config AttemptTrackerConfig, logger *slog.Logger) *LoginAttemptTracker {
	return &LoginAttemptTracker{
		records: make(map[attemptKey]*attemptRecord),
		global:  make(map[string][]time.Time),
		config:  config,
		now:     time.Now,
		logger:  logger,
	}
}

// RecordFailedAttempt appends a failure for the pair and the email's global
// window. Reaching MaxAttempts in-window sets the lockout; the caller decides
// what to do with the resulting state, nothing is rejected here.
func (t *LoginAttemptTracker) RecordFailedAttempt(email, origin string) {
	now := t.now()
	key := attemptKey{email: email, origin: origin}

	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[key]
	if !ok {
		rec = &attemptRecord{}
		t.records[key] = rec
	}

	rec.failures = pruneWindow(rec.failures, now, t.config.AttemptWindow)
	rec.failures = append(rec.failures, now)
	t.global[email] = append(pruneWindow(t.global[email], now, t.config.AttemptWindow), now)

	if len(rec.failures) >= t.config.MaxAttempts {
		rec.lockedUntil = now.Add(t.config.LockoutDuration)
		t.logger.Warn("account locked after repeated failures",
			slog.String("email", email),
			slog.String("origin", origin),
			slog.Time("locked_until", rec.lockedUntil))
	}
}

// IsLocked reports whether the pair is currently locked out
func (t *LoginAttemptTracker) IsLocked(email, origin string) bool {
	return t.GetLockoutTime(email, origin) > 0
}

// GetLockoutTime returns the remaining lockout duration, 0 if not locked
func (t *LoginAttemptTracker) GetLockoutTime(email, origin string) time.Duration {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[attemptKey{email: email, origin: origin}]
	if !ok {
		return 0
	}

	if remaining := rec.lockedUntil.Sub(now); remaining > 0 {
		return remaining
	}

	// Expired lockouts are treated as absent from here on
	rec.lockedUntil = time.Time{}
	return 0
}

// GetRemainingAttempts returns how many more failures the pair can absorb
// before lockout, never negative
func (t *LoginAttemptTracker) GetRemainingAttempts(email, origin string) int {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[attemptKey{email: email, origin: origin}]
	if !ok {
		return t.config.MaxAttempts
	}

	rec.failures = pruneWindow(rec.failures, now, t.config.AttemptWindow)
	remaining := t.config.MaxAttempts - len(rec.failures)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ResetAttempts clears the pair's record after a successful authentication.
// With ResetClearsGlobal it also clears the email's cross-origin counter, so
// a legitimate login from one origin clears suspicion accrued from others.
func (t *LoginAttemptTracker) ResetAttempts(email, origin string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.records, attemptKey{email: email, origin: origin})
	if t.config.ResetClearsGlobal {
		delete(t.global, email)
	}
}

// IsDistributedAttack reports whether the email's in-window failures across
// all origins reached the threshold, independent of any per-origin lockout.
// Callers use it to escalate, e.g. force a second factor.
func (t *LoginAttemptTracker) IsDistributedAttack(email string) bool {
	return t.globalCount(email) >= t.config.DistributedAttackThreshold
}

// GetGlobalAttemptsForEmail returns the raw cross-origin in-window count
func (t *LoginAttemptTracker) GetGlobalAttemptsForEmail(email string) int {
	return t.globalCount(email)
}

func (t *LoginAttemptTracker) globalCount(email string) int {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	pruned := pruneWindow(t.global[email], now, t.config.AttemptWindow)
	if len(pruned) == 0 {
		delete(t.global, email)
	} else {
		t.global[email] = pruned
	}
	return len(pruned)
}

// PurgeStale drops records whose failures have all aged out and whose lockout
// has expired. Keeps long-running processes from accumulating dead keys.
func (t *LoginAttemptTracker) PurgeStale() int {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for key, rec := range t.records {
		rec.failures = pruneWindow(rec.failures, now, t.config.AttemptWindow)
		if len(rec.failures) == 0 && !rec.lockedUntil.After(now) {
			delete(t.records, key)
			removed++
		}
	}
	for email, failures := range t.global {
		if pruned := pruneWindow(failures, now, t.config.AttemptWindow); len(pruned) == 0 {
			delete(t.global, email)
		} else {
			t.global[email] = pruned
		}
	}
	return removed
}

// pruneWindow drops timestamps older than window before now. Timestamps are
// appended in order, so the suffix starting at the first in-window entry is
// the surviving set.
func pruneWindow(stamps []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	for i, ts := range stamps {
		if ts.After(cutoff) {
			return stamps[i:]
		}
	}
	return stamps[:0]
}
