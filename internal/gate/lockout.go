package gate

import (
	"context"
	"errors"
	"time"

	"github.com/linkpage/server/internal/model"
	"github.com/linkpage/server/internal/repo"
)

const (
	// DefaultLockThreshold is the number of consecutive wrong PINs that locks a page
	DefaultLockThreshold = 5
	// DefaultLockDuration is how long a locked page refuses all attempts
	DefaultLockDuration = 15 * time.Minute
)

// AttemptOutcome is the result of evaluating one PIN attempt
type AttemptOutcome int

const (
	// AttemptMatch means the PIN matched and counters were reset
	AttemptMatch AttemptOutcome = iota
	// AttemptNoMatch means the PIN was wrong; Remaining attempts are reported
	AttemptNoMatch
	// AttemptLocked means the page refused the attempt without evaluating the PIN
	AttemptLocked
)

// AttemptResult carries the outcome of a single attempt
type AttemptResult struct {
	Outcome   AttemptOutcome
	Remaining int
}

// LockoutEngine wraps PIN verification with per-page failure counting and a
// temporary lock. All state lives in the page row; lock expiry is evaluated
// lazily against stored timestamps, so the engine itself holds nothing
// between requests.
type LockoutEngine struct {
	pages     repo.PageRepo
	threshold int
	lockFor   time.Duration
}

// NewLockoutEngine creates a lockout engine over the page repository
func NewLockoutEngine(pages repo.PageRepo, threshold int, lockFor time.Duration) *LockoutEngine {
	if threshold <= 0 {
		threshold = DefaultLockThreshold
	}
	if lockFor <= 0 {
		lockFor = DefaultLockDuration
	}
	return &LockoutEngine{pages: pages, threshold: threshold, lockFor: lockFor}
}

// Attempt evaluates one submitted PIN against an already-loaded page.
//
// While locked_until is in the future the PIN is not evaluated at all, so a
// correct guess during a lock cannot burn a success window. An expired lock is
// cleared (counters back to zero) before evaluation. The wrong-PIN path defers
// the increment-and-maybe-lock transition to a single conditional update in
// the repository; if that update matches no row, another request locked the
// page first and this attempt reports Locked.
func (e *LockoutEngine) Attempt(ctx context.Context, page model.ProtectedPage, pin string) (AttemptResult, error) {
	now := time.Now()
	if page.LockedUntil != nil {
		if page.LockedUntil.After(now) {
			return AttemptResult{Outcome: AttemptLocked}, nil
		}
		if err := e.pages.ClearExpiredLock(ctx, page.ID); err != nil {
			return AttemptResult{}, err
		}
		page.FailedAttempts = 0
		page.LockedUntil = nil
	}

	if CheckPin(page.PinHash, pin) {
		if err := e.pages.ResetLockout(ctx, page.ID); err != nil {
			return AttemptResult{}, err
		}
		return AttemptResult{Outcome: AttemptMatch}, nil
	}

	attempts, lockedUntil, err := e.pages.RecordFailure(ctx, page.ID, e.threshold, e.lockFor)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			// Lost the race against a concurrent locking attempt, or the page
			// vanished mid-flight. Either way: refuse.
			return AttemptResult{Outcome: AttemptLocked}, nil
		}
		return AttemptResult{}, err
	}
	if lockedUntil != nil && lockedUntil.After(now) {
		return AttemptResult{Outcome: AttemptLocked}, nil
	}
	remaining := e.threshold - attempts
	if remaining < 0 {
		remaining = 0
	}
	return AttemptResult{Outcome: AttemptNoMatch, Remaining: remaining}, nil
}

// Threshold returns the configured attempt budget
func (e *LockoutEngine) Threshold() int {
	return e.threshold
}
