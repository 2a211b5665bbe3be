package usecase

import (
	"sync"

	"go.uber.org/zap"
)

// GuardSession turns a stream of matched observations for one foreground
// package into discrete trigger signals. Duplicate observations of the
// same item (multiple platform events per user scroll) collapse into the
// identity set, so thresholds count distinct content rather than raw
// events.
//
// Lock order when both are held: rule cache lock first, then the
// session lock. The engine never acquires them in the other direction.
type GuardSession struct {
	logger *zap.Logger

	mu            sync.Mutex
	packageID     string
	identities    map[string]struct{}
	lastHandledAt int64
	handled       bool
}

// NewGuardSession creates an empty session.
func NewGuardSession(logger *zap.Logger) *GuardSession {
	return &GuardSession{
		logger:     logger,
		identities: make(map[string]struct{}),
	}
}

// Observe applies one matched observation at time t (Unix millis) with
// the extracted identity. It returns true when the distinct-identity
// threshold is reached; the set is cleared on trigger so thresholds are
// repeatable, not one-shot.
func (s *GuardSession) Observe(t int64, identity string, intervalMs int64, threshold int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The first observation after a reset always lands; only then does
	// the interval apply.
	if s.handled && t-s.lastHandledAt < intervalMs {
		return false
	}
	s.handled = true
	s.lastHandledAt = t

	if identity != "" {
		s.identities[identity] = struct{}{}
	}

	if threshold < 1 {
		threshold = 1
	}
	if len(s.identities) >= threshold {
		s.logger.Debug("scroll threshold reached",
			zap.String("package", s.packageID),
			zap.Int("distinct", len(s.identities)),
			zap.Int("threshold", threshold))
		s.identities = make(map[string]struct{})
		return true
	}
	return false
}

// Reset starts an independent count for a new foreground package.
func (s *GuardSession) Reset(packageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packageID = packageID
	s.identities = make(map[string]struct{})
	s.lastHandledAt = 0
	s.handled = false
}

// Size returns the number of distinct identities accumulated so far.
func (s *GuardSession) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.identities)
}

// Teardown clears all session state. Racing readers see an empty
// session rather than freed structures; the session is reusable after.
func (s *GuardSession) Teardown() {
	s.Reset("")
}
