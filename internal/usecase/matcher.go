// Package usecase contains the guard detection engine: rule matching,
// identity extraction, session tracking, statistics, and the gate that
// ties them together.
package usecase

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/seeother/scrollguard/internal/domain"
)

// RuleMatchEngine caches the rule set of the single currently-loaded
// package and evaluates incoming events against it. The cache holds at
// most one package at a time; switching packages replaces it wholesale
// and notifies the session so identity state never leaks across apps.
type RuleMatchEngine struct {
	store  domain.RuleStore
	logger *zap.Logger

	// onSwitch runs after the cache is replaced with a different
	// package's rules. Wired to GuardSession.Reset by the gate.
	onSwitch func(packageID string)

	mu        sync.Mutex
	packageID string
	rules     []domain.GuardRule
}

// NewRuleMatchEngine creates an engine backed by the given store.
// onSwitch may be nil.
func NewRuleMatchEngine(store domain.RuleStore, onSwitch func(packageID string), logger *zap.Logger) *RuleMatchEngine {
	return &RuleMatchEngine{
		store:    store,
		onSwitch: onSwitch,
		logger:   logger,
	}
}

// LoadRulesFor makes packageID the cached package. It is a no-op when
// packageID is already loaded. A store-read failure leaves the previous
// cache intact so the next invocation retries; the caller treats the
// returned error as "no match for this call".
func (e *RuleMatchEngine) LoadRulesFor(packageID string) error {
	if packageID == "" {
		return fmt.Errorf("empty package id")
	}

	e.mu.Lock()
	if packageID == e.packageID {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	// Store read happens outside the cache lock; the swap below
	// re-checks so a concurrent load of the same package is harmless.
	rules, err := e.store.GetRulesFor(packageID)
	if err != nil {
		e.logger.Warn("rule store read failed, keeping previous cache",
			zap.String("package", packageID),
			zap.Error(err))
		return fmt.Errorf("load rules for %s: %w", packageID, err)
	}

	e.mu.Lock()
	e.packageID = packageID
	e.rules = rules
	e.mu.Unlock()

	if e.onSwitch != nil {
		e.onSwitch(packageID)
	}

	e.logger.Debug("loaded guard rules",
		zap.String("package", packageID),
		zap.Int("count", len(rules)))
	return nil
}

// Matches scans the cached rules in stored order and returns a copy of
// the first enabled rule matching the event kind and screen, or nil.
func (e *RuleMatchEngine) Matches(kind domain.EventKind, screenID string) *domain.GuardRule {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.rules {
		r := &e.rules[i]
		if !r.Enabled {
			continue
		}
		if r.MatchesEvent(kind) && r.MatchesScreen(screenID) {
			match := *r
			return &match
		}
	}
	return nil
}

// CachedPackage returns the package whose rules are currently cached,
// empty if none.
func (e *RuleMatchEngine) CachedPackage() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.packageID
}

// Refresh drops the cache if it holds packageID, forcing a store
// re-read on next access. Used after external rule edits.
func (e *RuleMatchEngine) Refresh(packageID string) {
	e.mu.Lock()
	if packageID != e.packageID {
		e.mu.Unlock()
		return
	}
	e.packageID = ""
	e.rules = nil
	e.mu.Unlock()

	if e.onSwitch != nil {
		e.onSwitch(packageID)
	}
}

// Destroy clears all cached state. Safe to call repeatedly.
func (e *RuleMatchEngine) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.packageID = ""
	e.rules = nil
}
