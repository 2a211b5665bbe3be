package usecase

import (
	"time"

	"go.uber.org/zap"

	"github.com/seeother/scrollguard/internal/domain"
)

// GuardGate is the single entry point consumed by the event source. It
// wraps the match engine, the extractor and the session, applies
// pause/do-not-disturb gating from the settings store, and emits
// intervention signals to the presentation layer.
//
// All collaborators are injected at construction; there is no hidden
// global state, which keeps tests deterministic with mock stores.
type GuardGate struct {
	engine    *RuleMatchEngine
	extractor *AuthorExtractor
	session   *GuardSession
	apps      domain.MonitoredAppStore
	settings  domain.SettingsStore
	stats     *StatisticsTracker
	presenter domain.Presenter
	logger    *zap.Logger
	now       func() time.Time
}

// NewGuardGate wires the detection engine together. The match engine's
// package-switch hook resets the session so scroll counts never leak
// between applications.
func NewGuardGate(
	rules domain.RuleStore,
	apps domain.MonitoredAppStore,
	settings domain.SettingsStore,
	stats *StatisticsTracker,
	presenter domain.Presenter,
	logger *zap.Logger,
) *GuardGate {
	session := NewGuardSession(logger)
	engine := NewRuleMatchEngine(rules, session.Reset, logger)

	return &GuardGate{
		engine:    engine,
		extractor: NewAuthorExtractor(logger),
		session:   session,
		apps:      apps,
		settings:  settings,
		stats:     stats,
		presenter: presenter,
		logger:    logger,
		now:       time.Now,
	}
}

// guardedApp returns the monitored-app record when the package is
// eligible for guard processing, nil otherwise. Store failures degrade
// to "not eligible" for this call.
func (g *GuardGate) guardedApp(packageID string) *domain.MonitoredApp {
	if packageID == "" {
		return nil
	}
	app, err := g.apps.GetByPackage(packageID)
	if err != nil {
		g.logger.Warn("monitored-app lookup failed",
			zap.String("package", packageID),
			zap.Error(err))
		return nil
	}
	if app == nil || !app.GuardEnabled {
		return nil
	}
	return app
}

// ShouldProcess is the cheap gate: it reports whether any enabled rule
// of a guarded package matches the event, loading the package's rules
// into the cache on the way.
func (g *GuardGate) ShouldProcess(kind domain.EventKind, packageID, screenID string) bool {
	if g.guardedApp(packageID) == nil {
		return false
	}
	if err := g.engine.LoadRulesFor(packageID); err != nil {
		return false
	}
	return g.engine.Matches(kind, screenID) != nil
}

// Process runs the full detection pipeline for one event. Guard
// eligibility is re-checked defensively, the first matching rule wins,
// and a threshold trigger records a view and surfaces the intervention
// unless pause or a do-not-disturb window suppresses it. The counting
// machinery runs regardless of suppression, so pausing never saves up
// a trigger for later.
//
// timestamp is the event's Unix-millisecond time as reported by the
// source; it drives the debounce so bursts are judged by when they
// happened, not when they arrived. Zero falls back to arrival time.
func (g *GuardGate) Process(kind domain.EventKind, packageID, screenID string, timestamp int64, tree domain.UITree) {
	if tree == nil {
		return
	}

	app := g.guardedApp(packageID)
	if app == nil {
		return
	}
	if err := g.engine.LoadRulesFor(packageID); err != nil {
		return
	}

	rule := g.engine.Matches(kind, screenID)
	if rule == nil {
		return
	}

	interval := rule.IntervalMs
	if app.IntervalMs > 0 {
		interval = app.IntervalMs
	}
	threshold := rule.ScrollThreshold
	if app.ScrollThreshold > 0 {
		threshold = app.ScrollThreshold
	}

	if timestamp == 0 {
		timestamp = g.now().UnixMilli()
	}

	identity := g.extractor.Extract(rule, tree)
	triggered := g.session.Observe(timestamp, identity, interval, threshold)
	if !triggered {
		return
	}

	g.logger.Info("scroll threshold trigger",
		zap.String("package", packageID),
		zap.String("screen", screenID),
		zap.Int("threshold", threshold))

	if g.stats.IncrementShortVideoCount() {
		g.presenter.ShowStatisticsSummary(g.stats.VideoStatistics())
	}

	switch {
	case g.settings.PauseActive():
		g.logger.Debug("intervention suppressed by pause",
			zap.String("package", packageID))
	case g.settings.DoNotDisturbActive():
		g.logger.Debug("intervention suppressed by do-not-disturb window",
			zap.String("package", packageID))
	default:
		g.presenter.ShowIntervention()
	}
}

// HandleForegroundChange invalidates per-package session state when the
// foreground application changes and counts opens of guarded apps.
func (g *GuardGate) HandleForegroundChange(packageID string) {
	g.session.Reset(packageID)

	if g.guardedApp(packageID) == nil {
		return
	}
	if g.stats.IncrementMonitoredAppOpenCount() {
		g.logger.Info("monitored-app open threshold crossed",
			zap.String("package", packageID),
			zap.Int("opens", g.stats.MonitoredAppOpenCount()))
	}
}

// Refresh forces the rule cache for packageID to reload from the store
// on next access. Used after external rule edits.
func (g *GuardGate) Refresh(packageID string) {
	g.engine.Refresh(packageID)
}

// Destroy releases all in-memory session and cache state. Idempotent,
// and safe to call concurrently with an in-flight Process: state is
// emptied rather than freed out from under a racing reader.
func (g *GuardGate) Destroy() {
	g.engine.Destroy()
	g.session.Teardown()
}
