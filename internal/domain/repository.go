package domain

// RuleStore is the durable table of guard rules.
// Reads are synchronous; implementations may offload writes to a worker
// pool, so a write returning nil means "accepted", not "durable".
type RuleStore interface {
	// Insert adds or replaces a single rule.
	Insert(rule GuardRule) error

	// InsertAll adds or replaces rules in bulk.
	InsertAll(rules []GuardRule) error

	// Update replaces an existing rule by ID.
	Update(rule GuardRule) error

	// DeleteAll removes every rule.
	DeleteAll() error

	// GetRulesFor returns the rules for one package in natural store
	// order (package ascending, insertion order within a package).
	GetRulesFor(packageID string) ([]GuardRule, error)

	// GetAllRules returns every stored rule in natural store order.
	GetAllRules() ([]GuardRule, error)

	// SetEnabledFor flips the enabled flag on all rules of a package.
	SetEnabledFor(packageID string, enabled bool) error

	// SetThresholdFor updates the scroll threshold on all rules of a package.
	SetThresholdFor(packageID string, threshold int) error

	// SetIntervalFor updates the debounce interval on all rules of a package.
	SetIntervalFor(packageID string, intervalMs int64) error
}

// MonitoredAppStore holds per-application guard configuration.
type MonitoredAppStore interface {
	// GetByPackage returns the record for a package, or nil if none exists.
	GetByPackage(packageID string) (*MonitoredApp, error)

	// InsertApp adds or replaces a monitored app record.
	InsertApp(app MonitoredApp) error

	// GetAllApps returns every monitored app.
	GetAllApps() ([]MonitoredApp, error)
}

// StatsStore is the key/value persistence behind the statistics tracker.
type StatsStore interface {
	GetInt(key string) (int, error)
	SetInt(key string, value int) error
	GetString(key string) (string, error)
	SetString(key, value string) error
}

// SettingsStore supplies runtime configuration facts. Pause-expiry
// evaluation is the store's responsibility; the engine only consumes
// the resulting booleans.
type SettingsStore interface {
	// PauseActive reports whether interventions are currently paused,
	// either until a timestamp or indefinitely.
	PauseActive() bool

	// DoNotDisturbActive reports whether the current moment falls in a
	// configured do-not-disturb window.
	DoNotDisturbActive() bool

	// ShortVideoThreshold is the monthly count at which the statistics
	// summary is surfaced.
	ShortVideoThreshold() int

	// MonitoredAppThreshold is the analogous threshold for app opens.
	MonitoredAppThreshold() int
}

// Presenter is the presentation-layer boundary.
type Presenter interface {
	// ShowIntervention surfaces the look-away intervention.
	ShowIntervention()

	// ShowStatisticsSummary surfaces the periodic usage summary.
	ShowStatisticsSummary(stats VideoStatistics)
}

// UINode is a borrowed reference into a UI tree snapshot. Nodes are
// valid only for the duration of one Process call; the engine never
// retains them. Accessors may fail transiently on a per-node basis.
type UINode interface {
	// Text returns the node's visible text, empty if none.
	Text() (string, error)

	// ElementID returns the node's stable element identifier, empty if none.
	ElementID() (string, error)

	// Children returns the node's direct children.
	Children() ([]UINode, error)
}

// UITree is a read-only, snapshot-consistent view of the current screen.
type UITree interface {
	// Root returns the tree root.
	Root() (UINode, error)

	// FindByElementID returns all nodes with the given element id.
	// Implementations index by id, so this is cheap relative to tree size.
	FindByElementID(id string) ([]UINode, error)
}

// EventSource delivers foreground-window and UI-change notifications.
type EventSource interface {
	// Events returns the delivery channel. The channel is closed when
	// the source shuts down.
	Events() <-chan UIEvent

	// Close stops delivery and releases the source.
	Close() error
}

// TaskRunner executes fire-and-forget work off the event-processing
// path. Implementation: fixed-size worker pool in infra.
type TaskRunner interface {
	Submit(task func())
}
