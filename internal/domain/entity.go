// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

// EventKind identifies the kind of UI-change event delivered by the
// platform event source.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventScroll
	EventContentChanged
	EventForegroundChanged
)

// Wire codes used by stores and the socket event source.
const (
	kindCodeScroll         = "S"
	kindCodeContentChanged = "C"
	kindCodeForeground     = "F"
)

// Code returns the single-letter wire/store code for the event kind.
func (k EventKind) Code() string {
	switch k {
	case EventScroll:
		return kindCodeScroll
	case EventContentChanged:
		return kindCodeContentChanged
	case EventForegroundChanged:
		return kindCodeForeground
	default:
		return ""
	}
}

func (k EventKind) String() string {
	switch k {
	case EventScroll:
		return "scroll"
	case EventContentChanged:
		return "content_changed"
	case EventForegroundChanged:
		return "foreground_changed"
	default:
		return "unknown"
	}
}

// KindFromCode parses a wire/store code back into an EventKind.
func KindFromCode(code string) EventKind {
	switch code {
	case kindCodeScroll:
		return EventScroll
	case kindCodeContentChanged:
		return EventContentChanged
	case kindCodeForeground:
		return EventForegroundChanged
	default:
		return EventUnknown
	}
}

// GuardRule is one detection rule for the infinite-scroll pattern.
// An empty ScreenID matches any screen. Identity extraction strategy:
// ElementID takes priority, then symbol matching, then the wall-clock
// fallback.
type GuardRule struct {
	ID              int64
	PackageID       string
	EventKind       EventKind
	ScreenID        string
	ElementID       string
	UseSymbolMatch  bool
	Symbol          string
	Enabled         bool
	IntervalMs      int64
	ScrollThreshold int
	Remark          string
}

// MatchesEvent reports whether the rule fires for the given event kind.
func (r *GuardRule) MatchesEvent(kind EventKind) bool {
	return r.EventKind == kind
}

// MatchesScreen reports whether the rule applies on the given screen.
// An empty ScreenID matches every screen.
func (r *GuardRule) MatchesScreen(screenID string) bool {
	return r.ScreenID == "" || r.ScreenID == screenID
}

// HasElementID reports whether the element-id extraction strategy applies.
func (r *GuardRule) HasElementID() bool {
	return r.ElementID != ""
}

// MonitoredApp is the per-application guard configuration.
// An application is eligible for guard processing iff a record exists
// with GuardEnabled set. ScrollThreshold and IntervalMs override the
// matched rule's values when positive. The display flags are carried for
// store compatibility and are not consulted by the engine.
type MonitoredApp struct {
	ID              int64
	PackageID       string
	GuardEnabled    bool
	ScrollThreshold int
	IntervalMs      int64
	GrayMode        bool
	HighContrast    bool
}

// UIEvent is one notification from the event source. Tree carries the
// UI snapshot for Scroll/ContentChanged events and may be nil.
// Timestamp is Unix milliseconds.
type UIEvent struct {
	Kind      EventKind
	PackageID string
	ScreenID  string
	Timestamp int64
	Tree      UITree
}

// VideoStatistics is the human-facing rollup of short-video counters.
type VideoStatistics struct {
	TodayCount int
	MonthCount int
	TodayTime  string
	MonthTime  string
}
