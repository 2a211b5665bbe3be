package usecase

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seeother/scrollguard/internal/domain"
)

// Statistics store keys.
const (
	keyVideoCountToday    = "short_video_count_today"
	keyVideoCountMonth    = "short_video_count_month"
	keyMonitoredOpenCount = "monitored_app_open_count"
	keyLastVideoCheckDate = "last_video_check_date"
	keyLastMonthCheck     = "last_month_check"
)

// SecondsPerItem is the assumed viewing time of one short-video item,
// used to convert counts into time labels.
const SecondsPerItem = 30

// StatisticsTracker maintains day- and month-scoped counters with
// automatic rollover. Counters live in memory and are persisted through
// the stats store off the event path; a crash loses at most the
// unsubmitted tail, which is acceptable for engagement heuristics.
type StatisticsTracker struct {
	store    domain.StatsStore
	settings domain.SettingsStore
	runner   domain.TaskRunner
	logger   *zap.Logger
	now      func() time.Time

	mu             sync.Mutex
	dayKey         string
	monthKey       string
	todayCount     int
	monthCount     int
	monitoredOpens int
}

// NewStatisticsTracker loads persisted counters and performs an initial
// rollover check. Store read failures start the counters at zero.
func NewStatisticsTracker(store domain.StatsStore, settings domain.SettingsStore, runner domain.TaskRunner, logger *zap.Logger) *StatisticsTracker {
	t := &StatisticsTracker{
		store:    store,
		settings: settings,
		runner:   runner,
		logger:   logger,
		now:      time.Now,
	}
	t.load()
	t.mu.Lock()
	t.checkRolloverLocked()
	t.mu.Unlock()
	return t
}

func (t *StatisticsTracker) load() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dayKey = t.getString(keyLastVideoCheckDate)
	t.monthKey = t.getString(keyLastMonthCheck)
	t.todayCount = t.getInt(keyVideoCountToday)
	t.monthCount = t.getInt(keyVideoCountMonth)
	t.monitoredOpens = t.getInt(keyMonitoredOpenCount)
}

func (t *StatisticsTracker) getString(key string) string {
	v, err := t.store.GetString(key)
	if err != nil {
		t.logger.Warn("stats store read failed", zap.String("key", key), zap.Error(err))
		return ""
	}
	return v
}

func (t *StatisticsTracker) putString(key, value string) {
	if err := t.store.SetString(key, value); err != nil {
		t.logger.Warn("stats store write failed", zap.String("key", key), zap.Error(err))
	}
}

func (t *StatisticsTracker) putInt(key string, value int) {
	if err := t.store.SetInt(key, value); err != nil {
		t.logger.Warn("stats store write failed", zap.String("key", key), zap.Error(err))
	}
}

func (t *StatisticsTracker) getInt(key string) int {
	v, err := t.store.GetInt(key)
	if err != nil {
		t.logger.Warn("stats store read failed", zap.String("key", key), zap.Error(err))
		return 0
	}
	return v
}

// CheckRollover resets counters whose stored day/month key no longer
// matches the current date. It runs before every read or increment so
// callers never reason about staleness themselves.
func (t *StatisticsTracker) CheckRollover() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.checkRolloverLocked()
}

func (t *StatisticsTracker) checkRolloverLocked() {
	now := t.now()
	day := now.Format("2006-01-02")
	month := now.Format("2006-01")

	if day != t.dayKey {
		t.todayCount = 0
		t.dayKey = day
		t.persist(func() {
			t.putInt(keyVideoCountToday, 0)
			t.putString(keyLastVideoCheckDate, day)
		})
		t.logger.Debug("daily counters reset", zap.String("day", day))
	}

	if month != t.monthKey {
		t.monthCount = 0
		t.monitoredOpens = 0
		t.monthKey = month
		t.persist(func() {
			t.putInt(keyVideoCountMonth, 0)
			t.putInt(keyMonitoredOpenCount, 0)
			t.putString(keyLastMonthCheck, month)
		})
		t.logger.Debug("monthly counters reset", zap.String("month", month))
	}
}

// persist runs the write off the event path when a runner is wired,
// synchronously otherwise (tests, CLI one-shots).
func (t *StatisticsTracker) persist(write func()) {
	if t.runner != nil {
		t.runner.Submit(write)
		return
	}
	write()
}

// IncrementShortVideoCount bumps both day and month counters and
// reports whether the month counter landed on an exact multiple of the
// configured monthly threshold. The return fires periodically, not
// only once per month.
func (t *StatisticsTracker) IncrementShortVideoCount() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.checkRolloverLocked()

	t.todayCount++
	t.monthCount++
	today, month := t.todayCount, t.monthCount
	t.persist(func() {
		t.putInt(keyVideoCountToday, today)
		t.putInt(keyVideoCountMonth, month)
	})

	threshold := t.settings.ShortVideoThreshold()
	if threshold < 1 {
		return false
	}
	return month%threshold == 0
}

// IncrementMonitoredAppOpenCount is the analogue for opens of guarded
// applications, against its own threshold.
func (t *StatisticsTracker) IncrementMonitoredAppOpenCount() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.checkRolloverLocked()

	t.monitoredOpens++
	opens := t.monitoredOpens
	t.persist(func() {
		t.putInt(keyMonitoredOpenCount, opens)
	})

	threshold := t.settings.MonitoredAppThreshold()
	if threshold < 1 {
		return false
	}
	return opens%threshold == 0
}

// MonitoredAppOpenCount returns the current open counter.
func (t *StatisticsTracker) MonitoredAppOpenCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.checkRolloverLocked()
	return t.monitoredOpens
}

// VideoStatistics returns the current counters with time labels.
func (t *StatisticsTracker) VideoStatistics() domain.VideoStatistics {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.checkRolloverLocked()

	return domain.VideoStatistics{
		TodayCount: t.todayCount,
		MonthCount: t.monthCount,
		TodayTime:  FormatTimeFromCount(t.todayCount),
		MonthTime:  FormatTimeFromCount(t.monthCount),
	}
}

// FormatTimeFromCount converts an item count into a time label assuming
// SecondsPerItem per item: "2h35min", "5min" or "30s".
func FormatTimeFromCount(count int) string {
	totalSeconds := count * SecondsPerItem
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh%dmin", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dmin", minutes)
	default:
		return fmt.Sprintf("%ds", totalSeconds)
	}
}
