package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/seeother/scrollguard/internal/domain"
)

// PauseIndefinite marks a pause that lasts until manually cleared.
const PauseIndefinite = -1

const (
	defaultShortVideoThreshold    = 10
	defaultMonitoredAppThreshold  = 10
	defaultDoNotDisturbStartClock = "22:00"
	defaultDoNotDisturbEndClock   = "08:00"
)

var weekdayKeys = [...]string{
	"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday",
}

// ViperSettings implements domain.SettingsStore on top of a viper
// instance. Pause-expiry evaluation happens here, lazily on read, so
// the engine only ever consumes a boolean fact. Malformed values fall
// back to documented defaults and are never surfaced as errors.
type ViperSettings struct {
	v      *viper.Viper
	logger *zap.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// LoadSettings builds the settings store from config.yaml (working
// directory, ~/.config/scrollguard, /etc/scrollguard) with
// SCROLLGUARD_* environment overrides. A missing config file is fine;
// defaults cover every key.
func LoadSettings(configPath string, logger *zap.Logger) (*ViperSettings, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/scrollguard")
		v.AddConfigPath("/etc/scrollguard")
	}

	v.SetEnvPrefix("SCROLLGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("socket_path", "/tmp/scrollguard.sock")
	v.SetDefault("pause_until_timestamp", 0)
	v.SetDefault("short_video_threshold", defaultShortVideoThreshold)
	v.SetDefault("monitored_app_threshold", defaultMonitoredAppThreshold)
	for _, day := range weekdayKeys {
		v.SetDefault("dnd."+day+".enabled", false)
		v.SetDefault("dnd."+day+".start", defaultDoNotDisturbStartClock)
		v.SetDefault("dnd."+day+".end", defaultDoNotDisturbEndClock)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.Info("config file not found, using defaults")
		} else {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return &ViperSettings{v: v, logger: logger, now: time.Now}, nil
}

// DataDir returns the directory holding the encrypted database and key.
func (s *ViperSettings) DataDir() string {
	return s.v.GetString("data_dir")
}

// SocketPath returns the event-source socket path.
func (s *ViperSettings) SocketPath() string {
	return s.v.GetString("socket_path")
}

// PauseActive reports whether interventions are paused: either an
// indefinite pause (-1) or a pause-until timestamp still in the
// future. An expired timestamp is cleared on read.
func (s *ViperSettings) PauseActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	until := s.v.GetInt64("pause_until_timestamp")
	switch {
	case until == PauseIndefinite:
		return true
	case until > 0:
		if s.now().UnixMilli() < until {
			return true
		}
		s.v.Set("pause_until_timestamp", int64(0))
		return false
	default:
		return false
	}
}

// SetPauseUntil installs a pause-until timestamp (Unix millis), or
// PauseIndefinite for a pause that only a manual clear ends.
func (s *ViperSettings) SetPauseUntil(timestamp int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Set("pause_until_timestamp", timestamp)
}

// ClearPause removes any active pause.
func (s *ViperSettings) ClearPause() {
	s.SetPauseUntil(0)
}

// DoNotDisturbActive reports whether the current moment falls inside
// today's configured do-not-disturb window. Windows may wrap past
// midnight (22:00-08:00). Malformed clock values deactivate the window.
func (s *ViperSettings) DoNotDisturbActive() bool {
	now := s.now()
	day := weekdayKeys[int(now.Weekday())]

	if !s.v.GetBool("dnd." + day + ".enabled") {
		return false
	}

	start, err := parseClock(s.v.GetString("dnd." + day + ".start"))
	if err != nil {
		s.logger.Warn("malformed do-not-disturb start, window inactive",
			zap.String("day", day), zap.Error(err))
		return false
	}
	end, err := parseClock(s.v.GetString("dnd." + day + ".end"))
	if err != nil {
		s.logger.Warn("malformed do-not-disturb end, window inactive",
			zap.String("day", day), zap.Error(err))
		return false
	}

	minute := now.Hour()*60 + now.Minute()
	if start > end {
		// Overnight window, e.g. 22:00-08:00.
		return minute >= start || minute <= end
	}
	return minute >= start && minute <= end
}

// ShortVideoThreshold returns the monthly video-count threshold.
func (s *ViperSettings) ShortVideoThreshold() int {
	return s.positiveInt("short_video_threshold", defaultShortVideoThreshold)
}

// MonitoredAppThreshold returns the monthly app-open threshold.
func (s *ViperSettings) MonitoredAppThreshold() int {
	return s.positiveInt("monitored_app_threshold", defaultMonitoredAppThreshold)
}

func (s *ViperSettings) positiveInt(key string, fallback int) int {
	n := s.v.GetInt(key)
	if n < 1 {
		return fallback
	}
	return n
}

// parseClock converts "HH:MM" into minutes since midnight.
func parseClock(clock string) (int, error) {
	parts := strings.Split(clock, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock %q", clock)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q: %w", clock, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q: %w", clock, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("clock %q out of range", clock)
	}
	return hour*60 + minute, nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".scrollguard"
	}
	return filepath.Join(home, ".local", "share", "scrollguard")
}

var _ domain.SettingsStore = (*ViperSettings)(nil)
