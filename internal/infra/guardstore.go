package infra

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/mutecomm/go-sqlcipher/v4" // ensure sqlcipher driver is registered
	"go.uber.org/zap"

	"github.com/seeother/scrollguard/internal/domain"
)

const guardDBName = "guard.db"

// GuardStore is the SQLCipher-encrypted database holding guard rules,
// monitored apps and the statistics key/value table. Reads are
// synchronous; writes are offloaded to the task runner when one is
// wired, so the event path never blocks on durable storage.
type GuardStore struct {
	db     *sql.DB
	dbPath string
	runner domain.TaskRunner
	logger *zap.Logger
}

// NewGuardStore opens (or creates) the encrypted database. The key is
// the SQLCipher passphrase, hex-encoded into the DSN. runner may be
// nil, in which case writes run synchronously (CLI one-shots, tests).
func NewGuardStore(dataDir string, key []byte, runner domain.TaskRunner, logger *zap.Logger) (*GuardStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, guardDBName)
	keyHex := hex.EncodeToString(key)

	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, keyHex)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open encrypted database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to encrypted database: %w", err)
	}

	s := &GuardStore{
		db:     db,
		dbPath: dbPath,
		runner: runner,
		logger: logger,
	}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *GuardStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS guard_rules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		package_id TEXT NOT NULL,
		event_kind TEXT NOT NULL,
		screen_id TEXT NOT NULL DEFAULT '',
		element_id TEXT NOT NULL DEFAULT '',
		use_symbol_match INTEGER NOT NULL DEFAULT 0,
		symbol TEXT NOT NULL DEFAULT '',
		enabled INTEGER NOT NULL DEFAULT 1,
		interval_ms INTEGER NOT NULL DEFAULT 0,
		scroll_threshold INTEGER NOT NULL DEFAULT 1,
		remark TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_guard_rules_package ON guard_rules (package_id);

	CREATE TABLE IF NOT EXISTS monitored_apps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		package_id TEXT NOT NULL UNIQUE,
		guard_enabled INTEGER NOT NULL DEFAULT 1,
		scroll_threshold INTEGER NOT NULL DEFAULT 0,
		interval_ms INTEGER NOT NULL DEFAULT 0,
		gray_mode INTEGER NOT NULL DEFAULT 0,
		high_contrast INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS statistics (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// write runs fn through the task runner when present. Errors from
// asynchronous writes are logged, not returned; the caller already
// moved on.
func (s *GuardStore) write(op string, fn func() error) error {
	if s.runner == nil {
		return fn()
	}
	s.runner.Submit(func() {
		if err := fn(); err != nil {
			s.logger.Warn("store write failed", zap.String("op", op), zap.Error(err))
		}
	})
	return nil
}

// --- domain.RuleStore implementation ---

func (s *GuardStore) Insert(rule domain.GuardRule) error {
	return s.write("insert rule", func() error {
		return s.insertOne(rule)
	})
}

func (s *GuardStore) insertOne(rule domain.GuardRule) error {
	if rule.ID > 0 {
		_, err := s.db.Exec(`
			INSERT OR REPLACE INTO guard_rules
			(id, package_id, event_kind, screen_id, element_id, use_symbol_match, symbol, enabled, interval_ms, scroll_threshold, remark)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rule.ID, rule.PackageID, rule.EventKind.Code(), rule.ScreenID, rule.ElementID,
			rule.UseSymbolMatch, rule.Symbol, rule.Enabled, rule.IntervalMs, rule.ScrollThreshold, rule.Remark)
		return err
	}
	_, err := s.db.Exec(`
		INSERT INTO guard_rules
		(package_id, event_kind, screen_id, element_id, use_symbol_match, symbol, enabled, interval_ms, scroll_threshold, remark)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.PackageID, rule.EventKind.Code(), rule.ScreenID, rule.ElementID,
		rule.UseSymbolMatch, rule.Symbol, rule.Enabled, rule.IntervalMs, rule.ScrollThreshold, rule.Remark)
	return err
}

func (s *GuardStore) InsertAll(rules []domain.GuardRule) error {
	return s.write("insert rules", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		for _, rule := range rules {
			if _, err := tx.Exec(`
				INSERT INTO guard_rules
				(package_id, event_kind, screen_id, element_id, use_symbol_match, symbol, enabled, interval_ms, scroll_threshold, remark)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				rule.PackageID, rule.EventKind.Code(), rule.ScreenID, rule.ElementID,
				rule.UseSymbolMatch, rule.Symbol, rule.Enabled, rule.IntervalMs, rule.ScrollThreshold, rule.Remark); err != nil {
				tx.Rollback()
				return err
			}
		}
		return tx.Commit()
	})
}

func (s *GuardStore) Update(rule domain.GuardRule) error {
	return s.write("update rule", func() error {
		_, err := s.db.Exec(`
			UPDATE guard_rules SET
			package_id = ?, event_kind = ?, screen_id = ?, element_id = ?,
			use_symbol_match = ?, symbol = ?, enabled = ?, interval_ms = ?, scroll_threshold = ?, remark = ?
			WHERE id = ?`,
			rule.PackageID, rule.EventKind.Code(), rule.ScreenID, rule.ElementID,
			rule.UseSymbolMatch, rule.Symbol, rule.Enabled, rule.IntervalMs, rule.ScrollThreshold, rule.Remark,
			rule.ID)
		return err
	})
}

func (s *GuardStore) DeleteAll() error {
	return s.write("delete rules", func() error {
		_, err := s.db.Exec(`DELETE FROM guard_rules`)
		return err
	})
}

const ruleColumns = `id, package_id, event_kind, screen_id, element_id, use_symbol_match, symbol, enabled, interval_ms, scroll_threshold, remark`

func (s *GuardStore) GetRulesFor(packageID string) ([]domain.GuardRule, error) {
	rows, err := s.db.Query(
		`SELECT `+ruleColumns+` FROM guard_rules WHERE package_id = ? ORDER BY id ASC`,
		packageID)
	if err != nil {
		return nil, fmt.Errorf("query rules for %s: %w", packageID, err)
	}
	defer rows.Close()
	return scanRules(rows)
}

func (s *GuardStore) GetAllRules() ([]domain.GuardRule, error) {
	rows, err := s.db.Query(
		`SELECT ` + ruleColumns + ` FROM guard_rules ORDER BY package_id ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query all rules: %w", err)
	}
	defer rows.Close()
	return scanRules(rows)
}

func scanRules(rows *sql.Rows) ([]domain.GuardRule, error) {
	var rules []domain.GuardRule
	for rows.Next() {
		var r domain.GuardRule
		var kind string
		if err := rows.Scan(&r.ID, &r.PackageID, &kind, &r.ScreenID, &r.ElementID,
			&r.UseSymbolMatch, &r.Symbol, &r.Enabled, &r.IntervalMs, &r.ScrollThreshold, &r.Remark); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		r.EventKind = domain.KindFromCode(kind)
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func (s *GuardStore) SetEnabledFor(packageID string, enabled bool) error {
	return s.write("set enabled", func() error {
		_, err := s.db.Exec(`UPDATE guard_rules SET enabled = ? WHERE package_id = ?`, enabled, packageID)
		return err
	})
}

func (s *GuardStore) SetThresholdFor(packageID string, threshold int) error {
	return s.write("set threshold", func() error {
		_, err := s.db.Exec(`UPDATE guard_rules SET scroll_threshold = ? WHERE package_id = ?`, threshold, packageID)
		return err
	})
}

func (s *GuardStore) SetIntervalFor(packageID string, intervalMs int64) error {
	return s.write("set interval", func() error {
		_, err := s.db.Exec(`UPDATE guard_rules SET interval_ms = ? WHERE package_id = ?`, intervalMs, packageID)
		return err
	})
}

// --- domain.MonitoredAppStore implementation ---

func (s *GuardStore) GetByPackage(packageID string) (*domain.MonitoredApp, error) {
	row := s.db.QueryRow(`
		SELECT id, package_id, guard_enabled, scroll_threshold, interval_ms, gray_mode, high_contrast
		FROM monitored_apps WHERE package_id = ?`, packageID)

	var app domain.MonitoredApp
	err := row.Scan(&app.ID, &app.PackageID, &app.GuardEnabled, &app.ScrollThreshold,
		&app.IntervalMs, &app.GrayMode, &app.HighContrast)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query monitored app %s: %w", packageID, err)
	}
	return &app, nil
}

func (s *GuardStore) InsertApp(app domain.MonitoredApp) error {
	return s.write("insert app", func() error {
		_, err := s.db.Exec(`
			INSERT OR REPLACE INTO monitored_apps
			(package_id, guard_enabled, scroll_threshold, interval_ms, gray_mode, high_contrast)
			VALUES (?, ?, ?, ?, ?, ?)`,
			app.PackageID, app.GuardEnabled, app.ScrollThreshold, app.IntervalMs, app.GrayMode, app.HighContrast)
		return err
	})
}

func (s *GuardStore) GetAllApps() ([]domain.MonitoredApp, error) {
	rows, err := s.db.Query(`
		SELECT id, package_id, guard_enabled, scroll_threshold, interval_ms, gray_mode, high_contrast
		FROM monitored_apps ORDER BY package_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query monitored apps: %w", err)
	}
	defer rows.Close()

	var apps []domain.MonitoredApp
	for rows.Next() {
		var app domain.MonitoredApp
		if err := rows.Scan(&app.ID, &app.PackageID, &app.GuardEnabled, &app.ScrollThreshold,
			&app.IntervalMs, &app.GrayMode, &app.HighContrast); err != nil {
			return nil, fmt.Errorf("scan monitored app: %w", err)
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

// --- domain.StatsStore implementation ---

func (s *GuardStore) GetInt(key string) (int, error) {
	v, err := s.GetString(key)
	if err != nil || v == "" {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("statistics value %q for %s: %w", v, key, err)
	}
	return n, nil
}

func (s *GuardStore) SetInt(key string, value int) error {
	return s.SetString(key, strconv.Itoa(value))
}

func (s *GuardStore) GetString(key string) (string, error) {
	row := s.db.QueryRow(`SELECT value FROM statistics WHERE key = ?`, key)
	var v string
	err := row.Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query statistic %s: %w", key, err)
	}
	return v, nil
}

func (s *GuardStore) SetString(key, value string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO statistics (key, value) VALUES (?, ?)`, key, value)
	return err
}

// Close releases the database connection.
func (s *GuardStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path (for the status command).
func (s *GuardStore) Path() string {
	return s.dbPath
}

var (
	_ domain.RuleStore         = (*GuardStore)(nil)
	_ domain.MonitoredAppStore = (*GuardStore)(nil)
	_ domain.StatsStore        = (*GuardStore)(nil)
)
