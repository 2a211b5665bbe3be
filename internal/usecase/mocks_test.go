package usecase

import (
	"errors"

	"github.com/seeother/scrollguard/internal/domain"
)

// mockRuleStore implements domain.RuleStore for testing
type mockRuleStore struct {
	rules     map[string][]domain.GuardRule
	getErr    error
	getCalls  int
	lastQuery string
}

func newMockRuleStore() *mockRuleStore {
	return &mockRuleStore{rules: make(map[string][]domain.GuardRule)}
}

func (m *mockRuleStore) Insert(rule domain.GuardRule) error {
	m.rules[rule.PackageID] = append(m.rules[rule.PackageID], rule)
	return nil
}

func (m *mockRuleStore) InsertAll(rules []domain.GuardRule) error {
	for _, r := range rules {
		m.Insert(r)
	}
	return nil
}

func (m *mockRuleStore) Update(rule domain.GuardRule) error { return nil }

func (m *mockRuleStore) DeleteAll() error {
	m.rules = make(map[string][]domain.GuardRule)
	return nil
}

func (m *mockRuleStore) GetRulesFor(packageID string) ([]domain.GuardRule, error) {
	m.getCalls++
	m.lastQuery = packageID
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.rules[packageID], nil
}

func (m *mockRuleStore) GetAllRules() ([]domain.GuardRule, error) {
	var all []domain.GuardRule
	for _, rs := range m.rules {
		all = append(all, rs...)
	}
	return all, nil
}

func (m *mockRuleStore) SetEnabledFor(packageID string, enabled bool) error { return nil }
func (m *mockRuleStore) SetThresholdFor(packageID string, t int) error      { return nil }
func (m *mockRuleStore) SetIntervalFor(packageID string, ms int64) error    { return nil }

// mockAppStore implements domain.MonitoredAppStore for testing
type mockAppStore struct {
	apps   map[string]*domain.MonitoredApp
	getErr error
}

func newMockAppStore() *mockAppStore {
	return &mockAppStore{apps: make(map[string]*domain.MonitoredApp)}
}

func (m *mockAppStore) GetByPackage(packageID string) (*domain.MonitoredApp, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.apps[packageID], nil
}

func (m *mockAppStore) InsertApp(app domain.MonitoredApp) error {
	copied := app
	m.apps[app.PackageID] = &copied
	return nil
}

func (m *mockAppStore) GetAllApps() ([]domain.MonitoredApp, error) {
	var all []domain.MonitoredApp
	for _, a := range m.apps {
		all = append(all, *a)
	}
	return all, nil
}

// mockSettings implements domain.SettingsStore for testing
type mockSettings struct {
	paused       bool
	doNotDisturb bool
	videoLimit   int
	appOpenLimit int
}

func newMockSettings() *mockSettings {
	return &mockSettings{videoLimit: 10, appOpenLimit: 10}
}

func (m *mockSettings) PauseActive() bool          { return m.paused }
func (m *mockSettings) DoNotDisturbActive() bool   { return m.doNotDisturb }
func (m *mockSettings) ShortVideoThreshold() int   { return m.videoLimit }
func (m *mockSettings) MonitoredAppThreshold() int { return m.appOpenLimit }

// mockStatsStore is an in-memory domain.StatsStore
type mockStatsStore struct {
	ints    map[string]int
	strings map[string]string
	failAll bool
}

func newMockStatsStore() *mockStatsStore {
	return &mockStatsStore{
		ints:    make(map[string]int),
		strings: make(map[string]string),
	}
}

var errStoreDown = errors.New("store unavailable")

func (m *mockStatsStore) GetInt(key string) (int, error) {
	if m.failAll {
		return 0, errStoreDown
	}
	return m.ints[key], nil
}

func (m *mockStatsStore) SetInt(key string, v int) error {
	if m.failAll {
		return errStoreDown
	}
	m.ints[key] = v
	return nil
}

func (m *mockStatsStore) GetString(key string) (string, error) {
	if m.failAll {
		return "", errStoreDown
	}
	return m.strings[key], nil
}

func (m *mockStatsStore) SetString(key, v string) error {
	if m.failAll {
		return errStoreDown
	}
	m.strings[key] = v
	return nil
}

// mockPresenter records presentation calls
type mockPresenter struct {
	interventions int
	summaries     []domain.VideoStatistics
}

func (m *mockPresenter) ShowIntervention() { m.interventions++ }

func (m *mockPresenter) ShowStatisticsSummary(stats domain.VideoStatistics) {
	m.summaries = append(m.summaries, stats)
}

// fakeNode / fakeTree implement the UI tree contract with optional
// per-node failures
type fakeNode struct {
	text     string
	elemID   string
	children []*fakeNode

	textErr     error
	elemErr     error
	childrenErr error
}

func (n *fakeNode) Text() (string, error) {
	return n.text, n.textErr
}

func (n *fakeNode) ElementID() (string, error) {
	return n.elemID, n.elemErr
}

func (n *fakeNode) Children() ([]domain.UINode, error) {
	if n.childrenErr != nil {
		return nil, n.childrenErr
	}
	out := make([]domain.UINode, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out, nil
}

type fakeTree struct {
	root    *fakeNode
	rootErr error
	byID    map[string][]*fakeNode
	findErr error
}

func newFakeTree(root *fakeNode) *fakeTree {
	t := &fakeTree{root: root, byID: make(map[string][]*fakeNode)}
	t.index(root)
	return t
}

func (t *fakeTree) index(n *fakeNode) {
	if n == nil {
		return
	}
	if n.elemID != "" {
		t.byID[n.elemID] = append(t.byID[n.elemID], n)
	}
	for _, c := range n.children {
		t.index(c)
	}
}

func (t *fakeTree) Root() (domain.UINode, error) {
	if t.rootErr != nil {
		return nil, t.rootErr
	}
	if t.root == nil {
		return nil, nil
	}
	return t.root, nil
}

func (t *fakeTree) FindByElementID(id string) ([]domain.UINode, error) {
	if t.findErr != nil {
		return nil, t.findErr
	}
	matches := t.byID[id]
	out := make([]domain.UINode, len(matches))
	for i, m := range matches {
		out[i] = m
	}
	return out, nil
}
