package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seeother/scrollguard/internal/domain"
)

// fakeSource implements domain.EventSource over a plain channel.
type fakeSource struct {
	ch chan domain.UIEvent
}

func newFakeSource() *fakeSource {
	return &fakeSource{ch: make(chan domain.UIEvent, 16)}
}

func (f *fakeSource) Events() <-chan domain.UIEvent { return f.ch }
func (f *fakeSource) Close() error                  { close(f.ch); return nil }

type handlerCall struct {
	method    string
	kind      domain.EventKind
	packageID string
	screenID  string
	timestamp int64
}

// mockHandler records the calls the runner makes.
type mockHandler struct {
	calls         []handlerCall
	shouldProcess bool
	destroyed     int
}

func (m *mockHandler) ShouldProcess(kind domain.EventKind, packageID, screenID string) bool {
	m.calls = append(m.calls, handlerCall{method: "ShouldProcess", kind: kind, packageID: packageID, screenID: screenID})
	return m.shouldProcess
}

func (m *mockHandler) Process(kind domain.EventKind, packageID, screenID string, timestamp int64, tree domain.UITree) {
	m.calls = append(m.calls, handlerCall{method: "Process", kind: kind, packageID: packageID, screenID: screenID, timestamp: timestamp})
}

func (m *mockHandler) HandleForegroundChange(packageID string) {
	m.calls = append(m.calls, handlerCall{method: "HandleForegroundChange", packageID: packageID})
}

func (m *mockHandler) Destroy() { m.destroyed++ }

// stubTree satisfies domain.UITree for events that carry a snapshot.
type stubTree struct{}

func (stubTree) Root() (domain.UINode, error)                    { return nil, nil }
func (stubTree) FindByElementID(string) ([]domain.UINode, error) { return nil, nil }

func runUntilClosed(t *testing.T, handler *mockHandler, source *fakeSource) {
	t.Helper()
	runner := NewRunner(handler, source, zap.NewNop())
	done := make(chan error, 1)
	go func() { done <- runner.Run(context.Background()) }()

	source.Close()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop on source close")
	}
}

func TestRunner_DispatchesForegroundChange(t *testing.T) {
	source := newFakeSource()
	handler := &mockHandler{}
	source.ch <- domain.UIEvent{Kind: domain.EventForegroundChanged, PackageID: "com.example.feed"}

	runUntilClosed(t, handler, source)

	require.Len(t, handler.calls, 1)
	assert.Equal(t, "HandleForegroundChange", handler.calls[0].method)
	assert.Equal(t, "com.example.feed", handler.calls[0].packageID)
}

func TestRunner_ProcessGatedByShouldProcess(t *testing.T) {
	source := newFakeSource()
	handler := &mockHandler{shouldProcess: false}
	source.ch <- domain.UIEvent{Kind: domain.EventScroll, PackageID: "com.example.feed", Tree: stubTree{}}

	runUntilClosed(t, handler, source)

	require.Len(t, handler.calls, 1)
	assert.Equal(t, "ShouldProcess", handler.calls[0].method)
}

func TestRunner_ProcessRunsWhenEligible(t *testing.T) {
	source := newFakeSource()
	handler := &mockHandler{shouldProcess: true}
	source.ch <- domain.UIEvent{
		Kind:      domain.EventContentChanged,
		PackageID: "com.example.feed",
		ScreenID:  "FeedActivity",
		Timestamp: 1700000000000,
		Tree:      stubTree{},
	}

	runUntilClosed(t, handler, source)

	require.Len(t, handler.calls, 2)
	assert.Equal(t, "ShouldProcess", handler.calls[0].method)
	assert.Equal(t, "Process", handler.calls[1].method)
	assert.Equal(t, "FeedActivity", handler.calls[1].screenID)
	assert.Equal(t, int64(1700000000000), handler.calls[1].timestamp, "event time reaches the handler")
}

func TestRunner_SkipsMatchedEventWithoutTree(t *testing.T) {
	source := newFakeSource()
	handler := &mockHandler{shouldProcess: true}
	source.ch <- domain.UIEvent{Kind: domain.EventScroll, PackageID: "com.example.feed"}

	runUntilClosed(t, handler, source)

	require.Len(t, handler.calls, 1, "no Process call without a snapshot")
	assert.Equal(t, "ShouldProcess", handler.calls[0].method)
}

func TestRunner_DestroyOnSourceClose(t *testing.T) {
	source := newFakeSource()
	handler := &mockHandler{}

	runUntilClosed(t, handler, source)
	assert.Equal(t, 1, handler.destroyed)
}

func TestRunner_StopsOnContextCancel(t *testing.T) {
	source := newFakeSource()
	handler := &mockHandler{}
	runner := NewRunner(handler, source, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop on cancel")
	}
	assert.Equal(t, 1, handler.destroyed)
}
