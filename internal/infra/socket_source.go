package infra

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/seeother/scrollguard/internal/domain"
)

// wireEvent is one line of the socket protocol: a JSON object with the
// single-letter event code, the package/screen identifiers, a Unix
// millisecond timestamp and an optional UI-tree snapshot.
type wireEvent struct {
	Kind      string    `json:"kind"`
	PackageID string    `json:"package"`
	ScreenID  string    `json:"screen,omitempty"`
	Timestamp int64     `json:"ts"`
	Tree      *TreeNode `json:"tree,omitempty"`
}

// SocketEventSource implements domain.EventSource over a Unix socket.
// Each accepted connection streams newline-delimited JSON events; the
// bridge process on the device side writes one line per platform
// notification. Malformed lines are logged and skipped, never fatal.
type SocketEventSource struct {
	listener net.Listener
	events   chan domain.UIEvent
	done     chan struct{}
	logger   *zap.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewSocketEventSource listens on socketPath, replacing a stale socket
// file from a previous run.
func NewSocketEventSource(socketPath string, logger *zap.Logger) (*SocketEventSource, error) {
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", socketPath, err)
	}

	s := &SocketEventSource{
		listener: listener,
		events:   make(chan domain.UIEvent, 128),
		done:     make(chan struct{}),
		logger:   logger,
	}
	s.wg.Add(1)
	go s.acceptLoop()
	return s, nil
}

func (s *SocketEventSource) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.isClosed() {
				return
			}
			s.logger.Warn("accept failed", zap.Error(err))
			continue
		}
		s.wg.Add(1)
		go s.readLoop(conn)
	}
}

func (s *SocketEventSource) readLoop(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var we wireEvent
		if err := json.Unmarshal(line, &we); err != nil {
			s.logger.Warn("malformed event line, skipping", zap.Error(err))
			continue
		}

		kind := domain.KindFromCode(we.Kind)
		if kind == domain.EventUnknown {
			s.logger.Debug("unknown event kind, skipping", zap.String("kind", we.Kind))
			continue
		}

		ev := domain.UIEvent{
			Kind:      kind,
			PackageID: we.PackageID,
			ScreenID:  we.ScreenID,
			Timestamp: we.Timestamp,
		}
		if we.Tree != nil {
			ev.Tree = NewSnapshotTree(we.Tree)
		}

		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}

	if err := scanner.Err(); err != nil && !s.isClosed() {
		s.logger.Warn("event connection read failed", zap.Error(err))
	}
}

func (s *SocketEventSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Events returns the delivery channel, closed on shutdown.
func (s *SocketEventSource) Events() <-chan domain.UIEvent {
	return s.events
}

// Close stops accepting, waits for readers, and closes the channel.
func (s *SocketEventSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)
	err := s.listener.Close()
	s.wg.Wait()
	close(s.events)
	return err
}

var _ domain.EventSource = (*SocketEventSource)(nil)
