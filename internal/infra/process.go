package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

const pidFileName = "scrollguard.pid"

// DaemonStatus describes the running daemon for the status command.
type DaemonStatus struct {
	PID      int
	Running  bool
	RSSBytes uint64
}

// WritePIDFile records the current process PID in the data directory.
func WritePIDFile(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	path := filepath.Join(dataDir, pidFileName)
	pid := strconv.Itoa(os.Getpid())
	if err := os.WriteFile(path, []byte(pid+"\n"), 0644); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	return nil
}

// RemovePIDFile deletes the pid file; missing is not an error.
func RemovePIDFile(dataDir string) error {
	err := os.Remove(filepath.Join(dataDir, pidFileName))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ReadDaemonStatus resolves the recorded PID and probes it via
// gopsutil. A missing pid file yields a zero status, no error.
func ReadDaemonStatus(dataDir string) (DaemonStatus, error) {
	raw, err := os.ReadFile(filepath.Join(dataDir, pidFileName))
	if os.IsNotExist(err) {
		return DaemonStatus{}, nil
	}
	if err != nil {
		return DaemonStatus{}, fmt.Errorf("read pid file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return DaemonStatus{}, fmt.Errorf("parse pid file: %w", err)
	}

	status := DaemonStatus{PID: pid}
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		// PID not alive.
		return status, nil
	}
	running, err := p.IsRunning()
	if err != nil || !running {
		return status, nil
	}
	status.Running = true
	if mem, err := p.MemoryInfo(); err == nil && mem != nil {
		status.RSSBytes = mem.RSS
	}
	return status, nil
}
