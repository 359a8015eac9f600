// Package backend owns the canonical session records: long-lived local
// terminal processes whose status changes feed the workspace reconciler.
//
// Panes hold copies of the snapshots produced here; the workspace layer
// refreshes them through its own reconciliation, driven by the
// Notifications stream.
package backend

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"deskmux/internal/workspace"
)

// ErrUnknownSession is returned for operations on session ids the manager
// does not own.
var ErrUnknownSession = errors.New("unknown session")

// idleAfter is how long a session goes without output before its status
// flips from running to idle.
const idleAfter = 30 * time.Second

// notifyBuffer bounds the pending notification queue. The UI consumes
// promptly; a full queue drops the oldest-style slow path with a warning
// rather than blocking a session goroutine.
const notifyBuffer = 64

// proc is the platform process behind one session.
type proc interface {
	io.Writer
	// Output returns the stream of terminal output.
	Output() io.Reader
	// Resize updates the PTY size.
	Resize(cols int, rows int) error
	// Terminate asks the process to exit.
	Terminate() error
	// Wait blocks until the process has exited.
	Wait() error
}

// startProcFn is a test seam over the platform process launcher.
var startProcFn = startProc

// Options configures new sessions.
type Options struct {
	// Shell is the command to launch. Empty selects the platform default.
	Shell string
	// Dir is the working directory for new sessions.
	Dir string
	// Env contains extra environment variables, applied over the parent
	// environment.
	Env map[string]string
}

type session struct {
	snapshot workspace.Session
	proc     proc
	lastSeen time.Time
}

// Manager tracks canonical sessions and emits a change notification whenever
// any snapshot field changes.
type Manager struct {
	mu       sync.RWMutex
	opts     Options
	sessions map[string]*session
	notifyCh chan workspace.Session
	done     chan struct{}
	shutOnce sync.Once
}

// NewManager creates a manager and starts its idle sweep.
func NewManager(opts Options) *Manager {
	m := &Manager{
		opts:     opts,
		sessions: make(map[string]*session),
		notifyCh: make(chan workspace.Session, notifyBuffer),
		done:     make(chan struct{}),
	}
	go m.idleSweep()
	return m
}

// Notifications is the stream of updated session snapshots. Consumers must
// drain it; the channel is never closed while the manager is running.
func (m *Manager) Notifications() <-chan workspace.Session {
	return m.notifyCh
}

// Open starts a new session process and returns its initial snapshot.
func (m *Manager) Open(title string) (workspace.Session, error) {
	p, err := startProcFn(m.opts)
	if err != nil {
		return workspace.Session{}, fmt.Errorf("start session process: %w", err)
	}

	snapshot := workspace.Session{
		ID:     uuid.NewString(),
		Title:  title,
		Status: workspace.StatusRunning,
	}
	sess := &session{snapshot: snapshot, proc: p, lastSeen: time.Now()}

	m.mu.Lock()
	m.sessions[snapshot.ID] = sess
	m.mu.Unlock()

	go m.drainOutput(snapshot.ID, p)
	go m.watchExit(snapshot.ID, p)

	m.notify(snapshot)
	return snapshot, nil
}

// Get returns the current snapshot for id.
func (m *Manager) Get(id string) (workspace.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return workspace.Session{}, false
	}
	return sess.snapshot.Clone(), true
}

// List returns snapshots of every known session.
func (m *Manager) List() []workspace.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]workspace.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, sess.snapshot.Clone())
	}
	return out
}

// Write sends input to the session process and refreshes its activity clock.
func (m *Manager) Write(id string, data []byte) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("write to %s: %w", id, ErrUnknownSession)
	}
	p := sess.proc
	sess.lastSeen = time.Now()
	changed := m.setStatusLocked(sess, workspace.StatusRunning)
	m.mu.Unlock()

	if changed != nil {
		m.notify(*changed)
	}
	if _, err := p.Write(data); err != nil {
		return fmt.Errorf("write to %s: %w", id, err)
	}
	return nil
}

// Resize updates the PTY size for the session.
func (m *Manager) Resize(id string, cols int, rows int) error {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("resize %s: %w", id, ErrUnknownSession)
	}
	return sess.proc.Resize(cols, rows)
}

// SetLabel stores a user label on the session and notifies.
func (m *Manager) SetLabel(id string, label string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("label %s: %w", id, ErrUnknownSession)
	}
	sess.snapshot.CustomLabel = label
	snapshot := sess.snapshot.Clone()
	m.mu.Unlock()

	m.notify(snapshot)
	return nil
}

// Close terminates the session process. The exited status is published by
// the exit watcher, not here.
func (m *Manager) Close(id string) error {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("close %s: %w", id, ErrUnknownSession)
	}
	return sess.proc.Terminate()
}

// Shutdown terminates every session and stops the idle sweep. Idempotent.
func (m *Manager) Shutdown() {
	m.shutOnce.Do(func() {
		close(m.done)
		m.mu.RLock()
		procs := make([]proc, 0, len(m.sessions))
		for _, sess := range m.sessions {
			procs = append(procs, sess.proc)
		}
		m.mu.RUnlock()
		for _, p := range procs {
			if err := p.Terminate(); err != nil {
				slog.Debug("[BACKEND] terminate during shutdown", "error", err)
			}
		}
	})
}

// drainOutput consumes terminal output so the child never blocks on a full
// PTY buffer, and uses the stream as the activity signal.
func (m *Manager) drainOutput(id string, p proc) {
	buf := make([]byte, 32*1024)
	for {
		n, err := p.Output().Read(buf)
		if n > 0 {
			m.touch(id)
		}
		if err != nil {
			return
		}
	}
}

// watchExit publishes the terminal status once the process is gone.
func (m *Manager) watchExit(id string, p proc) {
	err := p.Wait()
	status := workspace.StatusExited
	if err != nil {
		status = workspace.StatusError
	}

	m.mu.Lock()
	sess, ok := m.sessions[id]
	var snapshot *workspace.Session
	if ok {
		snapshot = m.setStatusLocked(sess, status)
	}
	m.mu.Unlock()

	if snapshot != nil {
		m.notify(*snapshot)
	}
	if err != nil {
		slog.Warn("[BACKEND] session process exited abnormally", "sessionId", id, "error", err)
	}
}

// touch refreshes the activity clock and revives idle sessions.
func (m *Manager) touch(id string) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	var snapshot *workspace.Session
	if ok {
		sess.lastSeen = time.Now()
		if sess.snapshot.Status == workspace.StatusIdle {
			snapshot = m.setStatusLocked(sess, workspace.StatusRunning)
		}
	}
	m.mu.Unlock()

	if snapshot != nil {
		m.notify(*snapshot)
	}
}

// idleSweep flips running sessions to idle after a quiet period.
func (m *Manager) idleSweep() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case now := <-ticker.C:
			var changed []workspace.Session
			m.mu.Lock()
			for _, sess := range m.sessions {
				if sess.snapshot.Status != workspace.StatusRunning {
					continue
				}
				if now.Sub(sess.lastSeen) < idleAfter {
					continue
				}
				if snapshot := m.setStatusLocked(sess, workspace.StatusIdle); snapshot != nil {
					changed = append(changed, *snapshot)
				}
			}
			m.mu.Unlock()
			for _, snapshot := range changed {
				m.notify(snapshot)
			}
		}
	}
}

// setStatusLocked updates the status and returns the new snapshot when it
// actually changed. Exited and error are terminal states. Caller holds m.mu.
func (m *Manager) setStatusLocked(sess *session, status workspace.Status) *workspace.Session {
	current := sess.snapshot.Status
	if current == status || current == workspace.StatusExited || current == workspace.StatusError {
		return nil
	}
	sess.snapshot.Status = status
	snapshot := sess.snapshot.Clone()
	return &snapshot
}

// notify publishes a snapshot without ever blocking a session goroutine.
func (m *Manager) notify(snapshot workspace.Session) {
	select {
	case m.notifyCh <- snapshot:
	default:
		slog.Warn("[BACKEND] notification queue full, dropping event",
			"sessionId", snapshot.ID, "status", snapshot.Status)
	}
}
