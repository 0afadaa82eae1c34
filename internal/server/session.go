package server

import (
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vango-dev/nested/internal/errors"
	"github.com/vango-dev/nested/internal/logging"
	"github.com/vango-dev/nested/internal/treefile"
	"github.com/vango-dev/nested/pkg/middleware"
	"github.com/vango-dev/nested/pkg/nested"
)

// Session is one registry served over HTTP.
type Session struct {
	ID       string
	Registry *nested.Registry
	Hub      *Hub
	Created  time.Time

	mount    *treefile.Mount
	lastSeen atomic.Int64

	mu      sync.Mutex
	closers []func()
	closed  bool
}

// OnClose registers fn to run when the session ends.
func (s *Session) OnClose(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		go fn()
		return
	}
	s.closers = append(s.closers, fn)
}

// LastSeen returns the time of the last request that touched the session.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *Session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	closers := s.closers
	s.closers = nil
	s.mu.Unlock()

	s.Registry.Close()
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
	s.Hub.Close()
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	// OpenStrategy and SelectStrategy apply when a definition names none.
	OpenStrategy   nested.OpenStrategy
	SelectStrategy nested.SelectStrategy

	// TTL is the idle timeout. Zero disables expiry.
	TTL time.Duration

	// Metrics is optional.
	Metrics *middleware.Metrics

	// OnCreate runs for every new session, before it is visible.
	OnCreate func(*Session)

	Logger *slog.Logger
}

// Manager owns the live sessions.
type Manager struct {
	opts     ManagerOptions
	logger   *slog.Logger
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewManager creates an empty session manager.
func NewManager(opts ManagerOptions) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		opts:     opts,
		logger:   logger,
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create builds a registry from def and registers a new session for it.
func (m *Manager) Create(def *treefile.Definition) (*Session, error) {
	if def == nil {
		def = &treefile.Definition{}
	}

	var opts []nested.Option
	if def.Open == "" && m.opts.OpenStrategy.Open != nil {
		opts = append(opts, nested.WithOpenStrategy(m.opts.OpenStrategy))
	}
	if def.Select == "" && m.opts.SelectStrategy.Select != nil {
		opts = append(opts, nested.WithSelectStrategy(m.opts.SelectStrategy))
	}
	if m.opts.Metrics != nil {
		opts = append(opts, nested.WithObserver(m.opts.Metrics))
	}

	id := uuid.NewString()
	opts = append(opts, nested.WithLogger(m.logger.With("session", id)))

	reg, mount, err := def.Build(opts...)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:       id,
		Registry: reg,
		Hub:      NewHub(id),
		Created:  m.now(),
		mount:    mount,
	}
	s.touch(s.Created)
	s.OnClose(reg.Subscribe(s.Hub.Notify))
	if m.opts.Metrics != nil {
		s.OnClose(reg.Subscribe(m.opts.Metrics.ObserveChange))
	}
	if m.opts.OnCreate != nil {
		m.opts.OnCreate(s)
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	if m.opts.Metrics != nil {
		m.opts.Metrics.SessionOpened()
	}
	m.logger.Info("session created", "session", id, "nodes", mount.Len())
	return s, nil
}

// Get returns the session and marks it as used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, errors.New("N300").WithDetailf("no session %q", id)
	}
	s.touch(m.now())
	return s, nil
}

// Delete closes and forgets the session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return errors.New("N300").WithDetailf("no session %q", id)
	}
	m.closeSession(s, "deleted")
	return nil
}

func (m *Manager) closeSession(s *Session, reason string) {
	s.close()
	if m.opts.Metrics != nil {
		m.opts.Metrics.SessionClosed()
	}
	m.logger.Info("session closed", "session", s.ID, "reason", reason)
}

// IDs returns the live session ids, sorted.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Reap closes sessions idle for longer than the TTL and returns how many
// were closed. Sessions with connected WebSocket clients are kept.
func (m *Manager) Reap() int {
	if m.opts.TTL <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.opts.TTL)

	var expired []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) && s.Hub.ClientCount() == 0 {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		m.closeSession(s, "expired")
	}
	return len(expired)
}

// CloseAll closes every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range all {
		m.closeSession(s, "shutdown")
	}
}
