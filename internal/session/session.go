// Package session models a signed-in dashboard session. A session owns its
// own scene, started at login and torn down at logout, and is passed
// explicitly through contexts rather than looked up globally.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rwandaorbitguard/orbit-guard/internal/logging"
	"github.com/rwandaorbitguard/orbit-guard/internal/scene"
)

var (
	// ErrSessionClosed is returned when using a session after logout.
	ErrSessionClosed = errors.New("session closed")
	// ErrNoSession is returned for an unknown or missing token.
	ErrNoSession = errors.New("no session")
)

// Session is one signed-in user and their scene.
type Session struct {
	Token     string    `json:"token"`
	User      User      `json:"user"`
	CreatedAt time.Time `json:"createdAt"`

	mu     sync.Mutex
	scene  *scene.Scene
	closed bool
	done   chan struct{}
}

// Scene returns the session's scene.
func (s *Session) Scene() (*scene.Scene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	return s.scene, nil
}

// Close stops the scene. Later calls are no-ops.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.done == nil {
		s.done = make(chan struct{})
	}
	close(s.done)
	sc := s.scene
	s.mu.Unlock()
	if sc != nil {
		sc.Stop()
	}
}

// Done returns a channel closed when the session ends.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		s.done = make(chan struct{})
	}
	return s.done
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// SceneFactory builds the scene for a new session.
type SceneFactory func(ctx context.Context, user User) (*scene.Scene, error)

// Manager creates and tears down sessions.
type Manager struct {
	dir      *Directory
	newScene SceneFactory
	clock    func() time.Time
	log      logging.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	// byUser maps a user id to their current session token.
	byUser map[string]string
}

// ManagerOption customises a Manager.
type ManagerOption func(*Manager)

// WithManagerClock overrides the clock used for CreatedAt.
func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.clock = now }
}

// WithManagerLogger sets the manager's logger.
func WithManagerLogger(l logging.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// NewManager returns a manager that authenticates against dir and builds
// scenes with newScene.
func NewManager(dir *Directory, newScene SceneFactory, opts ...ManagerOption) *Manager {
	m := &Manager{
		dir:      dir,
		newScene: newScene,
		clock:    time.Now,
		log:      logging.Noop(),
		sessions: make(map[string]*Session),
		byUser:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Login authenticates, builds and starts a scene, and registers the session.
// The scene runs until Logout or Close, independent of ctx. A user holds at
// most one session: signing in again closes the previous one.
func (m *Manager) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := m.dir.Authenticate(email, password)
	if err != nil {
		m.log.Info(ctx, "login rejected", logging.String("email", email))
		return nil, err
	}

	sc, err := m.newScene(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("create scene for %s: %w", user.Email, err)
	}
	if err := sc.Start(context.WithoutCancel(ctx)); err != nil {
		sc.Stop()
		return nil, fmt.Errorf("start scene for %s: %w", user.Email, err)
	}

	s := &Session{
		Token:     uuid.NewString(),
		User:      user,
		CreatedAt: m.clock(),
		scene:     sc,
	}
	m.mu.Lock()
	prev := m.sessions[m.byUser[user.ID]]
	if prev != nil {
		delete(m.sessions, prev.Token)
	}
	m.sessions[s.Token] = s
	m.byUser[user.ID] = s.Token
	m.mu.Unlock()

	if prev != nil {
		prev.Close()
		m.log.Info(ctx, "session replaced", logging.User(user.Email))
	}
	m.log.Info(ctx, "session opened",
		logging.User(user.Email),
		logging.String("role", string(user.Role)),
	)
	return s, nil
}

// Get returns the live session for token.
func (m *Manager) Get(token string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[token]
	if !ok {
		return nil, ErrNoSession
	}
	return s, nil
}

// Logout removes the session and stops its scene.
func (m *Manager) Logout(ctx context.Context, token string) error {
	m.mu.Lock()
	s, ok := m.sessions[token]
	delete(m.sessions, token)
	if ok && m.byUser[s.User.ID] == token {
		delete(m.byUser, s.User.ID)
	}
	m.mu.Unlock()
	if !ok {
		return ErrNoSession
	}
	s.Close()
	m.log.Info(ctx, "session closed", logging.User(s.User.Email))
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close ends every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.byUser = make(map[string]string)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}

type ctxKey struct{}

// ContextWithSession stores s on ctx.
func ContextWithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored on ctx.
func FromContext(ctx context.Context) (*Session, error) {
	if ctx == nil {
		return nil, ErrNoSession
	}
	s, ok := ctx.Value(ctxKey{}).(*Session)
	if !ok || s == nil {
		return nil, ErrNoSession
	}
	return s, nil
}
