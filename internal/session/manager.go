package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgellow/ortho-diary/internal/log"
)

// LoginPath is where Logout navigates.
const LoginPath = "/login"

// ManagedAuth is the managed sign-in source. The callback passed to
// OnAuthStateChanged receives nil on sign-out.
type ManagedAuth interface {
	OnAuthStateChanged(fn func(*ManagedIdentity)) (unsubscribe func())
	CurrentUser() *ManagedIdentity
	SignOut(ctx context.Context) error
}

// Navigator moves the client to another route.
type Navigator interface {
	Navigate(path string)
}

// Manager owns the one canonical session. Every login path writes it and
// the last writer wins.
type Manager struct {
	store   Store
	managed ManagedAuth
	nav     Navigator

	mu          sync.Mutex
	current     *Session
	credential  string
	loading     bool
	listeners   map[int]func(*Session)
	nextID      int
	unsubscribe func()
}

// NewManager creates a manager. managed and nav may be nil.
func NewManager(store Store, managed ManagedAuth, nav Navigator) *Manager {
	return &Manager{
		store:     store,
		managed:   managed,
		nav:       nav,
		loading:   true,
		listeners: make(map[int]func(*Session)),
	}
}

// Start restores a persisted proxy identity, then subscribes to the
// managed auth source. A corrupt persisted identity is cleared.
func (m *Manager) Start(ctx context.Context) error {
	p, err := m.store.Load()
	switch {
	case err == nil:
		log.LogInfoWithFields("session", "Restored persisted session", map[string]any{
			"uid":      p.UID,
			"provider": p.Provider,
		})
		m.adopt(*p)
		m.setLoading(false)
	case errors.Is(err, ErrNoIdentity):
	default:
		log.LogWarnWithFields("session", "Discarding unreadable persisted session", map[string]any{
			"error": err.Error(),
		})
		if err := m.store.Clear(); err != nil {
			return fmt.Errorf("clearing persisted session: %w", err)
		}
	}

	if m.managed == nil {
		m.setLoading(false)
		return nil
	}

	unsubscribe := m.managed.OnAuthStateChanged(m.onManagedChange)
	m.mu.Lock()
	m.unsubscribe = unsubscribe
	m.mu.Unlock()
	return nil
}

func (m *Manager) onManagedChange(user *ManagedIdentity) {
	if user != nil {
		log.LogDebugWithFields("session", "Managed auth signed in", map[string]any{
			"uid": user.UID,
		})
		m.adopt(*user)
		m.setLoading(false)
		return
	}

	// A proxy login is not affected by the managed source signing out.
	_, err := m.store.Load()
	if errors.Is(err, ErrNoIdentity) {
		m.set(nil, "")
	}
	m.setLoading(false)
}

// Login adopts an identity. Proxy identities are persisted first so a
// failed write leaves the session unchanged.
func (m *Manager) Login(id Identity) error {
	if p, ok := id.(ProxyIdentity); ok {
		if err := p.Validate(); err != nil {
			return err
		}
		if err := m.store.Save(p); err != nil {
			return fmt.Errorf("persisting session: %w", err)
		}
	}
	m.adopt(id)

	s := id.session()
	log.LogInfoWithFields("session", "Logged in", map[string]any{
		"uid":    s.ID,
		"origin": string(s.Origin),
	})
	return nil
}

// Logout clears the session and the store, signs out of the managed
// source, and navigates to the login page.
func (m *Manager) Logout(ctx context.Context) error {
	m.set(nil, "")

	var errs []error
	if err := m.store.Clear(); err != nil {
		errs = append(errs, fmt.Errorf("clearing persisted session: %w", err))
	}
	if m.managed != nil && m.managed.CurrentUser() != nil {
		if err := m.managed.SignOut(ctx); err != nil {
			errs = append(errs, fmt.Errorf("signing out: %w", err))
		}
	}
	if m.nav != nil {
		m.nav.Navigate(LoginPath)
	}

	log.Logf("Logged out")
	return errors.Join(errs...)
}

// Current returns a copy of the session, or nil when signed out.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	s := *m.current
	return &s
}

// Credential returns the bearer token of the current identity.
func (m *Manager) Credential() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.credential
}

// Loading reports whether the first restore has not finished.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// Subscribe registers fn for session changes. fn is called with a copy of
// the new value, or nil on sign-out.
func (m *Manager) Subscribe(fn func(*Session)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// Close stops listening to the managed auth source.
func (m *Manager) Close() {
	m.mu.Lock()
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (m *Manager) adopt(id Identity) {
	s := id.session()
	m.set(&s, id.credential())
}

func (m *Manager) set(s *Session, credential string) {
	m.mu.Lock()
	m.current = s
	m.credential = credential
	listeners := make([]func(*Session), 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	for _, fn := range listeners {
		var cp *Session
		if s != nil {
			v := *s
			cp = &v
		}
		fn(cp)
	}
}

func (m *Manager) setLoading(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = v
}
