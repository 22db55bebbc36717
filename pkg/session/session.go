// Package session models the authenticated console session as an explicit
// value passed to the transport and controllers. A Session is initialised from
// its Store, begun after a successful login, and either torn down (logout) or
// invalidated (the server answered 401), which also notifies listeners so the
// console can return to the login screen.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// ErrTokenRequired is returned by Begin when the login response had no token.
var ErrTokenRequired = errors.New("session: token is required")

// User describes the signed-in account as returned by the login endpoint.
type User struct {
	ID        string `json:"_id,omitempty" yaml:"id,omitempty"`
	FirstName string `json:"firstName,omitempty" yaml:"first_name,omitempty"`
	LastName  string `json:"lastName,omitempty" yaml:"last_name,omitempty"`
	Email     string `json:"email,omitempty" yaml:"email,omitempty"`
	Role      string `json:"role,omitempty" yaml:"role,omitempty"`
}

// State is the persisted part of a session.
type State struct {
	Token string `yaml:"token,omitempty"`
	User  *User  `yaml:"user,omitempty"`
}

func (s State) clone() State {
	out := State{Token: s.Token}
	if s.User != nil {
		user := *s.User
		out.User = &user
	}
	return out
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger used for lifecycle events.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// Session holds the credential attached to every outbound call.
type Session struct {
	mu        sync.RWMutex
	store     Store
	state     State
	listeners map[int]func()
	nextID    int
	logger    zerolog.Logger
}

// New builds a session over store. A nil store keeps state in memory only.
func New(store Store, opts ...Option) *Session {
	if store == nil {
		store = NewMemoryStore(State{})
	}
	s := &Session{
		store:     store,
		listeners: make(map[int]func()),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Init loads any persisted state.
func (s *Session) Init(ctx context.Context) error {
	state, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.state = state.clone()
	s.mu.Unlock()
	s.logger.Debug().Bool("authenticated", state.Token != "").Msg("session initialised")
	return nil
}

// Token returns the stored credential, or "" when signed out.
func (s *Session) Token() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// User returns the signed-in user when the login response carried one.
func (s *Session) User() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.User == nil {
		return User{}, false
	}
	return *s.state.User, true
}

// Authenticated reports whether a credential is held.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Begin stores the credential returned by a successful login.
func (s *Session) Begin(ctx context.Context, token string, user *User) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrTokenRequired
	}
	state := State{Token: token, User: user}.clone()
	if err := s.store.Save(ctx, state); err != nil {
		return err
	}
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.logger.Info().Msg("session started")
	return nil
}

// Teardown clears the credential without notifying listeners (explicit logout).
func (s *Session) Teardown(ctx context.Context) error {
	s.mu.Lock()
	s.state = State{}
	s.mu.Unlock()
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	s.logger.Info().Msg("session closed")
	return nil
}

// Invalidate clears the credential after the server rejected it and notifies
// listeners. Listeners fire once per authenticated session.
func (s *Session) Invalidate(ctx context.Context) error {
	s.mu.Lock()
	wasAuthenticated := s.state.Token != ""
	s.state = State{}
	listeners := make([]func(), 0, len(s.listeners))
	if wasAuthenticated {
		for _, fn := range s.listeners {
			listeners = append(listeners, fn)
		}
	}
	s.mu.Unlock()

	err := s.store.Clear(ctx)
	if wasAuthenticated {
		s.logger.Warn().Msg("session invalidated")
	}
	for _, fn := range listeners {
		fn()
	}
	return err
}

// OnInvalidate registers fn to run when the session is invalidated. The
// returned function removes the listener.
func (s *Session) OnInvalidate(fn func()) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}
