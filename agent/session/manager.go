package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	statex "github.com/tanpawarit/fantrax-coach/agent/state"
)

// Factory builds a fully wired Session for opts. Each call must return a
// session with its own league handle.
type Factory func(ctx context.Context, opts Options) (*Session, error)

// Manager keeps one Session per user. Sessions never share mutable state.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	factory  Factory
	store    statex.Store
}

func NewManager(factory Factory, store statex.Store) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		factory:  factory,
		store:    store,
	}
}

// Create builds a new session. An empty SessionID gets a fresh uuid. When a
// store is configured and already holds SessionID, its transcript is resumed.
func (m *Manager) Create(ctx context.Context, opts Options) (*Session, error) {
	if m.factory == nil {
		return nil, errors.New("session factory is required")
	}
	opts.SessionID = strings.TrimSpace(opts.SessionID)
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	} else if err := m.resume(ctx, &opts); err != nil {
		return nil, err
	}

	s, err := m.factory(ctx, opts)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if old, ok := m.sessions[s.ID()]; ok {
		old.abandon()
	}
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	_ = s.persist(ctx)
	log.Info().Str("session_id", s.ID()).Str("team", s.Team().Name).Msg("session created")
	return s, nil
}

func (m *Manager) resume(ctx context.Context, opts *Options) error {
	if m.store == nil {
		return nil
	}
	st, err := m.store.Load(ctx, opts.SessionID)
	if err != nil {
		if errors.Is(err, statex.ErrStateNotFound) {
			return nil
		}
		return fmt.Errorf("load session %s: %w", opts.SessionID, err)
	}
	if opts.TeamID == "" && opts.TeamName == "" {
		opts.TeamID = st.TeamID
	}
	if opts.LeagueID == "" {
		opts.LeagueID = st.LeagueID
	}
	if len(opts.Turns) == 0 {
		opts.Turns = st.Turns
	}
	return nil
}

func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	id = strings.TrimSpace(id)
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
}

// Delete abandons any in-flight cycle and forgets the session, including its
// stored state.
func (m *Manager) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.abandon()

	if m.store != nil {
		if err := m.store.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete session %s: %w", id, err)
		}
	}
	return nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
