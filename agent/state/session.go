package state

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SessionState is the persisted view of one coaching session: the league
// binding plus the transcript.
type SessionState struct {
	SessionID string `json:"session_id"`
	LeagueID  string `json:"league_id"`
	TeamID    string `json:"team_id"`
	TeamName  string `json:"team_name"`

	Turns []Turn `json:"turns,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrStateNotFound   = errors.New("session state not found")
	ErrNilSessionState = errors.New("session state is nil")
	ErrInvalidSession  = errors.New("session id is empty")
)

func NewSessionState(sessionID, leagueID, teamID, teamName string, now time.Time) *SessionState {
	return &SessionState{
		SessionID: sessionID,
		LeagueID:  leagueID,
		TeamID:    teamID,
		TeamName:  teamName,
		UpdatedAt: now.UTC(),
	}
}

func (s *SessionState) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// SetTurns replaces the stored turns with a copy of turns.
func (s *SessionState) SetTurns(turns []Turn) {
	s.Turns = append([]Turn(nil), turns...)
}

func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	out := *s
	out.Turns = append([]Turn(nil), s.Turns...)
	return &out
}

func (s *SessionState) Validate() error {
	if s == nil {
		return ErrNilSessionState
	}
	if strings.TrimSpace(s.SessionID) == "" {
		return ErrInvalidSession
	}
	for i, turn := range s.Turns {
		if err := turn.Validate(); err != nil {
			return fmt.Errorf("turn %d: %w", i, err)
		}
	}
	return nil
}

// prepareForSave normalises st before any backend writes it.
func prepareForSave(st *SessionState) error {
	if st == nil {
		return ErrNilSessionState
	}
	if strings.TrimSpace(st.SessionID) == "" {
		return ErrInvalidSession
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now().UTC()
	} else {
		st.UpdatedAt = st.UpdatedAt.UTC()
	}
	return st.Validate()
}
