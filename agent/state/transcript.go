package state

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

var ErrInvalidRole = errors.New("turn role must be user or assistant")

// Turn is one completed message in the conversation. Turns are never
// mutated after they are appended.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (t Turn) Validate() error {
	switch t.Role {
	case RoleUser, RoleAssistant:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRole, t.Role)
	}
}

// Transcript is the ordered chat history of one session.
//
// Every Clear bumps the epoch. A cycle that captured the epoch before it
// started can use AppendAt to drop its result when the user cleared the
// conversation in the meantime.
type Transcript struct {
	mu    sync.RWMutex
	turns []Turn
	epoch uint64
}

func NewTranscript(turns ...Turn) *Transcript {
	t := &Transcript{}
	if len(turns) > 0 {
		t.turns = append(make([]Turn, 0, len(turns)), turns...)
	}
	return t
}

func (t *Transcript) Append(turn Turn) error {
	if err := turn.Validate(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.turns = append(t.turns, turn)
	return nil
}

// AppendAt appends turn only while the transcript is still at epoch.
// It returns false when the transcript has been cleared since.
func (t *Transcript) AppendAt(epoch uint64, turn Turn) (bool, error) {
	if err := turn.Validate(); err != nil {
		return false, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.epoch != epoch {
		return false, nil
	}
	t.turns = append(t.turns, turn)
	return true, nil
}

// Clear empties the transcript. Calling it on an empty transcript is a no-op
// apart from advancing the epoch.
func (t *Transcript) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.turns = nil
	t.epoch++
}

// Snapshot returns a copy of the turns, oldest first.
func (t *Transcript) Snapshot() []Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}

func (t *Transcript) Epoch() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.epoch
}

// Pending reports whether the last turn is a user turn still awaiting an answer.
func (t *Transcript) Pending() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns) > 0 && t.turns[len(t.turns)-1].Role == RoleUser
}
