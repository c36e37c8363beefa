package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	bolt "go.etcd.io/bbolt"
)

var bucketSessions = []byte("sessions")

type BoltConfig struct {
	Path string `envconfig:"PATH" default:"data/coach.db"`
}

// BoltStore keeps sessions in a local BoltDB file, one key per session.
type BoltStore struct {
	db *bolt.DB
}

func NewBoltStore(cfg BoltConfig) (*BoltStore, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, fmt.Errorf("bolt path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create bolt directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSessions)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket %q: %w", bucketSessions, err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Load(_ context.Context, sessionID string) (*SessionState, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}
	var st SessionState
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketSessions).Get([]byte(sessionID))
		if data == nil {
			return ErrStateNotFound
		}
		return sonic.Unmarshal(data, &st)
	})
	if err != nil {
		return nil, err
	}
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session state loaded from store: %w", err)
	}
	return &st, nil
}

func (s *BoltStore) Save(_ context.Context, st *SessionState) error {
	if err := prepareForSave(st); err != nil {
		return err
	}
	data, err := sonic.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSessions).Put([]byte(st.SessionID), data)
	})
}

func (s *BoltStore) Delete(_ context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSessions).Delete([]byte(sessionID))
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
