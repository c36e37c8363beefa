package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type PostgresConfig struct {
	DSN     string        `envconfig:"DSN"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"5s"`
}

type sessionRow struct {
	bun.BaseModel `bun:"table:coach_sessions,alias:cs"`

	SessionID string    `bun:"session_id,pk"`
	LeagueID  string    `bun:"league_id,notnull"`
	TeamID    string    `bun:"team_id,notnull"`
	TeamName  string    `bun:"team_name,notnull"`
	Turns     []Turn    `bun:"turns,type:jsonb"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func toRow(st *SessionState) *sessionRow {
	return &sessionRow{
		SessionID: st.SessionID,
		LeagueID:  st.LeagueID,
		TeamID:    st.TeamID,
		TeamName:  st.TeamName,
		Turns:     append([]Turn(nil), st.Turns...),
		UpdatedAt: st.UpdatedAt,
	}
}

func (r *sessionRow) toState() *SessionState {
	return &SessionState{
		SessionID: r.SessionID,
		LeagueID:  r.LeagueID,
		TeamID:    r.TeamID,
		TeamName:  r.TeamName,
		Turns:     r.Turns,
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

// PostgresStore keeps one row per session in the coach_sessions table.
type PostgresStore struct {
	db *bun.DB
}

func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithTimeout(timeout),
	))
	db := bun.NewDB(sqldb, pgdialect.New())

	store := &PostgresStore{db: db}
	if err := store.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresStoreWithDB wraps an existing bun handle and creates the table.
func NewPostgresStoreWithDB(ctx context.Context, db *bun.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("bun db is required")
	}
	store := &PostgresStore{db: db}
	if err := store.migrate(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*sessionRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create coach_sessions table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, sessionID string) (*SessionState, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}
	row := new(sessionRow)
	err := s.db.NewSelect().Model(row).Where("session_id = ?", sessionID).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select session: %w", err)
	}
	st := row.toState()
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session state loaded from store: %w", err)
	}
	return st, nil
}

func (s *PostgresStore) Save(ctx context.Context, st *SessionState) error {
	if err := prepareForSave(st); err != nil {
		return err
	}
	_, err := s.db.NewInsert().
		Model(toRow(st)).
		On("CONFLICT (session_id) DO UPDATE").
		Set("league_id = EXCLUDED.league_id").
		Set("team_id = EXCLUDED.team_id").
		Set("team_name = EXCLUDED.team_name").
		Set("turns = EXCLUDED.turns").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}
	if _, err := s.db.NewDelete().Model((*sessionRow)(nil)).Where("session_id = ?", sessionID).Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
