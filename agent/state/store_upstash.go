package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// StoreOption tunes an UpstashRedisStore after its config is applied.
type StoreOption func(*UpstashRedisStore)

// WithKeyPrefix namespaces transcript keys. Blank prefixes are ignored.
func WithKeyPrefix(prefix string) StoreOption {
	return func(s *UpstashRedisStore) {
		if p := strings.TrimSpace(prefix); p != "" {
			s.keyPrefix = p
		}
	}
}

// WithTTL sets how long an idle coaching session survives. Zero keeps it forever.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *UpstashRedisStore) { s.ttl = ttl }
}

func WithHTTPClient(client *http.Client) StoreOption {
	return func(s *UpstashRedisStore) {
		if client != nil {
			s.httpClient = client
		}
	}
}

type UpstashRedisConfig struct {
	URL     string        `envconfig:"URL" split_words:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// UpstashRedisStore keeps each coaching session's transcript as one JSON
// string value in Upstash Redis, reached over its REST endpoint. Every Save
// refreshes the key's expiry so an active session never lapses mid-season.
type UpstashRedisStore struct {
	endpoint   string
	token      string
	httpClient *http.Client
	keyPrefix  string
	ttl        time.Duration
}

// RedisError is a failure reported by the Upstash endpoint itself, either as
// a non-2xx status or as an error field in an otherwise valid reply.
type RedisError struct {
	Command string
	Status  int
	Message string
}

func (e *RedisError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transcript store %s: http %d: %s", e.Command, e.Status, e.Message)
	}
	return fmt.Sprintf("transcript store %s: %s", e.Command, e.Message)
}

type upstashReply struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

func NewUpstashRedisStore(cfg UpstashRedisConfig, opts ...StoreOption) (*UpstashRedisStore, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if endpoint == "" {
		return nil, errors.New("transcript store: upstash url is required")
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("transcript store: upstash url: %w", err)
	}
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("transcript store: upstash token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s := &UpstashRedisStore{
		endpoint:   endpoint,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		keyPrefix:  defaultStoreKeyPrefix,
		ttl:        defaultStoreTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.ttl < 0 {
		return nil, fmt.Errorf("transcript store: negative ttl %s", s.ttl)
	}
	return s, nil
}

func (s *UpstashRedisStore) Load(ctx context.Context, sessionID string) (*SessionState, error) {
	key, err := s.redisKey(sessionID)
	if err != nil {
		return nil, err
	}
	result, err := s.command(ctx, "GET", key)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil, ErrStateNotFound
	}

	var stored string
	if err := sonic.Unmarshal(result, &stored); err != nil {
		return nil, fmt.Errorf("session %s: transcript value is not a string: %w", sessionID, err)
	}
	var st SessionState
	if err := sonic.UnmarshalString(stored, &st); err != nil {
		return nil, fmt.Errorf("session %s: decode transcript: %w", sessionID, err)
	}
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("session %s: stored transcript rejected: %w", sessionID, err)
	}
	return &st, nil
}

func (s *UpstashRedisStore) Save(ctx context.Context, st *SessionState) error {
	if err := prepareForSave(st); err != nil {
		return err
	}
	key, err := s.redisKey(st.SessionID)
	if err != nil {
		return err
	}
	value, err := sonic.MarshalString(st)
	if err != nil {
		return fmt.Errorf("session %s: encode transcript: %w", st.SessionID, err)
	}

	args := []any{"SET", key, value}
	if s.ttl > 0 {
		args = append(args, "EX", ttlSeconds(s.ttl))
	}
	_, err = s.command(ctx, args...)
	return err
}

func (s *UpstashRedisStore) Delete(ctx context.Context, sessionID string) error {
	key, err := s.redisKey(sessionID)
	if err != nil {
		return err
	}
	_, err = s.command(ctx, "DEL", key)
	return err
}

func (s *UpstashRedisStore) redisKey(sessionID string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", ErrInvalidSession
	}
	return strings.TrimSpace(s.keyPrefix) + sessionID, nil
}

// command posts one Redis command as a JSON array and returns the raw result.
func (s *UpstashRedisStore) command(ctx context.Context, args ...any) ([]byte, error) {
	name := fmt.Sprint(args[0])
	body, err := sonic.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("transcript store %s: encode command: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("transcript store %s: %w", name, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcript store %s: %w", name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("transcript store %s: read reply: %w", name, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &RedisError{Command: name, Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}

	var reply upstashReply
	if err := sonic.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("transcript store %s: decode reply: %w", name, err)
	}
	if reply.Error != "" {
		return nil, &RedisError{Command: name, Message: reply.Error}
	}
	return bytes.TrimSpace(reply.Result), nil
}

// ttlSeconds rounds up to whole seconds, with a floor of one.
func ttlSeconds(ttl time.Duration) int64 {
	secs := int64((ttl + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
