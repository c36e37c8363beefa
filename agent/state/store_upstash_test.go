package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestUpstashRedisStoreRedisKey(t *testing.T) {
	t.Parallel()

	store := &UpstashRedisStore{keyPrefix: defaultStoreKeyPrefix}
	got, err := store.redisKey("abc")
	if err != nil {
		t.Fatalf("redisKey() error = %v", err)
	}
	if got != "coach:session:abc" {
		t.Fatalf("redisKey() = %q, want %q", got, "coach:session:abc")
	}
}

func TestUpstashRedisStoreRedisKeyEmptySession(t *testing.T) {
	t.Parallel()

	store := &UpstashRedisStore{}
	_, err := store.redisKey("   ")
	if !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("redisKey() error = %v, want ErrInvalidSession", err)
	}
}

func TestUpstashRedisStoreSaveUsesPrefixedKey(t *testing.T) {
	t.Parallel()

	const wantKey = "coach:session:session-1"
	var gotCommand []any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Fatalf("decode command: %v", err)
		}
		fmt.Fprint(w, `{"result":"OK"}`)
	}))
	t.Cleanup(server.Close)

	store, err := NewUpstashRedisStore(
		UpstashRedisConfig{
			URL:   server.URL,
			Token: "token",
		},
		WithHTTPClient(server.Client()),
		WithTTL(90*time.Second),
	)
	if err != nil {
		t.Fatalf("NewUpstashRedisStore() error = %v", err)
	}

	state := NewSessionState("session-1", "league-1", "team-1", "Ice Holes", time.Now().UTC())
	state.SetTurns([]Turn{{Role: RoleUser, Content: "what team am I?"}})
	if err := store.Save(context.Background(), state); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if len(gotCommand) < 2 {
		t.Fatalf("unexpected command: %#v", gotCommand)
	}
	if gotCommand[0] != "SET" {
		t.Fatalf("command[0] = %v, want SET", gotCommand[0])
	}
	if gotCommand[1] != wantKey {
		t.Fatalf("command[1] = %v, want %s", gotCommand[1], wantKey)
	}
	if len(gotCommand) != 5 || gotCommand[3] != "EX" || gotCommand[4] != float64(90) {
		t.Fatalf("expected EX 90 suffix, got %#v", gotCommand)
	}
}

func TestUpstashRedisStoreLoadUsesPrefixedKey(t *testing.T) {
	t.Parallel()

	const wantKey = "coach:session:session-2"
	var gotCommand []any

	seed := NewSessionState("session-2", "league-1", "team-1", "Ice Holes", time.Now().UTC())
	seed.SetTurns([]Turn{
		{Role: RoleUser, Content: "hi coach"},
		{Role: RoleAssistant, Content: "get pucks in deep"},
	})
	payload, err := json.Marshal(seed)
	if err != nil {
		t.Fatalf("marshal seed: %v", err)
	}
	encoded, err := json.Marshal(string(payload))
	if err != nil {
		t.Fatalf("marshal encoded seed: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Fatalf("decode command: %v", err)
		}
		fmt.Fprintf(w, `{"result":%s}`, encoded)
	}))
	t.Cleanup(server.Close)

	store, err := NewUpstashRedisStore(
		UpstashRedisConfig{
			URL:   server.URL,
			Token: "token",
		},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewUpstashRedisStore() error = %v", err)
	}

	st, err := store.Load(context.Background(), "session-2")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if st.SessionID != "session-2" {
		t.Fatalf("Load().SessionID = %q, want %q", st.SessionID, "session-2")
	}
	if len(st.Turns) != 2 || st.Turns[1].Content != "get pucks in deep" {
		t.Fatalf("Load().Turns = %#v", st.Turns)
	}

	if len(gotCommand) < 2 {
		t.Fatalf("unexpected command: %#v", gotCommand)
	}
	if gotCommand[0] != "GET" {
		t.Fatalf("command[0] = %v, want GET", gotCommand[0])
	}
	if gotCommand[1] != wantKey {
		t.Fatalf("command[1] = %v, want %s", gotCommand[1], wantKey)
	}
}

func TestUpstashRedisStoreDeleteUsesPrefixedKey(t *testing.T) {
	t.Parallel()

	const wantKey = "coach:session:session-3"
	var gotCommand []any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Fatalf("decode command: %v", err)
		}
		fmt.Fprint(w, `{"result":1}`)
	}))
	t.Cleanup(server.Close)

	store, err := NewUpstashRedisStore(
		UpstashRedisConfig{
			URL:   server.URL,
			Token: "token",
		},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewUpstashRedisStore() error = %v", err)
	}

	if err := store.Delete(context.Background(), "session-3"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if len(gotCommand) < 2 {
		t.Fatalf("unexpected command: %#v", gotCommand)
	}
	if gotCommand[0] != "DEL" {
		t.Fatalf("command[0] = %v, want DEL", gotCommand[0])
	}
	if gotCommand[1] != wantKey {
		t.Fatalf("command[1] = %v, want %s", gotCommand[1], wantKey)
	}
}

func TestUpstashRedisStoreLoadMissing(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":null}`)
	}))
	t.Cleanup(server.Close)

	store, err := NewUpstashRedisStore(
		UpstashRedisConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewUpstashRedisStore() error = %v", err)
	}

	_, err = store.Load(context.Background(), "missing")
	if !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("Load() error = %v, want ErrStateNotFound", err)
	}
}

func TestNewUpstashRedisStoreRequiresURL(t *testing.T) {
	t.Parallel()

	if _, err := NewUpstashRedisStore(UpstashRedisConfig{Token: "token"}); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

func TestUpstashRedisStoreSurfacesRedisErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer bad" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		switch r.URL.Query().Get("mode") {
		case "status":
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		default:
			fmt.Fprint(w, `{"error":"WRONGTYPE Operation against a key holding the wrong kind of value"}`)
		}
	}))
	t.Cleanup(server.Close)

	tests := []struct {
		name       string
		url        string
		wantStatus int
	}{
		{name: "reply error", url: server.URL},
		{name: "http status", url: server.URL + "?mode=status", wantStatus: http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store, err := NewUpstashRedisStore(UpstashRedisConfig{URL: tc.url, Token: "bad"}, WithHTTPClient(server.Client()))
			if err != nil {
				t.Fatalf("NewUpstashRedisStore() error = %v", err)
			}
			_, err = store.Load(context.Background(), "session-4")
			var redisErr *RedisError
			if !errors.As(err, &redisErr) {
				t.Fatalf("Load() error = %v, want *RedisError", err)
			}
			if redisErr.Command != "GET" || redisErr.Status != tc.wantStatus {
				t.Fatalf("RedisError = %+v", redisErr)
			}
		})
	}
}

func TestTTLSecondsRoundsUp(t *testing.T) {
	t.Parallel()

	cases := map[time.Duration]int64{
		time.Millisecond:        1,
		time.Second:             1,
		1500 * time.Millisecond: 2,
		90 * time.Second:        90,
	}
	for ttl, want := range cases {
		if got := ttlSeconds(ttl); got != want {
			t.Fatalf("ttlSeconds(%s) = %d, want %d", ttl, got, want)
		}
	}
}

func TestNewUpstashRedisStoreRejectsNegativeTTL(t *testing.T) {
	t.Parallel()

	if _, err := NewUpstashRedisStore(UpstashRedisConfig{URL: "https://example.upstash.io", Token: "t"}, WithTTL(-time.Second)); err == nil {
		t.Fatal("expected error for negative ttl")
	}
}
