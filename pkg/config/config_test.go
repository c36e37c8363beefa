package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type sampleConfig struct {
	LeagueID string        `envconfig:"LEAGUE_ID" split_words:"true"`
	Timeout  time.Duration `envconfig:"TIMEOUT" default:"15s"`
}

func TestNewReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "coach.env")
	if err := os.WriteFile(path, []byte("SAMPLE_LEAGUE_ID=abc123\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("SAMPLE_LEAGUE_ID", "")

	SetEnvFile(path)
	conf, err := New[sampleConfig]("SAMPLE")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if conf.LeagueID != "abc123" {
		t.Fatalf("LeagueID = %q, want abc123", conf.LeagueID)
	}
	if conf.Timeout != 15*time.Second {
		t.Fatalf("Timeout = %v, want default 15s", conf.Timeout)
	}
}
