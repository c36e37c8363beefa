package fantrax

import (
	"errors"
	"strings"
	"time"
)

type Config struct {
	BaseURL    string        `envconfig:"BASE_URL" split_words:"true" default:"https://www.fantrax.com"`
	LeagueID   string        `envconfig:"LEAGUE_ID" split_words:"true"`
	LeagueURL  string        `envconfig:"LEAGUE_URL" split_words:"true"`
	Cookie     string        `envconfig:"COOKIE"`
	CookieFile string        `envconfig:"COOKIE_FILE" split_words:"true"`
	TeamID     string        `envconfig:"TEAM_ID" split_words:"true"`
	TeamName   string        `envconfig:"TEAM_NAME" split_words:"true"`
	Timeout    time.Duration `envconfig:"TIMEOUT" default:"15s"`
}

// ResolveLeagueID prefers the explicit id and falls back to parsing LeagueURL.
func (c Config) ResolveLeagueID() (string, error) {
	if id := strings.TrimSpace(c.LeagueID); id != "" {
		return id, nil
	}
	if strings.TrimSpace(c.LeagueURL) == "" {
		return "", errors.New("fantrax league id or league url is required")
	}
	return ParseLeagueID(c.LeagueURL)
}
