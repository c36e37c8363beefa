package fantrax

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

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/fantrax-coach/agent/contract"
)

const (
	maxResponseSizeBytes = 8 << 20

	codeNotLoggedIn = "WARNING_NOT_LOGGED_IN"
)

var _ contractx.LeagueSource = (*Client)(nil)
var _ contractx.DefaultTeamSource = (*Client)(nil)

type Option func(*Client)

// WithHTTPClient replaces the transport client. The cookie jar built from the
// config is attached when the given client has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// Client talks to the league JSON endpoint with a cookie authenticated session.
type Client struct {
	baseURL    string
	leagueID   string
	httpClient *http.Client
}

func New(cfg Config, opts ...Option) (*Client, error) {
	leagueID, err := cfg.ResolveLeagueID()
	if err != nil {
		return nil, err
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://www.fantrax.com"
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid fantrax base url: %w", err)
	}

	cookies, err := loadCookies(cfg)
	if err != nil {
		return nil, err
	}
	jar, err := NewCookieJar(baseURL, cookies)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &Client{
		baseURL:    baseURL,
		leagueID:   leagueID,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.httpClient.Jar == nil {
		hc := *c.httpClient
		hc.Jar = jar
		c.httpClient = &hc
	}
	return c, nil
}

func (c *Client) LeagueID() string {
	return c.leagueID
}

type rpcMessage struct {
	Method string         `json:"method"`
	Data   map[string]any `json:"data"`
}

type rpcRequest struct {
	Msgs []rpcMessage `json:"msgs"`
}

type rpcResponse struct {
	Responses []struct {
		Data json.RawMessage `json:"data"`
	} `json:"responses"`
	PageError *struct {
		Code  string `json:"code"`
		Title string `json:"title"`
	} `json:"pageError"`
}

func (c *Client) call(ctx context.Context, method string, data map[string]any, out any) error {
	payload := map[string]any{"leagueId": c.leagueID}
	for k, v := range data {
		payload[k] = v
	}
	body, err := json.Marshal(rpcRequest{Msgs: []rpcMessage{{Method: method, Data: payload}}})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	endpoint := c.baseURL + "/fxpa/req?leagueId=" + url.QueryEscape(c.leagueID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute %s request: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}
	log.Debug().
		Str("method", method).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(started)).
		Msg("fantrax request")

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s returned http %d", contractx.ErrAuth, method, resp.StatusCode)
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		return fmt.Errorf("%s http status=%d body=%s", method, resp.StatusCode, truncate(string(raw), 256))
	}

	var parsed rpcResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if pe := parsed.PageError; pe != nil && pe.Code != "" {
		if pe.Code == codeNotLoggedIn {
			return fmt.Errorf("%w: %s", contractx.ErrAuth, pe.Code)
		}
		return fmt.Errorf("%s page error: %s %s", method, pe.Code, pe.Title)
	}
	if len(parsed.Responses) == 0 || len(parsed.Responses[0].Data) == 0 {
		return fmt.Errorf("%s returned no data", method)
	}
	if err := json.Unmarshal(parsed.Responses[0].Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", method, err)
	}
	return nil
}

type teamsData struct {
	FantasyTeams []struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		ShortName string `json:"shortName"`
	} `json:"fantasyTeams"`
	MyTeamIDs []string `json:"myTeamIds"`
}

func (c *Client) fetchTeams(ctx context.Context) (teamsData, error) {
	var data teamsData
	err := c.call(ctx, "getFantasyTeams", nil, &data)
	return data, err
}

func (c *Client) ListTeams(ctx context.Context) ([]contractx.Team, error) {
	data, err := c.fetchTeams(ctx)
	if err != nil {
		return nil, err
	}
	teams := make([]contractx.Team, 0, len(data.FantasyTeams))
	for _, t := range data.FantasyTeams {
		teams = append(teams, contractx.Team{ID: t.ID, Name: t.Name, ShortName: t.ShortName})
	}
	return teams, nil
}

// DefaultTeam returns the caller's own team, or the first team of the league
// when the response does not flag one.
func (c *Client) DefaultTeam(ctx context.Context) (contractx.Team, error) {
	data, err := c.fetchTeams(ctx)
	if err != nil {
		return contractx.Team{}, err
	}
	if len(data.FantasyTeams) == 0 {
		return contractx.Team{}, errors.New("league has no teams")
	}
	pick := data.FantasyTeams[0]
	if len(data.MyTeamIDs) > 0 {
		for _, t := range data.FantasyTeams {
			if t.ID == data.MyTeamIDs[0] {
				pick = t
				break
			}
		}
	}
	return contractx.Team{ID: pick.ID, Name: pick.Name, ShortName: pick.ShortName}, nil
}

func (c *Client) Standings(ctx context.Context) (contractx.Standings, error) {
	var data standingsData
	if err := c.call(ctx, "getStandings", map[string]any{"view": "ALL"}, &data); err != nil {
		return contractx.Standings{}, err
	}
	return data.toStandings(), nil
}

func (c *Client) Roster(ctx context.Context, teamID string) (contractx.Roster, error) {
	if strings.TrimSpace(teamID) == "" {
		return contractx.Roster{}, errors.New("team id is required")
	}
	var data rosterData
	if err := c.call(ctx, "getTeamRosterInfo", map[string]any{"teamId": teamID}, &data); err != nil {
		return contractx.Roster{}, err
	}
	return data.toRoster(teamID), nil
}

func (c *Client) AvailablePlayers(ctx context.Context, position string) ([]contractx.Player, error) {
	var data playerStatsData
	err := c.call(ctx, "getPlayerStats", map[string]any{
		"statusOrTeamFilter": "ALL_AVAILABLE",
		"posOrGroup":         strings.ToUpper(strings.TrimSpace(position)),
		"pageNumber":         "1",
	}, &data)
	if err != nil {
		return nil, err
	}
	return data.toPlayers(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
