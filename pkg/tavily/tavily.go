package tavily

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

	contractx "github.com/tanpawarit/fantrax-coach/agent/contract"
)

const maxResponseSizeBytes = 2 << 20

var _ contractx.Searcher = (*Client)(nil)

type Config struct {
	BaseURL    string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.tavily.com"`
	APIKey     string        `envconfig:"API_KEY" split_words:"true"`
	MaxResults int           `envconfig:"MAX_RESULTS" split_words:"true" default:"5"`
	TimeRange  string        `envconfig:"TIME_RANGE" split_words:"true" default:"day"`
	Timeout    time.Duration `envconfig:"TIMEOUT" default:"20s"`
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// Client calls the Tavily search REST endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	maxResults int
	timeRange  string
	httpClient *http.Client
}

func New(cfg Config, opts ...Option) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("tavily api key is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.tavily.com"
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid tavily url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}

	c := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		maxResults: maxResults,
		timeRange:  strings.TrimSpace(cfg.TimeRange),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
	TimeRange  string `json:"time_range,omitempty"`
	Topic      string `json:"topic,omitempty"`
}

type searchResponse struct {
	Results []struct {
		Title         string  `json:"title"`
		URL           string  `json:"url"`
		Content       string  `json:"content"`
		Score         float64 `json:"score"`
		PublishedDate string  `json:"published_date"`
	} `json:"results"`
}

// Search runs one query. Credential and quota rejections are reported as
// contract.ErrProviderQuotaOrAuth with the provider message attached.
func (c *Client) Search(ctx context.Context, req contractx.SearchRequest) ([]contractx.SearchResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is empty", contractx.ErrValidation)
	}
	body := searchRequest{
		Query:      query,
		MaxResults: c.maxResults,
		TimeRange:  c.timeRange,
		Topic:      req.Topic,
	}
	if req.MaxResults > 0 {
		body.MaxResults = req.MaxResults
	}
	if req.TimeRange != "" {
		body.TimeRange = req.TimeRange
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute search request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests, 432, 433:
		return nil, fmt.Errorf("%w: tavily http %d: %s", contractx.ErrProviderQuotaOrAuth, resp.StatusCode, providerMessage(raw))
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("tavily http status=%d body=%s", resp.StatusCode, providerMessage(raw))
	}

	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	out := make([]contractx.SearchResult, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		out = append(out, contractx.SearchResult{
			Title:         r.Title,
			URL:           r.URL,
			Content:       r.Content,
			Score:         r.Score,
			PublishedDate: r.PublishedDate,
		})
	}
	return out, nil
}

func providerMessage(raw []byte) string {
	var body struct {
		Detail struct {
			Error string `json:"error"`
		} `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Detail.Error != "" {
		return body.Detail.Error
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > 256 {
		s = s[:256] + "..."
	}
	return s
}
