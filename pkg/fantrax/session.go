package fantrax

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"regexp"
	"strings"
)

var leagueIDPattern = regexp.MustCompile(`/league/(\w+)/`)

// ParseLeagueID extracts the league id from a league page URL such as
// https://www.fantrax.com/fantasy/league/abc123/home.
func ParseLeagueID(rawURL string) (string, error) {
	m := leagueIDPattern.FindStringSubmatch(rawURL)
	if len(m) < 2 {
		return "", fmt.Errorf("no league id in url %q", rawURL)
	}
	return m[1], nil
}

// BrowserCookie is the shape browser automation tools dump cookies in.
type BrowserCookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain,omitempty"`
}

// LoadCookieFile reads a JSON array of browser cookies.
func LoadCookieFile(path string) ([]BrowserCookie, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cookie file: %w", err)
	}
	var cookies []BrowserCookie
	if err := json.Unmarshal(raw, &cookies); err != nil {
		return nil, fmt.Errorf("decode cookie file: %w", err)
	}
	return cookies, nil
}

// ParseCookieHeader splits a "name=value; name2=value2" header.
func ParseCookieHeader(raw string) []BrowserCookie {
	var out []BrowserCookie
	for _, part := range strings.Split(raw, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || strings.TrimSpace(name) == "" {
			continue
		}
		out = append(out, BrowserCookie{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)})
	}
	return out
}

// NewCookieJar seeds a jar for baseURL. Cookies whose domain does not cover
// the base host are stored as host-only cookies.
func NewCookieJar(baseURL string, cookies []BrowserCookie) (http.CookieJar, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	host := u.Hostname()
	httpCookies := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		if c.Name == "" {
			continue
		}
		hc := &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"}
		if d := strings.TrimPrefix(c.Domain, "."); d != "" && (host == d || strings.HasSuffix(host, "."+d)) {
			hc.Domain = d
		}
		httpCookies = append(httpCookies, hc)
	}
	jar.SetCookies(u, httpCookies)
	return jar, nil
}

func loadCookies(cfg Config) ([]BrowserCookie, error) {
	var cookies []BrowserCookie
	if path := strings.TrimSpace(cfg.CookieFile); path != "" {
		fromFile, err := LoadCookieFile(path)
		if err != nil {
			return nil, err
		}
		cookies = append(cookies, fromFile...)
	}
	cookies = append(cookies, ParseCookieHeader(cfg.Cookie)...)
	return cookies, nil
}
