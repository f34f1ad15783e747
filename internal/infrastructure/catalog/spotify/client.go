// Package spotify searches playlists with the client-credentials flow.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/wellness-agents/internal/core/domain"
	"github.com/kirillkom/wellness-agents/internal/infrastructure/catalog"
	"github.com/kirillkom/wellness-agents/internal/infrastructure/resilience"
)

const (
	DefaultAPIURL   = "https://api.spotify.com/v1"
	DefaultTokenURL = "https://accounts.spotify.com/api/token"
	maxSearchLimit  = 50
)

type Config struct {
	APIURL       string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Market       string
	Timeout      time.Duration
}

type Playlist struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Owner       string `json:"owner,omitempty"`
	Tracks      int    `json:"tracks,omitempty"`
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	executor   *resilience.Executor
	now        func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func New(cfg Config, executor *resilience.Executor) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	return &Client{
		cfg:        cfg,
		httpClient: catalog.NewHTTPClient(cfg.Timeout),
		executor:   executor,
		now:        time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// accessToken returns the cached bearer token, fetching a new one when it
// is missing or within a minute of expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry.Add(-time.Minute)) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create spotify token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)

	var tok tokenResponse
	if err := catalog.DoJSON(c.httpClient, req, "spotify", "token", &tok); err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", errors.New("spotify token response has no access_token")
	}
	c.token = tok.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.token, nil
}

func (c *Client) dropToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

type searchResponse struct {
	Playlists struct {
		Items []*struct {
			Name         string `json:"name"`
			Description  string `json:"description"`
			ExternalURLs struct {
				Spotify string `json:"spotify"`
			} `json:"external_urls"`
			Images []struct {
				URL string `json:"url"`
			} `json:"images"`
			Owner struct {
				DisplayName string `json:"display_name"`
			} `json:"owner"`
			Tracks struct {
				Total int `json:"total"`
			} `json:"tracks"`
		} `json:"items"`
	} `json:"playlists"`
}

func (c *Client) Search(ctx context.Context, query domain.ChannelQuery) ([]Playlist, error) {
	text := strings.TrimSpace(query.Text)
	if text == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "spotify search", errors.New("empty query"))
	}
	limit := query.Count
	if limit <= 0 || limit > maxSearchLimit {
		limit = 5
	}

	params := url.Values{}
	params.Set("q", text)
	params.Set("type", "playlist")
	params.Set("limit", strconv.Itoa(limit))
	if c.cfg.Market != "" {
		params.Set("market", c.cfg.Market)
	}
	endpoint := c.cfg.APIURL + "/search?" + params.Encode()

	resp, err := resilience.Do(ctx, c.executor, "spotify.search", func(ctx context.Context) (searchResponse, error) {
		token, err := c.accessToken(ctx)
		if err != nil {
			return searchResponse{}, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return searchResponse{}, fmt.Errorf("create spotify search request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)

		var out searchResponse
		err = catalog.DoJSON(c.httpClient, req, "spotify", "search", &out)
		var statusErr *resilience.HTTPStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized {
			c.dropToken()
		}
		return out, err
	}, resilience.SingleShot(resilience.ClassifyHTTP))
	if err != nil {
		return nil, resilience.WrapTemporary("spotify search", err, resilience.ClassifyHTTP)
	}

	playlists := make([]Playlist, 0, len(resp.Playlists.Items))
	for _, item := range resp.Playlists.Items {
		// Spotify returns null entries for playlists it cannot show.
		if item == nil || item.Name == "" || item.ExternalURLs.Spotify == "" {
			continue
		}
		p := Playlist{
			Name:        item.Name,
			URL:         item.ExternalURLs.Spotify,
			Description: strings.TrimSpace(item.Description),
			Owner:       item.Owner.DisplayName,
			Tracks:      item.Tracks.Total,
		}
		if len(item.Images) > 0 {
			p.Image = item.Images[0].URL
		}
		playlists = append(playlists, p)
	}
	return playlists, nil
}
