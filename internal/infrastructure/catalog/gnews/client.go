// Package gnews searches news articles through the GNews v4 API.
package gnews

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/wellness-agents/internal/core/domain"
	"github.com/kirillkom/wellness-agents/internal/infrastructure/catalog"
	"github.com/kirillkom/wellness-agents/internal/infrastructure/resilience"
)

const (
	DefaultBaseURL = "https://gnews.io/api/v4"
	maxQueryWords  = 4
)

type Config struct {
	BaseURL  string
	APIKey   string
	Language string
	Country  string
	Timeout  time.Duration
}

type Article struct {
	Title       string `json:"title"`
	Snippet     string `json:"snippet,omitempty"`
	URL         string `json:"url"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	Source      string `json:"source,omitempty"`
	PublishedAt string `json:"publishedAt,omitempty"`
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.Country == "" {
		cfg.Country = "us"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, httpClient: catalog.NewHTTPClient(cfg.Timeout), executor: executor}
}

type searchResponse struct {
	TotalArticles int `json:"totalArticles"`
	Articles      []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		Image       string `json:"image"`
		PublishedAt string `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
			URL  string `json:"url"`
		} `json:"source"`
	} `json:"articles"`
}

func (c *Client) Search(ctx context.Context, query domain.ChannelQuery) ([]Article, error) {
	q := BuildQuery(strings.Fields(query.Text))
	if q == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "gnews search", errors.New("empty query"))
	}
	limit := query.Count
	if limit <= 0 {
		limit = 3
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("lang", c.cfg.Language)
	params.Set("country", c.cfg.Country)
	params.Set("max", strconv.Itoa(limit))
	params.Set("apikey", c.cfg.APIKey)
	endpoint := c.cfg.BaseURL + "/search?" + params.Encode()

	resp, err := resilience.Do(ctx, c.executor, "gnews.search", func(ctx context.Context) (searchResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return searchResponse{}, fmt.Errorf("create gnews search request: %w", err)
		}
		var out searchResponse
		err = catalog.DoJSON(c.httpClient, req, "gnews", "search", &out)
		return out, err
	}, resilience.SingleShot(resilience.ClassifyHTTP))
	if err != nil {
		return nil, resilience.WrapTemporary("gnews search", err, resilience.ClassifyHTTP)
	}

	articles := make([]Article, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		if a.Title == "" || a.URL == "" {
			continue
		}
		articles = append(articles, Article{
			Title:       a.Title,
			Snippet:     a.Description,
			URL:         a.URL,
			Thumbnail:   a.Image,
			Source:      a.Source.Name,
			PublishedAt: a.PublishedAt,
		})
		if len(articles) == limit {
			break
		}
	}
	return articles, nil
}

// BuildQuery turns up to four search words into GNews boolean syntax:
// words are paired with OR and pairs are joined with AND, a trailing odd
// word joins the last pair.
func BuildQuery(words []string) string {
	clean := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.NewReplacer("-", "", "_", "", `"`, "", "(", "", ")", "").Replace(strings.TrimSpace(w))
		if w == "" || isOperator(w) {
			continue
		}
		clean = append(clean, w)
		if len(clean) == maxQueryWords {
			break
		}
	}

	switch len(clean) {
	case 0:
		return ""
	case 1:
		return clean[0]
	}

	var groups [][]string
	for i := 0; i < len(clean); i += 2 {
		if i+1 < len(clean) {
			groups = append(groups, []string{clean[i], clean[i+1]})
			continue
		}
		last := len(groups) - 1
		groups[last] = append(groups[last], clean[i])
	}
	parts := make([]string, 0, len(groups))
	for _, g := range groups {
		parts = append(parts, "("+strings.Join(g, " OR ")+")")
	}
	return strings.Join(parts, " AND ")
}

func isOperator(w string) bool {
	switch strings.ToUpper(w) {
	case "AND", "OR", "NOT":
		return true
	}
	return false
}
