// Package youtube searches videos through the RapidAPI YouTube138 endpoint.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/kirillkom/wellness-agents/internal/core/domain"
	"github.com/kirillkom/wellness-agents/internal/infrastructure/catalog"
	"github.com/kirillkom/wellness-agents/internal/infrastructure/resilience"
)

const (
	DefaultBaseURL = "https://youtube138.p.rapidapi.com"
	DefaultHost    = "youtube138.p.rapidapi.com"
)

type Config struct {
	BaseURL  string
	Host     string
	APIKey   string
	Language string
	Region   string
	Timeout  time.Duration
}

// Video is one catalog hit, tagged with the keys the item coercer reads.
type Video struct {
	Title           string `json:"title"`
	URL             string `json:"url"`
	VideoID         string `json:"videoId"`
	DurationSeconds int    `json:"duration_seconds"`
	Thumbnail       string `json:"thumbnail"`
	Channel         string `json:"channel,omitempty"`
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
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.Region == "" {
		cfg.Region = "US"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, httpClient: catalog.NewHTTPClient(cfg.Timeout), executor: executor}
}

type searchResponse struct {
	Contents []struct {
		Video *struct {
			Title         string `json:"title"`
			VideoID       string `json:"videoId"`
			LengthSeconds any    `json:"lengthSeconds"`
			Thumbnails    []struct {
				URL string `json:"url"`
			} `json:"thumbnails"`
			Author struct {
				Title string `json:"title"`
			} `json:"author"`
		} `json:"video"`
	} `json:"contents"`
}

// Search runs one catalog query and keeps up to query.Count videos that
// fit the requested duration bucket.
func (c *Client) Search(ctx context.Context, query domain.ChannelQuery) ([]Video, error) {
	text := strings.TrimSpace(query.Text)
	if text == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "youtube search", errors.New("empty query"))
	}

	params := url.Values{}
	params.Set("q", text)
	params.Set("hl", c.cfg.Language)
	params.Set("gl", c.cfg.Region)
	endpoint := c.cfg.BaseURL + "/search/?" + params.Encode()

	resp, err := resilience.Do(ctx, c.executor, "youtube.search", func(ctx context.Context) (searchResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return searchResponse{}, fmt.Errorf("create youtube search request: %w", err)
		}
		req.Header.Set("x-rapidapi-key", c.cfg.APIKey)
		req.Header.Set("x-rapidapi-host", c.cfg.Host)
		var out searchResponse
		err = catalog.DoJSON(c.httpClient, req, "youtube", "search", &out)
		return out, err
	}, resilience.SingleShot(resilience.ClassifyHTTP))
	if err != nil {
		return nil, resilience.WrapTemporary("youtube search", err, resilience.ClassifyHTTP)
	}

	videos := make([]Video, 0, len(resp.Contents))
	for _, content := range resp.Contents {
		v := content.Video
		if v == nil || v.VideoID == "" || v.Title == "" {
			continue
		}
		seconds, _ := cast.ToIntE(v.LengthSeconds)
		if seconds <= 0 || !fitsDuration(seconds, query.Criteria.Duration) {
			continue
		}
		thumb := ""
		if len(v.Thumbnails) > 0 {
			thumb = v.Thumbnails[len(v.Thumbnails)-1].URL
		}
		videos = append(videos, Video{
			Title:           v.Title,
			URL:             "https://www.youtube.com/watch?v=" + v.VideoID,
			VideoID:         v.VideoID,
			DurationSeconds: seconds,
			Thumbnail:       thumb,
			Channel:         v.Author.Title,
		})
		if query.Count > 0 && len(videos) == query.Count {
			break
		}
	}
	return videos, nil
}

// fitsDuration applies the short (<10m), medium (10-30m), long (>30m) buckets.
func fitsDuration(seconds int, bucket string) bool {
	switch bucket {
	case "short":
		return seconds < 10*60
	case "medium":
		return seconds >= 10*60 && seconds <= 30*60
	case "long":
		return seconds > 30*60
	default:
		return true
	}
}
