package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/wellness-agents/internal/core/domain"
	"github.com/kirillkom/wellness-agents/internal/infrastructure/resilience"
)

const searchBody = `{"contents":[
 {"type":"video","video":{"title":"5 minute breathing","videoId":"a1","lengthSeconds":300,"thumbnails":[{"url":"https://i.ytimg.com/a1/small.jpg"},{"url":"https://i.ytimg.com/a1/large.jpg"}],"author":{"title":"Calm Co"}}},
 {"type":"channel","channel":{"title":"ignored"}},
 {"type":"video","video":{"title":"Live rain","videoId":"live","lengthSeconds":null}},
 {"type":"video","video":{"title":"Guided sleep","videoId":"b2","lengthSeconds":"2400","thumbnails":[{"url":"https://i.ytimg.com/b2.jpg"}]}},
 {"type":"video","video":{"title":"Quick reset","videoId":"c3","lengthSeconds":120,"thumbnails":[]}}
]}`

func TestSearchSendsRapidAPIHeadersAndParsesVideos(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("q") != "calm breathing" || r.URL.Query().Get("hl") != "en" || r.URL.Query().Get("gl") != "US" {
			t.Fatalf("unexpected query %s", r.URL.RawQuery)
		}
		if r.Header.Get("x-rapidapi-key") != "key" || r.Header.Get("x-rapidapi-host") != DefaultHost {
			t.Fatalf("missing rapidapi headers: %v", r.Header)
		}
		_, _ = w.Write([]byte(searchBody))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, APIKey: "key"}, nil)
	videos, err := client.Search(context.Background(), domain.ChannelQuery{Text: "calm breathing", Count: 6})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(videos) != 3 {
		t.Fatalf("expected 3 videos, got %+v", videos)
	}
	first := videos[0]
	if first.URL != "https://www.youtube.com/watch?v=a1" || first.Thumbnail != "https://i.ytimg.com/a1/large.jpg" || first.Channel != "Calm Co" {
		t.Fatalf("unexpected first video: %+v", first)
	}
	if videos[1].DurationSeconds != 2400 {
		t.Fatalf("expected string lengthSeconds parsed, got %+v", videos[1])
	}
}

func TestSearchAppliesDurationBucketAndCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(searchBody))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL}, nil)
	videos, err := client.Search(context.Background(), domain.ChannelQuery{
		Text:     "calm",
		Count:    1,
		Criteria: domain.SearchCriteria{Duration: "short"},
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(videos) != 1 || videos[0].VideoID != "a1" {
		t.Fatalf("unexpected videos: %+v", videos)
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	client := New(Config{BaseURL: "http://127.0.0.1:1"}, nil)
	if _, err := client.Search(context.Background(), domain.ChannelQuery{Text: "  "}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestSearchMapsThrottlingToTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"quota"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := New(Config{BaseURL: server.URL}, nil).Search(context.Background(), domain.ChannelQuery{Text: "calm"})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}

func TestSearchMakesOneCallEvenWhenThrottled(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, `{"message":"quota"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	exec := resilience.NewExecutor(resilience.Config{RetryMaxAttempts: 3, RetryInitialBackoff: time.Millisecond})
	_, err := New(Config{BaseURL: server.URL}, exec).Search(context.Background(), domain.ChannelQuery{Text: "calm"})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected one search call, got %d", got)
	}
}
