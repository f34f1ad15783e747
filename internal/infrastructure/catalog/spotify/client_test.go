package spotify

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

type spotifyServer struct {
	tokenCalls  atomic.Int32
	searchCalls atomic.Int32
	rejectToken string
}

func (s *spotifyServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		n := s.tokenCalls.Add(1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "id" || pass != "secret" {
			t.Fatalf("missing basic auth")
		}
		if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
			t.Fatalf("unexpected token form: %v", r.PostForm)
		}
		if n == 1 {
			_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"tok-2","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		s.searchCalls.Add(1)
		if r.Header.Get("Authorization") == "Bearer "+s.rejectToken {
			http.Error(w, `{"error":{"status":401}}`, http.StatusUnauthorized)
			return
		}
		q := r.URL.Query()
		if q.Get("type") != "playlist" || q.Get("limit") != "5" || q.Get("q") != "sleep ambient" {
			t.Fatalf("unexpected search query: %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"playlists":{"items":[
			{"name":"Deep Sleep","description":" Drift off ","external_urls":{"spotify":"https://open.spotify.com/playlist/1"},"images":[{"url":"https://i.scdn.co/1"}],"owner":{"display_name":"Spotify"},"tracks":{"total":120}},
			null,
			{"name":"No link","external_urls":{}}
		]}}`))
	})
	return mux
}

func TestSearchFetchesTokenOnceAndParsesPlaylists(t *testing.T) {
	srv := &spotifyServer{}
	server := httptest.NewServer(srv.handler(t))
	defer server.Close()

	client := New(Config{APIURL: server.URL + "/v1", TokenURL: server.URL + "/api/token", ClientID: "id", ClientSecret: "secret"}, nil)
	query := domain.ChannelQuery{Text: "sleep ambient", Count: 5}

	for i := 0; i < 2; i++ {
		playlists, err := client.Search(context.Background(), query)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(playlists) != 1 {
			t.Fatalf("expected null and unlinked entries dropped, got %+v", playlists)
		}
		p := playlists[0]
		if p.Description != "Drift off" || p.Image != "https://i.scdn.co/1" || p.Owner != "Spotify" || p.Tracks != 120 {
			t.Fatalf("unexpected playlist: %+v", p)
		}
	}
	if srv.tokenCalls.Load() != 1 {
		t.Fatalf("expected cached token, got %d token calls", srv.tokenCalls.Load())
	}
}

func TestSearchRefreshesExpiredToken(t *testing.T) {
	srv := &spotifyServer{}
	server := httptest.NewServer(srv.handler(t))
	defer server.Close()

	client := New(Config{APIURL: server.URL + "/v1", TokenURL: server.URL + "/api/token", ClientID: "id", ClientSecret: "secret"}, nil)
	now := time.Now()
	client.now = func() time.Time { return now }
	query := domain.ChannelQuery{Text: "sleep ambient", Count: 5}

	if _, err := client.Search(context.Background(), query); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	now = now.Add(2 * time.Hour)
	if _, err := client.Search(context.Background(), query); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if srv.tokenCalls.Load() != 2 {
		t.Fatalf("expected token refresh, got %d token calls", srv.tokenCalls.Load())
	}
}

func TestSearchDropsRejectedToken(t *testing.T) {
	srv := &spotifyServer{rejectToken: "tok-1"}
	server := httptest.NewServer(srv.handler(t))
	defer server.Close()

	client := New(Config{APIURL: server.URL + "/v1", TokenURL: server.URL + "/api/token", ClientID: "id", ClientSecret: "secret"}, nil)
	query := domain.ChannelQuery{Text: "sleep ambient", Count: 5}

	if _, err := client.Search(context.Background(), query); err == nil {
		t.Fatalf("expected unauthorized error")
	}
	if _, err := client.Search(context.Background(), query); err != nil {
		t.Fatalf("second Search() should use a fresh token, got %v", err)
	}
	if srv.tokenCalls.Load() != 2 {
		t.Fatalf("expected token refetch after 401, got %d", srv.tokenCalls.Load())
	}
}

func TestSearchMakesOneCallWhenThrottled(t *testing.T) {
	var searches atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v1/search", func(w http.ResponseWriter, _ *http.Request) {
		searches.Add(1)
		http.Error(w, `{"error":{"status":429}}`, http.StatusTooManyRequests)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	exec := resilience.NewExecutor(resilience.Config{RetryMaxAttempts: 3, RetryInitialBackoff: time.Millisecond})
	client := New(Config{APIURL: server.URL + "/v1", TokenURL: server.URL + "/api/token", ClientID: "id", ClientSecret: "secret"}, exec)
	_, err := client.Search(context.Background(), domain.ChannelQuery{Text: "sleep ambient", Count: 5})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if got := searches.Load(); got != 1 {
		t.Fatalf("expected one search call, got %d", got)
	}
}
