package agents

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/wellness-agents/internal/core/domain"
)

type item struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type catalogFake struct {
	items []item
	err   error
	calls int
	query domain.ChannelQuery
}

func (f *catalogFake) Search(_ context.Context, query domain.ChannelQuery) ([]item, error) {
	f.calls++
	f.query = query
	return f.items, f.err
}

type curatorFake struct {
	text    string
	err     error
	prompts []domain.Prompt
}

func (f *curatorFake) Complete(_ context.Context, prompt domain.Prompt) (domain.Completion, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return domain.Completion{}, f.err
	}
	return domain.Completion{Text: f.text}, nil
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *memoryCache) Get(_ context.Context, key string, out any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, out)
}

func (c *memoryCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if c.data == nil {
		c.data = make(map[string][]byte)
	}
	c.data[key] = raw
	return nil
}

func (c *memoryCache) Delete(context.Context, ...string) error    { return nil }
func (c *memoryCache) DeletePrefix(context.Context, string) error { return nil }

var calmQuery = domain.ChannelQuery{
	Channel:  domain.ChannelVideo,
	Criteria: domain.SearchCriteria{Keywords: []string{"calm"}, Duration: "short"},
	Text:     "calm",
	Count:    2,
}

func TestSearchWithoutCuratorReturnsCatalogJSON(t *testing.T) {
	catalog := &catalogFake{items: []item{{Title: "A", URL: "https://a"}}}
	agent := New[item](domain.ChannelVideo, catalog, Options{})

	reply, err := agent.Search(context.Background(), calmQuery)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if reply.ContentType != "application/json" || !strings.Contains(reply.Raw, `"items":[{"title":"A"`) {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	if catalog.calls != 1 || catalog.query.Count != 2 {
		t.Fatalf("expected one catalog call with the query, got %d %+v", catalog.calls, catalog.query)
	}
}

func TestSearchCuratorRepliesInDeclaredFormat(t *testing.T) {
	catalog := &catalogFake{items: []item{{Title: "A", URL: "https://a"}}}
	curator := &curatorFake{text: "Y###\ntitle,url,duration,thumbnail_url\nA,https://a,5m 0s,https://img\nY###"}
	agent := New[item](domain.ChannelVideo, catalog, Options{Curator: curator, Format: ReplyCSV})

	reply, err := agent.Search(context.Background(), calmQuery)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if reply.ContentType != "text/csv" || !strings.HasPrefix(reply.Raw, "Y###") {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	if len(curator.prompts) != 1 || curator.prompts[0].StrictJSON {
		t.Fatalf("expected one free-text curator prompt, got %+v", curator.prompts)
	}
	p := curator.prompts[0].User
	if !strings.Contains(p, `"title":"A"`) || !strings.Contains(p, "Duration: short") || !strings.Contains(p, "Select up to 2 video items") {
		t.Fatalf("curator prompt missing catalog or brief: %q", p)
	}
	if catalog.calls != 1 {
		t.Fatalf("curation must not search again, got %d calls", catalog.calls)
	}
}

func TestSearchFallsBackToCatalogWhenCuratorFails(t *testing.T) {
	catalog := &catalogFake{items: []item{{Title: "A", URL: "https://a"}}}
	agent := New[item](domain.ChannelVideo, catalog, Options{Curator: &curatorFake{err: errors.New("model down")}})

	reply, err := agent.Search(context.Background(), calmQuery)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if reply.ContentType != "application/json" || !strings.Contains(reply.Raw, `"title":"A"`) {
		t.Fatalf("expected catalog fallback, got %+v", reply)
	}
}

func TestSearchSkipsCuratorForEmptyCatalog(t *testing.T) {
	curator := &curatorFake{text: "{}"}
	agent := New[item](domain.ChannelVideo, &catalogFake{}, Options{Curator: curator})

	reply, err := agent.Search(context.Background(), calmQuery)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if reply.Raw != `{"items":[]}` && reply.Raw != `{"items":null}` {
		t.Fatalf("unexpected reply: %q", reply.Raw)
	}
	if len(curator.prompts) != 0 {
		t.Fatalf("curator must not run on an empty catalog")
	}
}

func TestSearchPropagatesCatalogError(t *testing.T) {
	agent := New[item](domain.ChannelArticles, &catalogFake{err: errors.New("quota exceeded")}, Options{})
	_, err := agent.Search(context.Background(), calmQuery)
	if err == nil || !strings.Contains(err.Error(), "articles catalog search: quota exceeded") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSearchServesRepeatedQueriesFromCache(t *testing.T) {
	catalog := &catalogFake{items: []item{{Title: "A", URL: "https://a"}}}
	agent := New[item](domain.ChannelVideo, catalog, Options{Cache: &memoryCache{}})

	first, err := agent.Search(context.Background(), calmQuery)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	second, err := agent.Search(context.Background(), calmQuery)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if catalog.calls != 1 || first.Raw != second.Raw {
		t.Fatalf("expected cached second search, calls=%d", catalog.calls)
	}
}
