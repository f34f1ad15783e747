package domain

import (
	"fmt"
	"strings"
)

type Channel string

const (
	ChannelVideo    Channel = "video"
	ChannelPlaylist Channel = "playlist"
	ChannelArticles Channel = "articles"
)

type Recommendations struct {
	Immediate []string       `json:"immediate"`
	Content   ContentRequest `json:"content"`
}

// ContentRequest holds one optional sub-record per content channel.
// A nil pointer means the model did not request that channel.
type ContentRequest struct {
	Video      *VideoRequest      `json:"video,omitempty"`
	Playlist   *PlaylistRequest   `json:"playlist,omitempty"`
	Articles   *ArticlesRequest   `json:"articles,omitempty"`
	Meditation *MeditationRequest `json:"meditation,omitempty"`
}

type VideoRequest struct {
	Types    []string                  `json:"types"`
	Keywords []string                  `json:"keywords"`
	Duration string                    `json:"duration"`
	Mood     string                    `json:"mood"`
	Results  *ChannelResult[VideoItem] `json:"results,omitempty"`
}

func (r *VideoRequest) Criteria() SearchCriteria {
	return SearchCriteria{Types: r.Types, Keywords: r.Keywords, Mood: r.Mood, Duration: r.Duration}
}

type PlaylistRequest struct {
	Keywords []string                     `json:"keywords"`
	Genres   []string                     `json:"genres"`
	Energy   float64                      `json:"energy"`
	Valence  float64                      `json:"valence"`
	Mood     string                       `json:"mood"`
	Results  *ChannelResult[PlaylistItem] `json:"results,omitempty"`
}

func (r *PlaylistRequest) Criteria() SearchCriteria {
	energy, valence := r.Energy, r.Valence
	return SearchCriteria{Keywords: r.Keywords, Genres: r.Genres, Mood: r.Mood, Energy: &energy, Valence: &valence}
}

type ArticlesRequest struct {
	Topics     []string                    `json:"topics"`
	Difficulty string                      `json:"difficulty"`
	Focus      string                      `json:"focus"`
	Results    *ChannelResult[ArticleItem] `json:"results,omitempty"`
}

func (r *ArticlesRequest) Criteria() SearchCriteria {
	return SearchCriteria{Topics: r.Topics, Difficulty: r.Difficulty, Focus: r.Focus}
}

type MeditationRequest struct {
	Types           []string `json:"types"`
	DurationMinutes int      `json:"duration"`
	Difficulty      string   `json:"difficulty"`
}

// SearchCriteria is the channel-agnostic form of a recommendation sub-record.
type SearchCriteria struct {
	Types      []string `json:"types,omitempty"`
	Keywords   []string `json:"keywords,omitempty"`
	Genres     []string `json:"genres,omitempty"`
	Topics     []string `json:"topics,omitempty"`
	Mood       string   `json:"mood,omitempty"`
	Duration   string   `json:"duration,omitempty"`
	Difficulty string   `json:"difficulty,omitempty"`
	Focus      string   `json:"focus,omitempty"`
	Energy     *float64 `json:"energy,omitempty"`
	Valence    *float64 `json:"valence,omitempty"`
}

// Empty reports whether there is nothing to search for.
func (c SearchCriteria) Empty() bool {
	return len(c.Types) == 0 && len(c.Keywords) == 0 && len(c.Genres) == 0 &&
		len(c.Topics) == 0 && strings.TrimSpace(c.Focus) == ""
}

// Terms flattens the free-text parts of the criteria, in priority order.
func (c SearchCriteria) Terms() []string {
	out := make([]string, 0, len(c.Keywords)+len(c.Types)+len(c.Genres)+len(c.Topics)+1)
	seen := make(map[string]struct{})
	add := func(values ...string) {
		for _, v := range values {
			v = strings.TrimSpace(v)
			key := strings.ToLower(v)
			if v == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, v)
		}
	}
	add(c.Keywords...)
	add(c.Types...)
	add(c.Genres...)
	add(c.Topics...)
	add(c.Focus)
	return out
}

// Describe renders the criteria as the natural-language brief handed to a curator model.
func (c SearchCriteria) Describe(channel Channel) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Channel: %s\n", channel)
	writeList := func(name string, values []string) {
		if len(values) > 0 {
			fmt.Fprintf(&b, "%s: %s\n", name, strings.Join(values, ", "))
		}
	}
	writeList("Types", c.Types)
	writeList("Keywords", c.Keywords)
	writeList("Genres", c.Genres)
	writeList("Topics", c.Topics)
	if c.Mood != "" {
		fmt.Fprintf(&b, "Mood: %s\n", c.Mood)
	}
	if c.Duration != "" {
		fmt.Fprintf(&b, "Duration: %s (short = under 10 min, medium = 10-30 min, long = over 30 min)\n", c.Duration)
	}
	if c.Difficulty != "" {
		fmt.Fprintf(&b, "Difficulty: %s\n", c.Difficulty)
	}
	if c.Focus != "" {
		fmt.Fprintf(&b, "Focus: %s\n", c.Focus)
	}
	if c.Energy != nil {
		fmt.Fprintf(&b, "Energy: %.2f\n", *c.Energy)
	}
	if c.Valence != nil {
		fmt.Fprintf(&b, "Valence: %.2f\n", *c.Valence)
	}
	return b.String()
}

type ChannelStatus string

const (
	ChannelSucceeded ChannelStatus = "succeeded"
	ChannelFailed    ChannelStatus = "failed"
)

// ChannelResult is the one-shot outcome of a channel search.
type ChannelResult[T any] struct {
	Status ChannelStatus `json:"status"`
	Items  []T           `json:"items,omitempty"`
	Error  string        `json:"error,omitempty"`
}

func SucceededResult[T any](items []T) *ChannelResult[T] {
	if items == nil {
		items = []T{}
	}
	return &ChannelResult[T]{Status: ChannelSucceeded, Items: items}
}

func FailedResult[T any](err error) *ChannelResult[T] {
	return &ChannelResult[T]{Status: ChannelFailed, Error: err.Error()}
}

type VideoItem struct {
	Title           string `json:"title"`
	URL             string `json:"url"`
	Duration        string `json:"duration"`
	DurationSeconds int    `json:"durationSeconds"`
	Thumbnail       string `json:"thumbnail"`
	Channel         string `json:"channel,omitempty"`
}

type PlaylistItem struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Owner       string `json:"owner,omitempty"`
	Tracks      int    `json:"tracks,omitempty"`
}

type ArticleItem struct {
	Title       string `json:"title"`
	Snippet     string `json:"snippet,omitempty"`
	URL         string `json:"url"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	Source      string `json:"source,omitempty"`
	PublishedAt string `json:"publishedAt,omitempty"`
}

// ChannelQuery is what the fan-out hands a secondary agent.
type ChannelQuery struct {
	Channel  Channel
	Criteria SearchCriteria
	Text     string
	Count    int
}

// AgentReply is the secondary agent's raw output plus its declared content type.
type AgentReply struct {
	Raw         string
	ContentType string
}
