package coercion

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/kirillkom/wellness-agents/internal/core/domain"
)

// VideoItems keeps only items that carry every display field
// (title, url, duration, thumbnail), deriving the derivable ones.
func VideoItems(list []any) []domain.VideoItem {
	out := make([]domain.VideoItem, 0, len(list))
	for _, item := range recordsOf(list) {
		link := firstStr(item, "url", "video_url", "link")
		if link == "" {
			if id := item.str("videoId", ""); id != "" {
				link = "https://www.youtube.com/watch?v=" + id
			}
		}
		seconds := 0
		for _, key := range []string{"duration_seconds", "durationSeconds", "lengthSeconds"} {
			if n := item.integer(key, durationSecs); n > 0 {
				seconds = n
				break
			}
		}
		text := item.str("duration", "")
		if parsed, ok := ParseDuration(text); ok {
			if seconds == 0 {
				seconds = parsed
			}
			if _, isNumber := toFloat(text); isNumber {
				text = ""
			}
		}
		if text == "" && seconds > 0 {
			text = FormatDuration(seconds)
		}
		thumb := firstStr(item, "thumbnail", "thumbnail_url", "image")
		if thumb == "" {
			thumb = youtubeThumbnail(link)
		}

		v := domain.VideoItem{
			Title:           item.str("title", ""),
			URL:             link,
			Duration:        text,
			DurationSeconds: seconds,
			Thumbnail:       thumb,
			Channel:         firstStr(item, "channel", "channel_name", "author"),
		}
		if v.Channel == "" {
			v.Channel = firstStr(item.sub("channel", "author"), "name", "title")
		}
		if v.Title == "" || v.URL == "" || v.Duration == "" || v.Thumbnail == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

func PlaylistItems(list []any) []domain.PlaylistItem {
	out := make([]domain.PlaylistItem, 0, len(list))
	for _, item := range recordsOf(list) {
		p := domain.PlaylistItem{
			Name:        firstStr(item, "name", "title"),
			URL:         firstStr(item, "url", "external_url", "link"),
			Description: item.str("description", ""),
			Image:       item.str("image", ""),
			Owner:       item.str("owner", ""),
			Tracks:      item.integer("tracks", trackCount),
		}
		if p.URL == "" {
			p.URL = item.sub("external_urls").str("spotify", "")
		}
		if p.Image == "" {
			if images := item.records("images"); len(images) > 0 {
				p.Image = images[0].str("url", "")
			}
		}
		if p.Owner == "" {
			p.Owner = firstStr(item.sub("owner"), "display_name", "name")
		}
		if p.Tracks == 0 {
			p.Tracks = item.sub("tracks").integer("total", trackCount)
		}
		if p.Name == "" || p.URL == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func ArticleItems(list []any) []domain.ArticleItem {
	out := make([]domain.ArticleItem, 0, len(list))
	for _, item := range recordsOf(list) {
		a := domain.ArticleItem{
			Title:       item.str("title", ""),
			Snippet:     firstStr(item, "snippet", "description"),
			URL:         firstStr(item, "url", "news_url", "link"),
			Thumbnail:   firstStr(item, "thumbnail", "image"),
			Source:      item.str("source", ""),
			PublishedAt: firstStr(item, "publishedAt", "published_time"),
		}
		if a.Source == "" {
			a.Source = item.sub("source").str("name", "")
		}
		if a.Title == "" || a.URL == "" {
			continue
		}
		out = append(out, a)
	}
	return out
}

var durationToken = regexp.MustCompile(`(\d+)\s*([hms])`)

// ParseDuration reads "18m 18s", "1h 2m", "8:30", "1:02:03" or bare seconds.
func ParseDuration(text string) (int, bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(text); err == nil {
		return n, n > 0
	}
	if strings.Contains(text, ":") {
		total := 0
		for _, part := range strings.Split(text, ":") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || n < 0 {
				return 0, false
			}
			total = total*60 + n
		}
		return total, total > 0
	}
	matches := durationToken.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return 0, false
	}
	total := 0
	for _, m := range matches {
		n, _ := strconv.Atoi(m[1])
		switch m[2] {
		case "h":
			total += n * 3600
		case "m":
			total += n * 60
		case "s":
			total += n
		}
	}
	return total, total > 0
}

// FormatDuration renders seconds the way curator replies do: "8m 30s", "1h 2m 3s".
func FormatDuration(seconds int) string {
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

func youtubeThumbnail(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	id := u.Query().Get("v")
	if id == "" && u.Host == "youtu.be" {
		id = strings.TrimPrefix(u.Path, "/")
	}
	if id == "" {
		return ""
	}
	return "https://i.ytimg.com/vi/" + id + "/hqdefault.jpg"
}

func recordsOf(list []any) []record {
	out := make([]record, 0, len(list))
	for _, item := range list {
		if r, ok := asRecord(item); ok {
			out = append(out, r)
		}
	}
	return out
}

func firstStr(r record, keys ...string) string {
	for _, key := range keys {
		if s := r.str(key, ""); s != "" {
			return s
		}
	}
	return ""
}
