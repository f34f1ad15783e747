package extraction

import (
	"strings"

	"github.com/kirillkom/wellness-agents/internal/core/domain"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeCSV  = "text/csv"
)

// ResponseFormat recovers a structured payload from model text in one wire format.
type ResponseFormat interface {
	ContentType() string
	Parse(raw string, want Shape) (any, error)
}

// Shape narrows which top-level value a caller expects.
type Shape int

const (
	ShapeAny Shape = iota
	ShapeObject
	ShapeList
)

// Extractor selects a ResponseFormat by declared content type.
type Extractor struct {
	formats  map[string]ResponseFormat
	fallback ResponseFormat
}

func New(formats ...ResponseFormat) *Extractor {
	if len(formats) == 0 {
		formats = []ResponseFormat{JSONFormat{}, CSVFormat{}}
	}
	e := &Extractor{
		formats:  make(map[string]ResponseFormat, len(formats)),
		fallback: formats[0],
	}
	for _, f := range formats {
		e.formats[f.ContentType()] = f
	}
	return e
}

// Extract returns the first payload the selected format can recover.
// Failure is always a *domain.MalformedResponseError carrying raw.
func (e *Extractor) Extract(raw, contentType string) (any, error) {
	return e.extract(raw, contentType, ShapeAny)
}

// ExtractObject prefers object spans when scanning noisy text.
func (e *Extractor) ExtractObject(raw string) (any, error) {
	return e.extract(raw, ContentTypeJSON, ShapeObject)
}

// ExtractList returns a list payload; a lone object is wrapped.
func (e *Extractor) ExtractList(raw, contentType string) ([]any, error) {
	out, err := e.extract(raw, contentType, ShapeList)
	if err != nil {
		return nil, err
	}
	switch v := out.(type) {
	case []any:
		return v, nil
	case map[string]any:
		for _, key := range []string{"items", "results", "videos", "playlists", "articles"} {
			if list, ok := v[key].([]any); ok {
				return list, nil
			}
		}
		return []any{v}, nil
	default:
		return nil, &domain.MalformedResponseError{Raw: raw, Reason: "payload is not a list"}
	}
}

func (e *Extractor) extract(raw, contentType string, want Shape) (any, error) {
	if strings.TrimSpace(trimBOM(raw)) == "" {
		return nil, &domain.MalformedResponseError{Raw: raw, Reason: "empty response"}
	}
	format := e.formatFor(contentType)
	out, err := format.Parse(raw, want)
	if err != nil {
		return nil, &domain.MalformedResponseError{Raw: raw, Reason: err.Error()}
	}
	return out, nil
}

func (e *Extractor) formatFor(contentType string) ResponseFormat {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.IndexByte(ct, ';'); idx >= 0 {
		ct = strings.TrimSpace(ct[:idx])
	}
	if f, ok := e.formats[ct]; ok {
		return f
	}
	return e.fallback
}
