package extraction

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// CSVMarker delimits the CSV block inside curator replies.
const CSVMarker = "Y###"

// CSVFormat reads a header-keyed table framed by CSVMarker, falling back to a
// fenced block. Every cell stays a string; callers coerce.
type CSVFormat struct{}

func (CSVFormat) ContentType() string { return ContentTypeCSV }

func (CSVFormat) Parse(raw string, want Shape) (any, error) {
	if want == ShapeObject {
		return nil, errors.New("csv payload cannot hold an object")
	}
	table, ok := markedBlock(trimBOM(raw))
	if !ok {
		if table, ok = firstFencedBlock(raw); !ok {
			return nil, fmt.Errorf("no %s delimited csv block", CSVMarker)
		}
	}

	reader := csv.NewReader(strings.NewReader(table))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	rows := make([]any, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		row := make(map[string]any, len(header))
		for i, cell := range record {
			if i >= len(header) || header[i] == "" {
				continue
			}
			row[header[i]] = strings.TrimSpace(cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func markedBlock(s string) (string, bool) {
	start := strings.Index(s, CSVMarker)
	if start < 0 {
		return "", false
	}
	start += len(CSVMarker)
	end := strings.Index(s[start:], CSVMarker)
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(s[start : start+end]), true
}
