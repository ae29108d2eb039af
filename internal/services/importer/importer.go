// Package importer handles CSV import of guide stops
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/findosh/audioguide/internal/models"
)

var (
	ErrUnknownFormat = errors.New("unknown CSV format")
	ErrEmptyFile     = errors.New("CSV file is empty")
	ErrNoData        = errors.New("no valid stops found")
)

// Column aliases accepted in the header row
var columns = map[string][]string{
	"title":              {"title", "name", "stop"},
	"text_html":          {"text_html", "text", "description", "script"},
	"audio_url":          {"audio_url", "audio"},
	"featured_image_url": {"featured_image_url", "image", "image_url"},
	"order_index":        {"order_index", "order", "position", "#"},
}

// ParseResult contains the result of parsing a CSV file
type ParseResult struct {
	POIs   []*models.POI
	Errors []string
}

// ParsePOIs reads stops from CSV. The header row may be preceded by notes; it
// is the first row naming a title column. Rows without a title are skipped and
// reported. A stop's OrderIndex comes from the order column when present,
// else from its position among the parsed stops.
func ParsePOIs(reader io.Reader) (*ParseResult, error) {
	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	headerIdx, index := findHeader(records)
	if headerIdx < 0 {
		return nil, ErrUnknownFormat
	}

	result := &ParseResult{}
	for i := headerIdx + 1; i < len(records); i++ {
		row := records[i]
		if isSkipRow(row) {
			continue
		}

		poi, err := parseRow(row, index, len(result.POIs))
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		result.POIs = append(result.POIs, poi)
	}

	if len(result.POIs) == 0 {
		return nil, ErrNoData
	}
	return result, nil
}

func findHeader(records [][]string) (int, map[string]int) {
	for i, row := range records {
		index := map[string]int{}
		for col, cell := range row {
			name := strings.ToLower(strings.TrimSpace(cell))
			for field, aliases := range columns {
				for _, alias := range aliases {
					if name == alias {
						if _, seen := index[field]; !seen {
							index[field] = col
						}
					}
				}
			}
		}
		if _, ok := index["title"]; ok {
			return i, index
		}
	}
	return -1, nil
}

func isSkipRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return strings.HasPrefix(strings.TrimSpace(row[0]), "#")
		}
	}
	return true
}

func parseRow(row []string, index map[string]int, position int) (*models.POI, error) {
	cell := func(field string) string {
		col, ok := index[field]
		if !ok || col >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[col])
	}

	title := cleanTitle(cell("title"))
	if title == "" {
		return nil, errors.New("missing title")
	}

	order := position
	if v := cell("order_index"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid order %q", v)
		}
		order = n
	}

	return &models.POI{
		OrderIndex:       order,
		Title:            title,
		TextHTML:         cell("text_html"),
		AudioURL:         cell("audio_url"),
		FeaturedImageURL: cell("featured_image_url"),
	}, nil
}

func cleanTitle(s string) string {
	s = strings.TrimSpace(s)
	// Truncate very long titles
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
