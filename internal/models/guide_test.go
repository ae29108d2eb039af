package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestGuideIDOf(t *testing.T) {
	tests := []struct {
		name     string
		in       any
		expected GuideID
	}{
		{"int", 42, "42"},
		{"int64", int64(42), "42"},
		{"uint", uint(7), "7"},
		{"string", "42", "42"},
		{"padded string", " 42 ", "42"},
		{"integral float", float64(42), "42"},
		{"decimal string kept as written", "42.0", "42.0"},
		{"fractional float", 4.5, "4.5"},
		{"json number", json.Number("42"), "42"},
		{"guide id", GuideID("abc"), "abc"},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GuideIDOf(tt.in); got != tt.expected {
				t.Errorf("GuideIDOf(%v) = %q, want %q", tt.in, got, tt.expected)
			}
		})
	}
}

func TestGuideID_UnmarshalJSON(t *testing.T) {
	var guides []PurchasedGuide
	data := `[{"id":42,"title":"Rome Walk"},{"id":"7","title":"Paris"},{"id":null,"title":"Broken"}]`
	if err := json.Unmarshal([]byte(data), &guides); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if guides[0].ID != "42" {
		t.Errorf("Expected numeric id to decode as \"42\", got %q", guides[0].ID)
	}
	if guides[1].ID != "7" {
		t.Errorf("Expected string id to decode as \"7\", got %q", guides[1].ID)
	}
	if guides[2].ID != "" {
		t.Errorf("Expected null id to decode as empty, got %q", guides[2].ID)
	}
}

func TestGuideID_UnmarshalJSON_RejectsObjects(t *testing.T) {
	var id GuideID
	if err := json.Unmarshal([]byte(`{"id":1}`), &id); err == nil {
		t.Error("Expected error for object id")
	}
}

func TestNewPurchasedGuide(t *testing.T) {
	p := &Product{
		ID:            42,
		Title:         "Rome Walk",
		City:          "Rome",
		CoverImageURL: "https://example.com/rome.jpg",
		Price:         decimal.NewFromFloat(29.99),
	}

	g := NewPurchasedGuide(p)

	if g.ID != "42" {
		t.Errorf("Expected id 42, got %q", g.ID)
	}
	if g.Title != p.Title || g.City != p.City || g.CoverImageURL != p.CoverImageURL {
		t.Errorf("Expected display fields to be copied, got %+v", g)
	}
	if g.PurchasedAt.IsZero() {
		t.Error("Expected purchase time to be set")
	}
}
