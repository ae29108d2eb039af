package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// GuideID identifies a guide product regardless of whether it arrived as a
// number or as a string. Its canonical form is the decimal string.
type GuideID string

// GuideIDOf converts a number-like or string-like identifier to a GuideID
func GuideIDOf(v any) GuideID {
	switch id := v.(type) {
	case GuideID:
		return id
	case string:
		return GuideID(strings.TrimSpace(id))
	case int:
		return GuideID(strconv.FormatInt(int64(id), 10))
	case int32:
		return GuideID(strconv.FormatInt(int64(id), 10))
	case int64:
		return GuideID(strconv.FormatInt(id, 10))
	case uint:
		return GuideID(strconv.FormatUint(uint64(id), 10))
	case uint32:
		return GuideID(strconv.FormatUint(uint64(id), 10))
	case uint64:
		return GuideID(strconv.FormatUint(id, 10))
	case float64:
		return guideIDFromFloat(id)
	case float32:
		return guideIDFromFloat(float64(id))
	case json.Number:
		return GuideID(id.String())
	case fmt.Stringer:
		return GuideID(id.String())
	case nil:
		return ""
	default:
		return GuideID(fmt.Sprint(id))
	}
}

func guideIDFromFloat(f float64) GuideID {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return GuideID(strconv.FormatInt(int64(f), 10))
	}
	return GuideID(strconv.FormatFloat(f, 'f', -1, 64))
}

// String returns the canonical string form
func (id GuideID) String() string {
	return string(id)
}

// UnmarshalJSON accepts both JSON numbers and JSON strings
func (id *GuideID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = GuideIDOf(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("guide id must be a number or a string: %w", err)
	}
	*id = GuideIDOf(n)
	return nil
}

// PurchasedGuide is one entry of the purchase ledger. Display fields are
// captured at purchase time and never refreshed.
type PurchasedGuide struct {
	ID            GuideID   `json:"id"`
	Title         string    `json:"title"`
	City          string    `json:"city,omitempty"`
	CoverImageURL string    `json:"cover_image_url,omitempty"`
	PurchasedAt   time.Time `json:"purchased_at,omitempty"`
}

// NewPurchasedGuide snapshots the display fields of a product
func NewPurchasedGuide(p *Product) PurchasedGuide {
	return PurchasedGuide{
		ID:            GuideIDOf(p.ID),
		Title:         p.Title,
		City:          p.City,
		CoverImageURL: p.CoverImageURL,
		PurchasedAt:   time.Now().UTC(),
	}
}
