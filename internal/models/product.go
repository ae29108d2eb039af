package models

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrTitleRequired = errors.New("title is required")
	ErrCityRequired  = errors.New("city is required")
	ErrInvalidPrice  = errors.New("price must be greater than zero")
)

// Language is an available narration language
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// AvailableLanguages is the static list of narration languages
var AvailableLanguages = []Language{
	{Code: "en", Name: "English"},
	{Code: "es", Name: "Spanish"},
	{Code: "fr", Name: "French"},
	{Code: "it", Name: "Italian"},
	{Code: "de", Name: "German"},
}

// IsAvailableLanguage reports whether code is in AvailableLanguages
func IsAvailableLanguage(code string) bool {
	for _, l := range AvailableLanguages {
		if l.Code == code {
			return true
		}
	}
	return false
}

// Product is a purchasable audio guide
type Product struct {
	ID                 int64               `json:"id"`
	Title              string              `json:"title"`
	Slug               string              `json:"slug"`
	City               string              `json:"city"`
	Description        string              `json:"description,omitempty"`
	CoverImageURL      string              `json:"cover_image_url,omitempty"`
	Price              decimal.Decimal     `json:"price"`
	DiscountPrice      decimal.NullDecimal `json:"discount_price"`
	AvailableLanguages []string            `json:"available_languages"`
	IsPublished        bool                `json:"is_published"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// EffectivePrice is the discount price when one is set, the list price otherwise
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.DiscountPrice.Valid {
		return p.DiscountPrice.Decimal
	}
	return p.Price
}

var slugSeparators = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL slug from a title
func Slugify(title string) string {
	return slugSeparators.ReplaceAllString(strings.ToLower(title), "-")
}

// Normalize trims fields and fills in derived defaults before a save
func (p *Product) Normalize() {
	p.Title = strings.TrimSpace(p.Title)
	p.City = strings.TrimSpace(p.City)
	p.Slug = strings.TrimSpace(p.Slug)
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}
	if len(p.AvailableLanguages) == 0 {
		p.AvailableLanguages = []string{"en"}
	}
}

// Validate checks the fields required to save a product
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return ErrTitleRequired
	}
	if strings.TrimSpace(p.City) == "" {
		return ErrCityRequired
	}
	if !p.Price.IsPositive() {
		return ErrInvalidPrice
	}
	if p.DiscountPrice.Valid && !p.DiscountPrice.Decimal.IsPositive() {
		return ErrInvalidPrice
	}
	return nil
}

// POI is a narrated stop of a guide, ordered within its language
type POI struct {
	ID               int64  `json:"id"`
	ProductID        int64  `json:"product_id"`
	LanguageCode     string `json:"language_code"`
	OrderIndex       int    `json:"order_index"`
	Title            string `json:"title"`
	TextHTML         string `json:"text_html,omitempty"`
	AudioURL         string `json:"audio_url,omitempty"`
	FeaturedImageURL string `json:"featured_image_url,omitempty"`
}
