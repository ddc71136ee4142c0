package models

import (
	"fmt"
	"strings"
	"time"
)

// Date is a calendar date without a time component. It marshals to its
// string form so records on disk stay readable and stable across runs.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

func NewDate(t time.Time) *Date {
	return &Date{Time: t}
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("failed to parse date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// ListingRef pairs a discovered detail-page URL with a locally generated
// identifier. The identifier is never derived from the site.
type ListingRef struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Game is the structured result of extracting one detail page. Optional
// fields are nil when the page lacks the corresponding section. A record
// is never mutated after it is written; a re-scrape produces a new record
// under a new identifier.
type Game struct {
	ID                     string   `json:"id"`
	URL                    string   `json:"url"`
	Title                  string   `json:"title"`
	Price                  float64  `json:"price"`
	DiscountedFromPrice    *float64 `json:"discounted_from_price,omitempty"`
	DiscountPercent        *int     `json:"discount_percent,omitempty"`
	Developer              *string  `json:"developer,omitempty"`
	Publisher              *string  `json:"publisher,omitempty"`
	Genres                 []string `json:"genres"`
	ReleaseDate            *Date    `json:"release_date,omitempty"`
	CriticRecommendPercent *int     `json:"critic_recommend_percent,omitempty"`
	CriticTopAverage       *string  `json:"critic_top_average,omitempty"`
	ImageURLs              []string `json:"image_urls"`
}

// ImageRef is one row of the images table, derived positionally from a
// game's image_urls and the files the local store wrote for them.
type ImageRef struct {
	PhotoID   string `json:"photo_id"`
	URL       string `json:"url"`
	LocalPath string `json:"local_path"`
	GameID    string `json:"game_id"`
}

func (g *Game) Validate() []string {
	var errs []string

	if g.ID == "" {
		errs = append(errs, "ID is required")
	}

	if g.URL == "" {
		errs = append(errs, "URL is required")
	}

	if g.Title == "" {
		errs = append(errs, "Title is required")
	}

	return errs
}
