package parser

import (
	"errors"

	"github.com/storefront-tools/epicscraper/internal/models"
)

var (
	// ErrTitleMissing is returned when the mandatory title node is absent.
	// Every other section degrades to absent fields instead of failing.
	ErrTitleMissing = errors.New("title not found")

	// ErrFormat indicates malformed percentage or date text.
	ErrFormat = errors.New("malformed value")
)

// Section names reported in a Detail's section map.
const (
	SectionPrice    = "price"
	SectionSidebar  = "sidebar"
	SectionGenres   = "genres"
	SectionCritic   = "critic"
	SectionPictures = "pictures"
)

// SectionStatus records whether one best-effort section of a detail page
// produced a value, and if not, why. The reason distinguishes "not present
// on the page" from a parse failure.
type SectionStatus struct {
	OK     bool
	Reason string
}

// Detail is the result of extracting one detail page: the record itself
// plus the per-section outcomes.
type Detail struct {
	Game     *models.Game
	Sections map[string]SectionStatus
}

type Parser interface {
	ParseDetailPage(html, pageURL string) (*Detail, error)
}
