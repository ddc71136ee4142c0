package parser

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/storefront-tools/epicscraper/internal/models"
)

const (
	titleSelector    = `[data-component="PDPTitleHeader"]`
	priceSelector    = `[data-component="PriceLayout"]`
	sidebarSelector  = `[data-component="SidebarMetadataLayout"]`
	textSelector     = `[data-component="Text"]`
	metadataSelector = `[data-component="MetadataList"]`
	messageSelector  = `[data-component="Message"]`
	criticSelector   = `[data-component="PDPCriticReviewMetricsLayout"]`
	metricSelector   = `.css-1q9chu`
	carouselSelector = `[data-component="PDPCarousel"]`
	pictureSelector  = `[data-component="Picture"] img`

	currencySymbol = "£"
	freeLabel      = "Free"

	// Release dates on the sidebar use month/day/2-digit-year.
	releaseDateLayout = "1/2/06"

	// Image URLs on this host are internal admin assets that leak into the
	// carousel markup and must never reach the record.
	adminAssetHostPrefix = "admin."
)

// ParsePercentage converts text like "90%" into the integer 90. The input
// must end in a percent sign with a base-10 integer before it.
func ParsePercentage(s string) (int, error) {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimSuffix(trimmed, "%")

	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: not a percentage: %q", ErrFormat, s)
	}

	return n, nil
}

// EpicParser extracts game records from Epic Games Store detail pages.
// The title is mandatory; every other section is independently best-effort.
type EpicParser struct{}

func NewEpicParser() *EpicParser {
	return &EpicParser{}
}

func (p *EpicParser) ParseDetailPage(html, pageURL string) (*Detail, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	titleSel := doc.Find(titleSelector).First()
	if titleSel.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTitleMissing, pageURL)
	}

	game := &models.Game{
		URL:       pageURL,
		Title:     strings.TrimSpace(titleSel.Text()),
		Genres:    []string{},
		ImageURLs: []string{},
	}

	detail := &Detail{
		Game:     game,
		Sections: make(map[string]SectionStatus),
	}

	// The discount branch of the price block parses a percentage at top
	// level; a FormatError there propagates instead of nulling the section.
	if err := p.extractPrice(doc, detail); err != nil {
		return nil, err
	}

	p.extractSidebar(doc, detail)
	p.extractGenres(doc, detail)
	p.extractCritic(doc, detail)
	p.extractPictures(doc, detail)

	return detail, nil
}

// extractPrice splits the price area on the currency symbol. "Free" means
// price zero with no discount fields; exactly three segments are
// (discount-percent, original-price, current-price); anything else keeps
// just the current price.
func (p *EpicParser) extractPrice(doc *goquery.Document, d *Detail) error {
	sel := doc.Find(priceSelector).First()
	if sel.Length() == 0 {
		d.Sections[SectionPrice] = SectionStatus{Reason: "price block not present"}
		return nil
	}

	parts := strings.Split(strings.TrimSpace(sel.Text()), currencySymbol)

	if strings.TrimSpace(parts[0]) == freeLabel {
		d.Game.Price = 0
		d.Sections[SectionPrice] = SectionStatus{OK: true}
		return nil
	}

	if len(parts) == 3 {
		percent, err := ParsePercentage(parts[0])
		if err != nil {
			return err
		}

		original, err := parseAmount(parts[1])
		if err != nil {
			d.Sections[SectionPrice] = SectionStatus{Reason: fmt.Sprintf("bad original price: %v", err)}
			return nil
		}

		current, err := parseAmount(parts[2])
		if err != nil {
			d.Sections[SectionPrice] = SectionStatus{Reason: fmt.Sprintf("bad current price: %v", err)}
			return nil
		}

		d.Game.Price = current
		d.Game.DiscountedFromPrice = &original
		d.Game.DiscountPercent = &percent
		d.Sections[SectionPrice] = SectionStatus{OK: true}
		return nil
	}

	// Ambiguous or partial layout: retain only the current price.
	if len(parts) < 2 {
		d.Sections[SectionPrice] = SectionStatus{Reason: "no price segment after currency symbol"}
		return nil
	}

	current, err := parseAmount(parts[1])
	if err != nil {
		d.Sections[SectionPrice] = SectionStatus{Reason: fmt.Sprintf("bad current price: %v", err)}
		return nil
	}

	d.Game.Price = current
	d.Sections[SectionPrice] = SectionStatus{OK: true}
	return nil
}

// extractSidebar pulls developer, publisher and release date from the
// sidebar text nodes. The three fields are one try unit: any lookup or
// parse failure nulls all of them together.
func (p *EpicParser) extractSidebar(doc *goquery.Document, d *Detail) {
	sel := doc.Find(sidebarSelector).First()
	if sel.Length() == 0 {
		d.Sections[SectionSidebar] = SectionStatus{Reason: "sidebar not present"}
		return
	}

	var tokens []string
	sel.Find(textSelector).Each(func(_ int, s *goquery.Selection) {
		tokens = append(tokens, strings.TrimSpace(s.Text()))
	})

	developer, err := tokenAfter(tokens, "Developer")
	if err != nil {
		d.Sections[SectionSidebar] = SectionStatus{Reason: err.Error()}
		return
	}

	publisher, err := tokenAfter(tokens, "Publisher")
	if err != nil {
		d.Sections[SectionSidebar] = SectionStatus{Reason: err.Error()}
		return
	}

	dateToken, err := tokenAfter(tokens, "Release Date")
	if err != nil {
		d.Sections[SectionSidebar] = SectionStatus{Reason: err.Error()}
		return
	}

	released, err := time.Parse(releaseDateLayout, dateToken)
	if err != nil {
		d.Sections[SectionSidebar] = SectionStatus{Reason: fmt.Sprintf("bad release date %q", dateToken)}
		return
	}

	d.Game.Developer = &developer
	d.Game.Publisher = &publisher
	d.Game.ReleaseDate = models.NewDate(released)
	d.Sections[SectionSidebar] = SectionStatus{OK: true}
}

func (p *EpicParser) extractGenres(doc *goquery.Document, d *Detail) {
	sel := doc.Find(metadataSelector).First()
	if sel.Length() == 0 {
		d.Sections[SectionGenres] = SectionStatus{Reason: "metadata list not present"}
		return
	}

	sel.Find(messageSelector).Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			d.Game.Genres = append(d.Game.Genres, text)
		}
	})

	d.Sections[SectionGenres] = SectionStatus{OK: true}
}

// extractCritic reads recommend-percentage and top-critic-average from the
// first two metric nodes. They are absent together on any failure.
func (p *EpicParser) extractCritic(doc *goquery.Document, d *Detail) {
	sel := doc.Find(criticSelector).First()
	if sel.Length() == 0 {
		d.Sections[SectionCritic] = SectionStatus{Reason: "critic metrics not present"}
		return
	}

	var metrics []string
	sel.Find(metricSelector).Each(func(_ int, s *goquery.Selection) {
		metrics = append(metrics, strings.TrimSpace(s.Text()))
	})

	if len(metrics) < 2 {
		d.Sections[SectionCritic] = SectionStatus{Reason: fmt.Sprintf("expected 2 critic metrics, found %d", len(metrics))}
		return
	}

	recommend, err := ParsePercentage(metrics[0])
	if err != nil {
		d.Sections[SectionCritic] = SectionStatus{Reason: fmt.Sprintf("bad recommend percentage %q", metrics[0])}
		return
	}

	topAverage := metrics[1]
	d.Game.CriticRecommendPercent = &recommend
	d.Game.CriticTopAverage = &topAverage
	d.Sections[SectionCritic] = SectionStatus{OK: true}
}

func (p *EpicParser) extractPictures(doc *goquery.Document, d *Detail) {
	sel := doc.Find(carouselSelector).First()
	if sel.Length() == 0 {
		d.Sections[SectionPictures] = SectionStatus{Reason: "carousel not present"}
		return
	}

	sel.Find(pictureSelector).Each(func(_ int, s *goquery.Selection) {
		src, exists := s.Attr("src")
		if !exists || src == "" {
			return
		}
		if isAdminAsset(src) {
			return
		}
		d.Game.ImageURLs = append(d.Game.ImageURLs, src)
	})

	d.Sections[SectionPictures] = SectionStatus{OK: true}
}

func isAdminAsset(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.HasPrefix(u.Hostname(), adminAssetHostPrefix)
}

func parseAmount(s string) (float64, error) {
	amount, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: not a price: %q", ErrFormat, s)
	}
	return amount, nil
}

func tokenAfter(tokens []string, label string) (string, error) {
	for i, token := range tokens {
		if token == label {
			if i+1 >= len(tokens) {
				return "", fmt.Errorf("no value after %q", label)
			}
			return tokens[i+1], nil
		}
	}
	return "", fmt.Errorf("label %q not found", label)
}
