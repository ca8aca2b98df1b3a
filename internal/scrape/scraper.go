package scrape

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"adgen/internal/domain"
)

const (
	userAgent   = "Mozilla/5.0 (compatible; adgen/1.0)"
	maxBodyText = 2000
)

// Scraper fetches a product page and extracts best-effort metadata. Every
// field is resolved through an ordered list of selectors; the first non-empty
// match wins and a page that matches nothing still scrapes successfully with
// empty fields.
type Scraper struct {
	client *http.Client
}

// New builds a scraper whose requests are bounded by timeout.
func New(timeout time.Duration) *Scraper {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Scraper{client: &http.Client{Timeout: timeout}}
}

// extractor resolves one candidate value for a field.
type extractor func(doc *goquery.Document) string

// Scrape downloads productURL and extracts product metadata. Network
// failures, non-2xx responses and parse failures all surface as one generic
// error.
func (s *Scraper) Scrape(ctx context.Context, productURL string) (*domain.ProductInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, productURL, nil)
	if err != nil {
		return nil, fmt.Errorf("scrape %s: %w", productURL, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scrape %s: %w", productURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("scrape %s: unexpected status %d", productURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("scrape %s: parse page: %w", productURL, err)
	}

	info := &domain.ProductInfo{
		Name: first(doc,
			meta(`meta[property="og:title"]`),
			text(`h1[itemprop="name"]`),
			text(`[itemprop="name"]`),
			text("h1.product-title"),
			text("h1"),
			text("title"),
		),
		Description: first(doc,
			meta(`meta[property="og:description"]`),
			meta(`meta[name="description"]`),
			text(`[itemprop="description"]`),
			text(".product-description"),
			text("#description"),
		),
		Price: first(doc,
			attr(`[itemprop="price"]`, "content"),
			text(`[itemprop="price"]`),
			text(".product-price"),
			text(".current-price"),
			text(".price"),
			text("span.amount"),
		),
		OriginalPrice: first(doc,
			text(".original-price"),
			text(".old-price"),
			text("del"),
			text("s"),
		),
		Offer: first(doc,
			text(".offer"),
			text(".discount"),
			text(".promo"),
			text(".sale-badge"),
		),
		Phone: first(doc,
			telHref(`a[href^="tel:"]`),
			text(`[itemprop="telephone"]`),
			text(".phone"),
		),
		Location: first(doc,
			text(`[itemprop="address"]`),
			meta(`meta[name="geo.placename"]`),
			text(".location"),
			text(".address"),
		),
		BodyText: bodyText(doc),
	}
	return info, nil
}

func first(doc *goquery.Document, extractors ...extractor) string {
	for _, extract := range extractors {
		if v := extract(doc); v != "" {
			return v
		}
	}
	return ""
}

func text(selector string) extractor {
	return func(doc *goquery.Document) string {
		return collapse(doc.Find(selector).First().Text())
	}
}

func attr(selector, name string) extractor {
	return func(doc *goquery.Document) string {
		v, _ := doc.Find(selector).First().Attr(name)
		return collapse(v)
	}
}

func meta(selector string) extractor {
	return attr(selector, "content")
}

func telHref(selector string) extractor {
	return func(doc *goquery.Document) string {
		href, _ := doc.Find(selector).First().Attr("href")
		return collapse(strings.TrimPrefix(href, "tel:"))
	}
}

func bodyText(doc *goquery.Document) string {
	body := collapse(doc.Find("body").Text())
	if len(body) > maxBodyText {
		body = body[:maxBodyText]
	}
	return body
}

// collapse trims and folds whitespace runs into single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
