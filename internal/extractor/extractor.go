package extractor

import (
	"encoding/json"
	"fmt"
	"math"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"pricetrack/internal/domain"
)

// vatRate is the uplift applied when a page only exposes a pretax
// price amount.
const vatRate = 0.15

// Extractor pulls product records out of storefront markup. It is
// stateless and safe for concurrent use.
type Extractor struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract runs the platform's fallback chain over the markup: page
// metadata, then embedded JSON-LD, then theme price selectors, and
// finally the page title for a missing name. The chain stops looking
// for a price at the first tier that produces one; fields found by
// earlier tiers are kept. A failing tier never aborts the others.
func (e *Extractor) Extract(platform domain.Platform, markup, rawURL string) *domain.ProductRecord {
	rec := &domain.ProductRecord{}

	prof, ok := profileFor(platform)
	if !ok {
		return rec
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		e.logger.Warn("unparseable markup",
			zap.String("url", rawURL),
			zap.Error(err))
		return rec
	}

	e.try(rawURL, "meta", func() { e.fromMeta(doc, rec) })
	if rec.Price == nil {
		e.try(rawURL, "jsonld", func() { e.fromJSONLD(doc, rec) })
	}
	if rec.Price == nil {
		e.try(rawURL, "selectors", func() { e.fromSelectors(doc, prof, rec) })
	}
	if rec.Name == "" {
		e.try(rawURL, "title", func() { e.fromTitle(doc, prof, rec) })
	}

	applyDefaults(rec)
	return rec
}

// try contains a single extraction method: a panic inside it means
// "this method found nothing", never a failed extraction.
func (e *Extractor) try(rawURL, method string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("extraction method panicked",
				zap.String("url", rawURL),
				zap.String("method", method),
				zap.Any("panic", r))
		}
	}()
	fn()
}

// fromMeta reads open-graph and product meta properties. For the
// price, the sale amount wins over the list amount, which wins over a
// pretax amount uplifted by VAT.
func (e *Extractor) fromMeta(doc *goquery.Document, rec *domain.ProductRecord) {
	meta := func(prop string) string {
		sel := fmt.Sprintf(`meta[property=%q]`, prop)
		return strings.TrimSpace(doc.Find(sel).First().AttrOr("content", ""))
	}

	if v := meta("og:title"); v != "" {
		rec.Name = v
	}
	if v := meta("og:image"); v != "" {
		rec.ImageURL = v
	}
	if v := meta("og:description"); v != "" {
		rec.Description = v
	}
	if v := meta("og:site_name"); v != "" {
		rec.StoreName = v
	}
	if v := meta("product:brand"); v != "" {
		rec.Brand = v
	}
	if v := meta("product:category"); v != "" {
		rec.Category = v
	}
	if v := meta("product:retailer_item_id"); v != "" {
		rec.SKU = v
	}
	if v := meta("product:price:currency"); v != "" {
		rec.Currency = v
	}
	if v := meta("product:availability"); v != "" {
		rec.Availability = v
	}

	if p := CleanPrice(meta("product:sale_price:amount")); p != nil {
		rec.Price = p
		return
	}
	if p := CleanPrice(meta("product:price:amount")); p != nil {
		rec.Price = p
		return
	}
	if p := CleanPrice(meta("product:pretax_price:amount")); p != nil {
		gross := round2(*p * (1 + vatRate))
		rec.Price = &gross
	}
}

// ldProduct is the subset of a schema.org Product block the extractor
// cares about. Brand, image and offers vary in shape across themes, so
// they stay raw until merged.
type ldProduct struct {
	Type        string          `json:"@type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	SKU         string          `json:"sku"`
	Brand       json.RawMessage `json:"brand"`
	Image       json.RawMessage `json:"image"`
	Offers      json.RawMessage `json:"offers"`
}

type ldOffer struct {
	Price         any    `json:"price"`
	PriceCurrency string `json:"priceCurrency"`
	Availability  string `json:"availability"`
}

type ldBrand struct {
	Name string `json:"name"`
}

// fromJSONLD scans every embedded structured-data block. A malformed
// block is skipped on its own; later blocks on the same page are still
// read. Scanning stops once a block yields a price.
func (e *Extractor) fromJSONLD(doc *goquery.Document, rec *domain.ProductRecord) {
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		product, ok := decodeProductBlock(s.Text())
		if !ok {
			return true
		}
		mergeProductBlock(product, rec)
		return rec.Price == nil
	})
}

// decodeProductBlock parses one ld+json payload. A top-level list
// yields its first entry declaring @type Product.
func decodeProductBlock(raw string) (ldProduct, bool) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "[") {
		var items []ldProduct
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return ldProduct{}, false
		}
		for _, item := range items {
			if item.Type == "Product" {
				return item, true
			}
		}
		return ldProduct{}, false
	}

	var item ldProduct
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return ldProduct{}, false
	}
	if item.Type != "Product" {
		return ldProduct{}, false
	}
	return item, true
}

// mergeProductBlock fills still-empty record fields from a Product
// block. Earlier tiers always win.
func mergeProductBlock(p ldProduct, rec *domain.ProductRecord) {
	if rec.Name == "" && p.Name != "" {
		rec.Name = p.Name
	}
	if rec.Description == "" && p.Description != "" {
		rec.Description = p.Description
	}
	if rec.SKU == "" && p.SKU != "" {
		rec.SKU = p.SKU
	}
	if rec.Brand == "" {
		rec.Brand = decodeBrand(p.Brand)
	}
	if rec.ImageURL == "" {
		rec.ImageURL = decodeFirstString(p.Image)
	}

	offer, ok := decodeFirstOffer(p.Offers)
	if !ok {
		return
	}
	if rec.Price == nil && offer.Price != nil {
		rec.Price = CleanPrice(fmt.Sprint(offer.Price))
	}
	if rec.Currency == "" && offer.PriceCurrency != "" {
		rec.Currency = offer.PriceCurrency
	}
	if rec.Availability == "" && offer.Availability != "" {
		// "https://schema.org/InStock" -> "InStock"
		rec.Availability = path.Base(offer.Availability)
	}
}

func decodeBrand(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return name
	}
	var brand ldBrand
	if err := json.Unmarshal(raw, &brand); err == nil {
		return brand.Name
	}
	return ""
}

func decodeFirstString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	return ""
}

func decodeFirstOffer(raw json.RawMessage) (ldOffer, bool) {
	if len(raw) == 0 {
		return ldOffer{}, false
	}
	var offer ldOffer
	if err := json.Unmarshal(raw, &offer); err == nil {
		return offer, true
	}
	var offers []ldOffer
	if err := json.Unmarshal(raw, &offers); err == nil && len(offers) > 0 {
		return offers[0], true
	}
	return ldOffer{}, false
}

// fromSelectors tries the platform's theme price selectors in order.
// Every match of a selector is scanned in document order; the first
// text that normalizes to a price wins.
func (e *Extractor) fromSelectors(doc *goquery.Document, prof profile, rec *domain.ProductRecord) {
	for _, sel := range prof.priceSelectors {
		var found *float64
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if p := CleanPrice(strings.TrimSpace(s.Text())); p != nil {
				found = p
				return false
			}
			return true
		})
		if found != nil {
			rec.Price = found
			return
		}
	}
}

// fromTitle derives a product name from the page title, keeping the
// prefix before the platform's store-name delimiter.
func (e *Extractor) fromTitle(doc *goquery.Document, prof profile, rec *domain.ProductRecord) {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		return
	}
	name := strings.TrimSpace(strings.SplitN(title, prof.titleDelimiter, 2)[0])
	if name != "" {
		rec.Name = name
	}
}

func applyDefaults(rec *domain.ProductRecord) {
	if rec.Currency == "" {
		rec.Currency = "SAR"
	}
	if rec.Availability == "" {
		rec.Availability = "in stock"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
