package extractor

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pricetrack/internal/domain"
)

// DetectPlatform classifies a product URL into one of the supported
// platforms. When markup is available its signals are checked first:
// a platform's markup signature survives custom domains, while the URL
// host only identifies platform-hosted stores. The URL tier is the
// fallback for fetch failures and cheap pre-filtering. Unmatched input
// yields PlatformUnknown.
func DetectPlatform(rawURL, markup string) domain.Platform {
	if markup != "" {
		if p := detectFromMarkup(markup); p != domain.PlatformUnknown {
			return p
		}
	}
	return detectFromHost(rawURL)
}

func detectFromMarkup(markup string) domain.Platform {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		doc = nil
	}
	lower := strings.ToLower(markup)

	for _, prof := range profiles {
		if doc != nil && matchesDocument(doc, prof) {
			return prof.platform
		}
		for _, sig := range prof.markupSignals {
			if strings.Contains(lower, strings.ToLower(sig)) {
				return prof.platform
			}
		}
	}
	return domain.PlatformUnknown
}

func matchesDocument(doc *goquery.Document, prof profile) bool {
	gen := strings.ToLower(doc.Find(`meta[name="generator"]`).AttrOr("content", ""))
	for _, name := range prof.generatorNames {
		if gen != "" && strings.Contains(gen, name) {
			return true
		}
	}

	canonical := strings.ToLower(doc.Find(`link[rel="canonical"]`).AttrOr("href", ""))
	for _, host := range prof.hostSignals {
		if canonical != "" && strings.Contains(canonical, host) {
			return true
		}
	}

	matched := false
	doc.Find("script[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src := strings.ToLower(s.AttrOr("src", ""))
		for _, host := range prof.hostSignals {
			if strings.Contains(src, host) {
				matched = true
				return false
			}
		}
		return true
	})
	return matched
}

func detectFromHost(rawURL string) domain.Platform {
	u, err := url.Parse(rawURL)
	if err != nil {
		return domain.PlatformUnknown
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return domain.PlatformUnknown
	}

	for _, prof := range profiles {
		for _, suffix := range prof.domainSuffixes {
			if host == suffix || strings.HasSuffix(host, "."+suffix) {
				return prof.platform
			}
		}
	}
	return domain.PlatformUnknown
}
