package extractor

import "pricetrack/internal/domain"

// profile captures everything platform-specific about extraction:
// detection signals and the selector/delimiter conventions of the
// platform's themes. There are exactly two platforms, so a closed
// table replaces any extractor hierarchy.
type profile struct {
	platform domain.Platform

	// Host suffixes for URL-based detection when no markup is
	// available. Custom domains are common on both platforms, so
	// content signals below are checked first.
	domainSuffixes []string

	// Content signals, checked against fetched markup. generatorNames
	// match meta[name=generator]; hostSignals match canonical-link and
	// script-src hosts; markupSignals are raw substrings such as theme
	// globals and brand strings.
	generatorNames []string
	hostSignals    []string
	markupSignals  []string

	// Price selectors common across the platform's themes, tried in
	// order. All matches of a selector are scanned in document order.
	priceSelectors []string

	// Page titles are "<product><delimiter><store>"; the prefix is the
	// fallback product name.
	titleDelimiter string
}

var profiles = []profile{
	{
		platform:       domain.PlatformSalla,
		domainSuffixes: []string{"salla.sa", "salla.com"},
		generatorNames: []string{"salla"},
		hostSignals:    []string{"cdn.salla.sa", "assets.salla.network", "salla.sa"},
		markupSignals:  []string{"window.Salla", "salla-app", "twilight.device"},
		priceSelectors: []string{
			".product-price",
			".price",
			".product-details__price",
			"[data-price]",
		},
		titleDelimiter: "-",
	},
	{
		platform:       domain.PlatformZid,
		domainSuffixes: []string{"zid.store", "zid.sa"},
		generatorNames: []string{"zid"},
		hostSignals:    []string{"media.zid.store", "assets.zid.store", "zid.store"},
		markupSignals:  []string{"window.zid", "zid-theme", "zidapi"},
		priceSelectors: []string{
			".product-details-price",
			".product__price",
			".price-box",
			"[data-product-price]",
		},
		titleDelimiter: " - ",
	},
}

func profileFor(p domain.Platform) (profile, bool) {
	for _, prof := range profiles {
		if prof.platform == p {
			return prof, true
		}
	}
	return profile{}, false
}
