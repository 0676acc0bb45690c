package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pricetrack/internal/domain"
)

func newTestExtractor() *Extractor {
	return New(zap.NewNop())
}

func TestExtractMetaTierWinsOverDOM(t *testing.T) {
	markup := `<html><head>
		<meta property="og:title" content="Wireless Earbuds"/>
		<meta property="product:sale_price:amount" content="100"/>
		<meta property="product:price:amount" content="150"/>
		<meta property="product:price:currency" content="SAR"/>
	</head><body>
		<div class="product-price">200 SAR</div>
	</body></html>`

	rec := newTestExtractor().Extract(domain.PlatformSalla, markup, "https://demo.salla.sa/p/1")
	require.True(t, rec.HasPrice())
	assert.Equal(t, 100.0, *rec.Price)
	assert.Equal(t, "Wireless Earbuds", rec.Name)
	assert.Equal(t, "SAR", rec.Currency)
}

func TestExtractSalePriceBeatsListPrice(t *testing.T) {
	markup := `<html><head>
		<meta property="product:price:amount" content="150"/>
		<meta property="product:sale_price:amount" content="120"/>
	</head></html>`

	rec := newTestExtractor().Extract(domain.PlatformSalla, markup, "u")
	require.True(t, rec.HasPrice())
	assert.Equal(t, 120.0, *rec.Price)
}

func TestExtractPretaxVATUplift(t *testing.T) {
	markup := `<html><head>
		<meta property="product:pretax_price:amount" content="100"/>
	</head></html>`

	rec := newTestExtractor().Extract(domain.PlatformSalla, markup, "u")
	require.True(t, rec.HasPrice())
	assert.Equal(t, 115.0, *rec.Price)
}

func TestExtractMetaProductFields(t *testing.T) {
	markup := `<html><head>
		<meta property="og:title" content="Hand Cream"/>
		<meta property="og:image" content="https://cdn.example.com/cream.jpg"/>
		<meta property="og:description" content="Soft hands."/>
		<meta property="og:site_name" content="Beauty Box"/>
		<meta property="product:brand" content="Derma"/>
		<meta property="product:category" content="Skincare"/>
		<meta property="product:retailer_item_id" content="SKU-42"/>
		<meta property="product:availability" content="in stock"/>
		<meta property="product:price:amount" content="35.50"/>
	</head></html>`

	rec := newTestExtractor().Extract(domain.PlatformSalla, markup, "u")
	require.True(t, rec.HasPrice())
	assert.Equal(t, 35.50, *rec.Price)
	assert.Equal(t, "https://cdn.example.com/cream.jpg", rec.ImageURL)
	assert.Equal(t, "Soft hands.", rec.Description)
	assert.Equal(t, "Beauty Box", rec.StoreName)
	assert.Equal(t, "Derma", rec.Brand)
	assert.Equal(t, "Skincare", rec.Category)
	assert.Equal(t, "SKU-42", rec.SKU)
}

func TestExtractJSONLDProduct(t *testing.T) {
	markup := `<html><head>
		<script type="application/ld+json">
		{
			"@type": "Product",
			"name": "Leather Wallet",
			"description": "Full-grain leather.",
			"sku": "W-100",
			"brand": {"name": "Craft Co"},
			"image": ["https://cdn.example.com/w1.jpg", "https://cdn.example.com/w2.jpg"],
			"offers": {
				"price": "50",
				"priceCurrency": "USD",
				"availability": "https://schema.org/InStock"
			}
		}
		</script>
	</head></html>`

	rec := newTestExtractor().Extract(domain.PlatformZid, markup, "u")
	require.True(t, rec.HasPrice())
	assert.Equal(t, 50.0, *rec.Price)
	assert.Equal(t, "USD", rec.Currency)
	assert.Equal(t, "InStock", rec.Availability)
	assert.Equal(t, "Leather Wallet", rec.Name)
	assert.Equal(t, "Craft Co", rec.Brand)
	assert.Equal(t, "W-100", rec.SKU)
	assert.Equal(t, "https://cdn.example.com/w1.jpg", rec.ImageURL)
}

func TestExtractJSONLDNumericPriceAndList(t *testing.T) {
	// Top-level list; the first Product entry wins, graph noise is
	// ignored.
	markup := `<html><head>
		<script type="application/ld+json">
		[
			{"@type": "BreadcrumbList"},
			{"@type": "Product", "name": "Mug", "offers": [{"price": 19.5, "priceCurrency": "SAR"}]}
		]
		</script>
	</head></html>`

	rec := newTestExtractor().Extract(domain.PlatformZid, markup, "u")
	require.True(t, rec.HasPrice())
	assert.Equal(t, 19.5, *rec.Price)
	assert.Equal(t, "Mug", rec.Name)
}

func TestExtractMalformedJSONLDBlockIsSkipped(t *testing.T) {
	markup := `<html><head>
		<script type="application/ld+json">{not valid json</script>
		<script type="application/ld+json">
		{"@type": "Product", "name": "Backup Block", "offers": {"price": "77"}}
		</script>
	</head></html>`

	rec := newTestExtractor().Extract(domain.PlatformZid, markup, "u")
	require.True(t, rec.HasPrice())
	assert.Equal(t, 77.0, *rec.Price)
	assert.Equal(t, "Backup Block", rec.Name)
}

func TestExtractDOMTierScansAllMatches(t *testing.T) {
	// The first .product-price node has no parseable price; the second
	// one does. Matches are scanned in document order.
	markup := `<html><body>
		<span class="product-price">SALE</span>
		<span class="product-price">89.99 SAR</span>
	</body></html>`

	rec := newTestExtractor().Extract(domain.PlatformSalla, markup, "u")
	require.True(t, rec.HasPrice())
	assert.Equal(t, 89.99, *rec.Price)
}

func TestExtractDOMTierSelectorOrder(t *testing.T) {
	// Zid selectors only; the salla extractor must not find this price.
	markup := `<html><body>
		<div class="product-details-price">149 SAR</div>
	</body></html>`

	rec := newTestExtractor().Extract(domain.PlatformZid, markup, "u")
	require.True(t, rec.HasPrice())
	assert.Equal(t, 149.0, *rec.Price)

	rec = newTestExtractor().Extract(domain.PlatformSalla, markup, "u")
	assert.False(t, rec.HasPrice())
}

func TestExtractTitleFallbackName(t *testing.T) {
	salla := `<html><head><title>Charger-Best Store</title></head>
		<body><div class="price">30</div></body></html>`
	rec := newTestExtractor().Extract(domain.PlatformSalla, salla, "u")
	assert.Equal(t, "Charger", rec.Name)

	zid := `<html><head><title>USB-C Cable - Gadget Shop</title></head>
		<body><div class="price-box">25</div></body></html>`
	rec = newTestExtractor().Extract(domain.PlatformZid, zid, "u")
	assert.Equal(t, "USB-C Cable", rec.Name)
}

func TestExtractDefaults(t *testing.T) {
	markup := `<html><head>
		<meta property="product:price:amount" content="10"/>
	</head></html>`

	rec := newTestExtractor().Extract(domain.PlatformSalla, markup, "u")
	require.True(t, rec.HasPrice())
	assert.Equal(t, "SAR", rec.Currency)
	assert.Equal(t, "in stock", rec.Availability)
}

func TestExtractNothingFound(t *testing.T) {
	rec := newTestExtractor().Extract(domain.PlatformSalla,
		`<html><body><p>nothing here</p></body></html>`, "u")
	assert.False(t, rec.HasPrice())
	assert.Equal(t, "SAR", rec.Currency)
}

func TestExtractUnknownPlatformYieldsEmptyRecord(t *testing.T) {
	rec := newTestExtractor().Extract(domain.PlatformUnknown,
		`<html><body><div class="price">10</div></body></html>`, "u")
	assert.False(t, rec.HasPrice())
}
