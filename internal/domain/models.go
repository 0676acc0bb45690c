package domain

import "time"

// Platform identifies which storefront software rendered a product page.
type Platform string

const (
	PlatformSalla Platform = "salla"
	PlatformZid   Platform = "zid"

	// PlatformUnknown means detection matched nothing. It is a valid
	// result, not an error.
	PlatformUnknown Platform = ""
)

// Platforms lists the supported platforms in detection order. Ties
// resolve in this order.
var Platforms = []Platform{PlatformSalla, PlatformZid}

// ProductRecord holds the fields extracted from one product page. All
// fields except Price are best effort; a record without a price is not
// usable by callers.
type ProductRecord struct {
	URL          string   `json:"url"`
	Platform     Platform `json:"platform"`
	Name         string   `json:"name,omitempty"`
	Price        *float64 `json:"price"`
	Currency     string   `json:"currency"`
	Availability string   `json:"availability"`
	ImageURL     string   `json:"image_url,omitempty"`
	Description  string   `json:"description,omitempty"`
	Brand        string   `json:"brand,omitempty"`
	SKU          string   `json:"sku,omitempty"`
	StoreName    string   `json:"store_name,omitempty"`
	Category     string   `json:"category,omitempty"`
}

// HasPrice reports whether the record carries a price and is therefore
// usable.
func (r *ProductRecord) HasPrice() bool {
	return r != nil && r.Price != nil
}

// TrackedURL is a product page registered for periodic price checks.
type TrackedURL struct {
	ID          int64      `json:"id"`
	URL         string     `json:"url"`
	Platform    Platform   `json:"platform"`
	ProductID   *int64     `json:"product_id,omitempty"`
	IsValid     bool       `json:"is_valid"`
	LastChecked *time.Time `json:"last_checked,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Product is a persisted product with its most recent price.
type Product struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	CurrentPrice float64   `json:"current_price"`
	Currency     string    `json:"currency"`
	ImageURL     string    `json:"image_url,omitempty"`
	Description  string    `json:"description,omitempty"`
	Availability string    `json:"availability,omitempty"`
	Brand        string    `json:"brand,omitempty"`
	SKU          string    `json:"sku,omitempty"`
	StoreName    string    `json:"store_name,omitempty"`
	Category     string    `json:"category,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PriceEntry is one point in a product's price history.
type PriceEntry struct {
	ProductID  int64     `json:"product_id"`
	Price      float64   `json:"price"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ValidateRequest is the payload for the URL validation endpoint.
type ValidateRequest struct {
	URL string `json:"url"`
}

// ValidateResponse reports whether a URL points at an extractable
// product. "Unsupported platform" and "could not extract" are distinct
// outcomes, not errors.
type ValidateResponse struct {
	Valid    bool     `json:"valid"`
	Message  string   `json:"message,omitempty"`
	Platform Platform `json:"platform,omitempty"`
	Name     string   `json:"name,omitempty"`
	Price    *float64 `json:"price,omitempty"`
	Currency string   `json:"currency,omitempty"`
}

// TrackRequest registers URLs for price tracking.
type TrackRequest struct {
	URLs []string `json:"urls"`
}

// TrackResponse lists which URLs were accepted and which were skipped.
type TrackResponse struct {
	Tracked []string          `json:"tracked"`
	Skipped map[string]string `json:"skipped,omitempty"` // url -> reason
}

// URLStatusResponse is the API response for a tracked URL status query.
type URLStatusResponse struct {
	URL         string     `json:"url"`
	Platform    Platform   `json:"platform"`
	IsValid     bool       `json:"is_valid"`
	LastChecked *time.Time `json:"last_checked,omitempty"`
}
