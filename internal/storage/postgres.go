package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pricetrack/internal/domain"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// PostgresStore handles interactions with the PostgreSQL database.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.db.Close()
}

// TrackURL registers a URL for price checks, reactivating it when it
// was previously marked invalid.
func (s *PostgresStore) TrackURL(ctx context.Context, rawURL string, platform domain.Platform) (*domain.TrackedURL, error) {
	var t domain.TrackedURL
	err := s.db.QueryRow(ctx,
		`INSERT INTO tracked_urls (url, platform, is_valid)
		 VALUES ($1, $2, TRUE)
		 ON CONFLICT (url) DO UPDATE SET
		   platform = EXCLUDED.platform, is_valid = TRUE
		 RETURNING id, url, platform, product_id, is_valid, last_checked, created_at`,
		rawURL, string(platform),
	).Scan(&t.ID, &t.URL, &t.Platform, &t.ProductID, &t.IsValid, &t.LastChecked, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ValidURLs returns every URL eligible for the next price run.
func (s *PostgresStore) ValidURLs(ctx context.Context) ([]domain.TrackedURL, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, url, platform, product_id, is_valid, last_checked, created_at
		 FROM tracked_urls WHERE is_valid = TRUE ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var urls []domain.TrackedURL
	for rows.Next() {
		var t domain.TrackedURL
		if err := rows.Scan(&t.ID, &t.URL, &t.Platform, &t.ProductID, &t.IsValid, &t.LastChecked, &t.CreatedAt); err != nil {
			return nil, err
		}
		urls = append(urls, t)
	}
	return urls, rows.Err()
}

// URLStatus returns the tracking state of a URL.
func (s *PostgresStore) URLStatus(ctx context.Context, rawURL string) (*domain.TrackedURL, error) {
	var t domain.TrackedURL
	err := s.db.QueryRow(ctx,
		`SELECT id, url, platform, product_id, is_valid, last_checked, created_at
		 FROM tracked_urls WHERE url = $1`,
		rawURL,
	).Scan(&t.ID, &t.URL, &t.Platform, &t.ProductID, &t.IsValid, &t.LastChecked, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// MarkInvalid excludes a URL from future runs until it is re-tracked.
func (s *PostgresStore) MarkInvalid(ctx context.Context, rawURL string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE tracked_urls SET is_valid = FALSE, last_checked = NOW() WHERE url = $1`,
		rawURL)
	return err
}

// SaveResult persists one extraction result within a single
// transaction: the product is created or updated, a price history
// entry is appended, and the tracked URL's bookkeeping is refreshed.
func (s *PostgresStore) SaveResult(ctx context.Context, rec *domain.ProductRecord) error {
	if !rec.HasPrice() {
		return errors.New("record has no price")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var urlID int64
	var productID *int64
	err = tx.QueryRow(ctx,
		`INSERT INTO tracked_urls (url, platform, is_valid)
		 VALUES ($1, $2, TRUE)
		 ON CONFLICT (url) DO UPDATE SET platform = EXCLUDED.platform
		 RETURNING id, product_id`,
		rec.URL, string(rec.Platform),
	).Scan(&urlID, &productID)
	if err != nil {
		return err
	}

	name := rec.Name
	if name == "" {
		name = "Unknown Product"
	}

	if productID == nil {
		var id int64
		err = tx.QueryRow(ctx,
			`INSERT INTO products (name, current_price, currency, image_url, description,
			                       availability, brand, sku, store_name, category)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 RETURNING id`,
			name, *rec.Price, rec.Currency, rec.ImageURL, rec.Description,
			rec.Availability, rec.Brand, rec.SKU, rec.StoreName, rec.Category,
		).Scan(&id)
		if err != nil {
			return err
		}
		productID = &id
		if _, err := tx.Exec(ctx,
			`UPDATE tracked_urls SET product_id = $1 WHERE id = $2`, id, urlID); err != nil {
			return err
		}
	} else {
		// Empty extraction fields keep the previously stored values.
		_, err = tx.Exec(ctx,
			`UPDATE products SET
			   name = COALESCE(NULLIF($2, ''), name),
			   current_price = $3,
			   currency = $4,
			   image_url = COALESCE(NULLIF($5, ''), image_url),
			   description = COALESCE(NULLIF($6, ''), description),
			   availability = COALESCE(NULLIF($7, ''), availability),
			   brand = COALESCE(NULLIF($8, ''), brand),
			   sku = COALESCE(NULLIF($9, ''), sku),
			   store_name = COALESCE(NULLIF($10, ''), store_name),
			   category = COALESCE(NULLIF($11, ''), category),
			   updated_at = NOW()
			 WHERE id = $1`,
			*productID, rec.Name, *rec.Price, rec.Currency, rec.ImageURL, rec.Description,
			rec.Availability, rec.Brand, rec.SKU, rec.StoreName, rec.Category)
		if err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO price_history (product_id, price, recorded_at) VALUES ($1, $2, $3)`,
		*productID, *rec.Price, time.Now().UTC()); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE tracked_urls SET last_checked = NOW(), is_valid = TRUE WHERE id = $1`,
		urlID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Products lists all persisted products.
func (s *PostgresStore) Products(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, current_price, currency, image_url, description,
		        availability, brand, sku, store_name, category, updated_at
		 FROM products ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.CurrentPrice, &p.Currency, &p.ImageURL,
			&p.Description, &p.Availability, &p.Brand, &p.SKU, &p.StoreName,
			&p.Category, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// PriceHistory returns a product's recorded prices, newest first.
func (s *PostgresStore) PriceHistory(ctx context.Context, productID int64) ([]domain.PriceEntry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT product_id, price, recorded_at
		 FROM price_history WHERE product_id = $1 ORDER BY recorded_at DESC`,
		productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.PriceEntry
	for rows.Next() {
		var e domain.PriceEntry
		if err := rows.Scan(&e.ProductID, &e.Price, &e.RecordedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
