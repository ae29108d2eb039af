package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/findosh/audioguide/internal/models"
	"github.com/shopspring/decimal"
)

// ProductRepository provides guide product data access
type ProductRepository struct {
	db *DB
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, title, slug, city, description, cover_image_url, price, discount_price,
		available_languages, is_published, created_at, updated_at`

// ListPublished returns published products, newest first
func (r *ProductRepository) ListPublished(ctx context.Context) ([]*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE is_published = 1 ORDER BY created_at DESC`
	return r.list(ctx, query)
}

// ListAll returns every product including drafts, newest first
func (r *ProductRepository) ListAll(ctx context.Context) ([]*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC`
	return r.list(ctx, query)
}

// GetByID retrieves a product by ID, or nil when it does not exist
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ?`
	return scanProduct(r.db.QueryRowContext(ctx, query, id))
}

// Create inserts a new product and assigns its ID
func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	langs, err := json.Marshal(p.AvailableLanguages)
	if err != nil {
		return fmt.Errorf("failed to encode languages: %w", err)
	}

	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	query := `
		INSERT INTO products (title, slug, city, description, cover_image_url, price, discount_price,
			available_languages, is_published, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := r.db.ExecContext(ctx, query,
		p.Title,
		p.Slug,
		p.City,
		p.Description,
		p.CoverImageURL,
		p.Price.String(),
		nullDecimal(p.DiscountPrice),
		string(langs),
		p.IsPublished,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read product id: %w", err)
	}
	p.ID = id
	return nil
}

// Update modifies an existing product. It reports ErrNotFound when no row matched.
func (r *ProductRepository) Update(ctx context.Context, p *models.Product) error {
	langs, err := json.Marshal(p.AvailableLanguages)
	if err != nil {
		return fmt.Errorf("failed to encode languages: %w", err)
	}

	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE products SET title = ?, slug = ?, city = ?, description = ?, cover_image_url = ?,
			price = ?, discount_price = ?, available_languages = ?, is_published = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := r.db.ExecContext(ctx, query,
		p.Title,
		p.Slug,
		p.City,
		p.Description,
		p.CoverImageURL,
		p.Price.String(),
		nullDecimal(p.DiscountPrice),
		string(langs),
		p.IsPublished,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ProductRepository) list(ctx context.Context, query string, args ...any) ([]*models.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

func scanProduct(row scanner) (*models.Product, error) {
	var p models.Product
	var price, langs string
	var discount sql.NullString

	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Slug,
		&p.City,
		&p.Description,
		&p.CoverImageURL,
		&price,
		&discount,
		&langs,
		&p.IsPublished,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}

	p.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("failed to parse price of product %d: %w", p.ID, err)
	}
	if discount.Valid && discount.String != "" {
		d, err := decimal.NewFromString(discount.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse discount of product %d: %w", p.ID, err)
		}
		p.DiscountPrice = decimal.NewNullDecimal(d)
	}
	if err := json.Unmarshal([]byte(langs), &p.AvailableLanguages); err != nil {
		return nil, fmt.Errorf("failed to decode languages of product %d: %w", p.ID, err)
	}

	return &p, nil
}

func nullDecimal(d decimal.NullDecimal) sql.NullString {
	if !d.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: d.Decimal.String(), Valid: true}
}
