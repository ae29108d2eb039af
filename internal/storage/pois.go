package storage

import (
	"context"
	"fmt"

	"github.com/findosh/audioguide/internal/models"
)

// POIRepository provides points-of-interest data access
type POIRepository struct {
	db *DB
}

// NewPOIRepository creates a new POI repository
func NewPOIRepository(db *DB) *POIRepository {
	return &POIRepository{db: db}
}

// ListByProduct returns the stops of a product ordered by language then
// position. An empty languageCode returns every language.
func (r *POIRepository) ListByProduct(ctx context.Context, productID int64, languageCode string) ([]*models.POI, error) {
	query := `SELECT id, product_id, language_code, order_index, title, text_html, audio_url, featured_image_url` +
		` FROM pois WHERE product_id = ?`
	args := []any{productID}
	if languageCode != "" {
		query += ` AND language_code = ?`
		args = append(args, languageCode)
	}
	query += ` ORDER BY language_code, order_index`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pois: %w", err)
	}
	defer rows.Close()

	pois := []*models.POI{}
	for rows.Next() {
		var p models.POI
		if err := rows.Scan(
			&p.ID,
			&p.ProductID,
			&p.LanguageCode,
			&p.OrderIndex,
			&p.Title,
			&p.TextHTML,
			&p.AudioURL,
			&p.FeaturedImageURL,
		); err != nil {
			return nil, fmt.Errorf("failed to scan poi: %w", err)
		}
		pois = append(pois, &p)
	}

	return pois, rows.Err()
}

// InsertBulk inserts multiple stops in a transaction and assigns their IDs
func (r *POIRepository) InsertBulk(ctx context.Context, pois []*models.POI) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pois (
			product_id, language_code, order_index, title, text_html, audio_url, featured_image_url
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range pois {
		res, err := stmt.ExecContext(ctx,
			p.ProductID,
			p.LanguageCode,
			p.OrderIndex,
			p.Title,
			p.TextHTML,
			p.AudioURL,
			p.FeaturedImageURL,
		)
		if err != nil {
			return fmt.Errorf("failed to insert poi %q: %w", p.Title, err)
		}
		if id, err := res.LastInsertId(); err == nil {
			p.ID = id
		}
	}

	return tx.Commit()
}

// DeleteByProduct removes the stops of a product, optionally limited to one
// language, and returns how many were removed
func (r *POIRepository) DeleteByProduct(ctx context.Context, productID int64, languageCode string) (int64, error) {
	query := `DELETE FROM pois WHERE product_id = ?`
	args := []any{productID}
	if languageCode != "" {
		query += ` AND language_code = ?`
		args = append(args, languageCode)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete pois: %w", err)
	}
	return res.RowsAffected()
}
