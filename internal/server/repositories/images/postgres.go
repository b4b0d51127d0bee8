package images

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/listings/internal/common"
	"github.com/dmitrijs2005/listings/internal/dbx"
	"github.com/dmitrijs2005/listings/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, img *models.ListingImage) (*models.ListingImage, error) {
	query :=
		`INSERT INTO listing_images (listing_id, url)
		 VALUES ($1, $2)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query, img.ListingID, img.URL).Scan(&img.ID, &img.CreatedAt)
	if err != nil {
		if dbx.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("listing does not exist: %w", common.ErrNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return img, nil
}

func (r *PostgresRepository) ListByListing(ctx context.Context, listingID string) ([]models.ListingImage, error) {
	byListing, err := r.ListByListings(ctx, []string{listingID})
	if err != nil {
		return nil, err
	}
	if imgs := byListing[listingID]; imgs != nil {
		return imgs, nil
	}
	return []models.ListingImage{}, nil
}

func (r *PostgresRepository) ListByListings(ctx context.Context, listingIDs []string) (map[string][]models.ListingImage, error) {
	result := make(map[string][]models.ListingImage, len(listingIDs))
	if len(listingIDs) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(listingIDs))
	args := make([]any, len(listingIDs))
	for i, id := range listingIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := `SELECT id, listing_id, url, created_at FROM listing_images
		 WHERE listing_id IN (` + strings.Join(placeholders, ", ") + `)
		 ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var img models.ListingImage
		if err := rows.Scan(&img.ID, &img.ListingID, &img.URL, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result[img.ListingID] = append(result[img.ListingID], img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
