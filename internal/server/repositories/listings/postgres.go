package listings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/listings/internal/common"
	"github.com/dmitrijs2005/listings/internal/dbx"
	"github.com/dmitrijs2005/listings/internal/server/models"
)

const listingColumns = `id, user_id, title, description, property_type, listing_type, price, currency, city, area_sqm, rooms, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (*models.Listing, error) {
	l := &models.Listing{}
	var description sql.NullString
	var propertyType, listingType string
	err := row.Scan(&l.ID, &l.UserID, &l.Title, &description, &propertyType, &listingType,
		&l.Price, &l.Currency, &l.City, &l.AreaSqm, &l.Rooms, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	if description.Valid {
		l.Description = &description.String
	}
	l.PropertyType = models.PropertyType(propertyType)
	l.ListingType = models.ListingType(listingType)
	return l, nil
}

func (r *PostgresRepository) Create(ctx context.Context, l *models.Listing) (*models.Listing, error) {
	query :=
		`INSERT INTO listings (user_id, title, description, property_type, listing_type, price, currency, city, area_sqm, rooms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		l.UserID, l.Title, l.Description, string(l.PropertyType), string(l.ListingType),
		l.Price, l.Currency, l.City, l.AreaSqm, l.Rooms).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		if dbx.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("owner does not exist: %w", common.ErrNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return l, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`

	l, err := scanListing(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return l, nil
}

func (r *PostgresRepository) Update(ctx context.Context, l *models.Listing) (*models.Listing, error) {
	query :=
		`UPDATE listings
		 SET title = $2, description = $3, property_type = $4, listing_type = $5,
		     price = $6, currency = $7, city = $8, area_sqm = $9, rooms = $10
		 WHERE id = $1
		 RETURNING user_id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		l.ID, l.Title, l.Description, string(l.PropertyType), string(l.ListingType),
		l.Price, l.Currency, l.City, l.AreaSqm, l.Rooms).Scan(&l.UserID, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return l, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM listings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Search(ctx context.Context, q models.ListingQuery) ([]models.Listing, error) {
	query, args := buildSearch(q)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Listing, 0, q.PageSize)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Count(ctx context.Context, f models.ListingFilter) (int, error) {
	query, args := buildCount(f)

	var total int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return total, nil
}
