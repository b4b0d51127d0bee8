package listings

import (
	"context"

	"github.com/dmitrijs2005/listings/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, listing *models.Listing) (*models.Listing, error)
	GetByID(ctx context.Context, id string) (*models.Listing, error)
	Update(ctx context.Context, listing *models.Listing) (*models.Listing, error)
	Delete(ctx context.Context, id string) error
	// Search returns one page of listings matching q, without images.
	Search(ctx context.Context, q models.ListingQuery) ([]models.Listing, error)
	// Count returns the number of listings matching f.
	Count(ctx context.Context, f models.ListingFilter) (int, error)
}
