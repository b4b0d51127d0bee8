package images

import (
	"context"

	"github.com/dmitrijs2005/listings/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, image *models.ListingImage) (*models.ListingImage, error)
	// ListByListing returns the images of one listing, oldest first.
	ListByListing(ctx context.Context, listingID string) ([]models.ListingImage, error)
	// ListByListings groups the images of several listings by listing id.
	ListByListings(ctx context.Context, listingIDs []string) (map[string][]models.ListingImage, error)
}
