package services

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/listings/internal/common"
	"github.com/dmitrijs2005/listings/internal/dbx"
	"github.com/dmitrijs2005/listings/internal/logging"
	"github.com/dmitrijs2005/listings/internal/server/auth"
	"github.com/dmitrijs2005/listings/internal/server/models"
	"github.com/dmitrijs2005/listings/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	maxTitleLen = 255
	maxCityLen  = 100
	maxPageSize = 100
)

// maxPage keeps (page-1)*page_size inside int for any accepted page size.
const maxPage = math.MaxInt / maxPageSize

// maxPrice is the largest value a NUMERIC(12,2) column holds.
var maxPrice = decimal.RequireFromString("9999999999.99")

// ListingInput holds the fields of a new listing.
type ListingInput struct {
	Title        string
	Description  *string
	PropertyType models.PropertyType
	ListingType  models.ListingType
	Price        decimal.Decimal
	Currency     string
	City         string
	AreaSqm      int
	Rooms        int
}

// ListingPatch is a partial listing update. Only Description accepts an
// explicit null.
type ListingPatch struct {
	Title        models.Optional[string]
	Description  models.Optional[string]
	PropertyType models.Optional[models.PropertyType]
	ListingType  models.Optional[models.ListingType]
	Price        models.Optional[decimal.Decimal]
	Currency     models.Optional[string]
	City         models.Optional[string]
	AreaSqm      models.Optional[int]
	Rooms        models.Optional[int]
}

// ListingService implements listing CRUD and search with the ownership rule.
type ListingService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

func NewListingService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger) *ListingService {
	return &ListingService{db: db, repomanager: m, log: log}
}

// normalizeListing trims text fields and upper-cases the currency.
func normalizeListing(l *models.Listing) {
	l.Title = strings.TrimSpace(l.Title)
	l.City = strings.TrimSpace(l.City)
	l.Currency = strings.ToUpper(strings.TrimSpace(l.Currency))
}

func validateListing(l *models.Listing) error {
	ve := &common.ValidationError{}

	if n := utf8.RuneCountInString(l.Title); n == 0 || n > maxTitleLen {
		ve.Add("title", fmt.Sprintf("must be 1 to %d characters", maxTitleLen))
	}
	if !l.PropertyType.Valid() {
		ve.Add("property_type", "must be one of apartment, house, land, office")
	}
	if !l.ListingType.Valid() {
		ve.Add("listing_type", "must be one of sale, rent")
	}
	switch {
	case l.Price.IsNegative():
		ve.Add("price", "must be >= 0")
	case !l.Price.Equal(l.Price.Round(2)):
		ve.Add("price", "must have at most 2 decimal places")
	case l.Price.GreaterThan(maxPrice):
		ve.Add("price", "must be <= "+maxPrice.String())
	}
	if len(l.Currency) != 3 || strings.IndexFunc(l.Currency, func(r rune) bool { return r < 'A' || r > 'Z' }) >= 0 {
		ve.Add("currency", "must be a 3-letter ISO code")
	}
	if n := utf8.RuneCountInString(l.City); n == 0 || n > maxCityLen {
		ve.Add("city", fmt.Sprintf("must be 1 to %d characters", maxCityLen))
	}
	if l.AreaSqm <= 0 {
		ve.Add("area_sqm", "must be > 0")
	}
	if l.Rooms < 0 {
		ve.Add("rooms", "must be >= 0")
	}

	return ve.OrNil()
}

// applyPatch merges p over l. Explicit nulls on required fields are
// reported as validation errors.
func applyPatch(l *models.Listing, p ListingPatch) error {
	ve := &common.ValidationError{}

	setRequired := func(field string, set, null bool, apply func()) {
		if !set {
			return
		}
		if null {
			ve.Add(field, "may not be null")
			return
		}
		apply()
	}

	setRequired("title", p.Title.Set, p.Title.Null, func() { l.Title = p.Title.Value })
	setRequired("property_type", p.PropertyType.Set, p.PropertyType.Null, func() { l.PropertyType = p.PropertyType.Value })
	setRequired("listing_type", p.ListingType.Set, p.ListingType.Null, func() { l.ListingType = p.ListingType.Value })
	setRequired("price", p.Price.Set, p.Price.Null, func() { l.Price = p.Price.Value })
	setRequired("currency", p.Currency.Set, p.Currency.Null, func() { l.Currency = p.Currency.Value })
	setRequired("city", p.City.Set, p.City.Null, func() { l.City = p.City.Value })
	setRequired("area_sqm", p.AreaSqm.Set, p.AreaSqm.Null, func() { l.AreaSqm = p.AreaSqm.Value })
	setRequired("rooms", p.Rooms.Set, p.Rooms.Null, func() { l.Rooms = p.Rooms.Value })

	if p.Description.Set {
		if p.Description.Null {
			l.Description = nil
		} else {
			d := p.Description.Value
			l.Description = &d
		}
	}

	return ve.OrNil()
}

func (s *ListingService) Create(ctx context.Context, caller *auth.Identity, in ListingInput) (*models.Listing, error) {
	l := &models.Listing{
		UserID:       caller.UserID,
		Title:        in.Title,
		Description:  in.Description,
		PropertyType: in.PropertyType,
		ListingType:  in.ListingType,
		Price:        in.Price,
		Currency:     in.Currency,
		City:         in.City,
		AreaSqm:      in.AreaSqm,
		Rooms:        in.Rooms,
	}
	normalizeListing(l)
	if err := validateListing(l); err != nil {
		return nil, err
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		l, err = s.repomanager.Listings(tx).Create(ctx, l)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.Images = []models.ListingImage{}
	s.log.Info(ctx, "listing created", "listing_id", l.ID)
	return l, nil
}

// Get returns a listing with its images, oldest first.
func (s *ListingService) Get(ctx context.Context, id string) (*models.Listing, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrNotFound
	}

	var l *models.Listing
	err := dbx.WithTx(ctx, s.db, dbx.ReadOnly, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		l, err = s.repomanager.Listings(tx).GetByID(ctx, id)
		if err != nil {
			return err
		}
		l.Images, err = s.repomanager.Images(tx).ListByListing(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Update merges patch into the listing. A missing listing is reported
// before the ownership check.
func (s *ListingService) Update(ctx context.Context, caller *auth.Identity, id string, patch ListingPatch) (*models.Listing, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrNotFound
	}

	var l *models.Listing
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Listings(tx)

		current, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !auth.CanMutateListing(caller, current.UserID) {
			return fmt.Errorf("%w: not the owner of listing %s", common.ErrForbidden, id)
		}

		if err := applyPatch(current, patch); err != nil {
			return err
		}
		normalizeListing(current)
		if err := validateListing(current); err != nil {
			return err
		}

		if l, err = repo.Update(ctx, current); err != nil {
			return err
		}
		l.Images, err = s.repomanager.Images(tx).ListByListing(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Delete removes a listing and, through the foreign key, its images.
func (s *ListingService) Delete(ctx context.Context, caller *auth.Identity, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return common.ErrNotFound
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Listings(tx)

		current, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !auth.CanMutateListing(caller, current.UserID) {
			return fmt.Errorf("%w: not the owner of listing %s", common.ErrForbidden, id)
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "listing deleted", "listing_id", id)
	return nil
}

// List returns one page of listings matching q, with images.
func (s *ListingService) List(ctx context.Context, q models.ListingQuery) (*models.ListingPage, error) {
	if err := s.normalizeQuery(ctx, &q); err != nil {
		return nil, err
	}

	page := &models.ListingPage{Page: q.Page, PageSize: q.PageSize}
	err := dbx.WithTx(ctx, s.db, dbx.ReadOnly, func(ctx context.Context, tx dbx.DBTX) error {
		listingsRepo := s.repomanager.Listings(tx)

		total, err := listingsRepo.Count(ctx, q.Filter)
		if err != nil {
			return err
		}
		items, err := listingsRepo.Search(ctx, q)
		if err != nil {
			return err
		}

		ids := make([]string, len(items))
		for i := range items {
			ids[i] = items[i].ID
		}
		imgs, err := s.repomanager.Images(tx).ListByListings(ctx, ids)
		if err != nil {
			return err
		}
		for i := range items {
			items[i].Images = imgs[items[i].ID]
			if items[i].Images == nil {
				items[i].Images = []models.ListingImage{}
			}
		}

		page.Items = items
		page.Total = total
		return nil
	})
	if err != nil {
		return nil, err
	}

	page.Pages = (page.Total + page.PageSize - 1) / page.PageSize
	return page, nil
}

// ListForOwner is List restricted to the caller's own listings.
func (s *ListingService) ListForOwner(ctx context.Context, caller *auth.Identity, q models.ListingQuery) (*models.ListingPage, error) {
	owner := caller.UserID
	q.Filter.OwnerID = &owner
	return s.List(ctx, q)
}

// normalizeQuery fills sort defaults and rejects out-of-range parameters
// before any SQL runs. Page and PageSize carry no defaults here.
func (s *ListingService) normalizeQuery(ctx context.Context, q *models.ListingQuery) error {
	ve := &common.ValidationError{}
	f := &q.Filter

	if q.Page < 1 {
		ve.Add("page", "must be >= 1")
	}
	if q.Page > maxPage {
		// Far beyond any row count; the page is simply empty.
		q.Page = maxPage
	}
	if q.PageSize < 1 || q.PageSize > maxPageSize {
		ve.Add("page_size", fmt.Sprintf("must be between 1 and %d", maxPageSize))
	}

	switch q.SortBy {
	case models.SortCreatedAt, models.SortPrice, models.SortArea, models.SortRooms:
	case "":
		q.SortBy = models.SortCreatedAt
	default:
		s.log.Warn(ctx, "unknown sort key, falling back to created_at", "sort_by", q.SortBy)
		q.SortBy = models.SortCreatedAt
	}
	q.SortOrder = strings.ToLower(q.SortOrder)
	switch q.SortOrder {
	case models.SortAsc, models.SortDesc:
	case "":
		q.SortOrder = models.SortDesc
	default:
		ve.Add("sort_order", "must be asc or desc")
	}

	if f.PropertyType != nil && !f.PropertyType.Valid() {
		ve.Add("property_type", "must be one of apartment, house, land, office")
	}
	if f.ListingType != nil && !f.ListingType.Valid() {
		ve.Add("listing_type", "must be one of sale, rent")
	}
	if f.City != nil {
		if c := strings.TrimSpace(*f.City); c == "" {
			f.City = nil
		} else {
			f.City = &c
		}
	}

	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		ve.Add("price", "min_price must not exceed max_price")
	}
	if f.MinArea != nil && f.MaxArea != nil && *f.MinArea > *f.MaxArea {
		ve.Add("area_sqm", "min_area must not exceed max_area")
	}
	if f.MinRooms != nil && f.MaxRooms != nil && *f.MinRooms > *f.MaxRooms {
		ve.Add("rooms", "min_rooms must not exceed max_rooms")
	}

	return ve.OrNil()
}
