package httpapi

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/dmitrijs2005/listings/internal/common"
	"github.com/dmitrijs2005/listings/internal/server/models"
	"github.com/dmitrijs2005/listings/internal/server/services"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// decodeJSON unmarshals the request body into v, reporting malformed input
// as a validation error.
func decodeJSON(c *fiber.Ctx, v any) error {
	body := c.Body()
	if len(body) == 0 {
		return common.NewValidationError("body", "is required")
	}
	if err := json.Unmarshal(body, v); err != nil {
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) && te.Field != "" {
			return common.NewValidationError(te.Field, "has an invalid type")
		}
		return common.NewValidationError("body", "must be a valid JSON object")
	}
	return nil
}

type registerRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FullName *string `json:"full_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type listingCreateRequest struct {
	Title        string              `json:"title"`
	Description  *string             `json:"description"`
	PropertyType models.PropertyType `json:"property_type"`
	ListingType  models.ListingType  `json:"listing_type"`
	Price        *decimal.Decimal    `json:"price"`
	Currency     string              `json:"currency"`
	City         string              `json:"city"`
	AreaSqm      *int                `json:"area_sqm"`
	Rooms        *int                `json:"rooms"`
}

func (r listingCreateRequest) toInput() (services.ListingInput, error) {
	ve := &common.ValidationError{}
	if r.Price == nil {
		ve.Add("price", "is required")
	}
	if r.AreaSqm == nil {
		ve.Add("area_sqm", "is required")
	}
	if r.Rooms == nil {
		ve.Add("rooms", "is required")
	}
	if err := ve.OrNil(); err != nil {
		return services.ListingInput{}, err
	}

	return services.ListingInput{
		Title:        r.Title,
		Description:  r.Description,
		PropertyType: r.PropertyType,
		ListingType:  r.ListingType,
		Price:        *r.Price,
		Currency:     r.Currency,
		City:         r.City,
		AreaSqm:      *r.AreaSqm,
		Rooms:        *r.Rooms,
	}, nil
}

type listingPatchRequest struct {
	Title        models.Optional[string]              `json:"title"`
	Description  models.Optional[string]              `json:"description"`
	PropertyType models.Optional[models.PropertyType] `json:"property_type"`
	ListingType  models.Optional[models.ListingType]  `json:"listing_type"`
	Price        models.Optional[decimal.Decimal]     `json:"price"`
	Currency     models.Optional[string]              `json:"currency"`
	City         models.Optional[string]              `json:"city"`
	AreaSqm      models.Optional[int]                 `json:"area_sqm"`
	Rooms        models.Optional[int]                 `json:"rooms"`
}

func (r listingPatchRequest) toPatch() services.ListingPatch {
	return services.ListingPatch{
		Title:        r.Title,
		Description:  r.Description,
		PropertyType: r.PropertyType,
		ListingType:  r.ListingType,
		Price:        r.Price,
		Currency:     r.Currency,
		City:         r.City,
		AreaSqm:      r.AreaSqm,
		Rooms:        r.Rooms,
	}
}

type userPatchRequest struct {
	Email    models.Optional[string]      `json:"email"`
	FullName models.Optional[string]      `json:"full_name"`
	Role     models.Optional[models.Role] `json:"role"`
	Password models.Optional[string]      `json:"password"`
}

func (r userPatchRequest) toPatch() services.UserPatch {
	return services.UserPatch{
		Email:    r.Email,
		FullName: r.FullName,
		Role:     r.Role,
		Password: r.Password,
	}
}

type imageResponse struct {
	ID        string    `json:"id"`
	ListingID string    `json:"listing_id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

func newImageResponse(img models.ListingImage) imageResponse {
	return imageResponse{ID: img.ID, ListingID: img.ListingID, URL: img.URL, CreatedAt: img.CreatedAt}
}

// listingResponse renders price as a JSON number with two decimals.
type listingResponse struct {
	ID           string              `json:"id"`
	UserID       string              `json:"user_id"`
	Title        string              `json:"title"`
	Description  *string             `json:"description"`
	PropertyType models.PropertyType `json:"property_type"`
	ListingType  models.ListingType  `json:"listing_type"`
	Price        json.Number         `json:"price"`
	Currency     string              `json:"currency"`
	City         string              `json:"city"`
	AreaSqm      int                 `json:"area_sqm"`
	Rooms        int                 `json:"rooms"`
	CreatedAt    time.Time           `json:"created_at"`
	Images       []imageResponse     `json:"images"`
}

func newListingResponse(l *models.Listing) listingResponse {
	images := make([]imageResponse, 0, len(l.Images))
	for _, img := range l.Images {
		images = append(images, newImageResponse(img))
	}
	return listingResponse{
		ID:           l.ID,
		UserID:       l.UserID,
		Title:        l.Title,
		Description:  l.Description,
		PropertyType: l.PropertyType,
		ListingType:  l.ListingType,
		Price:        json.Number(l.Price.StringFixed(2)),
		Currency:     l.Currency,
		City:         l.City,
		AreaSqm:      l.AreaSqm,
		Rooms:        l.Rooms,
		CreatedAt:    l.CreatedAt,
		Images:       images,
	}
}

type listingPageResponse struct {
	Items    []listingResponse `json:"items"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Pages    int               `json:"pages"`
}

func newListingPageResponse(p *models.ListingPage) listingPageResponse {
	items := make([]listingResponse, 0, len(p.Items))
	for i := range p.Items {
		items = append(items, newListingResponse(&p.Items[i]))
	}
	return listingPageResponse{
		Items:    items,
		Total:    p.Total,
		Page:     p.Page,
		PageSize: p.PageSize,
		Pages:    p.Pages,
	}
}
