package models

import "github.com/shopspring/decimal"

// Sort keys accepted by listing queries.
const (
	SortCreatedAt = "created_at"
	SortPrice     = "price"
	SortArea      = "area_sqm"
	SortRooms     = "rooms"

	SortAsc  = "asc"
	SortDesc = "desc"
)

// ListingFilter narrows a listing query. Nil fields are not applied; all
// applied fields are combined with AND.
type ListingFilter struct {
	OwnerID      *string
	PropertyType *PropertyType
	ListingType  *ListingType
	City         *string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	MinArea      *int
	MaxArea      *int
	MinRooms     *int
	MaxRooms     *int
}

// ListingQuery is a filtered, sorted and paginated listing request.
// Page is 1-based.
type ListingQuery struct {
	Filter    ListingFilter
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

// Offset returns the number of rows skipped before the requested page.
func (q ListingQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// ListingPage is one page of a listing query with the overall match count.
type ListingPage struct {
	Items    []Listing `json:"items"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
	Pages    int       `json:"pages"`
}
