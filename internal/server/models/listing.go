package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PropertyType string

const (
	PropertyApartment PropertyType = "apartment"
	PropertyHouse     PropertyType = "house"
	PropertyLand      PropertyType = "land"
	PropertyOffice    PropertyType = "office"
)

func (p PropertyType) Valid() bool {
	switch p {
	case PropertyApartment, PropertyHouse, PropertyLand, PropertyOffice:
		return true
	}
	return false
}

type ListingType string

const (
	ListingSale ListingType = "sale"
	ListingRent ListingType = "rent"
)

func (l ListingType) Valid() bool {
	return l == ListingSale || l == ListingRent
}

// Listing is a property offered for sale or rent by its owner.
type Listing struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Title        string          `json:"title"`
	Description  *string         `json:"description"`
	PropertyType PropertyType    `json:"property_type"`
	ListingType  ListingType     `json:"listing_type"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	City         string          `json:"city"`
	AreaSqm      int             `json:"area_sqm"`
	Rooms        int             `json:"rooms"`
	CreatedAt    time.Time       `json:"created_at"`
	Images       []ListingImage  `json:"images"`
}

type ListingImage struct {
	ID        string    `json:"id"`
	ListingID string    `json:"listing_id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}
