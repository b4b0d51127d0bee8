package httpapi

import (
	"strconv"
	"strings"

	"github.com/dmitrijs2005/listings/internal/common"
	"github.com/dmitrijs2005/listings/internal/server/models"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
)

// queryParser reads optional query parameters, collecting parse failures.
type queryParser struct {
	c  *fiber.Ctx
	ve *common.ValidationError
}

func (p queryParser) str(name string) *string {
	v := strings.TrimSpace(p.c.Query(name))
	if v == "" {
		return nil
	}
	return &v
}

func (p queryParser) integer(name string) *int {
	v := p.str(name)
	if v == nil {
		return nil
	}
	n, err := strconv.Atoi(*v)
	if err != nil {
		p.ve.Add(name, "must be an integer")
		return nil
	}
	return &n
}

func (p queryParser) dec(name string) *decimal.Decimal {
	v := p.str(name)
	if v == nil {
		return nil
	}
	d, err := decimal.NewFromString(*v)
	if err != nil {
		p.ve.Add(name, "must be a number")
		return nil
	}
	return &d
}

// parseListingQuery builds a search query from the request's query string.
// Range and enum checks are left to the listing service.
func parseListingQuery(c *fiber.Ctx) (models.ListingQuery, error) {
	p := queryParser{c: c, ve: &common.ValidationError{}}

	q := models.ListingQuery{Page: defaultPage, PageSize: defaultPageSize}
	if n := p.integer("page"); n != nil {
		q.Page = *n
	}
	if n := p.integer("page_size"); n != nil {
		q.PageSize = *n
	}
	if v := p.str("sort_by"); v != nil {
		q.SortBy = *v
	}
	if v := p.str("sort_order"); v != nil {
		q.SortOrder = *v
	}

	f := &q.Filter
	if v := p.str("property_type"); v != nil {
		pt := models.PropertyType(*v)
		f.PropertyType = &pt
	}
	if v := p.str("listing_type"); v != nil {
		lt := models.ListingType(*v)
		f.ListingType = &lt
	}
	f.City = p.str("city")
	f.MinPrice = p.dec("min_price")
	f.MaxPrice = p.dec("max_price")
	f.MinArea = p.integer("min_area")
	f.MaxArea = p.integer("max_area")
	f.MinRooms = p.integer("min_rooms")
	f.MaxRooms = p.integer("max_rooms")

	if err := p.ve.OrNil(); err != nil {
		return q, badQuery(err)
	}
	return q, nil
}
