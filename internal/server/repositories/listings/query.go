package listings

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/listings/internal/server/models"
)

var sortColumns = map[string]string{
	models.SortCreatedAt: "created_at",
	models.SortPrice:     "price",
	models.SortArea:      "area_sqm",
	models.SortRooms:     "rooms",
}

// whereBuilder accumulates AND-ed predicates with positional placeholders.
type whereBuilder struct {
	conds []string
	args  []any
}

func (w *whereBuilder) add(expr string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(expr, len(w.args)))
}

func (w *whereBuilder) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// escapeLike escapes LIKE metacharacters so s matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func buildWhere(f models.ListingFilter) *whereBuilder {
	w := &whereBuilder{}

	if f.OwnerID != nil {
		w.add("user_id = $%d", *f.OwnerID)
	}
	if f.PropertyType != nil {
		w.add("property_type = $%d", string(*f.PropertyType))
	}
	if f.ListingType != nil {
		w.add("listing_type = $%d", string(*f.ListingType))
	}
	if f.City != nil {
		w.add(`city ILIKE '%%' || $%d || '%%' ESCAPE '\'`, escapeLike(*f.City))
	}
	if f.MinPrice != nil {
		w.add("price >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		w.add("price <= $%d", *f.MaxPrice)
	}
	if f.MinArea != nil {
		w.add("area_sqm >= $%d", *f.MinArea)
	}
	if f.MaxArea != nil {
		w.add("area_sqm <= $%d", *f.MaxArea)
	}
	if f.MinRooms != nil {
		w.add("rooms >= $%d", *f.MinRooms)
	}
	if f.MaxRooms != nil {
		w.add("rooms <= $%d", *f.MaxRooms)
	}
	return w
}

// orderBy renders the ORDER BY clause. Unknown keys sort by creation time;
// id is always appended so pages are stable across equal sort values.
func orderBy(sortBy, sortOrder string) string {
	col, ok := sortColumns[sortBy]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(sortOrder, models.SortAsc) {
		dir = "ASC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id %s", col, dir, dir)
}

func buildSearch(q models.ListingQuery) (string, []any) {
	w := buildWhere(q.Filter)
	query := `SELECT ` + listingColumns + ` FROM listings` + w.String() + orderBy(q.SortBy, q.SortOrder)

	args := append(w.args, q.PageSize, q.Offset())
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	return query, args
}

func buildCount(f models.ListingFilter) (string, []any) {
	w := buildWhere(f)
	return `SELECT COUNT(*) FROM listings` + w.String(), w.args
}
