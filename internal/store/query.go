package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/models"
)

// ListParams describes one filtered/sorted/paginated product listing.
// All filters are optional and AND-combined.
type ListParams struct {
	Category          string
	SubCategory       string
	ExcludeOrderItems bool
	SearchTokens      []string
	CreatedAfter      *time.Time
	SortBy            string
	SortOrder         string
	Limit             int
	Offset            int
}

// Sortable columns. Anything else falls back to apk.
var sortColumns = map[string]string{
	"apk":     "apk",
	"price":   "price",
	"volume":  "volume",
	"alcohol": "alcohol",
	"vpk":     "vpk",
}

// specialOrderTerm is the upstream assortment label for items that are
// only available on request.
const specialOrderTerm = "ordervara"

// buildWhere renders the AND-combined filter clauses. Each search token
// must match one of name, brand, type or country; the sub-category
// "whiskey" matches both spellings of the word.
func buildWhere(p ListParams) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if p.Category != "" {
		args = append(args, "%"+p.Category+"%")
		clauses = append(clauses, fmt.Sprintf("type ILIKE $%d", len(args)))
	}

	if p.SubCategory != "" {
		if strings.EqualFold(p.SubCategory, "whiskey") || strings.EqualFold(p.SubCategory, "whisky") {
			args = append(args, "%whiskey%", "%whisky%")
			clauses = append(clauses,
				fmt.Sprintf("(type ILIKE $%d OR type ILIKE $%d)", len(args)-1, len(args)))
		} else {
			args = append(args, "%"+p.SubCategory+"%")
			clauses = append(clauses, fmt.Sprintf("type ILIKE $%d", len(args)))
		}
	}

	if p.ExcludeOrderItems {
		args = append(args, "%"+specialOrderTerm+"%")
		clauses = append(clauses, fmt.Sprintf("type NOT ILIKE $%d", len(args)))
	}

	for _, token := range p.SearchTokens {
		args = append(args, "%"+token+"%")
		i := len(args)
		clauses = append(clauses, fmt.Sprintf(
			"(name ILIKE $%d OR brand ILIKE $%d OR type ILIKE $%d OR country ILIKE $%d)",
			i, i, i, i))
	}

	if p.CreatedAfter != nil {
		args = append(args, *p.CreatedAfter)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func orderClause(sortBy, sortOrder string) string {
	col, ok := sortColumns[strings.ToLower(sortBy)]
	if !ok {
		col = "apk"
	}
	dir := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		dir = "ASC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id ASC", col, dir)
}

func buildListQuery(p ListParams) (string, []interface{}) {
	where, args := buildWhere(p)
	query := "SELECT * FROM products" + where + orderClause(p.SortBy, p.SortOrder)
	args = append(args, p.Limit, p.Offset)
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	return query, args
}

func buildCountQuery(p ListParams) (string, []interface{}) {
	where, args := buildWhere(p)
	return "SELECT COUNT(*) FROM products" + where, args
}

// ListProducts retrieves one page of filtered and sorted products
func (s *Store) ListProducts(ctx context.Context, p ListParams) ([]models.Product, error) {
	query, args := buildListQuery(p)
	products := []models.Product{}
	err := s.db.SelectContext(ctx, &products, query, args...)
	return products, err
}

// CountProducts returns the total number of products matching the filters
func (s *Store) CountProducts(ctx context.Context, p ListParams) (int, error) {
	query, args := buildCountQuery(p)
	var count int
	err := s.db.GetContext(ctx, &count, query, args...)
	return count, err
}
