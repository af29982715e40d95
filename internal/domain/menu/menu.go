package menu

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested food does not exist.
var ErrNotFound = errors.New("food not found")

// Food is a menu item with its two price tiers.
type Food struct {
	ID            string
	Name          string
	Description   string
	Category      string
	PriceDineIn   decimal.Decimal
	PriceTakeaway decimal.Decimal
	Image         string
	Available     bool
}

// Catalog defines read operations for the authoritative menu.
type Catalog interface {
	ListFoods(ctx context.Context) ([]Food, error)
	GetFood(ctx context.Context, id string) (*Food, error)
	ListByCategory(ctx context.Context, category string) ([]Food, error)
}

// Index is a lookup of foods by id built from one catalog fetch.
type Index map[string]Food

// NewIndex indexes foods by id. Later duplicates win.
func NewIndex(foods []Food) Index {
	idx := make(Index, len(foods))
	for _, f := range foods {
		idx[f.ID] = f
	}
	return idx
}

// Lookup returns the food with the given id.
func (idx Index) Lookup(id string) (Food, bool) {
	f, ok := idx[id]
	return f, ok
}

// Categories returns the distinct categories in first-seen order.
func Categories(foods []Food) []string {
	seen := make(map[string]struct{}, len(foods))
	var out []string
	for _, f := range foods {
		if _, ok := seen[f.Category]; ok {
			continue
		}
		seen[f.Category] = struct{}{}
		out = append(out, f.Category)
	}
	return out
}
