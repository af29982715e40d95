package order

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/restoran/internal/domain/cart"
	"github.com/xenking/restoran/internal/domain/menu"
)

// TierPrice returns the price of f for order type t.
func TierPrice(f menu.Food, t Type) decimal.Decimal {
	if t == Takeaway {
		return f.PriceTakeaway
	}
	return f.PriceDineIn
}

// Assemble reconciles cart lines against the catalog. Each line is priced
// from the catalog tier for t; a line whose food is missing from the
// catalog keeps its cart price and is listed in Draft.Fallbacks. Unit prices
// are rounded to cents before summing, so Total is exactly the sum of the
// submitted lines.
func Assemble(items []cart.LineItem, catalog menu.Index, t Type) Draft {
	d := Draft{
		Type:  t,
		Items: make([]Item, 0, len(items)),
	}

	total := decimal.Zero
	for _, li := range items {
		price := li.Price
		if f, ok := catalog.Lookup(li.ID); ok {
			price = TierPrice(f, t)
		} else {
			d.Fallbacks = append(d.Fallbacks, li.ID)
		}
		price = price.Round(2)

		d.Items = append(d.Items, Item{FoodID: li.ID, Quantity: li.Quantity, Price: price})
		total = total.Add(price.Mul(decimal.NewFromInt(int64(li.Quantity))))
	}
	d.Total = total

	return d
}
