package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/restoran/internal/domain/menu"
)

var _ menu.Catalog = (*Menu)(nil)

// Menu implements menu.Catalog over the menu endpoints.
type Menu struct {
	c *Client
}

// Menu returns the menu endpoints.
func (c *Client) Menu() *Menu { return &Menu{c: c} }

// ListFoods returns the full menu.
func (m *Menu) ListFoods(ctx context.Context) ([]menu.Food, error) {
	return m.list(ctx, request{method: http.MethodGet, path: "/api/menu/foods/"})
}

// ListByCategory returns the foods in category.
func (m *Menu) ListByCategory(ctx context.Context, category string) ([]menu.Food, error) {
	return m.list(ctx, request{
		method: http.MethodGet,
		path:   "/api/menu/foods/by_category/",
		query:  url.Values{"category": {category}},
	})
}

// GetFood returns a single food, or menu.ErrNotFound.
func (m *Menu) GetFood(ctx context.Context, id string) (*menu.Food, error) {
	var f menu.Food
	err := m.c.do(ctx, request{
		method: http.MethodGet,
		path:   "/api/menu/foods/" + url.PathEscape(id) + "/",
	}, func(d *jx.Decoder) error {
		return decodeFood(d, &f)
	})
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			apiErr.Err = menu.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

func (m *Menu) list(ctx context.Context, r request) ([]menu.Food, error) {
	var foods []menu.Food
	if err := m.c.do(ctx, r, func(d *jx.Decoder) error {
		return decodeList(d, func(d *jx.Decoder) error {
			var f menu.Food
			if err := decodeFood(d, &f); err != nil {
				return err
			}
			foods = append(foods, f)
			return nil
		})
	}); err != nil {
		return nil, err
	}
	return foods, nil
}

// decodeFood reads a food. A single "price" fills both tiers unless the
// tier prices are present.
func decodeFood(d *jx.Decoder, f *menu.Food) error {
	f.Available = true
	var hasDineIn, hasTakeaway bool
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "food_id", "id":
			f.ID, err = decodeID(d)
		case "name":
			f.Name, err = decodeOptStr(d)
		case "description":
			f.Description, err = decodeOptStr(d)
		case "category":
			f.Category, err = decodeOptStr(d)
		case "image":
			f.Image, err = decodeOptStr(d)
		case "price_dine_in":
			f.PriceDineIn, err = decodeDecimal(d)
			hasDineIn = true
		case "price_takeaway":
			f.PriceTakeaway, err = decodeDecimal(d)
			hasTakeaway = true
		case "price":
			p, perr := decodeDecimal(d)
			if !hasDineIn {
				f.PriceDineIn = p
			}
			if !hasTakeaway {
				f.PriceTakeaway = p
			}
			err = perr
		case "availability", "is_available", "available":
			f.Available, err = decodeBool(d)
		default:
			err = d.Skip()
		}
		return field(key, err)
	}); err != nil {
		return err
	}
	if f.ID == "" {
		return errors.New("food has no id")
	}
	return nil
}
