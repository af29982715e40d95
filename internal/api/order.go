package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-faster/jx"

	"github.com/xenking/restoran/internal/domain/order"
)

var _ order.Repository = (*Orders)(nil)

// Orders implements order.Repository over the order endpoints.
type Orders struct {
	c *Client
}

// Orders returns the order endpoints.
func (c *Client) Orders() *Orders { return &Orders{c: c} }

// Create submits a draft. Dine-in orders carry table_number, takeaway
// orders carry delivery_address.
func (o *Orders) Create(ctx context.Context, draft order.Draft) (*order.Order, error) {
	var out order.Order
	if err := o.c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/orders/",
		body:   func(e *jx.Encoder) { encodeDraft(e, draft) },
	}, func(d *jx.Decoder) error {
		return decodeOrder(d, &out)
	}); err != nil {
		return nil, err
	}

	// Some deployments answer with only the id.
	if out.Type == "" {
		out.Type = draft.Type
		out.Status = draft.Status
		out.Items = draft.Items
		out.Total = draft.Total
		out.PaymentMethod = draft.PaymentMethod
		out.TableNumber = draft.TableNumber
		out.AddressID = draft.AddressID
	}
	return &out, nil
}

// List returns the orders visible to the caller.
func (o *Orders) List(ctx context.Context) ([]order.Order, error) {
	var out []order.Order
	if err := o.c.do(ctx, request{
		method: http.MethodGet,
		path:   "/api/orders/",
	}, func(d *jx.Decoder) error {
		return decodeList(d, func(d *jx.Decoder) error {
			var ord order.Order
			if err := decodeOrder(d, &ord); err != nil {
				return err
			}
			out = append(out, ord)
			return nil
		})
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatus sets the status of order id.
func (o *Orders) UpdateStatus(ctx context.Context, id string, status order.Status) error {
	return o.c.do(ctx, request{
		method: http.MethodPatch,
		path:   "/api/orders/" + url.PathEscape(id) + "/update_status/",
		body: func(e *jx.Encoder) {
			e.ObjStart()
			e.FieldStart("order_status")
			e.Str(string(status))
			e.ObjEnd()
		},
	}, nil)
}

func encodeDraft(e *jx.Encoder, d order.Draft) {
	e.ObjStart()
	e.FieldStart("total_price")
	e.RawStr(d.Total.StringFixed(2))
	e.FieldStart("order_status")
	e.Str(string(d.Status))
	e.FieldStart("payment_method")
	e.Str(string(d.PaymentMethod))
	e.FieldStart("order_type")
	e.Str(string(d.Type))
	switch d.Type {
	case order.DineIn:
		e.FieldStart("table_number")
		e.Int(d.TableNumber)
	case order.Takeaway:
		e.FieldStart("delivery_address")
		e.Str(d.AddressID)
	}
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range d.Items {
		e.ObjStart()
		e.FieldStart("food_id")
		e.Str(it.FoodID)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("price")
		e.RawStr(it.Price.StringFixed(2))
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

func decodeOrder(d *jx.Decoder, o *order.Order) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "order_id", "id":
			o.ID, err = decodeID(d)
		case "order_type":
			var s string
			s, err = decodeOptStr(d)
			o.Type = order.Type(s)
		case "order_status", "status":
			var s string
			s, err = decodeOptStr(d)
			o.Status = order.Status(s)
		case "payment_method":
			var s string
			s, err = decodeOptStr(d)
			o.PaymentMethod = order.PaymentMethod(s)
		case "total_price":
			o.Total, err = decodeDecimal(d)
		case "table_number":
			o.TableNumber, err = decodeOptInt(d)
		case "delivery_address":
			o.AddressID, err = decodeID(d)
		case "created_at":
			o.CreatedAt, err = decodeTime(d)
		case "items":
			o.Items = o.Items[:0]
			err = d.Arr(func(d *jx.Decoder) error {
				it, err := decodeItem(d)
				if err != nil {
					return err
				}
				o.Items = append(o.Items, it)
				return nil
			})
		default:
			err = d.Skip()
		}
		return field(key, err)
	})
}

func decodeItem(d *jx.Decoder) (order.Item, error) {
	var it order.Item
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "food_id", "food":
			it.FoodID, err = decodeID(d)
		case "quantity":
			it.Quantity, err = decodeOptInt(d)
		case "price":
			it.Price, err = decodeDecimal(d)
		default:
			err = d.Skip()
		}
		return field(key, err)
	})
	return it, err
}
