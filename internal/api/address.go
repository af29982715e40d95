package api

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/restoran/internal/domain/order"
)

var _ order.AddressBook = (*Addresses)(nil)

// Addresses implements order.AddressBook over the delivery address
// endpoints.
type Addresses struct {
	c *Client
}

// Addresses returns the delivery address endpoints.
func (c *Client) Addresses() *Addresses { return &Addresses{c: c} }

// List returns the caller's saved addresses.
func (a *Addresses) List(ctx context.Context) ([]order.Address, error) {
	var out []order.Address
	if err := a.c.do(ctx, request{
		method: http.MethodGet,
		path:   "/api/delivery-addresses/",
	}, func(d *jx.Decoder) error {
		return decodeList(d, func(d *jx.Decoder) error {
			var addr order.Address
			if err := decodeAddress(d, &addr); err != nil {
				return err
			}
			out = append(out, addr)
			return nil
		})
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// Create saves a new address.
func (a *Addresses) Create(ctx context.Context, in order.NewAddress) (*order.Address, error) {
	var out order.Address
	if err := a.c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/delivery-addresses/",
		body: func(e *jx.Encoder) {
			e.ObjStart()
			e.FieldStart("street")
			e.Str(in.Street)
			e.FieldStart("city")
			e.Str(in.City)
			e.FieldStart("zip_code")
			e.Str(in.ZipCode)
			e.ObjEnd()
		},
	}, func(d *jx.Decoder) error {
		return decodeAddress(d, &out)
	}); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, errors.New("created address has no id")
	}
	return &out, nil
}

func decodeAddress(d *jx.Decoder, a *order.Address) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "address_id", "id":
			a.ID, err = decodeID(d)
		case "street":
			a.Street, err = decodeOptStr(d)
		case "city":
			a.City, err = decodeOptStr(d)
		case "zip_code":
			a.ZipCode, err = decodeOptStr(d)
		default:
			err = d.Skip()
		}
		return field(key, err)
	})
}
