package cart

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// encodeItems serializes items as a JSON array of
// {"id","name","price","quantity","image"} objects.
func encodeItems(items []LineItem) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ArrStart()
	for _, li := range items {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(li.ID)
		e.FieldStart("name")
		e.Str(li.Name)
		e.FieldStart("price")
		e.Str(li.Price.String())
		e.FieldStart("quantity")
		e.Int(li.Quantity)
		e.FieldStart("image")
		e.Str(li.Image)
		e.ObjEnd()
	}
	e.ArrEnd()

	return append([]byte(nil), e.Bytes()...)
}

// decodeItems parses a record written by encodeItems. Prices may be JSON
// numbers or strings. Records violating the cart invariants (empty id,
// quantity below 1, duplicate ids) are rejected.
func decodeItems(data []byte) ([]LineItem, error) {
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Array {
		return nil, errors.New("cart record is not an array")
	}

	var items []LineItem
	seen := make(map[string]struct{})
	if err := d.Arr(func(d *jx.Decoder) error {
		li, err := decodeItem(d)
		if err != nil {
			return err
		}
		if li.ID == "" {
			return errors.New("line item without id")
		}
		if li.Quantity < 1 {
			return errors.Errorf("line item %q: quantity %d", li.ID, li.Quantity)
		}
		if _, dup := seen[li.ID]; dup {
			return errors.Errorf("duplicate line item %q", li.ID)
		}
		seen[li.ID] = struct{}{}
		items = append(items, li)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode cart")
	}
	return items, nil
}

func decodeItem(d *jx.Decoder) (LineItem, error) {
	var li LineItem
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			li.ID, err = d.Str()
		case "name":
			li.Name, err = d.Str()
		case "image":
			li.Image, err = d.Str()
		case "price":
			li.Price, err = decodeDecimal(d)
		case "quantity":
			li.Quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
	return li, err
}

// decodeDecimal reads a decimal encoded either as a JSON number or a string.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	case jx.Number:
		raw, err := d.Raw()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(string(raw))
	default:
		return decimal.Zero, errors.Errorf("unexpected %s for decimal", d.Next())
	}
}
