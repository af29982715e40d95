package api

import (
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// decodeList reads a JSON array, or a paginated {"results": [...]} object.
func decodeList(d *jx.Decoder, item func(d *jx.Decoder) error) error {
	switch d.Next() {
	case jx.Array:
		return d.Arr(item)
	case jx.Object:
		found := false
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			if key != "results" {
				return d.Skip()
			}
			found = true
			return d.Arr(item)
		}); err != nil {
			return err
		}
		if !found {
			return errors.New("object has no results")
		}
		return nil
	default:
		return errors.Errorf("expected list, got %s", d.Next())
	}
}

// decodeID reads an identifier sent as a string or a number.
func decodeID(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.Number:
		raw, err := d.Raw()
		if err != nil {
			return "", err
		}
		return raw.String(), nil
	case jx.Null:
		return "", d.Null()
	default:
		return d.Str()
	}
}

// decodeOptStr reads a string that may be null.
func decodeOptStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

// decodeDecimal reads money sent as a string ("12.50") or a number.
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
		return decimal.NewFromString(raw.String())
	case jx.Null:
		return decimal.Zero, d.Null()
	default:
		return decimal.Zero, errors.Errorf("expected decimal, got %s", d.Next())
	}
}

// decodeOptInt reads an integer that may be null or a numeric string.
func decodeOptInt(d *jx.Decoder) (int, error) {
	switch d.Next() {
	case jx.Null:
		return 0, d.Null()
	case jx.String:
		s, err := d.Str()
		if err != nil || s == "" {
			return 0, err
		}
		return strconv.Atoi(s)
	default:
		return d.Int()
	}
}

// decodeBool reads a boolean that may be sent as a string.
func decodeBool(d *jx.Decoder) (bool, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return false, err
		}
		return strconv.ParseBool(s)
	case jx.Null:
		return false, d.Null()
	default:
		return d.Bool()
	}
}

// decodeTime reads an RFC 3339 timestamp that may be null.
func decodeTime(d *jx.Decoder) (time.Time, error) {
	s, err := decodeOptStr(d)
	if err != nil || s == "" {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, s)
}

// field wraps a per-field decode error with the field name.
func field(key string, err error) error {
	if err != nil {
		return errors.Wrapf(err, "field %q", key)
	}
	return nil
}
