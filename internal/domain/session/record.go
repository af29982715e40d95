package session

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/golang-jwt/jwt/v5"
)

// record is the persisted session: the user fields plus the bearer token,
// stored flat as {"id","name","email","phone","role","token"}.
type record struct {
	User  User
	Token string
}

func encodeRecord(r record) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("id")
	e.Str(r.User.ID)
	e.FieldStart("name")
	e.Str(r.User.Name)
	e.FieldStart("email")
	e.Str(r.User.Email)
	if r.User.Phone != "" {
		e.FieldStart("phone")
		e.Str(r.User.Phone)
	}
	e.FieldStart("role")
	e.Str(string(r.User.Role))
	e.FieldStart("token")
	e.Str(r.Token)
	e.ObjEnd()

	return append([]byte(nil), e.Bytes()...)
}

// decodeRecord parses a persisted session. "user_id" is accepted as an
// alias of "id". A record without token, id or a known role is invalid.
func decodeRecord(data []byte) (record, error) {
	var r record
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Object {
		return r, errors.New("session record is not an object")
	}
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id", "user_id":
			r.User.ID, err = decodeID(d)
		case "name":
			r.User.Name, err = d.Str()
		case "email":
			r.User.Email, err = d.Str()
		case "phone":
			r.User.Phone, err = decodeOptStr(d)
		case "role":
			var role string
			role, err = d.Str()
			r.User.Role = Role(role)
		case "token":
			r.Token, err = d.Str()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	}); err != nil {
		return r, errors.Wrap(err, "decode session")
	}

	switch {
	case r.Token == "":
		return r, errors.New("session record has no token")
	case r.User.ID == "":
		return r, errors.New("session record has no user id")
	case !r.User.Role.Valid():
		return r, errors.Errorf("session record has unknown role %q", r.User.Role)
	}
	return r, nil
}

// decodeID reads an id that may be a JSON string or number.
func decodeID(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Number {
		raw, err := d.Raw()
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	return d.Str()
}

func decodeOptStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

// tokenExpired reports whether token is a JWT whose exp claim is at or
// before now. Tokens that are not JWTs never expire client-side.
func tokenExpired(token string, now time.Time) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}
