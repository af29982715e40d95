package api

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/restoran/internal/domain/session"
)

var _ session.Authenticator = (*Auth)(nil)

// Auth implements session.Authenticator over the user endpoints.
type Auth struct {
	c *Client
}

// Auth returns the authentication endpoints.
func (c *Client) Auth() *Auth { return &Auth{c: c} }

// Login posts credentials and returns the access token and user.
func (a *Auth) Login(ctx context.Context, creds session.Credentials) (*session.LoginResult, error) {
	var res session.LoginResult
	err := a.c.do(ctx, request{
		method:    http.MethodPost,
		path:      "/api/user/login/",
		anonymous: true,
		body: func(e *jx.Encoder) {
			e.ObjStart()
			e.FieldStart("email")
			e.Str(creds.Email)
			e.FieldStart("password")
			e.Str(creds.Password)
			e.ObjEnd()
		},
	}, func(d *jx.Decoder) error {
		return d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "access", "access_token", "token":
				s, err := decodeOptStr(d)
				if s != "" {
					res.AccessToken = s
				}
				return field(key, err)
			case "user":
				return field(key, decodeUser(d, &res.User))
			default:
				return d.Skip()
			}
		})
	})
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusUnauthorized) {
			apiErr.Err = session.ErrInvalidCredentials
		}
		return nil, err
	}
	return &res, nil
}

// Register creates an account.
func (a *Auth) Register(ctx context.Context, reg session.Registration) error {
	return a.c.do(ctx, request{
		method:    http.MethodPost,
		path:      "/api/user/register/",
		anonymous: true,
		body: func(e *jx.Encoder) {
			e.ObjStart()
			e.FieldStart("name")
			e.Str(reg.Name)
			e.FieldStart("email")
			e.Str(reg.Email)
			e.FieldStart("phone")
			e.Str(reg.Phone)
			e.FieldStart("password")
			e.Str(reg.Password)
			e.FieldStart("password_confirm")
			e.Str(reg.PasswordConfirm)
			e.ObjEnd()
		},
	}, nil)
}

// Logout invalidates the current token on the server.
func (a *Auth) Logout(ctx context.Context) error {
	return a.c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/user/logout/",
		body: func(e *jx.Encoder) {
			e.ObjStart()
			e.ObjEnd()
		},
	}, nil)
}

// ResetPassword changes a password given the old one.
func (a *Auth) ResetPassword(ctx context.Context, req session.PasswordReset) error {
	return a.c.do(ctx, request{
		method:    http.MethodPost,
		path:      "/api/user/password-reset/",
		anonymous: true,
		body: func(e *jx.Encoder) {
			e.ObjStart()
			e.FieldStart("email")
			e.Str(req.Email)
			e.FieldStart("old_password")
			e.Str(req.OldPassword)
			e.FieldStart("new_password")
			e.Str(req.NewPassword)
			e.FieldStart("new_password_confirm")
			e.Str(req.NewPasswordConfirm)
			e.ObjEnd()
		},
	}, nil)
}

// Profile returns the signed-in user.
func (a *Auth) Profile(ctx context.Context) (*session.User, error) {
	var u session.User
	if err := a.c.do(ctx, request{
		method: http.MethodGet,
		path:   "/api/user/profile/",
	}, func(d *jx.Decoder) error {
		return decodeUser(d, &u)
	}); err != nil {
		return nil, err
	}
	return &u, nil
}

// decodeUser reads a user object; "user_id" and "id" are both accepted.
func decodeUser(d *jx.Decoder, u *session.User) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "user_id", "id":
			u.ID, err = decodeID(d)
		case "name":
			u.Name, err = decodeOptStr(d)
		case "email":
			u.Email, err = decodeOptStr(d)
		case "phone":
			u.Phone, err = decodeOptStr(d)
		case "role":
			var role string
			role, err = decodeOptStr(d)
			u.Role = session.Role(role)
		default:
			err = d.Skip()
		}
		return field(key, err)
	})
}
