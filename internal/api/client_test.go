package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/restoran/internal/domain/cart"
	"github.com/xenking/restoran/internal/domain/menu"
	"github.com/xenking/restoran/internal/domain/order"
	"github.com/xenking/restoran/internal/domain/session"
)

// --- Helpers ---

type recorded struct {
	method string
	path   string
	query  string
	auth   string
	body   map[string]any
}

func newTestClient(t *testing.T, token string, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *[]recorded) {
	t.Helper()
	var reqs []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			auth:   r.Header.Get("Authorization"),
		}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			require.NoError(t, json.Unmarshal(data, &rec.body))
		}
		reqs = append(reqs, rec)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL+"/", WithHTTPClient(srv.Client()), WithTokenSource(TokenFunc(func() string { return token })))
	require.NoError(t, err)
	return c, &reqs
}

func respond(status int, body string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// --- Client ---

func TestNewClient_RejectsBadURL(t *testing.T) {
	_, err := NewClient("ftp://example.com")
	assert.Error(t, err)
	_, err = NewClient("://")
	assert.Error(t, err)
}

func TestDo_ErrorMessage(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"message", http.StatusBadRequest, `{"message":"bad input"}`, "bad input"},
		{"detail", http.StatusForbidden, `{"detail":"not allowed"}`, "not allowed"},
		{"not json", http.StatusBadGateway, `<html>`, "Bad Gateway"},
		{"empty", http.StatusInternalServerError, ``, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, "tok", respond(tt.status, tt.body))

			_, err := c.Orders().List(context.Background())
			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
		})
	}
}

func TestDo_NoContent(t *testing.T) {
	c, reqs := newTestClient(t, "tok", respond(http.StatusNoContent, ""))

	require.NoError(t, c.Auth().Logout(context.Background()))
	require.Len(t, *reqs, 1)
	assert.Equal(t, "Bearer tok", (*reqs)[0].auth)
	assert.Equal(t, "/api/user/logout/", (*reqs)[0].path)
}

func TestDo_NoTokenNoHeader(t *testing.T) {
	c, reqs := newTestClient(t, "", respond(http.StatusOK, `[]`))

	_, err := c.Menu().ListFoods(context.Background())
	require.NoError(t, err)
	assert.Empty(t, (*reqs)[0].auth)
}

// --- Auth ---

func TestAuth_Login(t *testing.T) {
	c, reqs := newTestClient(t, "stale", respond(http.StatusOK,
		`{"access":"jwt","refresh":"r","user":{"user_id":12,"name":"Aylin","email":"a@example.com","phone":null,"role":"admin"}}`))

	res, err := c.Auth().Login(context.Background(), session.Credentials{Email: "a@example.com", Password: "secret1"})
	require.NoError(t, err)

	assert.Equal(t, "jwt", res.AccessToken)
	assert.Equal(t, session.User{ID: "12", Name: "Aylin", Email: "a@example.com", Role: session.RoleAdmin}, res.User)

	r := (*reqs)[0]
	assert.Equal(t, http.MethodPost, r.method)
	assert.Equal(t, "/api/user/login/", r.path)
	assert.Empty(t, r.auth, "login is anonymous")
	assert.Equal(t, map[string]any{"email": "a@example.com", "password": "secret1"}, r.body)
}

func TestAuth_LoginRejected(t *testing.T) {
	c, _ := newTestClient(t, "", respond(http.StatusUnauthorized, `{"detail":"No active account"}`))

	_, err := c.Auth().Login(context.Background(), session.Credentials{Email: "a@example.com", Password: "x"})
	require.ErrorIs(t, err, session.ErrInvalidCredentials)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "No active account", apiErr.Message)
}

func TestAuth_LoginServerError(t *testing.T) {
	c, _ := newTestClient(t, "", respond(http.StatusInternalServerError, `{}`))

	_, err := c.Auth().Login(context.Background(), session.Credentials{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, session.ErrInvalidCredentials)
}

func TestAuth_Register(t *testing.T) {
	c, reqs := newTestClient(t, "tok", respond(http.StatusCreated, `{"message":"ok"}`))

	err := c.Auth().Register(context.Background(), session.Registration{
		Name: "A", Email: "a@example.com", Phone: "555", Password: "secret1", PasswordConfirm: "secret1",
	})
	require.NoError(t, err)

	r := (*reqs)[0]
	assert.Empty(t, r.auth)
	assert.Equal(t, "secret1", r.body["password_confirm"])
	assert.Equal(t, "555", r.body["phone"])
}

func TestAuth_ResetPassword(t *testing.T) {
	c, reqs := newTestClient(t, "tok", respond(http.StatusOK, `{"message":"ok"}`))

	err := c.Auth().ResetPassword(context.Background(), session.PasswordReset{
		Email: "a@example.com", OldPassword: "old123", NewPassword: "new123", NewPasswordConfirm: "new123",
	})
	require.NoError(t, err)

	r := (*reqs)[0]
	assert.Equal(t, http.MethodPost, r.method)
	assert.Equal(t, "/api/user/password-reset/", r.path)
	assert.Empty(t, r.auth)
	assert.Equal(t, map[string]any{
		"email":                "a@example.com",
		"old_password":         "old123",
		"new_password":         "new123",
		"new_password_confirm": "new123",
	}, r.body)

	c, _ = newTestClient(t, "", respond(http.StatusBadRequest, `{"detail":"wrong old password"}`))
	err = c.Auth().ResetPassword(context.Background(), session.PasswordReset{Email: "a@example.com"})
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "wrong old password", apiErr.Message)
}

func TestAuth_Profile(t *testing.T) {
	c, _ := newTestClient(t, "tok", respond(http.StatusOK, `{"id":"u1","name":"B","email":"b@example.com","phone":"1","role":"user","created_at":"x"}`))

	u, err := c.Auth().Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "1", u.Phone)
}

// --- Menu ---

const foodsJSON = `[
	{"food_id":"f1","name":"Adana","category":"Kebab","price_dine_in":"120.00","price_takeaway":"110.50","image":"a.jpg","availability":true},
	{"food_id":2,"name":"Ayran","category":"Drinks","price":15,"availability":"false"}
]`

func TestMenu_ListFoods(t *testing.T) {
	c, _ := newTestClient(t, "", respond(http.StatusOK, foodsJSON))

	foods, err := c.Menu().ListFoods(context.Background())
	require.NoError(t, err)
	require.Len(t, foods, 2)

	assert.Equal(t, "f1", foods[0].ID)
	assert.True(t, foods[0].PriceDineIn.Equal(dec("120")))
	assert.True(t, foods[0].PriceTakeaway.Equal(dec("110.5")))
	assert.True(t, foods[0].Available)

	assert.Equal(t, "2", foods[1].ID)
	assert.True(t, foods[1].PriceDineIn.Equal(dec("15")))
	assert.True(t, foods[1].PriceTakeaway.Equal(dec("15")))
	assert.False(t, foods[1].Available)
}

func TestMenu_Paginated(t *testing.T) {
	c, _ := newTestClient(t, "", respond(http.StatusOK, `{"count":1,"next":null,"results":[{"id":"x","price_dine_in":1,"price_takeaway":2}]}`))

	foods, err := c.Menu().ListFoods(context.Background())
	require.NoError(t, err)
	require.Len(t, foods, 1)
	assert.Equal(t, "x", foods[0].ID)
}

func TestMenu_ListByCategory(t *testing.T) {
	c, reqs := newTestClient(t, "", respond(http.StatusOK, `[]`))

	_, err := c.Menu().ListByCategory(context.Background(), "Ana Yemek")
	require.NoError(t, err)
	assert.Equal(t, "/api/menu/foods/by_category/", (*reqs)[0].path)
	assert.Equal(t, "category=Ana+Yemek", (*reqs)[0].query)
}

func TestMenu_GetFood(t *testing.T) {
	c, reqs := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/menu/foods/f1/" {
			respond(http.StatusOK, `{"food_id":"f1","price_dine_in":"5","price_takeaway":"4"}`)(w, r)
			return
		}
		respond(http.StatusNotFound, `{"detail":"Not found."}`)(w, r)
	})

	f, err := c.Menu().GetFood(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, "f1", f.ID)

	_, err = c.Menu().GetFood(context.Background(), "nope")
	assert.ErrorIs(t, err, menu.ErrNotFound)
	assert.Len(t, *reqs, 2)
}

func TestMenu_MalformedFood(t *testing.T) {
	c, _ := newTestClient(t, "", respond(http.StatusOK, `[{"name":"no id"}]`))

	_, err := c.Menu().ListFoods(context.Background())
	assert.Error(t, err)
}

// --- Orders ---

func TestOrders_CreateDineIn(t *testing.T) {
	c, reqs := newTestClient(t, "tok", respond(http.StatusCreated,
		`{"order_id":"o-1","order_type":"dine_in","order_status":"pending","total_price":"240.00","payment_method":"cash","table_number":3,"delivery_address":null,"created_at":"2026-03-01T12:00:00Z","items":[{"food_id":"f1","quantity":2,"price":"120.00"}]}`))

	o, err := c.Orders().Create(context.Background(), order.Draft{
		Type:          order.DineIn,
		Items:         []order.Item{{FoodID: "f1", Quantity: 2, Price: dec("120")}},
		Total:         dec("240"),
		PaymentMethod: order.Cash,
		TableNumber:   3,
		Status:        order.StatusPending,
	})
	require.NoError(t, err)

	assert.Equal(t, "o-1", o.ID)
	assert.Equal(t, 3, o.TableNumber)
	assert.Empty(t, o.AddressID)
	assert.True(t, o.Total.Equal(dec("240")))
	assert.Equal(t, 2026, o.CreatedAt.Year())
	require.Len(t, o.Items, 1)

	body := (*reqs)[0].body
	assert.Equal(t, "Bearer tok", (*reqs)[0].auth)
	assert.Equal(t, 240.0, body["total_price"])
	assert.Equal(t, "pending", body["order_status"])
	assert.Equal(t, "dine_in", body["order_type"])
	assert.Equal(t, 3.0, body["table_number"])
	assert.NotContains(t, body, "delivery_address")
	assert.Equal(t, []any{map[string]any{"food_id": "f1", "quantity": 2.0, "price": 120.0}}, body["items"])
}

func TestOrders_CreateSubCentPrices(t *testing.T) {
	c, reqs := newTestClient(t, "tok", respond(http.StatusCreated, `{"order_id":"o-3"}`))

	d := order.Assemble(
		[]cart.LineItem{{ID: "f1", Price: dec("1"), Quantity: 3}},
		menu.NewIndex([]menu.Food{{ID: "f1", PriceDineIn: dec("0.333"), PriceTakeaway: dec("0.3")}}),
		order.DineIn,
	)
	d.PaymentMethod, d.TableNumber, d.Status = order.Cash, 1, order.StatusPending

	_, err := c.Orders().Create(context.Background(), d)
	require.NoError(t, err)

	body := (*reqs)[0].body
	assert.Equal(t, 0.99, body["total_price"])
	assert.Equal(t, []any{map[string]any{"food_id": "f1", "quantity": 3.0, "price": 0.33}}, body["items"])
}

func TestOrders_CreateTakeawayMinimalResponse(t *testing.T) {
	c, reqs := newTestClient(t, "tok", respond(http.StatusCreated, `{"order_id":"o-2"}`))

	o, err := c.Orders().Create(context.Background(), order.Draft{
		Type:          order.Takeaway,
		Items:         []order.Item{{FoodID: "f1", Quantity: 1, Price: dec("9.5")}},
		Total:         dec("9.5"),
		PaymentMethod: order.Card,
		AddressID:     "a1",
		Status:        order.StatusPending,
	})
	require.NoError(t, err)
	assert.Equal(t, "o-2", o.ID)
	assert.Equal(t, order.Takeaway, o.Type)
	assert.Equal(t, "a1", o.AddressID)

	body := (*reqs)[0].body
	assert.Equal(t, "a1", body["delivery_address"])
	assert.NotContains(t, body, "table_number")
}

func TestOrders_ListAndUpdate(t *testing.T) {
	c, reqs := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPatch {
			respond(http.StatusOK, `{"order_id":"o-1","order_status":"completed"}`)(w, r)
			return
		}
		respond(http.StatusOK, `[{"order_id":"o-1","order_status":"pending","total_price":12.5},{"id":7,"status":"cancelled"}]`)(w, r)
	})

	orders, err := c.Orders().List(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, order.StatusPending, orders[0].Status)
	assert.Equal(t, "7", orders[1].ID)

	require.NoError(t, c.Orders().UpdateStatus(context.Background(), "o-1", order.StatusCompleted))
	r := (*reqs)[1]
	assert.Equal(t, http.MethodPatch, r.method)
	assert.Equal(t, "/api/orders/o-1/update_status/", r.path)
	assert.Equal(t, map[string]any{"order_status": "completed"}, r.body)
}

// --- Addresses ---

func TestAddresses(t *testing.T) {
	c, reqs := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			respond(http.StatusCreated, `{"address_id":"a9","street":"Main 1","city":"Izmir","zip_code":"35000"}`)(w, r)
			return
		}
		respond(http.StatusOK, `[{"address_id":"a1","user_id":"u","street":"S","city":"C","zip_code":"Z","created_at":"2026-01-01T00:00:00Z"}]`)(w, r)
	})

	list, err := c.Addresses().List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []order.Address{{ID: "a1", Street: "S", City: "C", ZipCode: "Z"}}, list)

	addr, err := c.Addresses().Create(context.Background(), order.NewAddress{Street: "Main 1", City: "Izmir", ZipCode: "35000"})
	require.NoError(t, err)
	assert.Equal(t, "a9", addr.ID)
	assert.Equal(t, map[string]any{"street": "Main 1", "city": "Izmir", "zip_code": "35000"}, (*reqs)[1].body)
}
