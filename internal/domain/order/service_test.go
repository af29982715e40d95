package order

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/restoran/internal/domain/cart"
	"github.com/xenking/restoran/internal/domain/menu"
	"github.com/xenking/restoran/internal/kv"
	"github.com/xenking/restoran/internal/notify"
)

// --- Mock implementations ---

type mockCatalog struct {
	foods []menu.Food
	err   error
	calls int
}

func (m *mockCatalog) ListFoods(_ context.Context) ([]menu.Food, error) {
	m.calls++
	return m.foods, m.err
}

func (m *mockCatalog) GetFood(_ context.Context, id string) (*menu.Food, error) {
	for i := range m.foods {
		if m.foods[i].ID == id {
			return &m.foods[i], nil
		}
	}
	return nil, menu.ErrNotFound
}

func (m *mockCatalog) ListByCategory(_ context.Context, _ string) ([]menu.Food, error) {
	return m.foods, m.err
}

type mockOrderRepo struct {
	last      *Draft
	createErr error
	onCreate  func()

	list      []Order
	updatedID string
	updated   Status
	updateErr error
}

func (m *mockOrderRepo) Create(_ context.Context, d Draft) (*Order, error) {
	m.last = &d
	if m.onCreate != nil {
		m.onCreate()
	}
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &Order{ID: "o-1", Type: d.Type, Status: d.Status, Items: d.Items, Total: d.Total}, nil
}

func (m *mockOrderRepo) List(_ context.Context) ([]Order, error) {
	return m.list, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id string, status Status) error {
	m.updatedID, m.updated = id, status
	return m.updateErr
}

type mockAddressBook struct {
	saved   []Address
	created []NewAddress
	listErr error
}

func (m *mockAddressBook) List(_ context.Context) ([]Address, error) {
	return m.saved, m.listErr
}

func (m *mockAddressBook) Create(_ context.Context, a NewAddress) (*Address, error) {
	m.created = append(m.created, a)
	return &Address{ID: "new-addr", Street: a.Street, City: a.City, ZipCode: a.ZipCode}, nil
}

// --- Helpers ---

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func food(id, dineIn, takeaway string) menu.Food {
	return menu.Food{ID: id, Name: "Food " + id, PriceDineIn: dec(dineIn), PriceTakeaway: dec(takeaway), Available: true}
}

type fixture struct {
	svc       *Service
	cart      *cart.Manager
	catalog   *mockCatalog
	orders    *mockOrderRepo
	addresses *mockAddressBook
	notes     *notify.Queue
}

func newFixture(t *testing.T, foods ...menu.Food) *fixture {
	t.Helper()
	ctx := context.Background()
	q := notify.NewQueue(64)
	f := &fixture{
		cart:      cart.NewManager(ctx, kv.NewMemory(), notify.Nop, zap.NewNop()),
		catalog:   &mockCatalog{foods: foods},
		orders:    &mockOrderRepo{},
		addresses: &mockAddressBook{},
		notes:     q,
	}
	f.svc = NewService(f.catalog, f.orders, f.addresses, f.cart, q, zap.NewNop())
	return f
}

func (f *fixture) add(id, price string, qty int) {
	ctx := context.Background()
	f.cart.AddItem(ctx, cart.Product{ID: id, Name: "Food " + id, Price: dec(price)})
	f.cart.UpdateQuantity(ctx, id, qty)
}

// --- Assemble ---

func TestAssemble_UsesCatalogTier(t *testing.T) {
	items := []cart.LineItem{{ID: "1", Price: dec("100"), Quantity: 1}}
	catalog := menu.NewIndex([]menu.Food{food("1", "120", "110")})

	d := Assemble(items, catalog, DineIn)
	require.Len(t, d.Items, 1)
	assert.True(t, d.Items[0].Price.Equal(dec("120")))
	assert.True(t, d.Total.Equal(dec("120")))
	assert.Empty(t, d.Fallbacks)

	d = Assemble(items, catalog, Takeaway)
	assert.True(t, d.Total.Equal(dec("110")))
}

func TestAssemble_FallsBackToCartPrice(t *testing.T) {
	items := []cart.LineItem{
		{ID: "1", Price: dec("10"), Quantity: 2},
		{ID: "gone", Price: dec("7.25"), Quantity: 2},
	}
	catalog := menu.NewIndex([]menu.Food{food("1", "12.5", "11")})

	d := Assemble(items, catalog, DineIn)
	assert.Equal(t, []string{"gone"}, d.Fallbacks)
	assert.True(t, d.Items[1].Price.Equal(dec("7.25")))
	assert.True(t, d.Total.Equal(dec("39.5")), d.Total.String())
}

func TestAssemble_TotalIsSumOfItems(t *testing.T) {
	tests := []struct {
		name  string
		price string
		qty   int
		unit  string
		total string
	}{
		{"whole", "12", 2, "12", "24"},
		{"cents", "7.25", 3, "7.25", "21.75"},
		{"sub-cent down", "0.333", 3, "0.33", "0.99"},
		{"sub-cent up", "2.005", 2, "2.01", "4.02"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := []cart.LineItem{{ID: "a", Price: dec("1"), Quantity: tt.qty}}
			catalog := menu.NewIndex([]menu.Food{food("a", tt.price, tt.price)})

			d := Assemble(items, catalog, DineIn)
			require.Len(t, d.Items, 1)
			assert.True(t, d.Items[0].Price.Equal(dec(tt.unit)), d.Items[0].Price.String())
			assert.True(t, d.Total.Equal(dec(tt.total)), d.Total.String())

			sum := decimal.Zero
			for _, it := range d.Items {
				sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
			}
			assert.True(t, d.Total.Equal(sum))
		})
	}

	t.Run("mixed with fallback", func(t *testing.T) {
		items := []cart.LineItem{
			{ID: "a", Price: dec("1"), Quantity: 3},
			{ID: "b", Price: dec("1"), Quantity: 1},
			{ID: "gone", Price: dec("4.999"), Quantity: 2},
		}
		catalog := menu.NewIndex([]menu.Food{food("a", "0.333", "0.1"), food("b", "2.001", "0.2")})

		d := Assemble(items, catalog, DineIn)
		sum := decimal.Zero
		for _, it := range d.Items {
			assert.True(t, it.Price.Equal(it.Price.Round(2)))
			sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
		assert.True(t, d.Total.Equal(sum))
		assert.True(t, d.Total.Equal(dec("12.99")), d.Total.String())
	})
}

// --- Checkout ---

func TestCheckout_DineInReconcilesPrice(t *testing.T) {
	f := newFixture(t, food("1", "120", "110"))
	f.add("1", "100", 1)

	res, err := f.svc.Checkout(context.Background(), Request{Type: DineIn})
	require.NoError(t, err)

	require.NotNil(t, f.orders.last)
	d := *f.orders.last
	assert.True(t, d.Total.Equal(dec("120")))
	assert.Equal(t, DefaultTable, d.TableNumber)
	assert.Equal(t, Cash, d.PaymentMethod)
	assert.Equal(t, StatusPending, d.Status)
	assert.Empty(t, d.AddressID)
	assert.Equal(t, "o-1", res.Order.ID)

	assert.True(t, f.cart.IsEmpty())
	assert.Contains(t, f.notes.Drain(), notify.Notification{Kind: notify.Success, Message: "Order placed successfully"})
}

func TestCheckout_FailureLeavesCartIntact(t *testing.T) {
	f := newFixture(t, food("1", "10", "9"))
	f.add("1", "10", 2)
	f.orders.createErr = errors.New("503")

	_, err := f.svc.Checkout(context.Background(), Request{Type: DineIn, TableNumber: 4})
	require.Error(t, err)

	assert.Equal(t, 2, f.cart.Count())
	assert.Contains(t, f.notes.Drain(), notify.Notification{Kind: notify.Error, Message: "Failed to place order"})
}

func TestCheckout_KeepsItemsAddedDuringSubmit(t *testing.T) {
	f := newFixture(t, food("1", "10", "9"), food("2", "5", "4"))
	f.add("1", "10", 2)
	f.orders.onCreate = func() {
		f.cart.AddItem(context.Background(), cart.Product{ID: "2", Name: "Food 2", Price: dec("5")})
		f.cart.AddItem(context.Background(), cart.Product{ID: "1", Name: "Food 1", Price: dec("10")})
	}

	res, err := f.svc.Checkout(context.Background(), Request{Type: DineIn})
	require.NoError(t, err)
	require.Len(t, res.Draft.Items, 1)
	assert.Equal(t, 2, res.Draft.Items[0].Quantity)

	items := f.cart.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "1", items[0].ID)
	assert.Equal(t, 1, items[0].Quantity)
	assert.Equal(t, "2", items[1].ID)
	assert.Equal(t, 1, items[1].Quantity)
}

func TestCheckout_CatalogErrorSubmitsNothing(t *testing.T) {
	f := newFixture(t)
	f.add("1", "10", 1)
	f.catalog.err = errors.New("down")

	_, err := f.svc.Checkout(context.Background(), Request{Type: DineIn})
	require.Error(t, err)
	assert.Nil(t, f.orders.last)
	assert.False(t, f.cart.IsEmpty())
}

func TestCheckout_Validation(t *testing.T) {
	tests := []struct {
		name    string
		empty   bool
		req     Request
		wantErr error
		note    string
	}{
		{"empty cart", true, Request{Type: DineIn}, ErrEmptyCart, "Your cart is empty"},
		{"unknown type", false, Request{Type: "drive_through"}, ErrUnknownType, "Please choose dine-in or takeaway"},
		{"unknown payment", false, Request{Type: DineIn, PaymentMethod: "crypto"}, ErrUnknownPayment, "Please choose cash or card"},
		{"negative table", false, Request{Type: DineIn, TableNumber: -1}, ErrInvalidTable, "Please enter a valid table number"},
		{"incomplete address", false, Request{Type: Takeaway, NewAddress: &NewAddress{Street: "Main"}}, ErrInvalidNewAddress, "Please fill in street, city and zip code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, food("1", "10", "9"))
			if !tt.empty {
				f.add("1", "10", 1)
			}

			f.notes.Drain()

			_, err := f.svc.Checkout(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, f.catalog.calls)
			assert.Nil(t, f.orders.last)
			assert.Equal(t, []notify.Notification{{Kind: notify.Error, Message: tt.note}}, f.notes.Drain())
		})
	}
}

func TestCheckout_Takeaway(t *testing.T) {
	t.Run("first saved address", func(t *testing.T) {
		f := newFixture(t, food("1", "10", "9"))
		f.add("1", "10", 2)
		f.addresses.saved = []Address{{ID: "a1"}, {ID: "a2"}}

		_, err := f.svc.Checkout(context.Background(), Request{Type: Takeaway, PaymentMethod: Card, TableNumber: 5})
		require.NoError(t, err)

		d := *f.orders.last
		assert.Equal(t, "a1", d.AddressID)
		assert.Zero(t, d.TableNumber)
		assert.Equal(t, Card, d.PaymentMethod)
		assert.True(t, d.Total.Equal(dec("18")))
	})

	t.Run("explicit address", func(t *testing.T) {
		f := newFixture(t, food("1", "10", "9"))
		f.add("1", "10", 1)

		_, err := f.svc.Checkout(context.Background(), Request{Type: Takeaway, AddressID: "a9"})
		require.NoError(t, err)
		assert.Equal(t, "a9", f.orders.last.AddressID)
	})

	t.Run("new address", func(t *testing.T) {
		f := newFixture(t, food("1", "10", "9"))
		f.add("1", "10", 1)

		addr := &NewAddress{Street: "Main 1", City: "Izmir", ZipCode: "35000"}
		_, err := f.svc.Checkout(context.Background(), Request{Type: Takeaway, NewAddress: addr})
		require.NoError(t, err)
		assert.Equal(t, "new-addr", f.orders.last.AddressID)
		assert.Len(t, f.addresses.created, 1)
	})

	t.Run("no address", func(t *testing.T) {
		f := newFixture(t, food("1", "10", "9"))
		f.add("1", "10", 1)

		f.notes.Drain()

		_, err := f.svc.Checkout(context.Background(), Request{Type: Takeaway})
		require.ErrorIs(t, err, ErrAddressRequired)
		assert.Nil(t, f.orders.last)
		assert.False(t, f.cart.IsEmpty())
		assert.Contains(t, f.notes.Drain(), notify.Notification{Kind: notify.Error, Message: "Please add a delivery address"})
	})
}

// --- Quote, History, SetStatus ---

func TestQuote(t *testing.T) {
	f := newFixture(t, food("1", "12", "10"))
	f.add("1", "11", 3)

	d, err := f.svc.Quote(context.Background(), Takeaway)
	require.NoError(t, err)
	assert.True(t, d.Total.Equal(dec("30")))
	assert.Nil(t, f.orders.last)
	assert.Equal(t, 3, f.cart.Count())

	_, err = newFixture(t).svc.Quote(context.Background(), DineIn)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	f.orders.list = []Order{{ID: "1"}, {ID: "2"}}

	got, err := f.svc.History(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.svc.SetStatus(ctx, "7", StatusPreparing))
	assert.Equal(t, "7", f.orders.updatedID)
	assert.Equal(t, StatusPreparing, f.orders.updated)

	err := f.svc.SetStatus(ctx, "7", "shipped")
	var serr *InvalidStatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, Status("shipped"), serr.Status)

	assert.ErrorIs(t, f.svc.SetStatus(ctx, "", StatusPending), ErrMissingOrderID)

	f.orders.updateErr = errors.New("403")
	assert.Error(t, f.svc.SetStatus(ctx, "7", StatusCancelled))
}
