package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type is how the customer receives the order. It selects the price tier.
type Type string

const (
	DineIn   Type = "dine_in"
	Takeaway Type = "takeaway"
)

// Valid reports whether t is a known order type.
func (t Type) Valid() bool { return t == DineIn || t == Takeaway }

// PaymentMethod is how the customer pays on delivery or at the table.
type PaymentMethod string

const (
	Cash PaymentMethod = "cash"
	Card PaymentMethod = "card"
)

// Valid reports whether p is a known payment method.
func (p PaymentMethod) Valid() bool { return p == Cash || p == Card }

// Status is the lifecycle state of a submitted order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPreparing, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// DefaultTable is used for dine-in orders without a table number.
const DefaultTable = 1

// Item is one reconciled order line.
type Item struct {
	FoodID   string
	Quantity int
	Price    decimal.Decimal
}

// Draft is an order ready for submission. Item prices carry at most 2
// decimal places and Total is the sum of Price*Quantity over Items.
type Draft struct {
	Type          Type
	Items         []Item
	Total         decimal.Decimal
	PaymentMethod PaymentMethod
	TableNumber   int
	AddressID     string
	Status        Status

	// Fallbacks lists food ids priced from the cart because the catalog no
	// longer has them.
	Fallbacks []string
}

// Address is a saved delivery address.
type Address struct {
	ID      string
	Street  string
	City    string
	ZipCode string
}

// NewAddress is the input for creating a delivery address.
type NewAddress struct {
	Street  string `validate:"required"`
	City    string `validate:"required"`
	ZipCode string `validate:"required"`
}

// Order is a submitted order as reported by the server.
type Order struct {
	ID            string
	Type          Type
	Status        Status
	Items         []Item
	Total         decimal.Decimal
	PaymentMethod PaymentMethod
	TableNumber   int
	AddressID     string
	CreatedAt     time.Time
}

// Repository defines the server-side order operations.
type Repository interface {
	Create(ctx context.Context, draft Draft) (*Order, error)
	List(ctx context.Context) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
}

// AddressBook defines the saved delivery address operations.
type AddressBook interface {
	List(ctx context.Context) ([]Address, error)
	Create(ctx context.Context, addr NewAddress) (*Address, error)
}

// Sentinel errors for checkout validation.
var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrAddressRequired   = errors.New("delivery address required for takeaway")
	ErrInvalidTable      = errors.New("table number must be at least 1")
	ErrUnknownType       = errors.New("unknown order type")
	ErrUnknownPayment    = errors.New("unknown payment method")
	ErrMissingOrderID    = errors.New("order id required")
	ErrInvalidNewAddress = errors.New("street, city and zip code are required")
)

// InvalidStatusError indicates a status outside the known lifecycle.
type InvalidStatusError struct {
	Status Status
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid order status %q", e.Status)
}
