package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/restoran/internal/domain/cart"
	"github.com/xenking/restoran/internal/domain/menu"
	"github.com/xenking/restoran/internal/notify"
)

// Cart is the part of the cart manager checkout needs.
type Cart interface {
	Items() []cart.LineItem
	Deduct(ctx context.Context, lines []cart.LineItem)
}

// Request holds the checkout input.
type Request struct {
	Type          Type
	PaymentMethod PaymentMethod

	// TableNumber is used for dine-in; zero means DefaultTable.
	TableNumber int

	// AddressID selects a saved address for takeaway. When empty and
	// NewAddress is nil the first saved address is used.
	AddressID  string
	NewAddress *NewAddress
}

// Result holds the output of a successful checkout.
type Result struct {
	Order *Order
	Draft Draft
}

// Option configures a Service.
type Option func(*Service)

// WithTracerProvider sets the provider for checkout spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer("restoran/order") }
}

// Service assembles and submits orders from the cart.
type Service struct {
	catalog   menu.Catalog
	orders    Repository
	addresses AddressBook
	cart      Cart
	notifier  notify.Notifier
	lg        *zap.Logger
	tracer    trace.Tracer
	validate  *validator.Validate
}

// NewService creates an order Service with the required dependencies.
func NewService(
	catalog menu.Catalog,
	orders Repository,
	addresses AddressBook,
	c Cart,
	notifier notify.Notifier,
	lg *zap.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		catalog:   catalog,
		orders:    orders,
		addresses: addresses,
		cart:      c,
		notifier:  notifier,
		lg:        lg,
		tracer:    otel.GetTracerProvider().Tracer("restoran/order"),
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// fetchCatalog always hits the catalog; prices are never taken from a
// previous fetch.
func (s *Service) fetchCatalog(ctx context.Context) (menu.Index, error) {
	ctx, span := s.tracer.Start(ctx, "order.fetchCatalog")
	defer span.End()

	foods, err := s.catalog.ListFoods(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list foods")
		return nil, errors.Wrap(err, "list foods")
	}
	span.SetAttributes(attribute.Int("menu.foods", len(foods)))

	return menu.NewIndex(foods), nil
}

func (s *Service) logFallbacks(d Draft) {
	if len(d.Fallbacks) == 0 {
		return
	}
	s.lg.Warn("Priced items from cart, not found in catalog",
		zap.Strings("food_ids", d.Fallbacks),
		zap.String("order_type", string(d.Type)),
	)
}

// Quote computes the draft for the current cart without submitting it.
func (s *Service) Quote(ctx context.Context, t Type) (Draft, error) {
	if !t.Valid() {
		return Draft{}, ErrUnknownType
	}
	items := s.cart.Items()
	if len(items) == 0 {
		return Draft{}, ErrEmptyCart
	}

	catalog, err := s.fetchCatalog(ctx)
	if err != nil {
		return Draft{}, err
	}

	d := Assemble(items, catalog, t)
	s.logFallbacks(d)
	return d, nil
}

// validateRequest checks everything that can be checked without a network
// call and fills defaults.
func (s *Service) validateRequest(req *Request) error {
	if !req.Type.Valid() {
		return ErrUnknownType
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = Cash
	}
	if !req.PaymentMethod.Valid() {
		return ErrUnknownPayment
	}

	switch req.Type {
	case DineIn:
		if req.TableNumber < 0 {
			return ErrInvalidTable
		}
		if req.TableNumber == 0 {
			req.TableNumber = DefaultTable
		}
		req.AddressID = ""
		req.NewAddress = nil
	case Takeaway:
		req.TableNumber = 0
		if req.NewAddress != nil {
			if err := s.validate.Struct(req.NewAddress); err != nil {
				return errors.Wrap(ErrInvalidNewAddress, err.Error())
			}
		}
	}
	return nil
}

// reject notifies the user about a checkout input problem and returns err.
func (s *Service) reject(err error) error {
	msg := "Failed to place order"
	switch {
	case errors.Is(err, ErrEmptyCart):
		msg = "Your cart is empty"
	case errors.Is(err, ErrAddressRequired):
		msg = "Please add a delivery address"
	case errors.Is(err, ErrInvalidNewAddress):
		msg = "Please fill in street, city and zip code"
	case errors.Is(err, ErrInvalidTable):
		msg = "Please enter a valid table number"
	case errors.Is(err, ErrUnknownType):
		msg = "Please choose dine-in or takeaway"
	case errors.Is(err, ErrUnknownPayment):
		msg = "Please choose cash or card"
	}
	s.notifier.Notify(notify.Error, msg)
	return err
}

// Checkout reconciles the cart with the live catalog and submits the order.
// Only after the server accepts the order are the submitted lines removed
// from the cart; lines added meanwhile stay.
func (s *Service) Checkout(ctx context.Context, req Request) (*Result, error) {
	items := s.cart.Items()
	if len(items) == 0 {
		return nil, s.reject(ErrEmptyCart)
	}
	if err := s.validateRequest(&req); err != nil {
		return nil, s.reject(err)
	}

	needAddresses := req.Type == Takeaway && req.AddressID == "" && req.NewAddress == nil

	var (
		catalog menu.Index
		saved   []Address
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		catalog, err = s.fetchCatalog(gctx)
		return err
	})
	if needAddresses {
		g.Go(func() error {
			var err error
			saved, err = s.addresses.List(gctx)
			if err != nil {
				return errors.Wrap(err, "list addresses")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.notifier.Notify(notify.Error, "Failed to place order")
		return nil, err
	}

	if needAddresses {
		if len(saved) == 0 {
			return nil, s.reject(ErrAddressRequired)
		}
		req.AddressID = saved[0].ID
	}

	d := Assemble(items, catalog, req.Type)
	s.logFallbacks(d)
	d.PaymentMethod = req.PaymentMethod
	d.TableNumber = req.TableNumber
	d.Status = StatusPending

	if req.NewAddress != nil {
		addr, err := s.addresses.Create(ctx, *req.NewAddress)
		if err != nil {
			s.notifier.Notify(notify.Error, "Failed to save delivery address")
			return nil, errors.Wrap(err, "create address")
		}
		req.AddressID = addr.ID
	}
	d.AddressID = req.AddressID

	o, err := s.orders.Create(ctx, d)
	if err != nil {
		s.lg.Error("Order submission failed", zap.Error(err))
		s.notifier.Notify(notify.Error, "Failed to place order")
		return nil, errors.Wrap(err, "create order")
	}

	s.cart.Deduct(ctx, items)
	s.lg.Info("Order placed",
		zap.String("order_id", o.ID),
		zap.String("order_type", string(d.Type)),
		zap.String("total", d.Total.StringFixed(2)),
	)
	s.notifier.Notify(notify.Success, "Order placed successfully")

	return &Result{Order: o, Draft: d}, nil
}

// History lists the orders visible to the current user.
func (s *Service) History(ctx context.Context) ([]Order, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// SetStatus moves an order to a new status.
func (s *Service) SetStatus(ctx context.Context, id string, status Status) error {
	if id == "" {
		return ErrMissingOrderID
	}
	if !status.Valid() {
		return &InvalidStatusError{Status: status}
	}

	if err := s.orders.UpdateStatus(ctx, id, status); err != nil {
		s.notifier.Notify(notify.Error, "Failed to update order status")
		return errors.Wrapf(err, "update order %s", id)
	}
	s.notifier.Notify(notify.Success, "Order status updated")
	return nil
}
