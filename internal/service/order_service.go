package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/WheelyWonka/toaste/internal/models"
	"github.com/WheelyWonka/toaste/internal/ordercode"
	"github.com/WheelyWonka/toaste/internal/repository"
	"github.com/WheelyWonka/toaste/internal/shipping"
	"github.com/shopspring/decimal"
)

// maxWriteAttempts bounds re-allocation when a write loses a code race
const maxWriteAttempts = 3

const defaultNotifyTimeout = 30 * time.Second

var (
	ErrShippingQuote = errors.New("shipping quote unavailable")
	ErrPersistence   = errors.New("order could not be saved")
	ErrOrderNotFound = repository.ErrOrderNotFound
)

// OrderStore is the persistence the service needs
type OrderStore interface {
	Create(ctx context.Context, draft models.OrderDraft) (*models.Order, error)
	GetByCode(ctx context.Context, code string) (*models.Order, error)
	UpdateStatus(ctx context.Context, code string, status models.OrderStatus) (*models.Order, error)
}

// Pricer computes price breakdowns
type Pricer interface {
	ComputeBreakdown(items []models.LineItem, shippingFee decimal.Decimal) (models.PriceBreakdown, error)
	UnitPrice() decimal.Decimal
}

// CodeAllocator hands out unused order codes
type CodeAllocator interface {
	Allocate(ctx context.Context) (string, error)
}

// Notifier sends the emails that follow a new order
type Notifier interface {
	OrderCreated(ctx context.Context, order *models.Order) error
}

// OrderService runs checkout and order lookups
type OrderService struct {
	store         OrderStore
	pricer        Pricer
	allocator     CodeAllocator
	quoter        shipping.Quoter
	notifier      Notifier
	logger        *slog.Logger
	notifyTimeout time.Duration
}

// NewOrderService creates a new order service
func NewOrderService(store OrderStore, pricer Pricer, allocator CodeAllocator, quoter shipping.Quoter, notifier Notifier, logger *slog.Logger) *OrderService {
	return &OrderService{
		store:         store,
		pricer:        pricer,
		allocator:     allocator,
		quoter:        quoter,
		notifier:      notifier,
		logger:        logger,
		notifyTimeout: defaultNotifyTimeout,
	}
}

// SetNotifyTimeout bounds how long post-checkout emails may take
func (s *OrderService) SetNotifyTimeout(d time.Duration) {
	if d > 0 {
		s.notifyTimeout = d
	}
}

// CreateOrder validates the request, prices it with a live shipping quote
// and persists it under a fresh code. Nothing is written unless every step
// before the write succeeds. Email failures are logged, never returned.
func (s *OrderService) CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	totalQuantity := models.TotalQuantity(req.LineItems)
	quote, err := s.quoteFor(ctx, req.Customer.Name, req.Customer.ShippingAddress, totalQuantity)
	if err != nil {
		return nil, err
	}

	breakdown, err := s.pricer.ComputeBreakdown(req.LineItems, quote.Fee)
	if err != nil {
		return nil, err
	}

	// the write must not be abandoned halfway because the client went away
	writeCtx := context.WithoutCancel(ctx)

	var order *models.Order
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		code, err := s.allocator.Allocate(ctx)
		if err != nil {
			return nil, fmt.Errorf("allocating order code: %w", err)
		}

		order, err = s.store.Create(writeCtx, models.OrderDraft{
			Code:              code,
			Customer:          req.Customer,
			LineItems:         req.LineItems,
			Pricing:           breakdown,
			ShippingReference: quote.CarrierReference,
			Status:            models.StatusWaitingForPayment,
			Locale:            req.Locale,
			Notes:             req.Notes,
		})
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrDuplicateCode) && attempt < maxWriteAttempts {
			s.logger.WarnContext(ctx, "order code taken at write time, reallocating", "code", code, "attempt", attempt)
			continue
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	s.logger.InfoContext(ctx, "order created",
		"order_code", order.Code,
		"total_quantity", breakdown.TotalQuantity,
		"total", breakdown.Total.String(),
	)

	s.notifyAsync(ctx, order)

	return order, nil
}

func (s *OrderService) notifyAsync(ctx context.Context, order *models.Order) {
	if s.notifier == nil {
		return
	}

	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	go func() {
		defer cancel()
		if err := s.notifier.OrderCreated(notifyCtx, order); err != nil {
			s.logger.ErrorContext(notifyCtx, "order notification failed", "order_code", order.Code, "error", err)
		}
	}()
}

// GetOrder looks an order up by its customer-facing code
func (s *OrderService) GetOrder(ctx context.Context, code string) (*models.Order, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}
	return s.store.GetByCode(ctx, code)
}

// UpdateStatus sets an order's status. Any status may replace any other.
func (s *OrderService) UpdateStatus(ctx context.Context, code string, status string) (*models.Order, error) {
	var fieldErrs []models.FieldError

	code, err := normalizeCode(code)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			fieldErrs = append(fieldErrs, verr.Fields...)
		}
	}
	parsed, err := models.ParseOrderStatus(status)
	if err != nil {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "status", Message: err.Error()})
	}
	if verr := models.NewValidationError(fieldErrs); verr != nil {
		return nil, verr
	}

	return s.store.UpdateStatus(ctx, code, parsed)
}

// QuoteShipping prices delivery of quantity covers to an address
func (s *OrderService) QuoteShipping(ctx context.Context, recipient string, to models.Address, quantity int) (models.ShippingQuote, error) {
	to.Normalize()

	fieldErrs := to.Validate("shippingAddress")
	if quantity < models.MinQuantity {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "quantity", Message: "must be at least 1"})
	}
	if verr := models.NewValidationError(fieldErrs); verr != nil {
		return models.ShippingQuote{}, verr
	}

	return s.quoteFor(ctx, recipient, to, quantity)
}

// PreviewPrice prices a cart without persisting anything
func (s *OrderService) PreviewPrice(items []models.LineItem, shippingFee decimal.Decimal) (models.PriceBreakdown, error) {
	return s.pricer.ComputeBreakdown(items, shippingFee)
}

func (s *OrderService) quoteFor(ctx context.Context, recipient string, to models.Address, covers int) (models.ShippingQuote, error) {
	pkg := shipping.PackageFor(covers, s.pricer.UnitPrice())

	quote, err := s.quoter.Quote(ctx, recipient, to, pkg)
	if err != nil {
		s.logger.WarnContext(ctx, "shipping quote failed", "country", to.Country, "covers", covers, "error", err)
		return models.ShippingQuote{}, fmt.Errorf("%w: %w", ErrShippingQuote, err)
	}
	if quote.Fee.IsNegative() {
		return models.ShippingQuote{}, fmt.Errorf("%w: negative fee %s", ErrShippingQuote, quote.Fee)
	}
	return quote, nil
}

func normalizeCode(code string) (string, error) {
	code = ordercode.Normalize(code)
	if !ordercode.Valid(code) {
		return "", models.NewValidationError([]models.FieldError{{
			Field:   "orderCode",
			Message: fmt.Sprintf("must be %d characters from A-Z and 0-9", ordercode.Length),
		}})
	}
	return code, nil
}
