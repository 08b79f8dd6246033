package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/WheelyWonka/toaste/internal/models"
	"github.com/WheelyWonka/toaste/internal/ordercode"
	"github.com/WheelyWonka/toaste/internal/pricing"
	"github.com/WheelyWonka/toaste/internal/repository"
	"github.com/shopspring/decimal"
)

type mockStore struct {
	*repository.InMemoryOrderRepository
	duplicates int // the first duplicates Create calls report a taken code
	createErr  error
	creates    int
}

func newMockStore() *mockStore {
	return &mockStore{InMemoryOrderRepository: repository.NewInMemoryOrderRepository()}
}

func (m *mockStore) Create(ctx context.Context, draft models.OrderDraft) (*models.Order, error) {
	m.creates++
	if m.creates <= m.duplicates {
		return nil, repository.ErrDuplicateCode
	}
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.InMemoryOrderRepository.Create(ctx, draft)
}

type mockQuoter struct {
	fee      decimal.Decimal
	err      error
	gotPkg   models.PackageDescriptor
	gotName  string
	requests int
}

func (m *mockQuoter) Quote(_ context.Context, recipient string, _ models.Address, pkg models.PackageDescriptor) (models.ShippingQuote, error) {
	m.requests++
	m.gotName = recipient
	m.gotPkg = pkg
	if m.err != nil {
		return models.ShippingQuote{}, m.err
	}
	return models.ShippingQuote{Fee: m.fee, CarrierReference: "SHP1"}, nil
}

type mockAllocator struct {
	codes []string
	err   error
	calls int
}

func (m *mockAllocator) Allocate(ctx context.Context) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.codes[(m.calls-1)%len(m.codes)], nil
}

type mockNotifier struct {
	mu     sync.Mutex
	err    error
	orders []string
	ctxErr error
	done   chan struct{}
}

func (m *mockNotifier) OrderCreated(ctx context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, order.Code)
	m.ctxErr = ctx.Err()
	if m.done != nil {
		m.done <- struct{}{}
	}
	return m.err
}

type fixture struct {
	service   *OrderService
	store     *mockStore
	quoter    *mockQuoter
	allocator *mockAllocator
	notifier  *mockNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	engine, err := pricing.NewEngine(pricing.DefaultRates())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	f := &fixture{
		store:     newMockStore(),
		quoter:    &mockQuoter{fee: decimal.RequireFromString("12.00")},
		allocator: &mockAllocator{codes: []string{"ABCD1234", "EFGH5678", "IJKL9012"}},
		notifier:  &mockNotifier{done: make(chan struct{}, 8)},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.service = NewOrderService(f.store, engine, f.allocator, f.quoter, f.notifier, logger)
	return f
}

func (f *fixture) waitNotified(t *testing.T) {
	t.Helper()
	select {
	case <-f.notifier.done:
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not attempted")
	}
}

func validRequest() models.CreateOrderRequest {
	return models.CreateOrderRequest{
		Customer: models.Customer{
			Name:  "Jane Doe",
			Email: "jane@example.com",
			ShippingAddress: models.Address{
				Street: "123 Rue Principale", City: "Montréal", Region: "qc", PostalCode: "H2X 1Y4", Country: "ca",
			},
		},
		LineItems: []models.LineItem{
			{SpokeCount: 32, WheelSize: "700", Quantity: 1},
			{SpokeCount: 36, WheelSize: "26", Quantity: 1},
		},
		Locale: "fr-CA",
	}
}

func TestOrderService_CreateOrder(t *testing.T) {
	f := newFixture(t)

	order, err := f.service.CreateOrder(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	f.waitNotified(t)

	if order.Code != "ABCD1234" {
		t.Errorf("Code = %s, want ABCD1234", order.Code)
	}
	if order.Status != models.StatusWaitingForPayment {
		t.Errorf("Status = %s, want waiting_for_payment", order.Status)
	}
	if !order.Pricing.Total.Equal(decimal.RequireFromString("110.325")) {
		t.Errorf("Total = %s, want 110.325", order.Pricing.Total)
	}
	if order.ShippingReference != "SHP1" || order.Locale != "fr" {
		t.Errorf("ShippingReference = %q, Locale = %q", order.ShippingReference, order.Locale)
	}
	if order.Customer.ShippingAddress.Country != "CA" {
		t.Errorf("address not normalized: %+v", order.Customer.ShippingAddress)
	}

	if f.quoter.gotPkg.Covers != 2 || f.quoter.gotName != "Jane Doe" {
		t.Errorf("quoted package %+v for %q, want 2 covers for Jane Doe", f.quoter.gotPkg, f.quoter.gotName)
	}

	stored, err := f.store.GetByCode(context.Background(), "ABCD1234")
	if err != nil {
		t.Fatalf("order not persisted: %v", err)
	}
	if !stored.Pricing.Equal(order.Pricing) {
		t.Error("persisted price snapshot differs from returned one")
	}

	if len(f.notifier.orders) != 1 || f.notifier.orders[0] != "ABCD1234" {
		t.Errorf("notified %v, want [ABCD1234]", f.notifier.orders)
	}
}

func TestOrderService_CreateOrder_ValidationWritesNothing(t *testing.T) {
	f := newFixture(t)
	req := validRequest()
	req.Customer.Email = "nope"
	req.LineItems[1].Quantity = 11

	_, err := f.service.CreateOrder(context.Background(), req)

	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("CreateOrder() error = %v, want *models.ValidationError", err)
	}
	if len(verr.Fields) != 2 {
		t.Errorf("got %d field errors, want 2: %v", len(verr.Fields), verr.Fields)
	}
	if f.quoter.requests != 0 || f.allocator.calls != 0 || f.store.creates != 0 {
		t.Errorf("side effects after validation failure: quotes=%d allocations=%d creates=%d",
			f.quoter.requests, f.allocator.calls, f.store.creates)
	}
}

func TestOrderService_CreateOrder_ShippingFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.quoter.err = errors.New("carrier down")

	_, err := f.service.CreateOrder(context.Background(), validRequest())
	if !errors.Is(err, ErrShippingQuote) {
		t.Fatalf("CreateOrder() error = %v, want ErrShippingQuote", err)
	}
	if f.allocator.calls != 0 || f.store.creates != 0 {
		t.Errorf("allocations=%d creates=%d after shipping failure", f.allocator.calls, f.store.creates)
	}
}

func TestOrderService_CreateOrder_AllocationExhausted(t *testing.T) {
	f := newFixture(t)
	f.allocator.err = ordercode.ErrAllocationExhausted

	_, err := f.service.CreateOrder(context.Background(), validRequest())
	if !errors.Is(err, ordercode.ErrAllocationExhausted) {
		t.Fatalf("CreateOrder() error = %v, want ErrAllocationExhausted", err)
	}
	if f.store.creates != 0 {
		t.Errorf("creates = %d, want 0", f.store.creates)
	}
}

func TestOrderService_CreateOrder_DuplicateCodeRetried(t *testing.T) {
	tests := []struct {
		name       string
		duplicates int
		wantCode   string
		wantErr    error
	}{
		{name: "one lost race", duplicates: 1, wantCode: "EFGH5678"},
		{name: "two lost races", duplicates: 2, wantCode: "IJKL9012"},
		{name: "every write loses", duplicates: 3, wantErr: ErrPersistence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.store.duplicates = tt.duplicates

			order, err := f.service.CreateOrder(context.Background(), validRequest())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CreateOrder() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				if f.store.creates != maxWriteAttempts {
					t.Errorf("creates = %d, want %d", f.store.creates, maxWriteAttempts)
				}
				return
			}
			f.waitNotified(t)
			if order.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", order.Code, tt.wantCode)
			}
		})
	}
}

func TestOrderService_CreateOrder_PersistenceError(t *testing.T) {
	f := newFixture(t)
	f.store.createErr = errors.New("connection reset")

	_, err := f.service.CreateOrder(context.Background(), validRequest())
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("CreateOrder() error = %v, want ErrPersistence", err)
	}
	if f.store.creates != 1 {
		t.Errorf("creates = %d, want 1 (only duplicates are retried)", f.store.creates)
	}
	if len(f.notifier.orders) != 0 {
		t.Error("notification sent for an order that was not saved")
	}
}

func TestOrderService_CreateOrder_NotificationFailureStillSucceeds(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("smtp down")

	order, err := f.service.CreateOrder(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("CreateOrder() error = %v, want success despite email failure", err)
	}
	f.waitNotified(t)

	if _, err := f.store.GetByCode(context.Background(), order.Code); err != nil {
		t.Errorf("order not retrievable: %v", err)
	}
}

func TestOrderService_CreateOrder_ClientCancelAfterWrite(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	order, err := f.service.CreateOrder(ctx, validRequest())
	cancel()
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	f.waitNotified(t)

	if f.notifier.ctxErr != nil {
		t.Errorf("notification context was cancelled with the request: %v", f.notifier.ctxErr)
	}
	if _, err := f.store.GetByCode(context.Background(), order.Code); err != nil {
		t.Errorf("order not retrievable: %v", err)
	}
}

func TestOrderService_GetOrder(t *testing.T) {
	f := newFixture(t)
	if _, err := f.service.CreateOrder(context.Background(), validRequest()); err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	f.waitNotified(t)

	tests := []struct {
		name           string
		code           string
		wantErr        error
		wantValidation bool
	}{
		{name: "exact", code: "ABCD1234"},
		{name: "lower case with spaces", code: " abcd1234 "},
		{name: "unknown", code: "ZZZZ9999", wantErr: ErrOrderNotFound},
		{name: "malformed", code: "ABC", wantValidation: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := f.service.GetOrder(context.Background(), tt.code)
			if tt.wantValidation {
				var verr *models.ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("GetOrder() error = %v, want *models.ValidationError", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("GetOrder() error = %v, want %v", err, tt.wantErr)
			}
			if err == nil && order.Code != "ABCD1234" {
				t.Errorf("Code = %s", order.Code)
			}
		})
	}
}

func TestOrderService_UpdateStatus(t *testing.T) {
	f := newFixture(t)
	if _, err := f.service.CreateOrder(context.Background(), validRequest()); err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	f.waitNotified(t)

	tests := []struct {
		name           string
		code           string
		status         string
		wantStatus     models.OrderStatus
		wantErr        error
		wantValidation bool
	}{
		{name: "to produce", code: "ABCD1234", status: "to_produce", wantStatus: models.StatusToProduce},
		{name: "refund", code: "abcd1234", status: "REFUNDED", wantStatus: models.StatusRefunded},
		{name: "unknown status", code: "ABCD1234", status: "shipped", wantValidation: true},
		{name: "malformed code", code: "??", status: "done", wantValidation: true},
		{name: "unknown order", code: "ZZZZ9999", status: "done", wantErr: ErrOrderNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := f.service.UpdateStatus(context.Background(), tt.code, tt.status)
			if tt.wantValidation {
				var verr *models.ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("UpdateStatus() error = %v, want *models.ValidationError", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("UpdateStatus() error = %v, want %v", err, tt.wantErr)
			}
			if err == nil && order.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", order.Status, tt.wantStatus)
			}
		})
	}
}

func TestOrderService_QuoteShipping(t *testing.T) {
	f := newFixture(t)
	addr := models.Address{Street: "1 Main St", City: "Portland", Region: "or", PostalCode: "97201", Country: "us"}

	quote, err := f.service.QuoteShipping(context.Background(), "Sam", addr, 4)
	if err != nil {
		t.Fatalf("QuoteShipping() error = %v", err)
	}
	if !quote.Fee.Equal(decimal.RequireFromString("12.00")) {
		t.Errorf("Fee = %s", quote.Fee)
	}
	if f.quoter.gotPkg.WeightGrams != 400 {
		t.Errorf("package weight = %d, want 400", f.quoter.gotPkg.WeightGrams)
	}

	_, err = f.service.QuoteShipping(context.Background(), "Sam", models.Address{Country: "US"}, 0)
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("QuoteShipping() error = %v, want *models.ValidationError", err)
	}
}

func TestOrderService_PreviewPrice(t *testing.T) {
	f := newFixture(t)

	breakdown, err := f.service.PreviewPrice([]models.LineItem{{SpokeCount: 32, WheelSize: "700", Quantity: 1}}, decimal.Zero)
	if err != nil {
		t.Fatalf("PreviewPrice() error = %v", err)
	}
	if !breakdown.Total.Equal(decimal.RequireFromString("51.75")) {
		t.Errorf("Total = %s, want 51.75", breakdown.Total)
	}
	if f.store.creates != 0 {
		t.Error("PreviewPrice() must not persist")
	}
}
