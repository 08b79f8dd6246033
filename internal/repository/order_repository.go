package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/WheelyWonka/toaste/internal/models"
	"github.com/google/uuid"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrDuplicateCode = errors.New("order code already exists")
)

// ListFilter narrows List results. Zero values mean no restriction.
type ListFilter struct {
	Status models.OrderStatus
	Limit  int
}

// OrderRepository defines the interface for order data access. Create must
// be a single atomic write and must reject an existing code with
// ErrDuplicateCode.
type OrderRepository interface {
	ExistsByCode(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, draft models.OrderDraft) (*models.Order, error)
	GetByCode(ctx context.Context, code string) (*models.Order, error)
	UpdateStatus(ctx context.Context, code string, status models.OrderStatus) (*models.Order, error)
	List(ctx context.Context, filter ListFilter) ([]models.Order, error)
	Ping(ctx context.Context) error
}

// InMemoryOrderRepository implements OrderRepository with in-memory storage
type InMemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*models.Order
	now    func() time.Time
}

// NewInMemoryOrderRepository creates an empty in-memory order repository
func NewInMemoryOrderRepository() *InMemoryOrderRepository {
	return &InMemoryOrderRepository{
		orders: make(map[string]*models.Order),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *InMemoryOrderRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.orders[code]
	return exists, nil
}

func (r *InMemoryOrderRepository) Create(ctx context.Context, draft models.OrderDraft) (*models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[draft.Code]; exists {
		return nil, ErrDuplicateCode
	}

	order := models.NewOrder(uuid.NewString(), draft, r.now())
	r.orders[order.Code] = order

	return cloneOrder(order), nil
}

func (r *InMemoryOrderRepository) GetByCode(ctx context.Context, code string) (*models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	order, exists := r.orders[code]
	if !exists {
		return nil, ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

func (r *InMemoryOrderRepository) UpdateStatus(ctx context.Context, code string, status models.OrderStatus) (*models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	order, exists := r.orders[code]
	if !exists {
		return nil, ErrOrderNotFound
	}
	order.Status = status
	order.UpdatedAt = r.now()

	return cloneOrder(order), nil
}

// List returns orders newest first
func (r *InMemoryOrderRepository) List(ctx context.Context, filter ListFilter) ([]models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	orders := make([]models.Order, 0, len(r.orders))
	for _, order := range r.orders {
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		orders = append(orders, *cloneOrder(order))
	}
	r.mu.RUnlock()

	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].Code < orders[j].Code
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})

	if filter.Limit > 0 && len(orders) > filter.Limit {
		orders = orders[:filter.Limit]
	}
	return orders, nil
}

func (r *InMemoryOrderRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

func cloneOrder(o *models.Order) *models.Order {
	c := *o
	c.LineItems = append([]models.LineItem(nil), o.LineItems...)
	return &c
}
