package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/WheelyWonka/toaste/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type orderRecord struct {
	ID                 string          `gorm:"primaryKey;size:36"`
	Code               string          `gorm:"size:8;uniqueIndex"`
	CustomerName       string          `gorm:"size:255"`
	CustomerEmail      string          `gorm:"size:255"`
	Street             string          `gorm:"size:255"`
	City               string          `gorm:"size:128"`
	Region             string          `gorm:"size:64"`
	PostalCode         string          `gorm:"size:32"`
	Country            string          `gorm:"size:2"`
	BaseUnitPrice      decimal.Decimal `gorm:"type:decimal(20,6)"`
	PairDiscountRate   decimal.Decimal `gorm:"type:decimal(20,6)"`
	TaxRate            decimal.Decimal `gorm:"type:decimal(20,6)"`
	TotalQuantity      int
	PairsCount         int
	DiscountedUnits    int
	FullPriceUnits     int
	DiscountAmount     decimal.Decimal `gorm:"type:decimal(20,6)"`
	DiscountedSubtotal decimal.Decimal `gorm:"type:decimal(20,6)"`
	TaxAmount          decimal.Decimal `gorm:"type:decimal(20,6)"`
	ShippingFee        decimal.Decimal `gorm:"type:decimal(20,6)"`
	Total              decimal.Decimal `gorm:"type:decimal(20,6)"`
	ShippingReference  string          `gorm:"size:128"`
	Status             string          `gorm:"size:32;index:idx_orders_status_created,priority:1"`
	Locale             string          `gorm:"size:8"`
	Notes              string          `gorm:"type:text"`
	CreatedAt          time.Time       `gorm:"index:idx_orders_status_created,priority:2"`
	UpdatedAt          time.Time
	Items              []orderItemRecord `gorm:"foreignKey:OrderID"`
}

func (orderRecord) TableName() string { return "orders" }

type orderItemRecord struct {
	OrderID    string `gorm:"primaryKey;size:36"`
	Position   int    `gorm:"primaryKey;autoIncrement:false"`
	SpokeCount int
	WheelSize  string `gorm:"size:8"`
	Quantity   int
}

func (orderItemRecord) TableName() string { return "order_items" }

// GormOrderRepository implements OrderRepository on MySQL through gorm. The
// gorm handle must be opened with TranslateError so duplicate keys surface as
// gorm.ErrDuplicatedKey.
type GormOrderRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormOrderRepository wraps an open gorm handle
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// EnsureSchema migrates the order tables
func (r *GormOrderRepository) EnsureSchema(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&orderRecord{}, &orderItemRecord{}); err != nil {
		return fmt.Errorf("migrating order schema: %w", err)
	}
	return nil
}

func (r *GormOrderRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&orderRecord{}).Where("code = ?", code).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking order code: %w", err)
	}
	return count > 0, nil
}

func (r *GormOrderRepository) Create(ctx context.Context, draft models.OrderDraft) (*models.Order, error) {
	order := models.NewOrder(uuid.NewString(), draft, r.now())
	rec := toRecord(order)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&rec).Error; err != nil {
			return err
		}
		if len(rec.Items) > 0 {
			if err := tx.Create(&rec.Items).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrDuplicateCode
	}
	if err != nil {
		return nil, fmt.Errorf("inserting order: %w", err)
	}

	return order, nil
}

func (r *GormOrderRepository) GetByCode(ctx context.Context, code string) (*models.Order, error) {
	var rec orderRecord
	err := r.db.WithContext(ctx).
		Preload("Items", orderedItems).
		Where("code = ?", code).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading order: %w", err)
	}
	return rec.toModel(), nil
}

func (r *GormOrderRepository) UpdateStatus(ctx context.Context, code string, status models.OrderStatus) (*models.Order, error) {
	res := r.db.WithContext(ctx).
		Model(&orderRecord{}).
		Where("code = ?", code).
		Updates(map[string]any{"status": string(status), "updated_at": r.now()})
	if res.Error != nil {
		return nil, fmt.Errorf("updating order status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrOrderNotFound
	}
	return r.GetByCode(ctx, code)
}

// List returns orders newest first
func (r *GormOrderRepository) List(ctx context.Context, filter ListFilter) ([]models.Order, error) {
	q := r.db.WithContext(ctx).Preload("Items", orderedItems).Order("created_at DESC, code")
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var recs []orderRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	orders := make([]models.Order, 0, len(recs))
	for i := range recs {
		orders = append(orders, *recs[i].toModel())
	}
	return orders, nil
}

func (r *GormOrderRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("position")
}

func toRecord(o *models.Order) orderRecord {
	addr := o.Customer.ShippingAddress
	p := o.Pricing

	items := make([]orderItemRecord, 0, len(o.LineItems))
	for i, item := range o.LineItems {
		items = append(items, orderItemRecord{
			OrderID:    o.ID,
			Position:   i,
			SpokeCount: int(item.SpokeCount),
			WheelSize:  string(item.WheelSize),
			Quantity:   item.Quantity,
		})
	}

	return orderRecord{
		ID:                 o.ID,
		Code:               o.Code,
		CustomerName:       o.Customer.Name,
		CustomerEmail:      o.Customer.Email,
		Street:             addr.Street,
		City:               addr.City,
		Region:             addr.Region,
		PostalCode:         addr.PostalCode,
		Country:            addr.Country,
		BaseUnitPrice:      p.BaseUnitPrice,
		PairDiscountRate:   p.PairDiscountRate,
		TaxRate:            p.TaxRate,
		TotalQuantity:      p.TotalQuantity,
		PairsCount:         p.PairsCount,
		DiscountedUnits:    p.DiscountedUnits,
		FullPriceUnits:     p.FullPriceUnits,
		DiscountAmount:     p.DiscountAmount,
		DiscountedSubtotal: p.DiscountedSubtotal,
		TaxAmount:          p.TaxAmount,
		ShippingFee:        p.ShippingFee,
		Total:              p.Total,
		ShippingReference:  o.ShippingReference,
		Status:             string(o.Status),
		Locale:             o.Locale,
		Notes:              o.Notes,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
		Items:              items,
	}
}

func (rec *orderRecord) toModel() *models.Order {
	items := make([]models.LineItem, 0, len(rec.Items))
	for _, it := range rec.Items {
		items = append(items, models.LineItem{
			SpokeCount: models.SpokeCount(it.SpokeCount),
			WheelSize:  models.WheelSize(it.WheelSize),
			Quantity:   it.Quantity,
		})
	}

	return &models.Order{
		ID:   rec.ID,
		Code: rec.Code,
		Customer: models.Customer{
			Name:  rec.CustomerName,
			Email: rec.CustomerEmail,
			ShippingAddress: models.Address{
				Street:     rec.Street,
				City:       rec.City,
				Region:     rec.Region,
				PostalCode: rec.PostalCode,
				Country:    rec.Country,
			},
		},
		LineItems: items,
		Pricing: models.PriceBreakdown{
			BaseUnitPrice:      rec.BaseUnitPrice,
			PairDiscountRate:   rec.PairDiscountRate,
			TaxRate:            rec.TaxRate,
			TotalQuantity:      rec.TotalQuantity,
			PairsCount:         rec.PairsCount,
			DiscountedUnits:    rec.DiscountedUnits,
			FullPriceUnits:     rec.FullPriceUnits,
			DiscountAmount:     rec.DiscountAmount,
			DiscountedSubtotal: rec.DiscountedSubtotal,
			TaxAmount:          rec.TaxAmount,
			ShippingFee:        rec.ShippingFee,
			Total:              rec.Total,
		},
		ShippingReference: rec.ShippingReference,
		Status:            models.OrderStatus(rec.Status),
		Locale:            rec.Locale,
		Notes:             rec.Notes,
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
	}
}
