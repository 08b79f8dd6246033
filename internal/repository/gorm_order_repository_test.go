package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/WheelyWonka/toaste/internal/models"
	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
)

var gormOrderColumns = []string{
	"id", "code", "customer_name", "customer_email", "street", "city", "region", "postal_code", "country",
	"base_unit_price", "pair_discount_rate", "tax_rate", "total_quantity", "pairs_count", "discounted_units", "full_price_units",
	"discount_amount", "discounted_subtotal", "tax_amount", "shipping_fee", "total",
	"shipping_reference", "status", "locale", "notes", "created_at", "updated_at",
}

var gormItemColumns = []string{"order_id", "position", "spoke_count", "wheel_size", "quantity"}

func newGormMock(t *testing.T) (*GormOrderRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	gdb, err := OpenGorm(mysql.New(mysql.Config{Conn: db, SkipInitializeWithVersion: true}))
	if err != nil {
		t.Fatalf("failed to open gorm: %v", err)
	}
	return NewGormOrderRepository(gdb), mock
}

func TestGormOrderRepository_ExistsByCode(t *testing.T) {
	repo, mock := newGormMock(t)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `orders` WHERE code = \\?").
		WithArgs("ABCD1234").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(1))

	exists, err := repo.ExistsByCode(context.Background(), "ABCD1234")
	if err != nil || !exists {
		t.Errorf("ExistsByCode() = %v, %v, want true", exists, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGormOrderRepository_Create(t *testing.T) {
	repo, mock := newGormMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `orders`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `order_items`").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	order, err := repo.Create(context.Background(), testDraft("ABCD1234"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if order.ID == "" || order.Code != "ABCD1234" || len(order.LineItems) != 2 {
		t.Errorf("Create() = %+v", order)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGormOrderRepository_Create_DuplicateCode(t *testing.T) {
	repo, mock := newGormMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `orders`").
		WillReturnError(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry 'ABCD1234' for key 'orders.idx_orders_code'"})
	mock.ExpectRollback()

	if _, err := repo.Create(context.Background(), testDraft("ABCD1234")); !errors.Is(err, ErrDuplicateCode) {
		t.Fatalf("Create() error = %v, want ErrDuplicateCode", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGormOrderRepository_GetByCode(t *testing.T) {
	repo, mock := newGormMock(t)
	created := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT \\* FROM `orders` WHERE code = \\?").
		WillReturnRows(sqlmock.NewRows(gormOrderColumns).AddRow(
			"id-1", "ABCD1234", "Jane Doe", "jane@example.com", "123 Rue Principale", "Montréal", "QC", "H2X 1Y4", "CA",
			"45.000000", "0.050000", "0.150000", 2, 1, 2, 0,
			"4.500000", "85.500000", "12.825000", "12.000000", "110.325000",
			"flat-rate", "waiting_for_payment", "en", "", created, created,
		))
	mock.ExpectQuery("SELECT \\* FROM `order_items` WHERE `order_items`.`order_id` = \\?").
		WillReturnRows(sqlmock.NewRows(gormItemColumns).
			AddRow("id-1", 0, 32, "700", 1).
			AddRow("id-1", 1, 36, "26", 1))

	order, err := repo.GetByCode(context.Background(), "ABCD1234")
	if err != nil {
		t.Fatalf("GetByCode() error = %v", err)
	}
	if !order.Pricing.Total.Equal(testDraft("").Pricing.Total) {
		t.Errorf("Total = %s, want 110.325", order.Pricing.Total)
	}
	if len(order.LineItems) != 2 || order.LineItems[0].WheelSize != "700" {
		t.Errorf("LineItems = %+v", order.LineItems)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGormOrderRepository_GetByCode_NotFound(t *testing.T) {
	repo, mock := newGormMock(t)

	mock.ExpectQuery("SELECT \\* FROM `orders`").WillReturnRows(sqlmock.NewRows(gormOrderColumns))

	if _, err := repo.GetByCode(context.Background(), "ZZZZ0000"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("GetByCode() error = %v, want ErrOrderNotFound", err)
	}
}

func TestGormOrderRepository_UpdateStatus_NotFound(t *testing.T) {
	repo, mock := newGormMock(t)

	mock.ExpectExec("UPDATE `orders` SET").WillReturnResult(sqlmock.NewResult(0, 0))

	if _, err := repo.UpdateStatus(context.Background(), "ZZZZ0000", models.StatusDone); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("UpdateStatus() error = %v, want ErrOrderNotFound", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
