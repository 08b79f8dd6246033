package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported store drivers
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Drivers lists the accepted STORE_DRIVER values
var Drivers = []string{DriverMemory, DriverPostgres, DriverMySQL}

// Open connects the order store selected by driver, creates its schema and
// returns it with a function releasing its connections.
func Open(ctx context.Context, driver, dsn string) (OrderRepository, func() error, error) {
	switch driver {
	case DriverMemory, "":
		return NewInMemoryOrderRepository(), func() error { return nil }, nil

	case DriverPostgres:
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("opening postgres: %w", err)
		}
		tunePool(db)

		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}

		repo := NewPostgresOrderRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return repo, db.Close, nil

	case DriverMySQL:
		dsnConfig, err := MySQLConfig(dsn)
		if err != nil {
			return nil, nil, err
		}
		gdb, err := OpenGorm(mysql.New(mysql.Config{
			DSN:       dsnConfig.FormatDSN(),
			DSNConfig: dsnConfig,
		}))
		if err != nil {
			return nil, nil, fmt.Errorf("opening mysql: %w", err)
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, nil, err
		}
		tunePool(sqlDB)

		repo := NewGormOrderRepository(gdb)
		if err := repo.EnsureSchema(ctx); err != nil {
			sqlDB.Close()
			return nil, nil, err
		}
		return repo, sqlDB.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

// MySQLConfig parses a MySQL DSN and forces the settings the gorm records
// rely on: DATETIME columns scanned into time.Time, in UTC.
func MySQLConfig(dsn string) (*mysqldriver.Config, error) {
	cfg, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg, nil
}

// OpenGorm opens a gorm handle configured the way GormOrderRepository
// expects: translated driver errors and explicit transactions only.
func OpenGorm(dialector gorm.Dialector) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Warn),
		TranslateError:         true,
		SkipDefaultTransaction: true,
	})
}

func tunePool(db *sql.DB) {
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
}
