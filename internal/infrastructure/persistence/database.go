package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/paintworks/backend/internal/infrastructure/config"
	"github.com/paintworks/backend/internal/infrastructure/logger"
	"github.com/paintworks/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Database is the GORM connection of the planning store together with the
// driver it was opened with. Locking queries depend on the driver.
type Database struct {
	DB     *gorm.DB
	driver string
}

// Options tune NewDatabase beyond the database section of the config
type Options struct {
	Logger   *zap.Logger
	LogLevel string
	Tracing  telemetry.DBTracingConfig
}

func dialectorFor(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return sqlite.Open(cfg.SQLitePath), nil
	case config.DriverPostgres, "":
		return postgres.Open(cfg.DSN()), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// NewDatabase opens the configured driver, sizes the pool, pings and
// registers query tracing
func NewDatabase(cfg *config.DatabaseConfig, opts Options) (*Database, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}
	isSQLite := cfg.Driver == config.DriverSQLite

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.NewGormLogger(opts.Logger, logger.GormLevel(opts.LogLevel), cfg.SlowThreshold),
		SkipDefaultTransaction: true,
		PrepareStmt:            !isSQLite,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dbSystem(cfg.Driver), err)
	}
	db := &Database{DB: gdb, driver: cfg.Driver}

	pool, err := db.sqlDB()
	if err != nil {
		return nil, err
	}
	if isSQLite {
		// a second connection would open a different :memory: database
		pool.SetMaxOpenConns(1)
	} else {
		pool.SetMaxOpenConns(cfg.MaxOpenConns)
		pool.SetMaxIdleConns(cfg.MaxIdleConns)
		pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if err := pool.Ping(); err != nil {
		return nil, fmt.Errorf("ping %s database: %w", dbSystem(cfg.Driver), err)
	}

	tracing := opts.Tracing
	if tracing.DBSystem == "" {
		tracing.DBSystem = dbSystem(cfg.Driver)
	}
	if err := telemetry.RegisterDBTracing(gdb, tracing, opts.Logger); err != nil {
		return nil, fmt.Errorf("register database tracing: %w", err)
	}
	return db, nil
}

// NewDatabaseFromGorm wraps an already opened connection
func NewDatabaseFromGorm(db *gorm.DB, driver string) *Database {
	return &Database{DB: db, driver: driver}
}

func dbSystem(driver string) string {
	if driver == config.DriverSQLite {
		return "sqlite"
	}
	return "postgresql"
}

func (d *Database) sqlDB() (*sql.DB, error) {
	pool, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("underlying sql.DB: %w", err)
	}
	return pool, nil
}

func (d *Database) Driver() string {
	return d.driver
}

func (d *Database) Close() error {
	pool, err := d.sqlDB()
	if err != nil {
		return err
	}
	return pool.Close()
}

// Ping backs the database entry of the health check
func (d *Database) Ping(ctx context.Context) error {
	pool, err := d.sqlDB()
	if err != nil {
		return err
	}
	return pool.PingContext(ctx)
}
