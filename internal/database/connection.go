package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

const (
	defaultConnectAttempts = 5
	defaultRetryDelay      = time.Second
	pingTimeout            = 5 * time.Second
)

// InitDatabase opens the configured database, retrying PostgreSQL with exponential backoff.
// SQLite is opened once since its failures are not transient.
func InitDatabase(cfg DatabaseConfig) (*gorm.DB, error) {
	driver := strings.ToLower(cfg.Driver)

	var dialector gorm.Dialector
	attempts := 1
	switch driver {
	case "postgres", "postgresql":
		dialector = postgres.Open(cfg.DSN())
		attempts = cfg.ConnectAttempts
		if attempts <= 0 {
			attempts = defaultConnectAttempts
		}
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: postgres, sqlite)", cfg.Driver)
	}

	entry := log.WithFields(logrus.Fields{
		"db_driver":       driver,
		"db_host":         cfg.Host,
		"db_name":         cfg.Name,
		"db_path":         cfg.Path,
		"db_lock_timeout": cfg.LockTimeout.String(),
	})
	entry.Info("Initializing database connection")

	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		var db *gorm.DB
		if db, err = open(dialector); err == nil {
			configureConnectionPool(db, driver)
			entry.WithField("attempt", attempt).Info("Database initialized successfully")
			return db, nil
		}

		entry.WithError(err).WithFields(logrus.Fields{
			"attempt":      attempt,
			"max_attempts": attempts,
		}).Warn("Database connection attempt failed")
		if attempt < attempts {
			time.Sleep(delay)
			delay *= 2
		}
	}
	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", attempts, err)
}

// open connects and pings, closing the pool again when the ping fails
func open(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, gormConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// gormConfig enables driver error translation so unique and foreign key
// violations surface as gorm.ErrDuplicatedKey and gorm.ErrForeignKeyViolated
func gormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}
}

type poolSettings struct {
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
}

// poolFor returns the pool limits of a driver. SQLite allows a single writer,
// and an in-memory database lives only as long as its connection.
func poolFor(driver string) poolSettings {
	if driver == "sqlite" || driver == "" {
		return poolSettings{maxOpen: 1, maxIdle: 1}
	}
	return poolSettings{maxOpen: 25, maxIdle: 5, maxLifetime: 5 * time.Minute}
}

func configureConnectionPool(db *gorm.DB, driver string) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	applyPool(sqlDB, poolFor(driver))
}

func applyPool(sqlDB *sql.DB, pool poolSettings) {
	sqlDB.SetMaxOpenConns(pool.maxOpen)
	sqlDB.SetMaxIdleConns(pool.maxIdle)
	sqlDB.SetConnMaxLifetime(pool.maxLifetime)

	log.WithFields(logrus.Fields{
		"max_open_conns":    pool.maxOpen,
		"max_idle_conns":    pool.maxIdle,
		"conn_max_lifetime": pool.maxLifetime.String(),
	}).Debug("Connection pool configured")
}
