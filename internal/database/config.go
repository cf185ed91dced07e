package database

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	// Driver specifies the database driver (postgres, sqlite)
	Driver string

	// URL, when set, is used as the PostgreSQL DSN instead of the discrete fields
	URL string

	// PostgreSQL-specific configuration
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string

	// SQLite-specific configuration
	Path string

	// LockTimeout bounds how long a statement waits for a row or table lock
	LockTimeout time.Duration

	// ConnectAttempts and RetryDelay control PostgreSQL startup retries; the delay doubles per attempt
	ConnectAttempts int
	RetryDelay      time.Duration
}

// String returns a string representation with sensitive data masked
func (c *DatabaseConfig) String() string {
	return fmt.Sprintf("DatabaseConfig{Driver: %s, Host: %s, Port: %s, User: %s, Password: [REDACTED], Name: %s, SSLMode: %s, Path: %s, LockTimeout: %s}",
		c.Driver, c.Host, c.Port, c.User, c.Name, c.SSLMode, c.Path, c.LockTimeout)
}

// DSN builds a Data Source Name string based on the driver
func (c *DatabaseConfig) DSN() string {
	lockMillis := c.LockTimeout.Milliseconds()
	switch strings.ToLower(c.Driver) {
	case "postgres", "postgresql":
		if c.URL != "" {
			return withLockTimeout(c.URL, lockMillis)
		}
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
		if lockMillis > 0 {
			// unknown keys are forwarded by pgx as session runtime parameters
			dsn += fmt.Sprintf(" lock_timeout=%d", lockMillis)
		}
		return dsn
	case "sqlite", "":
		params := []string{"_foreign_keys=on"}
		if lockMillis > 0 {
			params = append(params, fmt.Sprintf("_busy_timeout=%d", lockMillis))
		}
		sep := "?"
		if strings.Contains(c.Path, "?") {
			sep = "&"
		}
		return c.Path + sep + strings.Join(params, "&")
	default:
		return ""
	}
}

// withLockTimeout adds lock_timeout to a postgres URL unless it already carries one
func withLockTimeout(dbURL string, lockMillis int64) string {
	if lockMillis <= 0 {
		return dbURL
	}
	parsed, err := url.Parse(dbURL)
	if err != nil {
		return dbURL
	}
	query := parsed.Query()
	if query.Has("lock_timeout") {
		return dbURL
	}
	query.Set("lock_timeout", strconv.FormatInt(lockMillis, 10))
	parsed.RawQuery = query.Encode()
	return parsed.String()
}
