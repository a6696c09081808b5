package database

import (
	"fmt"
	"net/url"

	coreconfig "github.com/m3rciful/workbot/core/config"
)

const (
	// DriverPostgres selects PostgreSQL through lib/pq.
	DriverPostgres = coreconfig.StoragePostgres
	// DriverSQLite selects the embedded modernc SQLite driver.
	DriverSQLite = coreconfig.StorageSQLite
)

// Config holds database connection settings.
type Config struct {
	Driver         string
	Path           string
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxConnections int
}

// FromStorage maps the storage section of the bot configuration.
func FromStorage(s coreconfig.StorageConfig) Config {
	return Config{
		Driver:         s.Driver,
		Path:           s.Path,
		Host:           s.Postgres.Host,
		Port:           s.Postgres.Port,
		User:           s.Postgres.User,
		Password:       s.Postgres.Password,
		Name:           s.Postgres.Name,
		SSLMode:        s.Postgres.SSLMode,
		MaxConnections: s.Postgres.MaxConnections,
	}
}

func (c Config) postgresDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

func (c Config) postgresURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

func (c Config) sqliteDSN() string {
	return c.Path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}
