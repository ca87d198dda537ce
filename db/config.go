package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/quailyquaily/cmdbridge/internal/pathutil"
)

type Config struct {
	Driver      string
	DSN         string
	AutoMigrate bool

	Pool   PoolConfig
	SQLite SQLiteConfig
}

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type SQLiteConfig struct {
	BusyTimeoutMs int
	WAL           bool
	ForeignKeys   bool
}

func DefaultConfig() Config {
	return Config{
		Driver:      "sqlite",
		AutoMigrate: true,
		Pool: PoolConfig{
			MaxOpenConns: 1,
			MaxIdleConns: 1,
		},
		SQLite: SQLiteConfig{
			BusyTimeoutMs: 5000,
			WAL:           true,
			ForeignKeys:   true,
		},
	}
}

const defaultSQLiteFile = "cmdbridge.sqlite"

// ResolveSQLiteDSN turns a configured DSN into one the driver accepts. An
// empty DSN means ~/.cmdbridge/cmdbridge.sqlite; "~/" is expanded and the
// parent directory of a file path is created. ":memory:" and "file:" URIs
// pass through unchanged.
func ResolveSQLiteDSN(dsn string) (string, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return dsn, nil
	}
	if dsn == "" {
		p, err := pathutil.StateFile(defaultSQLiteFile)
		if err != nil {
			return "", fmt.Errorf("resolve sqlite dsn: %w", err)
		}
		dsn = p
	}
	path, query, _ := strings.Cut(dsn, "?")
	path = pathutil.ExpandHomePath(path)
	if err := pathutil.EnsureParentDir(path); err != nil {
		return "", fmt.Errorf("resolve sqlite dsn: %w", err)
	}
	if query != "" {
		return path + "?" + query, nil
	}
	return path, nil
}
