package main

import (
	"context"
	"log/slog"

	"github.com/quailyquaily/cmdbridge/db"
	"github.com/quailyquaily/cmdbridge/history"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

func dbConfigFromViper() db.Config {
	cfg := db.DefaultConfig()

	cfg.Driver = viper.GetString("db.driver")
	cfg.DSN = viper.GetString("db.dsn")
	cfg.AutoMigrate = viper.GetBool("db.automigrate")

	cfg.Pool.MaxOpenConns = viper.GetInt("db.pool.max_open_conns")
	cfg.Pool.MaxIdleConns = viper.GetInt("db.pool.max_idle_conns")
	cfg.Pool.ConnMaxLifetime = viper.GetDuration("db.pool.conn_max_lifetime")
	if cfg.Pool.ConnMaxLifetime < 0 {
		cfg.Pool.ConnMaxLifetime = 0
	}

	cfg.SQLite.BusyTimeoutMs = viper.GetInt("db.sqlite.busy_timeout_ms")
	cfg.SQLite.WAL = viper.GetBool("db.sqlite.wal")
	cfg.SQLite.ForeignKeys = viper.GetBool("db.sqlite.foreign_keys")

	if cfg.Pool.MaxOpenConns <= 0 {
		cfg.Pool.MaxOpenConns = 1
	}
	if cfg.Pool.MaxIdleConns <= 0 {
		cfg.Pool.MaxIdleConns = 1
	}
	if cfg.SQLite.BusyTimeoutMs <= 0 {
		cfg.SQLite.BusyTimeoutMs = 5000
	}

	return cfg
}

// historyFromViper opens the history database. A nil store with a nil error
// means history is switched off.
func historyFromViper(ctx context.Context, log *slog.Logger) (*history.GormStore, *gorm.DB, error) {
	if !viper.GetBool("history.enabled") {
		return nil, nil, nil
	}
	gdb, err := db.Open(ctx, dbConfigFromViper())
	if err != nil {
		return nil, nil, err
	}
	if log != nil {
		log.Debug("history_enabled", "driver", viper.GetString("db.driver"))
	}
	return history.NewGormStore(gdb), gdb, nil
}

func closeDB(gdb *gorm.DB) {
	if gdb != nil {
		_ = db.Close(gdb)
	}
}
