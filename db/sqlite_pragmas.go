package db

import (
	"fmt"

	"gorm.io/gorm"
)

// applySQLitePragmas skips WAL for in-memory databases, which do not
// support it.
func applySQLitePragmas(gdb *gorm.DB, cfg SQLiteConfig, inMemory bool) error {
	if gdb == nil {
		return fmt.Errorf("nil gorm db")
	}
	var pragmas []string
	if cfg.WAL && !inMemory {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL;")
	}
	if cfg.BusyTimeoutMs > 0 {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA busy_timeout=%d;", cfg.BusyTimeoutMs))
	}
	if cfg.ForeignKeys {
		pragmas = append(pragmas, "PRAGMA foreign_keys=ON;")
	}
	for _, p := range pragmas {
		if err := gdb.Exec(p).Error; err != nil {
			return fmt.Errorf("%s %w", p, err)
		}
	}
	return nil
}
