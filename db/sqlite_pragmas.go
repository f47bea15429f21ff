package db

import (
	"fmt"

	"gorm.io/gorm"
)

// applySQLitePragmas runs the connection-level pragmas the index workload
// needs: WAL keeps readers unblocked while a poll worker writes, and the busy
// timeout covers the single-writer contention a shared file sees.
func applySQLitePragmas(gdb *gorm.DB, cfg SQLiteConfig) error {
	if gdb == nil {
		return fmt.Errorf("nil gorm db")
	}
	pragmas := make([]string, 0, 3)
	if cfg.WAL {
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
			return fmt.Errorf("apply %s: %w", p, err)
		}
	}
	return nil
}
