package db

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/kasuganosora/autoinvite/config"
	dbmysql "github.com/kasuganosora/autoinvite/db/mysql"
	dbsqlite "github.com/kasuganosora/autoinvite/db/sqlite"
	"gorm.io/gorm"
)

const (
	ModeSQLite       = "sqlite"
	ModeSQLiteMemory = "sqlite_memory"
	ModeMySQL        = "mysql"
)

// Open returns a *gorm.DB for the configured database mode.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Mode {
	case ModeSQLite:
		return dbsqlite.Open(cfg.SQLitePath)
	case ModeSQLiteMemory:
		// Each call gets its own named in-memory database.
		return dbsqlite.OpenMemory(uuid.NewString())
	case ModeMySQL:
		return dbmysql.Open(cfg.MySQLDSN, cfg.MySQLMaxOpen, cfg.MySQLMaxIdle, cfg.MySQLMaxLife)
	default:
		return nil, fmt.Errorf("db: unknown mode %q", cfg.Mode)
	}
}
