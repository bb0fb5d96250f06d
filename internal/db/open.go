package db

import (
	"fmt"           // Error wrapping
	"os"            // Directory creation for SQLite files
	"path/filepath" // Path helpers
	"time"          // Slow query threshold

	"roundup/internal/config" // Application configuration

	"github.com/glebarez/sqlite"     // Pure Go SQLite driver for GORM
	"github.com/sirupsen/logrus"     // Logrus for structured logging
	"gorm.io/driver/mysql"           // MySQL driver for GORM
	"gorm.io/driver/postgres"        // PostgreSQL driver for GORM
	"gorm.io/gorm"                   // GORM ORM library
	gormlogger "gorm.io/gorm/logger" // GORM logger adapter
)

// Open connects to the configured database
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "mysql":
		dialector = mysql.Open(cfg.DSN())
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
	default:
		// SQLite needs its directory to exist
		if dir := filepath.Dir(cfg.DBPath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
		dialector = sqlite.Open(cfg.DSN())
	}

	level := gormlogger.Warn
	if cfg.IsProd() {
		level = gormlogger.Error
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(logrus.StandardLogger(), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond, // Log slow queries
			LogLevel:                  level,                  // Quiet unless something is wrong
			IgnoreRecordNotFoundError: true,                   // Not found is a normal outcome
		}),
		NowFunc: func() time.Time { return time.Now().UTC() }, // Store UTC everywhere
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBDriver, err)
	}

	if cfg.DBDriver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1) // SQLite serialises writers
	}
	return db, nil
}
