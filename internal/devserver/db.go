// Package devserver is a self-contained stand-in for the hosted backend:
// the same REST and auth surface the client speaks, served from a local
// SQLite file. Useful for development and for exercising the client
// end-to-end in tests. It is a backend, not a client-side cache.
package devserver

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sitetrack/internal/model"
)

// NewDB opens a SQLite database, runs migrations and seeds the work
// category reference data. Foreign keys are enforced so constraint
// violations surface the way the real backend reports them.
func NewDB(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "sitetrack_dev.db"
	}

	if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}

	dbLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(withForeignKeys(dsn)), &gorm.Config{
		Logger: dbLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.AutoMigrate(&Account{}, &Token{}, &model.WorkCategory{}, &model.Project{}, &model.Task{}); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	if err := seedCategories(db); err != nil {
		return nil, err
	}

	return db, nil
}

// withForeignKeys makes SQLite enforce declared foreign keys, which it
// does not by default.
func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}

// ensureDirForSQLite creates the parent dir for a SQLite file if needed.
func ensureDirForSQLite(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}

// defaultCategories are the trades every fresh database starts with.
var defaultCategories = []string{
	"Carpentry",
	"Electrical",
	"Masonry",
	"Painting",
	"Plumbing",
	"Roofing",
}

func seedCategories(db *gorm.DB) error {
	var n int64
	if err := db.Model(&model.WorkCategory{}).Count(&n).Error; err != nil {
		return fmt.Errorf("count categories: %w", err)
	}
	if n > 0 {
		return nil
	}
	repo := NewCategoryRepository(db)
	for _, name := range defaultCategories {
		if _, err := repo.Create(context.Background(), name); err != nil {
			return fmt.Errorf("seed category %q: %w", name, err)
		}
	}
	return nil
}
