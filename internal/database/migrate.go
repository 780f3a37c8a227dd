package database

import (
	"context"
	"fmt"

	"bucketlist/internal/middleware"

	"gorm.io/gorm"
)

// Migrate brings the schema in line with PersistentModels. AutoMigrate only
// adds tables, columns, indexes and constraints; it never drops anything.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	middleware.Logger.InfoContext(ctx, "Database migration completed")
	return nil
}

// Reset drops every managed table and recreates the schema. Used by
// `migrate reset` and the seed command's -clean flag.
func Reset(ctx context.Context, db *gorm.DB) error {
	tables := PersistentModels()
	for i := len(tables) - 1; i >= 0; i-- {
		if err := db.WithContext(ctx).Migrator().DropTable(tables[i]); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
	}
	return Migrate(ctx, db)
}
