package storage

import (
	"fmt"

	"go-chat-hub/pkg/chat"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InMemory opens a private sqlite database, used by tests.
const InMemory = ":memory:"

// Connect opens the sqlite audit database at path and migrates its schema.
func Connect(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open audit database %s: %w", path, err)
	}

	// One connection: sqlite serializes writers anyway, and an in-memory
	// database exists only on the connection that created it.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("audit database pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&chat.SessionRecord{}); err != nil {
		return nil, fmt.Errorf("migrate audit database: %w", err)
	}

	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
