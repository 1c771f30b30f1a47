package db

import (
	"testing"

	"github.com/jinzhu/gorm"
)

// OpenTest returns a migrated in-memory sqlite database closed at test cleanup.
// A single connection keeps every query on the same in-memory database.
func OpenTest(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.DB().SetMaxOpenConns(1)
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
