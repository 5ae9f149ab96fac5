package database_test

import (
	"testing"

	"github.com/taskhive/taskhive/internal/config"
	"github.com/taskhive/taskhive/internal/database"
	"github.com/taskhive/taskhive/internal/testutil"
)

func TestOpenSqlite(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.Driver = "sqlite"
	cfg.Database.Path = ":memory:"
	cfg.Database.MaxOpenConns = 1
	cfg.Database.MaxIdleConns = 1

	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("Failed to open sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get underlying sql.DB: %v", err)
	}
	defer sqlDB.Close()

	if stats := sqlDB.Stats(); stats.MaxOpenConnections != 1 {
		t.Errorf("Expected MaxOpenConnections 1, got %d", stats.MaxOpenConnections)
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.Driver = "oracle"

	if _, err := database.Open(cfg); err == nil {
		t.Error("Expected error for unsupported driver")
	}
}

func TestDatabaseConnection_Ping(t *testing.T) {
	db := testutil.NewDB(t)

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get underlying sql.DB: %v", err)
	}

	if err := sqlDB.Ping(); err != nil {
		t.Errorf("Failed to ping database: %v", err)
	}
}

func TestMigratedTables_Existence(t *testing.T) {
	db := testutil.NewDB(t)

	tables := []string{"users", "tokens", "projects", "custom_field_defs", "task_templates", "tasks", "time_entries"}

	for _, table := range tables {
		var count int64
		err := db.Raw("SELECT COUNT(*) FROM " + table).Scan(&count).Error
		if err != nil {
			t.Errorf("Failed to query table %s: %v", table, err)
		}
	}
}

func TestDatabase_Transactions(t *testing.T) {
	db := testutil.NewDB(t)

	tx := db.Begin()

	err := tx.Exec("INSERT INTO users (id, chat_id, username, timezone, is_active) VALUES (?, ?, ?, ?, ?)",
		"tx-test-1", "chat-1", "txuser", "UTC", true).Error
	if err != nil {
		t.Errorf("Failed to insert in transaction: %v", err)
	}

	tx.Rollback()

	var count int64
	err = db.Raw("SELECT COUNT(*) FROM users WHERE id = ?", "tx-test-1").Scan(&count).Error
	if err != nil {
		t.Errorf("Failed to count users after rollback: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 users after rollback, got %d", count)
	}

	tx = db.Begin()
	err = tx.Exec("INSERT INTO users (id, chat_id, username, timezone, is_active) VALUES (?, ?, ?, ?, ?)",
		"tx-test-2", "chat-2", "txuser2", "UTC", true).Error
	if err != nil {
		t.Errorf("Failed to insert in transaction: %v", err)
	}
	tx.Commit()

	err = db.Raw("SELECT COUNT(*) FROM users WHERE id = ?", "tx-test-2").Scan(&count).Error
	if err != nil {
		t.Errorf("Failed to count users after commit: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 user after commit, got %d", count)
	}
}
