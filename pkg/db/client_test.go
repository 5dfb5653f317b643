package db

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/abhiruchieats/storefront-api/pkg/logger"
)

type testModel struct {
	ID   int
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}

	ctx := context.Background()
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed after rollback: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to leave 1 record, got %d", count)
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.Exec(`CREATE TABLE things (id INTEGER PRIMARY KEY, name TEXT NOT NULL UNIQUE)`).Error; err != nil {
		t.Fatalf("create table: %v", err)
	}
	if err := conn.Exec(`INSERT INTO things (name) VALUES ('a')`).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	dupErr := conn.Exec(`INSERT INTO things (name) VALUES ('a')`).Error
	if !IsUniqueViolation(dupErr, "") {
		t.Fatalf("expected unique violation, got %v", dupErr)
	}

	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_orders_order_number"}
	if !IsUniqueViolation(pgErr, "ux_orders_order_number") {
		t.Fatal("expected pg unique violation to match constraint")
	}
	if IsUniqueViolation(pgErr, "ux_products_name") {
		t.Fatal("constraint mismatch should not match")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}, "") {
		t.Fatal("foreign key violation is not a unique violation")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil error is not a violation")
	}
}

type thing struct {
	ID   int
	Name string
}

func TestQueryLoggerReportsSlowAndFailedStatements(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Format: "json", Output: &buf})

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: newQueryLogger(logg, time.Nanosecond),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.Exec(`CREATE TABLE things (id INTEGER PRIMARY KEY, name TEXT NOT NULL UNIQUE)`).Error; err != nil {
		t.Fatalf("create table: %v", err)
	}
	if !strings.Contains(buf.String(), "db.query.slow") {
		t.Fatalf("expected slow query log, got %s", buf.String())
	}

	buf.Reset()
	conn.Logger = newQueryLogger(logg, time.Hour)
	if err := conn.Exec(`INSERT INTO things (name) VALUES ('a')`).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	_ = conn.Exec(`INSERT INTO things (name) VALUES ('a')`).Error
	var row thing
	_ = conn.Where("name = ?", "missing").First(&row).Error
	if buf.Len() != 0 {
		t.Fatalf("unique violations and not-found lookups should stay quiet, got %s", buf.String())
	}

	_ = conn.Exec(`SELECT * FROM no_such_table`).Error
	if !strings.Contains(buf.String(), "db.query.failed") {
		t.Fatalf("expected failed query log, got %s", buf.String())
	}
}
