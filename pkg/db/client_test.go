package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/angelmondragon/groupcart-backend/pkg/config"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testModel struct {
	ID   int
	Name string `gorm:"uniqueIndex"`
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
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
	client := NewFromGorm(db)

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

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	db := newTestDB(t)
	client := NewFromGorm(db)

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			if err := tx.Create(&testModel{Name: "panicked"}).Error; err != nil {
				return err
			}
			panic("boom")
		})
	}()

	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected panic rollback, got %d rows", count)
	}
}

func TestPing(t *testing.T) {
	client := NewFromGorm(newTestDB(t))
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{DSN: "x", Driver: "oracle"}, nil)
	if err == nil {
		t.Fatal("expected unsupported driver error")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	activeCart := UniqueIndex{Name: "ux_shared_carts_active_product", Columns: "shared_carts.product_id"}
	participant := UniqueIndex{Name: "ux_cart_participants_cart_user", Columns: "cart_participants.cart_id, cart_participants.user_id"}

	db := newTestDB(t)
	if err := db.Create(&testModel{Name: "dup"}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	sqliteErr := db.Create(&testModel{Name: "dup"}).Error
	if !IsUniqueViolation(sqliteErr, UniqueIndex{}) {
		t.Fatalf("expected sqlite unique violation, got %v", sqliteErr)
	}
	if !IsUniqueViolation(sqliteErr, UniqueIndex{Name: "idx_test_models_name", Columns: "test_models.name"}) {
		t.Fatalf("expected sqlite violation to match its columns, got %v", sqliteErr)
	}
	if IsUniqueViolation(sqliteErr, activeCart) {
		t.Fatal("sqlite violation on another table must not match the active cart index")
	}

	cases := []struct {
		name string
		err  error
		idx  UniqueIndex
		want bool
	}{
		{name: "sqlite active cart", err: errors.New("UNIQUE constraint failed: shared_carts.product_id"), idx: activeCart, want: true},
		{name: "sqlite participant as active cart", err: errors.New("UNIQUE constraint failed: cart_participants.cart_id, cart_participants.user_id"), idx: activeCart, want: false},
		{name: "sqlite participant", err: errors.New("UNIQUE constraint failed: cart_participants.cart_id, cart_participants.user_id"), idx: participant, want: true},
		{name: "sqlite active cart as participant", err: errors.New("UNIQUE constraint failed: shared_carts.product_id"), idx: participant, want: false},
		{name: "pg matching constraint", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: activeCart.Name}), idx: activeCart, want: true},
		{name: "pg other constraint", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: activeCart.Name}), idx: participant, want: false},
		{name: "pg foreign key", err: &pgconn.PgError{Code: "23503"}, idx: UniqueIndex{}, want: false},
		{name: "pg text fallback", err: errors.New(`duplicate key value violates unique constraint "ux_cart_participants_cart_user"`), idx: participant, want: true},
		{name: "nil", err: nil, idx: UniqueIndex{}, want: false},
	}
	for _, tc := range cases {
		if got := IsUniqueViolation(tc.err, tc.idx); got != tc.want {
			t.Fatalf("%s: expected %v got %v", tc.name, tc.want, got)
		}
	}
}
