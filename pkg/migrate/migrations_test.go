package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/groupcart-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one %s migration, found %d", suffix, len(matches))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestSharedCartsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "create_shared_carts_tables")
	assertContains(t, content, []string{
		"CREATE TABLE IF NOT EXISTS shared_carts",
		"CHECK (status IN ('active', 'completed', 'expired'))",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_shared_carts_active_product",
		"ON shared_carts(product_id) WHERE status = 'active'",
		"CREATE TABLE IF NOT EXISTS cart_participants",
		"REFERENCES shared_carts(id) ON DELETE CASCADE",
		"CHECK (quantity > 0)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_cart_participants_cart_user",
		"DROP TABLE IF EXISTS cart_participants",
		"DROP TABLE IF EXISTS shared_carts",
	})

	// participants must be dropped before the carts they reference
	down := content[strings.Index(content, "-- +goose Down"):]
	if strings.Index(down, "cart_participants") > strings.Index(down, "shared_carts") {
		t.Errorf("down migration drops shared_carts before cart_participants")
	}
}

func TestCatalogMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "create_catalog_tables")
	assertContains(t, content, []string{
		"CREATE TABLE IF NOT EXISTS categories",
		"CREATE TABLE IF NOT EXISTS products",
		"regular_price numeric(10,2) NOT NULL",
		"wholesale_price numeric(10,2) NOT NULL",
		"CHECK (minimum_order_quantity > 0)",
		"DROP TABLE IF EXISTS products",
	})
}

func TestUsersMigrationHasEmailConstraint(t *testing.T) {
	content := readMigration(t, "create_users_table")
	assertContains(t, content, []string{
		"CREATE TABLE IF NOT EXISTS users",
		"DEFAULT gen_random_uuid()",
		"CONSTRAINT users_email_key UNIQUE (email)",
	})
}

func TestOutboxMigrationIndexesUnpublishedRows(t *testing.T) {
	content := readMigration(t, "create_outbox_events_table")
	assertContains(t, content, []string{
		"payload jsonb NOT NULL",
		"attempt_count integer NOT NULL DEFAULT 0",
		"WHERE published_at IS NULL",
	})
}
