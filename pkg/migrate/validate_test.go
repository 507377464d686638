package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

const validBody = "-- +goose Up\nSELECT 1;\n\n-- +goose Down\nSELECT 1;\n"

func TestValidateDir(t *testing.T) {
	cases := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{
			name:  "valid",
			files: map[string]string{"20260101000000_init.sql": validBody, "README.md": "ignored"},
		},
		{
			name:    "empty",
			files:   map[string]string{},
			wantErr: "no migrations found",
		},
		{
			name:    "bad filename",
			files:   map[string]string{"init.sql": validBody},
			wantErr: "invalid migration filename",
		},
		{
			name: "duplicate version",
			files: map[string]string{
				"20260101000000_a.sql": validBody,
				"20260101000000_b.sql": validBody,
			},
			wantErr: "duplicate migration version",
		},
		{
			name:    "missing down",
			files:   map[string]string{"20260101000000_init.sql": "-- +goose Up\nSELECT 1;\n"},
			wantErr: "missing \"-- +goose Down\"",
		},
		{
			name:    "down before up",
			files:   map[string]string{"20260101000000_init.sql": "-- +goose Down\nSELECT 1;\n-- +goose Up\nSELECT 1;\n"},
			wantErr: "Down section before Up",
		},
		{
			name: "open statement block",
			files: map[string]string{
				"20260101000000_fn.sql": "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\nSELECT 1;\n",
			},
			wantErr: "StatementBegin open",
		},
		{
			name: "concurrent index inside transaction",
			files: map[string]string{
				"20260101000000_idx.sql": "-- +goose Up\nCREATE INDEX CONCURRENTLY ix_carts_expires ON shared_carts(expires_at);\n-- +goose Down\nDROP INDEX ix_carts_expires;\n",
			},
			wantErr: "without \"-- +goose NO TRANSACTION\"",
		},
		{
			name: "concurrent index outside transaction",
			files: map[string]string{
				"20260101000000_idx.sql": "-- +goose NO TRANSACTION\n-- +goose Up\nCREATE INDEX CONCURRENTLY ix_carts_expires ON shared_carts(expires_at);\n-- +goose Down\nDROP INDEX CONCURRENTLY ix_carts_expires;\n",
			},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			for name, body := range tc.files {
				writeFile(t, dir, name, body)
			}
			err := ValidateDir(dir)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Cart Index!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	base := filepath.Base(path)
	if !strings.HasSuffix(base, "_add_cart_index.sql") {
		t.Fatalf("unexpected filename %q", base)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}

	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	version := strings.SplitN(base, "_", 2)[0]
	if !strings.Contains(string(body), "-- version "+version) {
		t.Fatalf("expected template to carry version %s, got:\n%s", version, body)
	}

	if _, err := CreateSQLMigration(dir, "add-cart-index"); err == nil {
		t.Fatal("expected duplicate migration name to be rejected")
	}
	if _, err := CreateSQLMigration(dir, "!!!"); err == nil {
		t.Fatal("expected empty sanitized name to be rejected")
	}
}

func TestRunRequiresDB(t *testing.T) {
	if err := Run(t.Context(), nil, DefaultDir, "up"); err == nil {
		t.Fatal("expected error for nil db")
	}
}
