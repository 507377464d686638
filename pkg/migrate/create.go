package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/pressly/goose/v3"
)

var nameSanitizeRe = regexp.MustCompile(`[^a-z0-9]+`)

// sqlTemplate keeps new migrations in the shape ValidateDir and the schema
// tests expect: idempotent DDL and a Down that undoes Up in reverse order.
var sqlTemplate = template.Must(template.New("groupcart.sql-migration").Parse(`-- +goose Up
-- +goose StatementBegin
-- version {{.Version}}: use IF NOT EXISTS; shared_carts and cart_participants
-- keep their partial/unique indexes (ux_shared_carts_active_product,
-- ux_cart_participants_cart_user).
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- drop in reverse order of creation
-- +goose StatementEnd
`))

// CreateSQLMigration writes <dir>/<YYYYMMDDHHMMSS>_<name>.sql through goose and
// returns its path. Names are reduced to lower snake case and must not repeat
// an existing migration's name.
func CreateSQLMigration(dir string, name string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	safe := strings.Trim(nameSanitizeRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if safe == "" {
		return "", fmt.Errorf("name %q results in empty sanitized filename", name)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}
	pattern := filepath.Join(dir, "*_"+safe+".sql")
	if existing, _ := filepath.Glob(pattern); len(existing) > 0 {
		return "", fmt.Errorf("migration named %q already exists: %s", safe, filepath.Base(existing[0]))
	}

	goose.SetSequential(false)
	if err := goose.CreateWithTemplate(nil, dir, sqlTemplate, safe, "sql"); err != nil {
		return "", fmt.Errorf("create migration %q: %w", safe, err)
	}

	created, err := filepath.Glob(pattern)
	if err != nil || len(created) != 1 {
		return "", fmt.Errorf("locate created migration %q in %s", safe, dir)
	}
	return created[0], nil
}
