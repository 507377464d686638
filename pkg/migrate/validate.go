package migrate

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

const (
	annotationUp         = "-- +goose Up"
	annotationDown       = "-- +goose Down"
	annotationBegin      = "-- +goose StatementBegin"
	annotationEnd        = "-- +goose StatementEnd"
	annotationNoTx       = "-- +goose NO TRANSACTION"
	concurrentIndexToken = "CONCURRENTLY"
)

// ValidateDir checks every *.sql file in dir before goose sees it: the
// YYYYMMDDHHMMSS_name.sql filename, unique versions, an Up section ahead of
// the Down section, balanced statement blocks, and NO TRANSACTION on any
// migration that builds an index concurrently.
func ValidateDir(dir string) error {
	if dir == "" {
		return errors.New("dir is required")
	}
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}
	fsys := os.DirFS(dir)
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return fmt.Errorf("list %q: %w", dir, err)
	}
	if len(names) == 0 {
		return fmt.Errorf("no migrations found in %q", dir)
	}

	versions := make(map[int64]string, len(names))
	for _, name := range names {
		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		version, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return fmt.Errorf("migration %q: %w", name, err)
		}
		if prev, ok := versions[version]; ok {
			return fmt.Errorf("duplicate migration version %d in %q and %q", version, prev, name)
		}
		versions[version] = name

		f, err := fsys.Open(name)
		if err != nil {
			return fmt.Errorf("read file %q: %w", name, err)
		}
		err = checkAnnotations(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("migration %q %w", name, err)
		}
	}
	return nil
}

func checkAnnotations(f fs.File) error {
	var (
		upLine, downLine int
		openBlock        bool
		noTx, concurrent bool
	)
	scanner := bufio.NewScanner(f)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == annotationUp:
			upLine = n
		case line == annotationDown:
			downLine = n
		case line == annotationNoTx:
			noTx = true
		case line == annotationBegin:
			if openBlock {
				return fmt.Errorf("nests StatementBegin at line %d", n)
			}
			openBlock = true
		case line == annotationEnd:
			if !openBlock {
				return fmt.Errorf("has StatementEnd without StatementBegin at line %d", n)
			}
			openBlock = false
		case !strings.HasPrefix(line, "--") && strings.Contains(strings.ToUpper(line), concurrentIndexToken):
			concurrent = true
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read: %w", err)
	}

	switch {
	case upLine == 0:
		return fmt.Errorf("missing %q", annotationUp)
	case downLine == 0:
		return fmt.Errorf("missing %q", annotationDown)
	case downLine < upLine:
		return errors.New("has its Down section before Up")
	case openBlock:
		return errors.New("leaves a StatementBegin open")
	case concurrent && !noTx:
		return fmt.Errorf("builds an index CONCURRENTLY without %q", annotationNoTx)
	}
	return nil
}
