package migrate

import (
	"bytes"
	"fmt"
	"io/fs"
	"path"
	"regexp"

	"go.uber.org/multierr"
)

var fileNameRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

var requiredAnnotations = [][]byte{[]byte("-- +goose Up"), []byte("-- +goose Down")}

// Validate checks every .sql file at the root of fsys for a well formed,
// unique version prefix and both goose annotations. All problems are
// reported together.
func Validate(fsys fs.FS) error {
	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no migrations found")
	}

	var errs error
	versions := make(map[string]string, len(files))
	for _, name := range files {
		m := fileNameRe.FindStringSubmatch(path.Base(name))
		if m == nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: expected YYYYMMDDHHMMSS_name.sql", name))
			continue
		}
		if prev, dup := versions[m[1]]; dup {
			errs = multierr.Append(errs, fmt.Errorf("%s: version %s already used by %s", name, m[1], prev))
		}
		versions[m[1]] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		for _, want := range requiredAnnotations {
			if !bytes.Contains(body, want) {
				errs = multierr.Append(errs, fmt.Errorf("%s: missing %q", name, want))
			}
		}
	}
	return errs
}
