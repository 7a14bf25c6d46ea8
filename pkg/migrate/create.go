package migrate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const versionLayout = "20060102150405"

const sqlSkeleton = `-- +goose Up
-- +goose StatementBegin
-- %[1]s: write the forward change here
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- %[1]s: undo the forward change
-- +goose StatementEnd
`

// CreateSQLMigration writes an empty goose migration to dir and returns its
// path. The version is now in UTC, bumped past the newest file already in dir
// so versions stay strictly increasing even when clocks disagree.
func CreateSQLMigration(dir, name string, now time.Time) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", errors.New("dir is required")
	}
	slug := slugify(name)
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create migrations dir: %w", err)
	}

	latest, err := latestVersion(dir, slug)
	if err != nil {
		return "", err
	}
	version := now.UTC()
	if stamp := version.Format(versionLayout); stamp <= latest {
		next, _ := time.Parse(versionLayout, latest)
		version = next.Add(time.Second)
	}

	path := filepath.Join(dir, version.Format(versionLayout)+"_"+slug+".sql")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, sqlSkeleton, slug); err != nil {
		return "", fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return path, nil
}

// latestVersion returns the highest version prefix in dir. It fails when a
// migration with the same slug already exists.
func latestVersion(dir, slug string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("list migrations: %w", err)
	}
	latest := ""
	for _, e := range entries {
		version, rest, ok := strings.Cut(e.Name(), "_")
		if e.IsDir() || !ok || len(version) != len(versionLayout) {
			continue
		}
		if _, err := strconv.ParseUint(version, 10, 64); err != nil {
			continue
		}
		if strings.TrimSuffix(rest, ".sql") == slug {
			return "", fmt.Errorf("migration %q already exists as %s", slug, e.Name())
		}
		if version > latest {
			latest = version
		}
	}
	return latest, nil
}

// slugify lowercases name and collapses every run of other characters into
// one underscore.
func slugify(name string) string {
	var b strings.Builder
	gap := false
	for _, r := range strings.ToLower(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if gap && b.Len() > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
			gap = false
			continue
		}
		gap = true
	}
	return b.String()
}
