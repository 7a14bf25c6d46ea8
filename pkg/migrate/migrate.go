package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
)

const DefaultDir = "pkg/migrate/migrations"

// Commands accepted by Run.
const (
	CommandUp     = "up"
	CommandDown   = "down"
	CommandStatus = "status"
)

// Step describes one migration touched or inspected by a command.
type Step struct {
	Version   int64
	File      string
	Direction string
	State     string
	Took      time.Duration
	AppliedAt time.Time
}

func (s Step) String() string {
	switch {
	case s.Direction != "":
		return fmt.Sprintf("%-4s %d %s (%s)", s.Direction, s.Version, s.File, s.Took.Round(time.Millisecond))
	case s.AppliedAt.IsZero():
		return fmt.Sprintf("%-8s %d %s", s.State, s.Version, s.File)
	default:
		return fmt.Sprintf("%-8s %d %s at %s", s.State, s.Version, s.File, s.AppliedAt.UTC().Format(time.RFC3339))
	}
}

// Migrator runs the SQL files of one directory against one database.
type Migrator struct {
	provider *goose.Provider
}

// New builds a Migrator for the storefront Postgres schema.
func New(db *sql.DB, dir string) (*Migrator, error) {
	return newMigrator(db, dir, database.DialectPostgres)
}

func newMigrator(db *sql.DB, dir string, dialect database.Dialect) (*Migrator, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("dir is required")
	}
	provider, err := goose.NewProvider(dialect, db, os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("load migrations from %s: %w", dir, err)
	}
	return &Migrator{provider: provider}, nil
}

// Run applies up, down (one step) or reports status.
func (m *Migrator) Run(ctx context.Context, command string) ([]Step, error) {
	switch command {
	case CommandUp:
		results, err := m.provider.Up(ctx)
		if err != nil {
			return nil, fmt.Errorf("migrate up: %w", err)
		}
		return fromResults(results), nil
	case CommandDown:
		result, err := m.provider.Down(ctx)
		if err != nil {
			return nil, fmt.Errorf("migrate down: %w", err)
		}
		return fromResults([]*goose.MigrationResult{result}), nil
	case CommandStatus:
		statuses, err := m.provider.Status(ctx)
		if err != nil {
			return nil, fmt.Errorf("migration status: %w", err)
		}
		steps := make([]Step, 0, len(statuses))
		for _, st := range statuses {
			steps = append(steps, Step{
				Version:   st.Source.Version,
				File:      baseName(st.Source.Path),
				State:     string(st.State),
				AppliedAt: st.AppliedAt,
			})
		}
		return steps, nil
	default:
		return nil, fmt.Errorf("unknown migrate command %q", command)
	}
}

// To moves the schema up or down until target is the current version.
func (m *Migrator) To(ctx context.Context, target string) ([]Step, error) {
	version, err := parseVersion(target)
	if err != nil {
		return nil, err
	}
	current, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("read schema version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case version == current:
		return nil, nil
	case version > current:
		results, err = m.provider.UpTo(ctx, version)
	default:
		results, err = m.provider.DownTo(ctx, version)
	}
	if err != nil {
		return nil, fmt.Errorf("migrate from %d to %d: %w", current, version, err)
	}
	return fromResults(results), nil
}

// Version reports the latest applied migration, 0 for an empty schema.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	return m.provider.GetDBVersion(ctx)
}

func parseVersion(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("target version is required")
	}
	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || version < 0 {
		return 0, fmt.Errorf("invalid version %q, expected a migration timestamp like 20260101000001", raw)
	}
	return version, nil
}

func fromResults(results []*goose.MigrationResult) []Step {
	steps := make([]Step, 0, len(results))
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		steps = append(steps, Step{
			Version:   r.Source.Version,
			File:      baseName(r.Source.Path),
			Direction: r.Direction,
			Took:      r.Duration,
		})
	}
	return steps
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}
