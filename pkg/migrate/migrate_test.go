package migrate

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pressly/goose/v3/database"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMigrationsDirIsValid(t *testing.T) {
	count, err := ValidateDir("migrations")
	require.NoError(t, err)
	require.Greater(t, count, 0)
}

func TestSchemaMigrationCarriesConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_catalog_tables.sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	content := string(data)

	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS stocks",
		"CHECK (quantity >= 0)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_products_seller_name",
		"DROP TABLE IF EXISTS stocks",
	} {
		require.Contains(t, content, sub)
	}
}

func TestCartMigrationHasUniqueLine(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_cart_and_orders.sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	require.Contains(t, string(data), "CREATE UNIQUE INDEX IF NOT EXISTS idx_cart_items_user_product")
	require.Contains(t, string(data), "CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_order_id")
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	path, err := CreateSQLMigration(dir, " Add Payment Index! ", now)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "20260304050607_add_payment_index.sql"), path)

	count, err := ValidateDir(dir)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	_, err = CreateSQLMigration(dir, "add payment index", now)
	require.Error(t, err)

	_, err = CreateSQLMigration(dir, "!!!", now)
	require.Error(t, err)
}

func TestCreateSQLMigrationKeepsVersionsIncreasing(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	_, err := CreateSQLMigration(dir, "add coupons", now)
	require.NoError(t, err)

	// a laptop with a clock behind the last migration
	path, err := CreateSQLMigration(dir, "add coupon usage", now.Add(-time.Hour))
	require.NoError(t, err)
	require.Equal(t, "20260304050608_add_coupon_usage.sql", filepath.Base(path))

	count, err := ValidateDir(dir)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	_, err := ValidateDir(dir)
	require.Error(t, err)

	dir = t.TempDir()
	body := "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_x.sql"), []byte(body), 0o644))
	_, err = ValidateDir(dir)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "unbalanced"))
}

func sqliteMigrator(t *testing.T) (*Migrator, *sql.DB) {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"20260101000001_create_coupons.sql": "-- +goose Up\nCREATE TABLE coupons (code TEXT PRIMARY KEY);\n-- +goose Down\nDROP TABLE coupons;\n",
		"20260101000002_add_coupon_value.sql": "-- +goose Up\nALTER TABLE coupons ADD COLUMN value INTEGER NOT NULL DEFAULT 0;\n-- +goose Down\nALTER TABLE coupons DROP COLUMN value;\n",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}

	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "schema.db")), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	m, err := newMigrator(sqlDB, dir, database.DialectSQLite3)
	require.NoError(t, err)
	return m, sqlDB
}

func TestMigratorRunAndTarget(t *testing.T) {
	ctx := context.Background()
	m, sqlDB := sqliteMigrator(t)

	steps, err := m.Run(ctx, CommandStatus)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	require.Equal(t, "pending", steps[0].State)

	steps, err = m.Run(ctx, CommandUp)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	require.Equal(t, "up", steps[0].Direction)
	require.Equal(t, "20260101000001_create_coupons.sql", steps[0].File)
	_, err = sqlDB.ExecContext(ctx, "INSERT INTO coupons (code, value) VALUES ('PROMO', 10)")
	require.NoError(t, err)

	steps, err = m.To(ctx, "20260101000001")
	require.NoError(t, err)
	require.Len(t, steps, 1)
	require.Equal(t, "down", steps[0].Direction)
	require.Equal(t, int64(20260101000002), steps[0].Version)

	version, err := m.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(20260101000001), version)

	steps, err = m.To(ctx, "20260101000001")
	require.NoError(t, err)
	require.Empty(t, steps)

	steps, err = m.Run(ctx, CommandDown)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	version, err = m.Version(ctx)
	require.NoError(t, err)
	require.Zero(t, version)
}

func TestMigratorRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	m, _ := sqliteMigrator(t)

	_, err := m.Run(ctx, "redo")
	require.ErrorContains(t, err, "unknown migrate command")

	for _, target := range []string{"", "latest", "-5"} {
		_, err = m.To(ctx, target)
		require.Error(t, err, target)
	}

	_, err = New(nil, DefaultDir)
	require.Error(t, err)
}

func TestStepString(t *testing.T) {
	applied := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.Equal(t, "up   7 x.sql (2ms)", Step{Version: 7, File: "x.sql", Direction: "up", Took: 2 * time.Millisecond}.String())
	require.Equal(t, "pending  7 x.sql", Step{Version: 7, File: "x.sql", State: "pending"}.String())
	require.Equal(t, "applied  7 x.sql at 2026-01-02T03:04:05Z", Step{Version: 7, File: "x.sql", State: "applied", AppliedAt: applied}.String())
}
