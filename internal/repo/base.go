package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Base provides a shared foundation for domain repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// WithTx returns a copy bound to tx.
func (b Base) WithTx(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}

// FindPage counts the rows matched by q, then loads one page ordered by orderBy.
func FindPage[T any](q *gorm.DB, params pagination.Params, orderBy string) (pagination.Page[T], error) {
	params = params.Normalize()
	page := pagination.Page[T]{Skip: params.Skip, Take: params.Take, Items: []T{}}

	if err := q.Session(&gorm.Session{}).Count(&page.Total).Error; err != nil {
		return page, err
	}
	if page.Total == 0 {
		return page, nil
	}
	if strings.TrimSpace(orderBy) != "" {
		q = q.Order(orderBy)
	}
	if err := params.Apply(q).Find(&page.Items).Error; err != nil {
		return page, err
	}
	return page, nil
}

// Like wraps value for a case-insensitive contains filter.
func Like(value string) string {
	return "%" + strings.ToLower(strings.TrimSpace(value)) + "%"
}

// IsNotFound reports whether err is gorm's record-not-found.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
