package pagination

import "gorm.io/gorm"

const (
	// DefaultTake is the page size when take is not provided.
	DefaultTake = 25
	// MaxTake caps how many rows any list query can return.
	MaxTake = 100
)

// Params holds offset pagination inputs (skip/take) from controllers.
type Params struct {
	Skip int
	Take int
}

// Normalize enforces the default and maximum page sizes and a non-negative offset.
func (p Params) Normalize() Params {
	return Params{Skip: NormalizeSkip(p.Skip), Take: NormalizeTake(p.Take)}
}

// NormalizeTake enforces the configured default and maximum limits.
func NormalizeTake(take int) int {
	if take <= 0 {
		return DefaultTake
	}
	if take > MaxTake {
		return MaxTake
	}
	return take
}

func NormalizeSkip(skip int) int {
	if skip < 0 {
		return 0
	}
	return skip
}

// Apply adds OFFSET/LIMIT to a query.
func (p Params) Apply(q *gorm.DB) *gorm.DB {
	n := p.Normalize()
	return q.Offset(n.Skip).Limit(n.Take)
}

// Page is a slice of results plus the unpaginated total.
type Page[T any] struct {
	Items []T
	Total int64
	Skip  int
	Take  int
}
