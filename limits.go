package gofilter

import "math"

const (
	// NoLimit disables the LIMIT clause.
	NoLimit      = -1
	MaxLimit     = 100
	DefaultLimit = 10

	// UnboundedLimit is rendered as LIMIT for queries with an offset and no
	// limit. MySQL and SQLite reject OFFSET without LIMIT; the value fits a
	// signed 64-bit integer, so every supported database accepts it.
	UnboundedLimit = math.MaxInt
)

// IsNormalizedLimitMax clamps limit into [1, maxLimit], substituting
// DefaultLimit for non-positive values. The boolean result reports whether
// the limit was accepted unchanged.
func IsNormalizedLimitMax(limit int, maxLimit int) (int, bool) {
	if limit <= 0 {
		return min(DefaultLimit, maxLimit), false
	} else if limit > maxLimit {
		return maxLimit, false
	}

	return limit, true
}

func NormalizeLimitMax(limit int, maxLimit int) int {
	ret, _ := IsNormalizedLimitMax(limit, maxLimit)
	return ret
}

func NormalizeLimit(limit int) int {
	return NormalizeLimitMax(limit, MaxLimit)
}

// NormalizeOffset maps negative offsets to zero. Offsets are zero based.
func NormalizeOffset(offset int) int {
	return max(offset, 0)
}
