package models

import (
	"github.com/spf13/cast"
	"strings"
)

// ParsePayout extracts the numeric amount from a node asset string such as
// "1.234 HBD". Malformed, empty or absent values count as zero so a single
// bad snap cannot abort sorting an entire view.
func ParsePayout(asset string) float64 {
	amount, _, _ := strings.Cut(strings.TrimSpace(asset), " ")
	if amount == "" {
		return 0
	}
	return cast.ToFloat64(amount)
}
