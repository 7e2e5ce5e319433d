// Package aggregation folds raw analytics rows into summary statistics,
// rankings and time series. Every function is pure: identical inputs give
// identical outputs, input order never matters, and missing data degrades to
// nil averages instead of errors.
package aggregation

import (
	"sort"
	"time"
)

// mean averages the non-nil values. It returns nil when there are none.
func mean(values []*float64) *float64 {
	var sum float64
	n := 0
	for _, v := range values {
		if v == nil {
			continue
		}
		sum += *v
		n++
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

// percent returns part/whole*100, or nil when whole is zero.
func percent(part, whole int) *float64 {
	if whole <= 0 {
		return nil
	}
	p := float64(part) / float64(whole) * 100
	return &p
}

// failureRate is the share of wrong answers in percent, 0 when unanswered.
func failureRate(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(total-correct) / float64(total) * 100
}

// compareRatio compares a/b with c/d exactly. Denominators must be positive.
func compareRatio(a, b, c, d int) int {
	left := int64(a) * int64(d)
	right := int64(c) * int64(b)
	switch {
	case left < right:
		return -1
	case left > right:
		return 1
	}
	return 0
}

func maxFloat(a, b *float64) *float64 {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case *b > *a:
		return b
	}
	return a
}

func laterTime(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.After(*a):
		return b
	}
	return a
}

func floatPtr(v float64) *float64 {
	return &v
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// compareNullableAsc orders nil values after every non-nil value.
func compareNullableAsc(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	}
	return 0
}
