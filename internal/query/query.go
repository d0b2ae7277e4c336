// Package query holds the read-only operations layered over a record snapshot.
//
// Every function takes the snapshot in ascending id order, never modifies it,
// and runs in O(n) (SortedDesc in O(n log n)).
package query

import (
	"fmt"
	"sort"

	"golang.org/x/exp/constraints"

	"github.com/S0me0neR0man/ourledger/internal/validate"
)

// Number is a field that can be summed and compared against a threshold.
type Number interface {
	constraints.Integer | constraints.Float
}

// ErrInvalidPage reports a zero page or page size.
var ErrInvalidPage = &validate.Violation{
	Field: "page",
	Rule:  validate.RulePositive,
	Msg:   "page and per_page must be at least 1",
}

// Range returns records whose field lies in [start, end], both ends inclusive.
func Range[T any, K constraints.Ordered](records []T, start, end K, field func(T) K) []T {
	res := make([]T, 0)
	for _, r := range records {
		if v := field(r); v >= start && v <= end {
			res = append(res, r)
		}
	}
	return res
}

// Above returns records whose field is strictly greater than threshold.
func Above[T any, N Number](records []T, threshold N, field func(T) N) []T {
	res := make([]T, 0)
	for _, r := range records {
		if field(r) > threshold {
			res = append(res, r)
		}
	}
	return res
}

// Paginate returns page (1-indexed) of perPage records. The last page may be
// short; pages past the end are empty.
func Paginate[T any](records []T, page, perPage uint64) ([]T, error) {
	if page == 0 || perPage == 0 {
		return nil, fmt.Errorf("paginate page=%d per_page=%d: %w", page, perPage, ErrInvalidPage)
	}

	n := uint64(len(records))
	// (page-1)*perPage may overflow; compare by division instead
	if page-1 > n/perPage {
		return make([]T, 0), nil
	}
	offset := (page - 1) * perPage
	if offset >= n {
		return make([]T, 0), nil
	}

	end := n
	if n-offset > perPage {
		end = offset + perPage
	}
	res := make([]T, end-offset)
	copy(res, records[offset:end])
	return res, nil
}

// SortedDesc returns a copy ordered by field descending, ties by ascending id.
func SortedDesc[T any, N Number](records []T, field func(T) N, id func(T) uint64) []T {
	res := make([]T, len(records))
	copy(res, records)

	sort.SliceStable(res, func(i, j int) bool {
		fi, fj := field(res[i]), field(res[j])
		if fi != fj {
			return fi > fj
		}
		return id(res[i]) < id(res[j])
	})
	return res
}

// Sum adds field over all records; zero for none.
func Sum[T any, N Number](records []T, field func(T) N) N {
	var total N
	for _, r := range records {
		total += field(r)
	}
	return total
}
