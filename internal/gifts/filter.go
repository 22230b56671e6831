package gifts

import (
	"fmt"
	"iter"
	"strings"

	"github.com/shopspring/decimal"
)

// FilterKind selects one view over a collection. Exactly one is active.
type FilterKind string

const (
	FilterAll       FilterKind = "all"
	FilterRare      FilterKind = "rare"
	FilterTrending  FilterKind = "trending"
	FilterCheap     FilterKind = "cheap"
	FilterExpensive FilterKind = "expensive"
)

const (
	rareMaxCode       = 5
	trendingMinDeals  = 30
	cheapBelowPrice   = 5
	expensiveMinPrice = 10
)

var (
	cheapBelow   = decimal.NewFromInt(cheapBelowPrice)
	expensiveMin = decimal.NewFromInt(expensiveMinPrice)
)

// ParseFilter reads a filter name. Empty means all.
func ParseFilter(raw string) (FilterKind, error) {
	switch k := FilterKind(strings.ToLower(strings.TrimSpace(raw))); k {
	case "":
		return FilterAll, nil
	case FilterAll, FilterRare, FilterTrending, FilterCheap, FilterExpensive:
		return k, nil
	default:
		return "", fmt.Errorf("unknown filter %q", raw)
	}
}

// Match reports whether r passes the filter.
func (k FilterKind) Match(r Record) bool {
	switch k {
	case FilterRare:
		return r.Rarity <= rareMaxCode
	case FilterTrending:
		return r.Deals30d > trendingMinDeals
	case FilterCheap:
		return r.FloorPrice.LessThan(cheapBelow)
	case FilterExpensive:
		return r.FloorPrice.GreaterThanOrEqual(expensiveMin)
	default:
		return true
	}
}

// ApplyFilter lazily yields the records of seq matching kind. The source is
// not modified.
func ApplyFilter(seq iter.Seq[Record], kind FilterKind) iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for r := range seq {
			if kind.Match(r) && !yield(r) {
				return
			}
		}
	}
}
