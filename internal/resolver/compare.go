// internal/resolver/compare.go
package resolver

import (
	"strings"
	"time"

	"github.com/solatis/gridview/internal/types"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

/*
 * Type-aware three-way comparison for sort keys.
 *
 * Each record's value for a sort field is reduced once to a sortKey, then
 * SortBy compares keys. Ordering within one field:
 *
 *   missing (nil, unresolvable path)  <  uncoercible  <  valid values
 *
 * Uncoercible values (e.g. "n/a" in a number field) order among themselves
 * by their text form so the result stays deterministic. Valid values order
 * numerically, chronologically, false<true, or by locale collation for text.
 */

type keyRank int

const (
	rankMissing keyRank = iota
	rankInvalid
	rankValid
)

// sortKey is the precomputed comparable form of one value.
type sortKey struct {
	rank keyRank
	num  float64
	when time.Time
	flag bool
	text string
}

// comparer builds and compares sort keys. Not safe for concurrent use
// (collate.Collator keeps internal buffers); create one per resolution.
type comparer struct {
	fmt      Formatter
	loc      *time.Location
	collator *collate.Collator
}

func newComparer(f Formatter, loc *time.Location, tag language.Tag) *comparer {
	return &comparer{
		fmt:      f,
		loc:      loc,
		collator: collate.New(tag),
	}
}

// key reduces a raw value to its sort key for fieldType.
func (c *comparer) key(fieldType types.FieldType, value any) sortKey {
	ft := fieldType.Normalize()
	if ft == types.FieldTypeText {
		if value == nil {
			return sortKey{rank: rankMissing}
		}
		return sortKey{rank: rankValid, text: c.fmt.Format(ft, value)}
	}

	coerced, err := Coerce(value, ft, c.loc)
	if err != nil {
		return sortKey{rank: rankInvalid, text: c.fmt.Format(types.FieldTypeText, value)}
	}
	if coerced.IsNull {
		return sortKey{rank: rankMissing}
	}

	switch ft {
	case types.FieldTypeNumber:
		return sortKey{rank: rankValid, num: coerced.Value.(float64)}
	case types.FieldTypeDate, types.FieldTypeDateTime:
		return sortKey{rank: rankValid, when: coerced.Value.(time.Time)}
	case types.FieldTypeBoolean:
		return sortKey{rank: rankValid, flag: coerced.Value.(bool)}
	default:
		return sortKey{rank: rankValid, text: c.fmt.Format(ft, value)}
	}
}

// compare returns -1, 0 or 1 ordering a before, equal to, or after b.
func (c *comparer) compare(fieldType types.FieldType, a, b sortKey) int {
	if a.rank != b.rank {
		if a.rank < b.rank {
			return -1
		}
		return 1
	}

	switch a.rank {
	case rankMissing:
		return 0
	case rankInvalid:
		return c.compareText(a.text, b.text)
	}

	switch fieldType.Normalize() {
	case types.FieldTypeNumber:
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		default:
			return 0
		}
	case types.FieldTypeDate, types.FieldTypeDateTime:
		return a.when.Compare(b.when)
	case types.FieldTypeBoolean:
		switch {
		case a.flag == b.flag:
			return 0
		case !a.flag:
			return -1
		default:
			return 1
		}
	default:
		return c.compareText(a.text, b.text)
	}
}

// compareText orders by collation, then by bytes: strings the collator
// ranks equal, such as NFC and NFD spellings, never interleave.
func (c *comparer) compareText(a, b string) int {
	if n := c.collator.CompareString(a, b); n != 0 {
		return n
	}
	return strings.Compare(a, b)
}
