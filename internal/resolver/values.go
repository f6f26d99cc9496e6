// internal/resolver/values.go
package resolver

import (
	"sort"

	"github.com/solatis/gridview/internal/types"
)

// DistinctValues returns the distinct non-empty formatted values of path
// across records, ordered by the field's type-aware comparison. Values that
// format identically collapse to one entry ordered by their first raw value.
func (r *Resolver) DistinctValues(records []types.Record, view types.View, path string) []string {
	ft := view.TypeOf(path)
	paths := make(pathCache)
	cmp := newComparer(r.formatter, r.loc, r.tag)

	type candidate struct {
		label string
		key   sortKey
	}
	seen := make(map[string]bool)
	var candidates []candidate
	for _, rec := range records {
		value := paths.value(rec, path)
		label := r.formatter.Format(ft, value)
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		candidates = append(candidates, candidate{label: label, key: cmp.key(ft, value)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if c := cmp.compare(ft, candidates[i].key, candidates[j].key); c != 0 {
			return c < 0
		}
		return cmp.collator.CompareString(candidates[i].label, candidates[j].label) < 0
	})

	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.label
	}
	return out
}
