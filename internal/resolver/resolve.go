// internal/resolver/resolve.go
package resolver

import (
	"sort"
	"strconv"
	"time"

	"github.com/solatis/gridview/internal/types"
	"golang.org/x/text/language"
)

/*
 * View resolution: filter -> effective sort -> sort -> group -> expand.
 *
 * Resolve is a pure function of (records, view, previous expansion). The
 * input slice and records are never mutated; Result shares record values
 * with the input but in a new slice.
 *
 * Resolution flow:
 *   1. Filter: keep records whose formatted value at every filtered path is
 *      in that filter's allowed set (AND across filters).
 *   2. EffectiveSort: group fields first in group order, reusing any
 *      requested direction, then the remaining sort keys.
 *   3. SortBy: stable multi-key sort on precomputed type-aware keys.
 *   4. GroupBy: recursive partition into maximal contiguous runs of equal
 *      formatted value, one level per group spec.
 *   5. ApplyExpansion: carry expanded keys forward from the previous tree.
 *
 * Complexity: O(N*F) filter, O(N log N) sort, O(N*G) grouping.
 */

// Result is the output of one resolution.
type Result struct {
	Records []types.Record   // filtered and sorted records
	Indices []int            // input position of each entry of Records
	Groups  []types.Group    // group tree, nil when the view is not grouped or empty
	Sorts   []types.SortSpec // effective sort list that was applied
}

// Resolver resolves views. Configuration is immutable after construction;
// a Resolver is safe for concurrent use if its Formatter is.
type Resolver struct {
	formatter Formatter
	tag       language.Tag
	loc       *time.Location
	policy    ExpandPolicy
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithFormatter replaces the display formatter.
func WithFormatter(f Formatter) Option {
	return func(r *Resolver) {
		if f != nil {
			r.formatter = f
		}
	}
}

// WithLocale sets the collation locale for text sorting.
func WithLocale(tag language.Tag) Option {
	return func(r *Resolver) {
		r.tag = tag
	}
}

// WithTimeZone sets the zone used to read zone-less date strings when sorting.
func WithTimeZone(loc *time.Location) Option {
	return func(r *Resolver) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// WithExpandPolicy selects the expand-state policy.
func WithExpandPolicy(p ExpandPolicy) Option {
	return func(r *Resolver) {
		r.policy = p
	}
}

// New creates a Resolver. Defaults: French locale, UTC, reference policy.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		tag:    language.French,
		loc:    time.UTC,
		policy: ExpandPolicyReference,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.formatter == nil {
		r.formatter = NewDisplayFormatter(r.tag, WithLocation(r.loc))
	}
	return r
}

// Formatter returns the resolver's display formatter.
func (r *Resolver) Formatter() Formatter {
	return r.formatter
}

// Policy returns the configured expand policy.
func (r *Resolver) Policy() ExpandPolicy {
	return r.policy
}

// Resolve derives the displayed records and group tree for view.
// prev is the expansion captured from the previously displayed tree; nil
// means first resolution.
func (r *Resolver) Resolve(records []types.Record, view types.View, prev *Expansion) Result {
	paths := make(pathCache)

	rows := r.filterRows(records, view, paths)
	sorts := EffectiveSort(view.Groups, view.Sorts)
	r.sortRows(rows, view, sorts, paths)

	result := Result{
		Records: make([]types.Record, len(rows)),
		Indices: make([]int, len(rows)),
		Sorts:   sorts,
	}
	for i, row := range rows {
		result.Records[i] = row.record
		result.Indices[i] = row.index
	}

	groups := r.groupRows(rows, view, paths)
	result.Groups = ApplyExpansion(groups, prev, r.policy)
	return result
}

// Filter returns the records accepted by view's filters, in input order.
func (r *Resolver) Filter(records []types.Record, view types.View) []types.Record {
	rows := r.filterRows(records, view, make(pathCache))
	return rowRecords(rows)
}

// SortBy returns records stably sorted by sorts. Field types come from view.
func (r *Resolver) SortBy(records []types.Record, view types.View, sorts []types.SortSpec) []types.Record {
	rows := makeRows(records)
	r.sortRows(rows, view, sorts, make(pathCache))
	return rowRecords(rows)
}

// GroupBy partitions already sorted records by view's group specs.
func (r *Resolver) GroupBy(records []types.Record, view types.View) []types.Group {
	return r.groupRows(makeRows(records), view, make(pathCache))
}

// EffectiveSort promotes group fields ahead of the requested sort keys.
// A group field keeps the direction requested for it in sorts, otherwise it
// sorts ascending. Remaining sort keys follow in their original order.
func EffectiveSort(groups []types.GroupSpec, sorts []types.SortSpec) []types.SortSpec {
	remaining := append([]types.SortSpec(nil), sorts...)
	effective := make([]types.SortSpec, 0, len(groups)+len(sorts))

	for _, g := range groups {
		descending := false
		for i, s := range remaining {
			if s.Path == g.Path {
				descending = s.Descending
				remaining = append(remaining[:i], remaining[i+1:]...)
				break
			}
		}
		effective = append(effective, types.SortSpec{Path: g.Path, Descending: descending})
	}
	return append(effective, remaining...)
}

// row pairs a record with its input position.
type row struct {
	record types.Record
	index  int
}

func makeRows(records []types.Record) []row {
	rows := make([]row, len(records))
	for i, rec := range records {
		rows[i] = row{record: rec, index: i}
	}
	return rows
}

func rowRecords(rows []row) []types.Record {
	out := make([]types.Record, len(rows))
	for i, row := range rows {
		out[i] = row.record
	}
	return out
}

// filterRows applies AND-of-membership filtering. Empty filters keep everything.
func (r *Resolver) filterRows(records []types.Record, view types.View, paths pathCache) []row {
	if len(view.Filters) == 0 {
		return makeRows(records)
	}

	type compiledFilter struct {
		path    string
		ft      types.FieldType
		allowed map[string]bool
	}
	filters := make([]compiledFilter, len(view.Filters))
	for i, f := range view.Filters {
		allowed := make(map[string]bool, len(f.Values))
		for _, v := range f.Values {
			allowed[v] = true
		}
		filters[i] = compiledFilter{path: f.Path, ft: view.TypeOf(f.Path), allowed: allowed}
	}

	rows := make([]row, 0, len(records))
	for i, rec := range records {
		match := true
		for _, f := range filters {
			if !f.allowed[r.formatter.Format(f.ft, paths.value(rec, f.path))] {
				match = false
				break
			}
		}
		if match {
			rows = append(rows, row{record: rec, index: i})
		}
	}
	return rows
}

// sortRows sorts rows in place, stable, by precomputed keys.
func (r *Resolver) sortRows(rows []row, view types.View, sorts []types.SortSpec, paths pathCache) {
	if len(sorts) == 0 || len(rows) < 2 {
		return
	}

	cmp := newComparer(r.formatter, r.loc, r.tag)
	fieldTypes := make([]types.FieldType, len(sorts))
	for k, s := range sorts {
		fieldTypes[k] = view.TypeOf(s.Path)
	}

	type keyed struct {
		row
		keys []sortKey
	}
	items := make([]keyed, len(rows))
	for i, rw := range rows {
		keys := make([]sortKey, len(sorts))
		for k, s := range sorts {
			keys[k] = cmp.key(fieldTypes[k], paths.value(rw.record, s.Path))
		}
		items[i] = keyed{row: rw, keys: keys}
	}

	sort.SliceStable(items, func(i, j int) bool {
		for k, s := range sorts {
			c := cmp.compare(fieldTypes[k], items[i].keys[k], items[j].keys[k])
			if c == 0 {
				continue
			}
			if s.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})

	for i := range items {
		rows[i] = items[i].row
	}
}

// groupRows computes the display labels of every group level once, then
// partitions recursively.
func (r *Resolver) groupRows(rows []row, view types.View, paths pathCache) []types.Group {
	if len(view.Groups) == 0 || len(rows) == 0 {
		return nil
	}

	labels := make([][]string, len(rows))
	for i, rw := range rows {
		labels[i] = make([]string, len(view.Groups))
		for level, g := range view.Groups {
			labels[i][level] = r.formatter.Format(view.TypeOf(g.Path), paths.value(rw.record, g.Path))
		}
	}
	return groupBy(labels, view.Groups, 0, 0)
}

// groupBy partitions labels (a slice of the resolved sequence starting at
// start) into maximal contiguous runs of equal label at level, recursing
// into each run with the remaining specs.
func groupBy(labels [][]string, specs []types.GroupSpec, start, level int) []types.Group {
	if len(specs) == 0 || len(labels) == 0 {
		return nil
	}

	spec := specs[0]
	remaining := specs[1:]
	var groups []types.Group

	runStart := 0
	for i := 1; i <= len(labels); i++ {
		if i < len(labels) && labels[i][level] == labels[runStart][level] {
			continue
		}
		name := labels[runStart][level]
		groups = append(groups, types.Group{
			Key:       groupKey(level, name),
			Name:      name,
			Start:     start + runStart,
			Count:     i - runStart,
			Level:     level,
			Collapsed: spec.Collapsed,
			Children:  groupBy(labels[runStart:i], remaining, start+runStart, level+1),
		})
		runStart = i
	}
	return groups
}

// groupKey is the identity a group keeps across resolutions.
func groupKey(level int, name string) string {
	return strconv.Itoa(level) + "_" + name
}
