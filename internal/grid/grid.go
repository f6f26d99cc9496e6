// Package grid holds the interactive state of one list view: the records,
// the current view, and the last resolution with its group expand state.
//
// Every command (sort, group toggle, filter, edit, remove) produces a new
// view or record set and re-resolves, carrying expanded group keys forward.
// A Grid is not safe for concurrent use; callers serialize access.
package grid

import (
	"fmt"
	"strconv"

	"github.com/solatis/gridview/internal/resolver"
	"github.com/solatis/gridview/internal/types"
)

// Column is a visible field annotated with the view's current state.
type Column struct {
	types.Field
	Sorted           bool
	SortedDescending bool
	Filtered         bool
	Grouped          bool
}

// Grid is a stateful list view.
type Grid struct {
	resolver *resolver.Resolver
	keyPath  string
	records  []types.Record
	view     types.View
	result   resolver.Result
	restore  *resolver.Expansion
}

// Option customizes a Grid.
type Option func(*Grid)

// WithResolver sets the resolver used for every resolution.
func WithResolver(r *resolver.Resolver) Option {
	return func(g *Grid) {
		if r != nil {
			g.resolver = r
		}
	}
}

// WithKeyPath names the field path that identifies records. Without it a
// record is identified by its position in the resolved sequence.
func WithKeyPath(path string) Option {
	return func(g *Grid) {
		g.keyPath = path
	}
}

// WithExpansion restores expand state captured from an earlier session.
// It applies to the initial resolution only.
func WithExpansion(e *resolver.Expansion) Option {
	return func(g *Grid) {
		g.restore = e
	}
}

// New creates a grid and resolves it. Without WithExpansion groups take
// their GroupSpec defaults.
func New(records []types.Record, view types.View, opts ...Option) (*Grid, error) {
	g := &Grid{records: records}
	for _, opt := range opts {
		opt(g)
	}
	if g.resolver == nil {
		g.resolver = resolver.New()
	}
	if err := view.Validate(); err != nil {
		return nil, fmt.Errorf("invalid view: %w", err)
	}
	g.view = view.Clone()
	g.result = g.resolver.Resolve(g.records, g.view, g.restore)
	g.restore = nil
	return g, nil
}

// View returns the current view.
func (g *Grid) View() types.View {
	return g.view.Clone()
}

// Records returns every record held by the grid, unfiltered, in input order.
func (g *Grid) Records() []types.Record {
	return g.records
}

// Result returns the last resolution.
func (g *Grid) Result() resolver.Result {
	return g.result
}

// Groups returns the current group tree.
func (g *Grid) Groups() []types.Group {
	return g.result.Groups
}

// Expansion captures the current expand state for persistence.
func (g *Grid) Expansion() *resolver.Expansion {
	return resolver.Capture(g.result.Groups)
}

// Apply replaces the view and re-resolves, keeping expanded groups open.
func (g *Grid) Apply(view types.View) error {
	if err := view.Validate(); err != nil {
		return fmt.Errorf("invalid view: %w", err)
	}
	g.view = view.Clone()
	g.refresh()
	return nil
}

func (g *Grid) refresh() {
	g.result = g.resolver.Resolve(g.records, g.view, resolver.Capture(g.result.Groups))
}

// field returns the view field for path or ErrUnknownField.
func (g *Grid) field(path string) (types.Field, error) {
	f, ok := g.view.Field(path)
	if !ok {
		return types.Field{}, fmt.Errorf("%q: %w", path, types.ErrUnknownField)
	}
	return f, nil
}

// SortBy makes path the only sort key.
func (g *Grid) SortBy(path string, descending bool) error {
	f, err := g.field(path)
	if err != nil {
		return err
	}
	if !f.Sortable {
		return fmt.Errorf("%q: %w", path, types.ErrNotSortable)
	}
	return g.Apply(g.view.WithSort(path, descending))
}

// ToggleGroupBy removes the group level on path, or appends it collapsed.
func (g *Grid) ToggleGroupBy(path string) error {
	f, err := g.field(path)
	if err != nil {
		return err
	}
	if !f.Groupable {
		return fmt.Errorf("%q: %w", path, types.ErrNotGroupable)
	}
	return g.Apply(g.view.WithGroupToggled(path))
}

// FilterBy sets the allowed values on path; no values clears the filter.
func (g *Grid) FilterBy(path string, values []string) error {
	f, err := g.field(path)
	if err != nil {
		return err
	}
	if !f.Filterable {
		return fmt.Errorf("%q: %w", path, types.ErrNotFilterable)
	}
	return g.Apply(g.view.WithFilter(path, values))
}

// SetCollapsed toggles one group header. Reports whether key exists.
func (g *Grid) SetCollapsed(key string, collapsed bool) bool {
	groups, ok := resolver.SetCollapsed(g.result.Groups, key, collapsed)
	if ok {
		g.result.Groups = groups
	}
	return ok
}

// Columns returns the visible fields in view order.
func (g *Grid) Columns() []Column {
	cols := make([]Column, 0, len(g.view.Fields))
	for _, f := range g.view.Fields {
		if f.Hidden {
			continue
		}
		col := Column{Field: f, Grouped: g.view.IsGrouped(f.Name)}
		if s, ok := g.view.SortFor(f.Name); ok {
			col.Sorted = true
			col.SortedDescending = s.Descending
		}
		_, col.Filtered = g.view.FilterFor(f.Name)
		cols = append(cols, col)
	}
	return cols
}

// KeyOf returns the identity of record: its key field formatted as text,
// or index, its position in the resolved sequence, when no key path is
// configured or the key is missing.
func (g *Grid) KeyOf(record types.Record, index int) string {
	if key, ok := KeyFor(g.resolver.Formatter(), record, g.keyPath); ok {
		return key
	}
	return strconv.Itoa(index)
}

// KeyFor formats the value at keyPath as a record key. Reports false when
// keyPath is empty or the record has no usable value there.
func KeyFor(f resolver.Formatter, record types.Record, keyPath string) (string, bool) {
	if keyPath == "" {
		return "", false
	}
	v, ok := resolver.Lookup(record, keyPath)
	if !ok || v == nil {
		return "", false
	}
	key := f.Format(types.FieldTypeText, v)
	return key, key != ""
}

// Upsert saves an edited record. A record whose key matches an existing one
// replaces it; otherwise it is appended under the next free numeric key.
// Returns the record key. Without a key path the key is the record's
// position in the resolved sequence, empty when a filter hides it.
func (g *Grid) Upsert(record types.Record) (string, error) {
	if record == nil {
		return "", fmt.Errorf("upsert: nil record")
	}
	rec := record.Clone()

	if g.keyPath == "" {
		g.records = append(g.records, rec)
		g.refresh()
		return g.position(len(g.records) - 1), nil
	}

	if key, ok := KeyFor(g.resolver.Formatter(), rec, g.keyPath); ok {
		for i, existing := range g.records {
			if k, ok := g.storedKey(existing); ok && k == key {
				g.records[i] = rec
				g.refresh()
				return key, nil
			}
		}
		g.records = append(g.records, rec)
		g.refresh()
		return key, nil
	}

	segments, err := resolver.ParsePath(g.keyPath)
	if err != nil {
		return "", fmt.Errorf("key path %q: %w", g.keyPath, err)
	}
	if len(segments) != 1 {
		return "", fmt.Errorf("cannot assign nested key path %q", g.keyPath)
	}

	next := len(g.records) + 1
	for g.hasKey(strconv.Itoa(next)) {
		next++
	}
	rec[segments[0].Key] = next
	g.records = append(g.records, rec)
	g.refresh()
	return strconv.Itoa(next), nil
}

func (g *Grid) hasKey(key string) bool {
	for _, rec := range g.records {
		if k, ok := g.storedKey(rec); ok && k == key {
			return true
		}
	}
	return false
}

func (g *Grid) storedKey(record types.Record) (string, bool) {
	return KeyFor(g.resolver.Formatter(), record, g.keyPath)
}

// position returns the resolved position of the record at input index idx.
func (g *Grid) position(idx int) string {
	for i, in := range g.result.Indices {
		if in == idx {
			return strconv.Itoa(i)
		}
	}
	return ""
}

// Remove deletes the records identified by keys and returns how many were
// removed. Positional keys address the resolved sequence.
func (g *Grid) Remove(keys ...string) int {
	if len(keys) == 0 {
		return 0
	}
	wanted := make(map[string]bool, len(keys))
	for _, k := range keys {
		wanted[k] = true
	}

	drop := make(map[int]bool)
	if g.keyPath != "" {
		for i, rec := range g.records {
			if k, ok := g.storedKey(rec); ok && wanted[k] {
				drop[i] = true
			}
		}
	} else {
		for i := range g.result.Records {
			if wanted[strconv.Itoa(i)] {
				drop[g.result.Indices[i]] = true
			}
		}
	}
	if len(drop) == 0 {
		return 0
	}

	kept := make([]types.Record, 0, len(g.records)-len(drop))
	for i, rec := range g.records {
		if !drop[i] {
			kept = append(kept, rec)
		}
	}
	g.records = kept
	g.refresh()
	return len(drop)
}

// ExportGrid renders the resolved records as a table: a header row of
// display names for every field, hidden ones included, then one row of
// formatted values per record.
func (g *Grid) ExportGrid() [][]string {
	f := g.resolver.Formatter()
	rows := make([][]string, 0, len(g.result.Records)+1)

	header := make([]string, len(g.view.Fields))
	for i, field := range g.view.Fields {
		header[i] = field.DisplayName
		if header[i] == "" {
			header[i] = field.Name
		}
	}
	rows = append(rows, header)

	for _, rec := range g.result.Records {
		row := make([]string, len(g.view.Fields))
		for i, field := range g.view.Fields {
			v, _ := resolver.Lookup(rec, field.Name)
			row[i] = f.Format(field.Type, v)
		}
		rows = append(rows, row)
	}
	return rows
}
