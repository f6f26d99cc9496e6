// internal/types/view.go
package types

/*
 * View definition types.
 *
 * A View aggregates the field list with filter, sort and group specs. Views
 * are values: every mutator returns a modified clone and leaves the receiver
 * untouched, so a resolution never observes a half-edited view.
 *
 * Key types:
 *   - Field: column descriptor (path, label, type tag, capability flags)
 *   - FilterSpec: allowed formatted values for one field path
 *   - SortSpec: one sort key, earlier entries take precedence
 *   - GroupSpec: one nesting level, first entry is outermost
 *   - Group: node of the resolved group tree
 */

import "fmt"

// FieldType is the value type tag used for formatting and comparison.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeDate     FieldType = "date"
	FieldTypeDateTime FieldType = "datetime"
	FieldTypeBoolean  FieldType = "boolean"
	FieldTypeNumber   FieldType = "number"
)

// Normalize maps the empty tag to text.
func (t FieldType) Normalize() FieldType {
	if t == "" {
		return FieldTypeText
	}
	return t
}

// Valid reports whether t is a known tag (empty counts as text).
func (t FieldType) Valid() bool {
	switch t.Normalize() {
	case FieldTypeText, FieldTypeDate, FieldTypeDateTime, FieldTypeBoolean, FieldTypeNumber:
		return true
	default:
		return false
	}
}

// Field describes one column of a view.
type Field struct {
	Name        string    `json:"name" yaml:"name"`
	DisplayName string    `json:"displayName" yaml:"displayName"`
	Type        FieldType `json:"type,omitempty" yaml:"type,omitempty"`
	Sortable    bool      `json:"sortable,omitempty" yaml:"sortable,omitempty"`
	Filterable  bool      `json:"filterable,omitempty" yaml:"filterable,omitempty"`
	Groupable   bool      `json:"groupable,omitempty" yaml:"groupable,omitempty"`
	Hidden      bool      `json:"hidden,omitempty" yaml:"hidden,omitempty"`
}

// FilterSpec accepts a record when its formatted value at Path is in Values.
type FilterSpec struct {
	Path   string   `json:"path" yaml:"path"`
	Values []string `json:"values" yaml:"values"`
}

// SortSpec is one key of a multi-key sort.
type SortSpec struct {
	Path       string `json:"path" yaml:"path"`
	Descending bool   `json:"descending,omitempty" yaml:"descending,omitempty"`
}

// GroupSpec is one nesting level; Collapsed is the level's default state.
type GroupSpec struct {
	Path      string `json:"path" yaml:"path"`
	Collapsed bool   `json:"collapsed,omitempty" yaml:"collapsed,omitempty"`
}

// View is the complete definition of a list view.
type View struct {
	Fields  []Field      `json:"fields" yaml:"fields"`
	Filters []FilterSpec `json:"filters,omitempty" yaml:"filters,omitempty"`
	Sorts   []SortSpec   `json:"sorts,omitempty" yaml:"sorts,omitempty"`
	Groups  []GroupSpec  `json:"groups,omitempty" yaml:"groups,omitempty"`
}

// Group is one node of the resolved group tree. Start and Count address a
// contiguous range of the resolved record sequence.
type Group struct {
	Key       string  `json:"key"`
	Name      string  `json:"name"`
	Start     int     `json:"start"`
	Count     int     `json:"count"`
	Level     int     `json:"level"`
	Collapsed bool    `json:"collapsed"`
	Children  []Group `json:"children,omitempty"`
}

// Clone returns a deep copy of the view.
func (v View) Clone() View {
	out := View{
		Fields:  append([]Field(nil), v.Fields...),
		Filters: make([]FilterSpec, len(v.Filters)),
		Sorts:   append([]SortSpec(nil), v.Sorts...),
		Groups:  append([]GroupSpec(nil), v.Groups...),
	}
	for i, f := range v.Filters {
		out.Filters[i] = FilterSpec{Path: f.Path, Values: append([]string(nil), f.Values...)}
	}
	return out
}

// Field returns the field descriptor for path.
func (v View) Field(path string) (Field, bool) {
	for _, f := range v.Fields {
		if f.Name == path {
			return f, true
		}
	}
	return Field{}, false
}

// TypeOf returns the declared type of path, text when the field is unknown.
func (v View) TypeOf(path string) FieldType {
	if f, ok := v.Field(path); ok {
		return f.Type.Normalize()
	}
	return FieldTypeText
}

// FilterFor returns the filter on path, if any.
func (v View) FilterFor(path string) (FilterSpec, bool) {
	for _, f := range v.Filters {
		if f.Path == path {
			return f, true
		}
	}
	return FilterSpec{}, false
}

// SortFor returns the sort spec on path, if any.
func (v View) SortFor(path string) (SortSpec, bool) {
	for _, s := range v.Sorts {
		if s.Path == path {
			return s, true
		}
	}
	return SortSpec{}, false
}

// IsGrouped reports whether path is one of the group levels.
func (v View) IsGrouped(path string) bool {
	for _, g := range v.Groups {
		if g.Path == path {
			return true
		}
	}
	return false
}

// WithSort replaces all sort keys with a single key on path.
func (v View) WithSort(path string, descending bool) View {
	out := v.Clone()
	out.Sorts = []SortSpec{{Path: path, Descending: descending}}
	return out
}

// WithGroupToggled removes the group level on path when present, otherwise
// appends it as the innermost level, collapsed by default.
func (v View) WithGroupToggled(path string) View {
	out := v.Clone()
	for i, g := range out.Groups {
		if g.Path == path {
			out.Groups = append(out.Groups[:i], out.Groups[i+1:]...)
			return out
		}
	}
	out.Groups = append(out.Groups, GroupSpec{Path: path, Collapsed: true})
	return out
}

// WithFilter sets the allowed values on path. Empty values removes the filter.
func (v View) WithFilter(path string, values []string) View {
	out := v.Clone()
	for i, f := range out.Filters {
		if f.Path != path {
			continue
		}
		if len(values) == 0 {
			out.Filters = append(out.Filters[:i], out.Filters[i+1:]...)
		} else {
			out.Filters[i].Values = append([]string(nil), values...)
		}
		return out
	}
	if len(values) > 0 {
		out.Filters = append(out.Filters, FilterSpec{Path: path, Values: append([]string(nil), values...)})
	}
	return out
}

// Validate checks the view against resource limits and internal consistency.
// Specs may reference paths absent from Fields; those resolve as text.
func (v View) Validate() error {
	seen := make(map[string]bool, len(v.Fields))
	for _, f := range v.Fields {
		if f.Name == "" {
			return fmt.Errorf("field %q: %w", f.DisplayName, ErrEmptyPath)
		}
		if seen[f.Name] {
			return fmt.Errorf("fields %q: %w", f.Name, ErrDuplicateSpec)
		}
		seen[f.Name] = true
		if !f.Type.Valid() {
			return fmt.Errorf("field %q type %q: %w", f.Name, f.Type, ErrUnknownFieldType)
		}
	}

	if len(v.Groups) > MaxGroupLevels {
		return ErrTooManyGroupLevels
	}

	if err := checkPaths("filters", len(v.Filters), func(i int) string { return v.Filters[i].Path }); err != nil {
		return err
	}
	for _, f := range v.Filters {
		if len(f.Values) > MaxFilterValues {
			return fmt.Errorf("filter %q: %w", f.Path, ErrTooManyFilterValues)
		}
	}
	if err := checkPaths("sorts", len(v.Sorts), func(i int) string { return v.Sorts[i].Path }); err != nil {
		return err
	}
	return checkPaths("groups", len(v.Groups), func(i int) string { return v.Groups[i].Path })
}

// checkPaths rejects blank and duplicate paths within one spec list.
func checkPaths(list string, n int, path func(int) string) error {
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		p := path(i)
		if p == "" {
			return fmt.Errorf("%s[%d]: %w", list, i, ErrEmptyPath)
		}
		if seen[p] {
			return fmt.Errorf("%s %q: %w", list, p, ErrDuplicateSpec)
		}
		seen[p] = true
	}
	return nil
}
