// Package types provides domain models shared across gridview components.
//
// Records are schema-agnostic key/value trees; a View describes how to
// filter, sort and group them. The resolver, the grid controller, the store
// and the API all exchange these types. Wire formats (protobuf Struct, JSON
// payload columns, YAML view files) convert at the package boundary.
package types

// ViewID represents a UUIDv7 view identifier.
// String alias enables type safety while maintaining JSON string serialization.
type ViewID string

// SiteID identifies the site (tenant) that owns views, records and API keys.
type SiteID string

// Record is one list item. Values may be nested maps or slices and are
// addressed by dotted field paths ("author.name", "tags.0").
type Record map[string]any

// Clone returns a deep copy of the record so edits never alias the source.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return cloneValue(map[string]any(r)).(map[string]any)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case Record:
		return Record(cloneValue(map[string]any(t)).(map[string]any))
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}

// Resource limits enforced by the resolver and the API.
const (
	// MaxPathDepth prevents unbounded recursion during field path resolution.
	MaxPathDepth = 16

	// MaxGroupLevels caps nesting of group specs; deeper trees are unusable in a list UI.
	MaxGroupLevels = 8

	// MaxFilterValues caps the allowed-value set of a single filter.
	MaxFilterValues = 1024

	// MaxRecordsPerRequest limits PutRecords batch size.
	MaxRecordsPerRequest = 5000
)
