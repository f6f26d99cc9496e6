// internal/resolver/fieldpath.go
package resolver

import (
	"strconv"
	"strings"

	"github.com/solatis/gridview/internal/types"
)

/*
 * Field path resolution for records.
 *
 * A field path is a dotted string ("author.name", "attachments.0.url")
 * interpreted as a sequence of lookups over a generic key/value tree.
 * ParsePath compiles the string once; Resolve walks a record.
 *
 * Missing data is never an error for callers of the resolver: absent keys,
 * null intermediates, scalars with path remaining and out-of-range indices
 * all report ErrFieldNotFound, which the resolver turns into an empty
 * display string.
 */

// ResolveResult contains the resolved value.
type ResolveResult struct {
	Value any  // resolved value (nil if not found or null)
	Found bool // true if every segment resolved
}

// ParsePath splits a dotted field path into segments.
// Returns ErrEmptyPath for blank paths or empty components ("a..b").
// Returns ErrPathTooDeep if the path exceeds MaxPathDepth.
func ParsePath(path string) ([]types.PathSegment, error) {
	if strings.TrimSpace(path) == "" {
		return nil, types.ErrEmptyPath
	}
	parts := strings.Split(path, ".")
	if len(parts) > types.MaxPathDepth {
		return nil, types.ErrPathTooDeep
	}

	segments := make([]types.PathSegment, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			return nil, types.ErrEmptyPath
		}
		seg := types.PathSegment{Key: p}
		if n, err := strconv.Atoi(p); err == nil && n >= 0 {
			seg.Index = n
			seg.IsIndex = true
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// Resolve traverses data following path segments.
// Returns ErrPathTooDeep if path exceeds MaxPathDepth.
// Returns ErrFieldNotFound if path does not exist in data.
func Resolve(path []types.PathSegment, data any) (ResolveResult, error) {
	if len(path) > types.MaxPathDepth {
		return ResolveResult{}, types.ErrPathTooDeep
	}
	return resolveRecursive(path, data)
}

// Lookup parses path and resolves it against record in one step.
// Any failure, including a malformed path, reports found=false.
func Lookup(record types.Record, path string) (any, bool) {
	segments, err := ParsePath(path)
	if err != nil {
		return nil, false
	}
	res, err := Resolve(segments, record)
	if err != nil {
		return nil, false
	}
	return res.Value, res.Found
}

// resolveRecursive consumes one segment per call.
func resolveRecursive(path []types.PathSegment, current any) (ResolveResult, error) {
	if len(path) == 0 {
		return ResolveResult{Value: current, Found: true}, nil
	}

	seg := path[0]
	remaining := path[1:]

	switch v := current.(type) {
	case types.Record:
		return resolveKey(seg, remaining, v)
	case map[string]any:
		return resolveKey(seg, remaining, v)
	case []any:
		if !seg.IsIndex || seg.Index >= len(v) {
			return ResolveResult{}, types.ErrFieldNotFound
		}
		return resolveRecursive(remaining, v[seg.Index])
	case []map[string]any:
		if !seg.IsIndex || seg.Index >= len(v) {
			return ResolveResult{}, types.ErrFieldNotFound
		}
		return resolveRecursive(remaining, v[seg.Index])
	case []string:
		if !seg.IsIndex || seg.Index >= len(v) {
			return ResolveResult{}, types.ErrFieldNotFound
		}
		return resolveRecursive(remaining, v[seg.Index])
	case nil:
		// Null value at intermediate position
		return ResolveResult{}, types.ErrFieldNotFound
	default:
		// Scalar value but path continues
		return ResolveResult{}, types.ErrFieldNotFound
	}
}

func resolveKey(seg types.PathSegment, remaining []types.PathSegment, m map[string]any) (ResolveResult, error) {
	val, ok := m[seg.Key]
	if !ok {
		return ResolveResult{}, types.ErrFieldNotFound
	}
	return resolveRecursive(remaining, val)
}

// pathCache memoizes compiled paths for the duration of one resolution.
type pathCache map[string][]types.PathSegment

// value resolves path on record, returning nil for anything unresolvable.
func (c pathCache) value(record types.Record, path string) any {
	segments, ok := c[path]
	if !ok {
		var err error
		segments, err = ParsePath(path)
		if err != nil {
			segments = nil
		}
		c[path] = segments
	}
	if segments == nil {
		return nil
	}
	res, err := Resolve(segments, record)
	if err != nil {
		return nil
	}
	return res.Value
}
