package resolver

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/solatis/gridview/internal/types"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    []types.PathSegment
		wantErr error
	}{
		{
			name: "single key",
			path: "title",
			want: []types.PathSegment{{Key: "title"}},
		},
		{
			name: "dotted path",
			path: "author.name",
			want: []types.PathSegment{{Key: "author"}, {Key: "name"}},
		},
		{
			name: "numeric segment",
			path: "attachments.1.url",
			want: []types.PathSegment{{Key: "attachments"}, {Key: "1", Index: 1, IsIndex: true}, {Key: "url"}},
		},
		{
			name:    "blank path",
			path:    "  ",
			wantErr: types.ErrEmptyPath,
		},
		{
			name:    "empty component",
			path:    "a..b",
			wantErr: types.ErrEmptyPath,
		},
		{
			name:    "path too deep",
			path:    strings.Repeat("a.", types.MaxPathDepth) + "a",
			wantErr: types.ErrPathTooDeep,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePath(tt.path)
			if err != tt.wantErr {
				t.Fatalf("ParsePath() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParsePath() len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("segment[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestResolve_Normal(t *testing.T) {
	record := types.Record{
		"title":  "item 1",
		"author": map[string]any{"name": "Robert"},
		"tags":   []any{"urgent", "internal"},
		"meta":   types.Record{"0": "zero"},
		"items":  []map[string]any{{"price": 10.0}},
	}

	tests := []struct {
		name     string
		path     string
		expected any
	}{
		{name: "top level", path: "title", expected: "item 1"},
		{name: "nested object traversal", path: "author.name", expected: "Robert"},
		{name: "array index access", path: "tags.1", expected: "internal"},
		{name: "numeric key on map", path: "meta.0", expected: "zero"},
		{name: "typed slice of maps", path: "items.0.price", expected: 10.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments, err := ParsePath(tt.path)
			if err != nil {
				t.Fatalf("ParsePath() error = %v", err)
			}
			result, err := Resolve(segments, record)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if !result.Found {
				t.Fatalf("Resolve() Found = false, want true")
			}
			if result.Value != tt.expected {
				t.Errorf("Resolve() Value = %v, expected %v", result.Value, tt.expected)
			}
		})
	}
}

func TestResolve_EdgeCases(t *testing.T) {
	record := types.Record{
		"author": nil,
		"title":  "scalar",
		"tags":   []any{"a"},
	}

	tests := []struct {
		name string
		path string
	}{
		{name: "missing key", path: "missing"},
		{name: "null value at intermediate level", path: "author.name"},
		{name: "scalar value but path continues", path: "title.length"},
		{name: "array index out of bounds", path: "tags.5"},
		{name: "string key on array", path: "tags.first"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments, err := ParsePath(tt.path)
			if err != nil {
				t.Fatalf("ParsePath() error = %v", err)
			}
			_, err = Resolve(segments, record)
			if err != types.ErrFieldNotFound {
				t.Errorf("Resolve() error = %v, want ErrFieldNotFound", err)
			}
		})
	}
}

func TestLookup_NullLeaf(t *testing.T) {
	value, found := Lookup(types.Record{"created": nil}, "created")
	if !found {
		t.Fatal("Lookup() found = false, want true for explicit null")
	}
	if value != nil {
		t.Errorf("Lookup() value = %v, want nil", value)
	}

	if _, found := Lookup(types.Record{}, "a..b"); found {
		t.Error("Lookup() found = true for malformed path")
	}
}

// Property-based test: resolution never crashes
func TestResolve_PropertyNeverCrashes(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("resolution never crashes regardless of path", prop.ForAll(
		func(parts []string) bool {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Lookup() panicked: %v", r)
				}
			}()

			record := types.Record{
				"a": map[string]any{"b": []any{nil, map[string]any{"c": "deep"}}},
				"0": []string{"x"},
			}
			_, _ = Lookup(record, strings.Join(parts, "."))
			return true
		},
		gen.SliceOf(gen.OneConstOf("a", "b", "c", "0", "1", "", "zz")),
	))

	properties.TestingRun(t)
}
