package grid

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/solatis/gridview/internal/types"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FilterValues lists the candidate values of the filter panel for path.
//
// While a filter on path is active the candidates come from every record so
// the user can widen the selection again; otherwise they come from the
// currently displayed records. A non-empty search keeps the values that
// contain it, ignoring case and accents.
func (g *Grid) FilterValues(path, search string) ([]string, error) {
	f, err := g.field(path)
	if err != nil {
		return nil, err
	}
	if !f.Filterable {
		return nil, fmt.Errorf("%q: %w", path, types.ErrNotFilterable)
	}

	source := g.result.Records
	if _, active := g.view.FilterFor(path); active {
		source = g.records
	}
	values := g.resolver.DistinctValues(source, g.view, path)

	needle := fold(strings.TrimSpace(search))
	if needle == "" {
		return values, nil
	}
	out := values[:0:0]
	for _, v := range values {
		if strings.Contains(fold(v), needle) {
			out = append(out, v)
		}
	}
	return out, nil
}

// fold strips combining marks and case so "Gérard" matches "gerard".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), cases.Fold(), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}
