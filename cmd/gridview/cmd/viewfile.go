package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/solatis/gridview/internal/core/db"
	"github.com/solatis/gridview/internal/grid"
	"github.com/solatis/gridview/internal/resolver"
	"github.com/solatis/gridview/internal/types"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// gridFlags are the offline view options shared by resolve and export.
type gridFlags struct {
	viewFile    string
	recordsFile string
	keyPath     string
	sort        string
	groups      []string
	filters     []string
	expand      []string
}

func (f *gridFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.viewFile, "view", "", "view definition file (YAML or JSON)")
	cmd.Flags().StringVar(&f.recordsFile, "records", "", "records file (JSON array or SharePoint REST/OData reply)")
	cmd.Flags().StringVar(&f.keyPath, "key-path", "", "field path identifying records")
	cmd.Flags().StringVar(&f.sort, "sort", "", "sort by one field, replacing the view's sorts (path or path:desc)")
	cmd.Flags().StringArrayVar(&f.groups, "group", nil, "toggle a group level on path (repeatable)")
	cmd.Flags().StringArrayVar(&f.filters, "filter", nil, "filter path=value1,value2 on formatted values (repeatable)")
	cmd.Flags().StringArrayVar(&f.expand, "expand", nil, "expand the group with this key, e.g. 0_Nantes (repeatable)")
	_ = cmd.MarkFlagRequired("view")
	_ = cmd.MarkFlagRequired("records")
}

// build loads the files, applies the command-line view edits and returns
// the resolved grid.
func (f *gridFlags) build(r *resolver.Resolver) (*grid.Grid, error) {
	view, err := loadView(f.viewFile)
	if err != nil {
		return nil, err
	}
	records, err := loadRecords(f.recordsFile)
	if err != nil {
		return nil, err
	}

	g, err := grid.New(records, view, grid.WithResolver(r), grid.WithKeyPath(f.keyPath))
	if err != nil {
		return nil, err
	}

	for _, spec := range f.filters {
		path, values, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("--filter %q: expected path=value1,value2", spec)
		}
		var allowed []string
		if values != "" {
			allowed = strings.Split(values, ",")
		}
		if err := g.FilterBy(path, allowed); err != nil {
			return nil, err
		}
	}
	for _, path := range f.groups {
		if err := g.ToggleGroupBy(path); err != nil {
			return nil, err
		}
	}
	if f.sort != "" {
		path, dir, _ := strings.Cut(f.sort, ":")
		if dir != "" && dir != "asc" && dir != "desc" {
			return nil, fmt.Errorf("--sort %q: direction must be asc or desc", f.sort)
		}
		if err := g.SortBy(path, dir == "desc"); err != nil {
			return nil, err
		}
	}
	for _, key := range f.expand {
		if !g.SetCollapsed(key, false) {
			return nil, fmt.Errorf("--expand %q: no such group", key)
		}
	}
	return g, nil
}

// loadView reads a view definition. JSON files parse as YAML. Unknown keys
// are rejected so typos in capability flags do not pass silently.
func loadView(path string) (types.View, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.View{}, fmt.Errorf("failed to read view: %w", err)
	}
	return parseView(data)
}

func parseView(data []byte) (types.View, error) {
	var view types.View
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&view); err != nil {
		if err == io.EOF {
			return types.View{}, fmt.Errorf("view file is empty")
		}
		return types.View{}, fmt.Errorf("failed to parse view: %w", err)
	}
	if err := view.Validate(); err != nil {
		return types.View{}, fmt.Errorf("invalid view: %w", err)
	}
	return view, nil
}

// loadRecords reads a JSON array of records or a SharePoint REST reply.
func loadRecords(path string) ([]types.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	records, err := db.DecodeItems(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// renderTree writes the grid as indented text: group headers with their
// counts, and the rows of expanded leaf groups.
func renderTree(w io.Writer, g *grid.Grid, f resolver.Formatter) error {
	var b strings.Builder
	cols := g.Columns()

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.DisplayName
		if header[i] == "" {
			header[i] = c.Name
		}
	}
	b.WriteString(strings.Join(header, " | "))
	b.WriteByte('\n')

	records := g.Result().Records
	writeRows := func(start, count, depth int) {
		for _, rec := range records[start : start+count] {
			cells := make([]string, len(cols))
			for i, c := range cols {
				v, _ := resolver.Lookup(rec, c.Name)
				cells[i] = f.Format(c.Type, v)
			}
			b.WriteString(strings.Repeat("  ", depth))
			b.WriteString(strings.Join(cells, " | "))
			b.WriteByte('\n')
		}
	}

	view := g.View()
	var writeGroups func(groups []types.Group, depth int)
	writeGroups = func(groups []types.Group, depth int) {
		for _, grp := range groups {
			marker := "▾"
			if grp.Collapsed {
				marker = "▸"
			}
			label := view.Groups[grp.Level].Path
			if field, ok := view.Field(label); ok && field.DisplayName != "" {
				label = field.DisplayName
			}
			name := grp.Name
			if name == "" {
				name = "(vide)"
			}
			fmt.Fprintf(&b, "%s%s %s : %s (%d)\n", strings.Repeat("  ", depth), marker, label, name, grp.Count)
			if grp.Collapsed {
				continue
			}
			if len(grp.Children) > 0 {
				writeGroups(grp.Children, depth+1)
			} else {
				writeRows(grp.Start, grp.Count, depth+1)
			}
		}
	}

	if groups := g.Groups(); groups != nil {
		writeGroups(groups, 0)
	} else {
		writeRows(0, len(records), 0)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
