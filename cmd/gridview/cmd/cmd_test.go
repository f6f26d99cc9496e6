package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/solatis/gridview/internal/core/api"
	"github.com/solatis/gridview/internal/resolver"
	"github.com/solatis/gridview/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const viewYAML = `
fields:
  - name: id
    displayName: ID
    type: number
    hidden: true
  - name: title
    displayName: Titre
    sortable: true
  - name: location
    displayName: Lieu
    filterable: true
    groupable: true
`

const recordsJSON = `[
  {"id": 1, "title": "Item 1", "location": "Paris"},
  {"id": 2, "title": "Item 2", "location": "Nantes"},
  {"id": 3, "title": "Item 3", "location": "Nantes"},
  {"id": 4, "title": "Item 4", "location": "Lyon"}
]`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseView(t *testing.T) {
	view, err := parseView([]byte(viewYAML))
	require.NoError(t, err)
	require.Len(t, view.Fields, 3)
	assert.Equal(t, types.FieldTypeNumber, view.Fields[0].Type)
	assert.True(t, view.Fields[2].Groupable)

	fromJSON, err := parseView([]byte(`{"fields":[{"name":"title","displayName":"Titre"}],"sorts":[{"path":"title","descending":true}]}`))
	require.NoError(t, err)
	assert.Equal(t, []types.SortSpec{{Path: "title", Descending: true}}, fromJSON.Sorts)

	tests := []struct {
		name    string
		content string
	}{
		{name: "empty", content: ""},
		{name: "unknown key", content: "fields:\n  - name: title\n    sortible: true\n"},
		{name: "duplicate field", content: "fields:\n  - name: title\n  - name: title\n"},
		{name: "unknown type", content: "fields:\n  - name: title\n    type: money\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseView([]byte(tt.content))
			assert.Error(t, err)
		})
	}
}

func TestGridFlagsBuild(t *testing.T) {
	flags := gridFlags{
		viewFile:    writeFile(t, "view.yaml", viewYAML),
		recordsFile: writeFile(t, "records.json", recordsJSON),
		keyPath:     "id",
		groups:      []string{"location"},
		expand:      []string{"0_Nantes"},
	}
	r := resolver.New()
	g, err := flags.build(r)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, renderTree(&buf, g, r.Formatter()))
	assert.Equal(t, `Titre | Lieu
▸ Lieu : Lyon (1)
▾ Lieu : Nantes (2)
  Item 2 | Nantes
  Item 3 | Nantes
▸ Lieu : Paris (1)
`, buf.String())

	t.Run("errors", func(t *testing.T) {
		bad := []gridFlags{
			{viewFile: flags.viewFile, recordsFile: flags.recordsFile, expand: []string{"0_Nantes"}},
			{viewFile: flags.viewFile, recordsFile: flags.recordsFile, filters: []string{"location"}},
			{viewFile: flags.viewFile, recordsFile: flags.recordsFile, sort: "title:up"},
			{viewFile: flags.viewFile, recordsFile: flags.recordsFile, sort: "location"},
			{viewFile: flags.viewFile, recordsFile: filepath.Join(t.TempDir(), "missing.json")},
		}
		for _, f := range bad {
			_, err := f.build(r)
			assert.Error(t, err, "%+v", f)
		}
	})
}

func TestRenderTree_Ungrouped(t *testing.T) {
	flags := gridFlags{
		viewFile:    writeFile(t, "view.yaml", viewYAML),
		recordsFile: writeFile(t, "records.json", recordsJSON),
		filters:     []string{"location=Lyon,Paris"},
		sort:        "title:desc",
	}
	r := resolver.New()
	g, err := flags.build(r)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, renderTree(&buf, g, r.Formatter()))
	assert.Equal(t, "Titre | Lieu\nItem 4 | Lyon\nItem 1 | Paris\n", buf.String())
}

func TestPickSecret(t *testing.T) {
	one := map[string][]byte{"a": []byte("s1")}
	id, secret, err := pickSecret(one, "")
	require.NoError(t, err)
	assert.Equal(t, "a", id)
	assert.Equal(t, []byte("s1"), secret)

	two := map[string][]byte{"a": []byte("s1"), "b": []byte("s2")}
	_, _, err = pickSecret(two, "")
	assert.ErrorContains(t, err, "--secret-id")

	id, _, err = pickSecret(two, "b")
	require.NoError(t, err)
	assert.Equal(t, "b", id)

	_, _, err = pickSecret(two, "c")
	assert.Error(t, err)
}

func TestExportCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nantes.csv")
	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"export",
		"--view", writeFile(t, "view.yaml", viewYAML),
		"--records", writeFile(t, "records.json", recordsJSON),
		"--filter", "location=Nantes",
		"--output", out,
	})
	require.NoError(t, rootCmd.Execute())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "ID,Titre,Lieu\n2,Item 2,Nantes\n3,Item 3,Nantes\n", string(data))
}

func TestResolveCommand_JSON(t *testing.T) {
	tests := []struct {
		name    string
		keyPath string
		want    []string
	}{
		{name: "key field", keyPath: "id", want: []string{"4", "3", "2", "1"}},
		{name: "resolved position", keyPath: "", want: []string{"0", "1", "2", "3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			rootCmd.SetOut(&buf)
			rootCmd.SetErr(io.Discard)
			rootCmd.SetArgs([]string{"resolve",
				"--view", writeFile(t, "view.yaml", viewYAML),
				"--records", writeFile(t, "records.json", recordsJSON),
				"--key-path=" + tt.keyPath,
				"--sort", "title:desc",
				"--output", "json",
			})
			require.NoError(t, rootCmd.Execute())

			var resp api.ResolveViewResponse
			require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
			keys := make([]string, len(resp.Records))
			for i, r := range resp.Records {
				keys[i] = r.Key
			}
			assert.Equal(t, tt.want, keys)
			assert.Equal(t, "Item 4", resp.Records[0].Record["title"])
			assert.Equal(t, []types.SortSpec{{Path: "title", Descending: true}}, resp.Sorts)
		})
	}
}
