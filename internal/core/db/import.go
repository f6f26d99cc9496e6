package db

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/solatis/gridview/internal/types"
	"github.com/tidwall/gjson"
)

// itemPaths are the locations of the item array in SharePoint REST replies:
// OData v4 ("value"), OData v3 verbose ("d.results"), or a bare array.
var itemPaths = []string{"value", "d.results"}

// DecodeItems extracts list items from a SharePoint REST/OData response or a
// plain JSON array. OData annotations ("__metadata", "odata.*", "@odata.*")
// are stripped from every item.
func DecodeItems(data []byte) ([]types.Record, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON")
	}

	root := gjson.ParseBytes(data)
	items := root
	if !root.IsArray() {
		items = gjson.Result{}
		for _, path := range itemPaths {
			if r := root.Get(path); r.IsArray() {
				items = r
				break
			}
		}
		if !items.Exists() {
			return nil, fmt.Errorf("no item array found (expected a JSON array, \"value\" or \"d.results\")")
		}
	}

	var records []types.Record
	var decodeErr error
	idx := 0
	items.ForEach(func(_, item gjson.Result) bool {
		defer func() { idx++ }()
		if !item.IsObject() {
			decodeErr = fmt.Errorf("item %d is not an object", idx)
			return false
		}
		var rec types.Record
		if err := json.Unmarshal([]byte(item.Raw), &rec); err != nil {
			decodeErr = fmt.Errorf("item %d: %w", idx, err)
			return false
		}
		for k := range rec {
			if k == "__metadata" || strings.HasPrefix(k, "odata.") || strings.HasPrefix(k, "@odata.") {
				delete(rec, k)
			}
		}
		records = append(records, rec)
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return records, nil
}
