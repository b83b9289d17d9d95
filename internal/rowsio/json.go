package rowsio

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/JonMunkholm/gridcore/internal/core"
)

// ReadJSON decodes an array of flat objects, or of {"id", "fields"} objects
// as the server API returns them. Fields are listed in first-seen order,
// sorted by name within each object.
func ReadJSON(r io.Reader, opts Options) (Dataset, error) {
	var objs []map[string]any
	if err := json.NewDecoder(NewReader(r)).Decode(&objs); err != nil {
		return Dataset{}, fmt.Errorf("decode rows: %w", err)
	}

	ds := Dataset{Rows: make([]core.Row, 0, len(objs))}
	seen := make(map[string]bool)
	for i, obj := range objs {
		row := core.Row{ID: strconv.Itoa(i + 1)}
		if fields, ok := obj["fields"].(map[string]any); ok && isWrapped(obj) {
			row.Fields = fields
			if id, ok := obj["id"]; ok && !core.IsEmpty(id) {
				row.ID = core.ToText(id)
			}
		} else {
			row.Fields = obj
			if id, ok := obj[opts.IDField]; ok && !core.IsEmpty(id) {
				row.ID = core.ToText(id)
				delete(row.Fields, opts.IDField)
			}
		}

		var keys []string
		for k := range row.Fields {
			if !seen[k] {
				keys = append(keys, k)
				seen[k] = true
			}
		}
		slices.Sort(keys)
		ds.Fields = append(ds.Fields, keys...)
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

// isWrapped reports whether obj has no keys besides "id" and "fields".
func isWrapped(obj map[string]any) bool {
	for k := range obj {
		if k != "id" && k != "fields" {
			return false
		}
	}
	return true
}
