package decode

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// jsonRows decodes a JSON array of flat objects, one object per claim row.
// Values are coerced to strings; nested objects/arrays are rejected.
func jsonRows(data []byte) ([]Row, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var objs []map[string]any
	if err := dec.Decode(&objs); err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}

	rows := make([]Row, 0, len(objs))
	for i, obj := range objs {
		fields := make(map[string]string, len(obj))
		for k, v := range obj {
			s, err := stringify(v)
			if err != nil {
				return nil, fmt.Errorf("row %d field %q: %w", i+1, k, err)
			}
			fields[strings.ToLower(strings.TrimSpace(k))] = s
		}
		rows = append(rows, Row{Number: int64(i + 1), Fields: fields})
	}
	return rows, nil
}

func stringify(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		return strconv.FormatBool(t), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}
