package decode

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// csvRows decodes a comma-separated payload with a required header row.
func csvRows(data []byte) ([]Row, error) {
	r := csv.NewReader(bytes.NewReader(data))
	// Submitted files are frequently ragged; pad/truncate per row instead
	// of failing the whole file on one short record.
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rowsFromMatrix(records)
}
