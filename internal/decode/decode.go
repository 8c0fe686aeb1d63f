// Package decode turns uploaded file bytes into an ordered sequence of raw
// field maps, one per data row. It knows nothing about claims; field
// validation happens downstream.
package decode

import (
	"fmt"
	"path"
	"strings"

	"github.com/gyeh/claimstats/internal/model"
)

// Row is one decoded data row: the 1-based row number and a map of
// normalized (lowercased, trimmed) header name to raw string value.
type Row struct {
	Number int64
	Fields map[string]string
}

// Sniff resolves a file name's extension to a supported format.
func Sniff(filename string) (model.FileFormat, bool) {
	return model.ParseFormat(strings.ToLower(path.Ext(filename)))
}

// Rows decodes the payload according to the declared format. Any failure
// here is a batch-level decode error; there is no partial output.
func Rows(data []byte, format model.FileFormat) ([]Row, error) {
	switch format {
	case model.FormatCSV:
		return csvRows(data)
	case model.FormatJSON:
		return jsonRows(data)
	case model.FormatXLSX:
		return xlsxRows(data)
	case model.FormatXLS:
		return xlsRows(data)
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}

// rowsFromMatrix builds Rows from a header row plus data rows, shared by
// the CSV and spreadsheet decoders. Entirely empty rows are skipped but
// still consume a row number, so errors reference the on-disk position.
func rowsFromMatrix(matrix [][]string) ([]Row, error) {
	if len(matrix) == 0 {
		return nil, fmt.Errorf("file has no rows")
	}

	headers := make([]string, len(matrix[0]))
	nonEmpty := 0
	for i, h := range matrix[0] {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
		if headers[i] != "" {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		return nil, fmt.Errorf("header row is empty")
	}

	rows := make([]Row, 0, len(matrix)-1)
	for i, record := range matrix[1:] {
		empty := true
		fields := make(map[string]string, len(headers))
		for j, h := range headers {
			if h == "" || j >= len(record) {
				continue
			}
			v := strings.TrimSpace(record[j])
			fields[h] = v
			if v != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		rows = append(rows, Row{Number: int64(i + 1), Fields: fields})
	}
	return rows, nil
}
