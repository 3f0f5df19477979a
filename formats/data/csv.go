package data

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/c360/formatkit/converter"
	"github.com/c360/formatkit/errors"
)

func delimiter(opts converter.Options, from string) (rune, error) {
	d := opts.String("delimiter", ",")
	r, size := utf8.DecodeRuneInString(d)
	if size == 0 || size != len(d) || r == '"' || r == '\r' || r == '\n' {
		return 0, errors.Validationf(from, "invalid delimiter %q", d)
	}
	return r, nil
}

// csvToRecords reads rows into records keyed by the header row. With
// has_header=false the keys are column_1, column_2, ...
func csvToRecords(data any, opts converter.Options) (any, error) {
	comma, err := delimiter(opts, "csv")
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(text(data)))
	r.Comma = comma
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, errors.NewConversion("invalid CSV: "+err.Error(), "csv", "dict_list", err)
	}

	records := make([]map[string]any, 0, len(rows))
	if len(rows) == 0 {
		return records, nil
	}

	var header []string
	if opts.Bool("has_header", true) {
		header, rows = rows[0], rows[1:]
	} else {
		width := 0
		for _, row := range rows {
			width = max(width, len(row))
		}
		header = make([]string, width)
		for i := range header {
			header[i] = fmt.Sprintf("column_%d", i+1)
		}
	}

	for n, row := range rows {
		if len(row) > len(header) {
			return nil, errors.NewConversion(
				fmt.Sprintf("row %d has %d fields, header has %d", n+1, len(row), len(header)), "csv", "dict_list", nil)
		}
		rec := make(map[string]any, len(header))
		for i, key := range header {
			if i < len(row) {
				rec[key] = row[i]
			} else {
				rec[key] = ""
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// recordsToCSV writes the sorted union of record keys as columns. Missing
// values are empty fields.
func recordsToCSV(data any, opts converter.Options) (any, error) {
	comma, err := delimiter(opts, "dict_list")
	if err != nil {
		return nil, err
	}
	records := normalizeRecords(data)

	var columns []string
	for _, rec := range records {
		for key := range rec {
			if !slices.Contains(columns, key) {
				columns = append(columns, key)
			}
		}
	}
	slices.Sort(columns)

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	w.Comma = comma
	if opts.Bool("include_header", true) && len(columns) > 0 {
		if err := w.Write(columns); err != nil {
			return nil, errors.NewConversion("failed to write CSV: "+err.Error(), "dict_list", "csv", err)
		}
	}

	row := make([]string, len(columns))
	for _, rec := range records {
		for i, key := range columns {
			row[i] = cell(rec[key])
		}
		if err := w.Write(row); err != nil {
			return nil, errors.NewConversion("failed to write CSV: "+err.Error(), "dict_list", "csv", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errors.NewConversion("failed to write CSV: "+err.Error(), "dict_list", "csv", err)
	}
	return sb.String(), nil
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	}
	return fmt.Sprint(v)
}
