package fetcher

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/yourschools/ingest-cli/internal/normalize"
)

// Record is one data row keyed by snake_case-normalized column header.
type Record map[string]string

// Pick returns the first present, non-empty value among the given header
// aliases. Aliases are normalized the same way headers are, so callers can
// pass them in source-document spelling.
func (r Record) Pick(keys ...string) string {
	for _, key := range keys {
		if v := r[normalize.Header(key)]; v != "" {
			return v
		}
	}
	return ""
}

// Raw converts the record to the opaque payload shape stored in provenance.
func (r Record) Raw() map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// CSVRecords parses CSV text into header-keyed records. The first row is the
// header; headers are normalized to snake_case and empty header cells are
// dropped. Field values are whitespace-compacted. Quoted fields, embedded
// commas, doubled-quote escapes, and CRLF/LF line endings follow RFC 4180.
// Rows where every cell is empty are skipped.
func CSVRecords(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // tolerate ragged rows
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}

	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = normalize.Header(h)
	}

	var records []Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		rec := rowToRecord(keys, row)
		if len(rec) > 0 {
			records = append(records, rec)
		}
	}

	return records, nil
}

// CSVRecordsFromString parses CSV source text.
func CSVRecordsFromString(text string) ([]Record, error) {
	return CSVRecords(strings.NewReader(text))
}

func rowToRecord(keys []string, row []string) Record {
	rec := make(Record, len(keys))
	empty := true
	for i, key := range keys {
		if key == "" || i >= len(row) {
			continue
		}
		value := normalize.CompactWhitespace(row[i])
		rec[key] = value
		if value != "" {
			empty = false
		}
	}
	if empty {
		return nil
	}
	return rec
}
