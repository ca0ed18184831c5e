package fetcher

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/yourschools/ingest-cli/internal/normalize"
)

// XLSXRecords parses the first sheet of a workbook into header-keyed records,
// using the same header normalization as CSVRecords. Directory dumps from
// state education departments frequently arrive as .xlsx instead of .csv.
func XLSXRecords(data []byte) ([]Record, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open workbook")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("xlsx: workbook has no sheets")
	}

	sheet := f.Sheets[0]
	var keys []string
	var records []Record

	for i, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		if i == 0 {
			keys = make([]string, len(cells))
			for j, h := range cells {
				keys[j] = normalize.Header(h)
			}
			continue
		}
		rec := rowToRecord(keys, cells)
		if len(rec) > 0 {
			records = append(records, rec)
		}
	}

	return records, nil
}

// IsXLSXURL reports whether the source URL points at a workbook download.
func IsXLSXURL(rawURL string) bool {
	trimmed := rawURL
	if idx := strings.IndexAny(trimmed, "?#"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.HasSuffix(strings.ToLower(trimmed), ".xlsx")
}
