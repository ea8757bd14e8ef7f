package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

var ErrUnsupportedFile = errors.New("unsupported file format")

const headerMarker = "client name"

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// Row is one data row keyed by the header cell text of its column. Rows from
// ExtractRows hold one key per header, compared without case.
type Row map[string]string

// ReadTable returns the cells of the first sheet of an .xlsx, .xls or .csv
// file. Spreadsheet cells are read unformatted so dates arrive as serials.
func ReadTable(filename string, data []byte) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(filename))) {
	case ".xlsx", ".xlsm":
		return readXLSX(data)
	case ".xls":
		return readXLS(data)
	case ".csv":
		return readCSV(data)
	default:
		return nil, ErrUnsupportedFile
	}
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("xlsx has no sheets")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	return rows, nil
}

func readXLS(data []byte) ([][]string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, errors.New("xls has no sheets")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, errors.New("failed to open first xls sheet")
	}

	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for r := 0; r <= int(sheet.MaxRow); r++ {
		row := sheet.Row(r)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cols := row.LastCol()
		cells := make([]string, cols)
		for i := 0; i < cols; i++ {
			cells[i] = row.Col(i)
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func readCSV(data []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, byteOrderMark)))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	rows := make([][]string, 0, 128)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

// ExtractRows finds the header row (the first row with a cell mentioning
// "Client Name", else row 0) and keys every later row by it. Rows above the
// header and rows with no values are dropped.
func ExtractRows(table [][]string) []Row {
	if len(table) == 0 {
		return nil
	}

	headerIndex := findHeaderRow(table)
	header := canonicalHeaders(table[headerIndex])

	rows := make([]Row, 0, len(table)-headerIndex-1)
	for _, cells := range table[headerIndex+1:] {
		row := make(Row, len(header))
		empty := true
		for i, key := range header {
			if key == "" || i >= len(cells) {
				continue
			}
			value := strings.TrimSpace(cells[i])
			if value != "" {
				empty = false
			}
			if row[key] == "" {
				row[key] = value
			}
		}
		if empty {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// canonicalHeaders trims the header cells and spells every repeat of a
// header, compared without case, the way its leftmost column does.
func canonicalHeaders(cells []string) []string {
	header := make([]string, len(cells))
	seen := make(map[string]string, len(cells))
	for i, cell := range cells {
		key := strings.TrimSpace(cell)
		folded := strings.ToLower(key)
		if first, ok := seen[folded]; ok {
			key = first
		} else {
			seen[folded] = key
		}
		header[i] = key
	}
	return header
}

func findHeaderRow(table [][]string) int {
	for i, cells := range table {
		for _, cell := range cells {
			normalized := strings.ToLower(strings.TrimSpace(cell))
			if normalized == headerMarker || strings.Contains(normalized, headerMarker) {
				return i
			}
		}
	}
	return 0
}

// Get returns the first non-empty value among keys, matching header text
// exactly first and then case-insensitively. Case-insensitive matches are
// tried in sorted header order.
func (r Row) Get(keys ...string) string {
	headers := make([]string, 0, len(r))
	for header := range r {
		headers = append(headers, header)
	}
	sort.Strings(headers)

	for _, key := range keys {
		if value := strings.TrimSpace(r[key]); value != "" {
			return value
		}
		for _, header := range headers {
			value := strings.TrimSpace(r[header])
			if value != "" && strings.EqualFold(strings.TrimSpace(header), key) {
				return value
			}
		}
	}
	return ""
}
