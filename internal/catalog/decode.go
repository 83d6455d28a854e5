package catalog

import (
	"archive/zip"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/360EntSecGroup-Skylar/excelize/v2"
	"github.com/extrame/xls"
	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/pricescout/pricescout/internal/platform/httpx"
)

// delimiters tried in order for delimited text uploads. The first one
// producing more than one column wins.
var delimiters = []rune{';', ',', '\t', '|'}

// maxSpreadsheetRows bounds how many rows are read from binary
// spreadsheets so a corrupt file cannot balloon memory.
const maxSpreadsheetRows = 100000

// DecodeFile reads an uploaded catalog file into a Table, dispatching on
// the file extension. Failures wrap httpx.ErrUnreadableFile so callers
// can distinguish a broken file from row-level problems.
func DecodeFile(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return decodeDelimited(path)
	case ".xlsx":
		return decodeXLSX(path)
	case ".xls":
		return decodeXLS(path)
	case ".ods":
		return decodeODS(path)
	case ".json":
		return decodeJSON(path)
	case ".xml":
		return decodeXML(path)
	default:
		return nil, fmt.Errorf("%w: unsupported extension %q", httpx.ErrUnreadableFile, filepath.Ext(path))
	}
}

func decodeDelimited(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrUnreadableFile, err)
	}
	text := decodeCharset(data)
	text = strings.TrimPrefix(text, "\ufeff")

	for _, delim := range delimiters {
		reader := csv.NewReader(strings.NewReader(text))
		reader.Comma = delim
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1
		records, err := reader.ReadAll()
		if err != nil || len(records) == 0 {
			continue
		}
		if len(records[0]) > 1 {
			return buildTable(records), nil
		}
	}

	// No delimiter produced more than one column. Treat every line as a
	// single-column record so a plain name list still imports.
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	records := make([][]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		records = append(records, []string{line})
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: file is empty", httpx.ErrUnreadableFile)
	}
	return buildTable(records), nil
}

// decodeCharset converts text bytes to UTF-8 using a byte-frequency
// charset guess, falling back to the raw bytes.
func decodeCharset(data []byte) string {
	result, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil || result == nil {
		return string(data)
	}
	enc, err := htmlindex.Get(strings.ToLower(result.Charset))
	if err != nil || enc == nil {
		return string(data)
	}
	decoded, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(decoded)
}

func decodeXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrUnreadableFile, err)
	}
	sheet := firstSheet(f)
	if sheet == "" {
		return nil, fmt.Errorf("%w: workbook has no sheets", httpx.ErrUnreadableFile)
	}
	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrUnreadableFile, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: sheet %q is empty", httpx.ErrUnreadableFile, sheet)
	}
	return buildTable(records), nil
}

func firstSheet(f *excelize.File) string {
	sheets := f.GetSheetMap()
	lowest := -1
	for idx := range sheets {
		if lowest == -1 || idx < lowest {
			lowest = idx
		}
	}
	if lowest == -1 {
		return ""
	}
	return sheets[lowest]
}

func decodeXLS(path string) (*Table, error) {
	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrUnreadableFile, err)
	}
	records := wb.ReadAllCells(maxSpreadsheetRows)
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: workbook is empty", httpx.ErrUnreadableFile)
	}
	return buildTable(records), nil
}

// ODS content.xml structure, matched by local element names.
type odsContent struct {
	Tables []odsSheet `xml:"body>spreadsheet>table"`
}

type odsSheet struct {
	Rows []odsRow `xml:"table-row"`
}

type odsRow struct {
	Cells []odsCell `xml:"table-cell"`
}

type odsCell struct {
	Repeated int      `xml:"number-columns-repeated,attr"`
	Text     []string `xml:"p"`
}

func decodeODS(path string) (*Table, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrUnreadableFile, err)
	}
	defer archive.Close()

	var content *odsContent
	for _, entry := range archive.File {
		if entry.Name != "content.xml" {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", httpx.ErrUnreadableFile, err)
		}
		var parsed odsContent
		err = xml.NewDecoder(rc).Decode(&parsed)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", httpx.ErrUnreadableFile, err)
		}
		content = &parsed
		break
	}
	if content == nil || len(content.Tables) == 0 {
		return nil, fmt.Errorf("%w: no spreadsheet content", httpx.ErrUnreadableFile)
	}

	var records [][]string
	for _, row := range content.Tables[0].Rows {
		var cells []string
		for _, cell := range row.Cells {
			value := strings.Join(cell.Text, "\n")
			repeat := cell.Repeated
			if repeat <= 0 {
				repeat = 1
			}
			// Trailing empty cells repeat to the sheet width; cap them.
			if value == "" && repeat > 1 {
				repeat = 1
			}
			for i := 0; i < repeat; i++ {
				cells = append(cells, value)
			}
		}
		records = append(records, cells)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: sheet is empty", httpx.ErrUnreadableFile)
	}
	return buildTable(records), nil
}

func decodeJSON(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrUnreadableFile, err)
	}
	defer f.Close()

	decoder := json.NewDecoder(f)
	decoder.UseNumber()
	var items []map[string]any
	if err := decoder.Decode(&items); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrUnreadableFile, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no records", httpx.ErrUnreadableFile)
	}

	table := &Table{}
	seen := make(map[string]bool)
	for _, item := range items {
		row := make(Row, len(item))
		for key, value := range item {
			col := NormalizeColumn(key)
			if col == "" {
				continue
			}
			if !seen[col] {
				seen[col] = true
				table.Columns = append(table.Columns, col)
			}
			row[col] = jsonScalar(value)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func jsonScalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(data)
	}
}

// xmlNode is a minimal DOM for record-shaped XML: the root's children are
// records, their children are fields.
type xmlNode struct {
	XMLName xml.Name
	Nodes   []xmlNode `xml:",any"`
	Text    string    `xml:",chardata"`
}

func decodeXML(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrUnreadableFile, err)
	}
	defer f.Close()

	var root xmlNode
	if err := xml.NewDecoder(io.LimitReader(f, 64<<20)).Decode(&root); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrUnreadableFile, err)
	}
	if len(root.Nodes) == 0 {
		return nil, fmt.Errorf("%w: no records", httpx.ErrUnreadableFile)
	}

	table := &Table{}
	seen := make(map[string]bool)
	for _, record := range root.Nodes {
		row := make(Row, len(record.Nodes))
		for _, field := range record.Nodes {
			col := NormalizeColumn(field.XMLName.Local)
			if col == "" {
				continue
			}
			if !seen[col] {
				seen[col] = true
				table.Columns = append(table.Columns, col)
			}
			row[col] = strings.TrimSpace(field.Text)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// buildTable turns raw records into a Table: the first record is the
// header, normalized into column keys; blank rows are dropped.
func buildTable(records [][]string) *Table {
	table := &Table{}
	header := records[0]
	for i, cell := range header {
		col := NormalizeColumn(cell)
		if col == "" {
			col = fmt.Sprintf("col_%d", i+1)
		}
		table.Columns = append(table.Columns, col)
	}

	for _, record := range records[1:] {
		row := make(Row, len(table.Columns))
		empty := true
		for i, col := range table.Columns {
			if i >= len(record) {
				break
			}
			value := strings.TrimSpace(record[i])
			row[col] = value
			if value != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}
