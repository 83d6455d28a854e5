package catalog

import (
	"fmt"

	"github.com/360EntSecGroup-Skylar/excelize/v2"
)

var headerStyleJSON = `
{
	"border": [
		{"type": "left", "color": "#000000", "style": 1},
		{"type": "top", "color": "#000000", "style": 1},
		{"type": "right", "color": "#000000", "style": 1},
		{"type": "bottom", "color": "#000000", "style": 1}
	],
	"fill": {"type": "pattern", "pattern": 1, "color": ["#96b753"]},
	"font": {"bold": true},
	"alignment": {"shrink_to_fit": true, "horizontal": "center"}
}
`

var errorHeaderStyleJSON = `
{
	"border": [
		{"type": "left", "color": "#000000", "style": 1},
		{"type": "top", "color": "#000000", "style": 1},
		{"type": "right", "color": "#000000", "style": 1},
		{"type": "bottom", "color": "#000000", "style": 1}
	],
	"fill": {"type": "pattern", "pattern": 1, "color": ["#d9534f"]},
	"font": {"bold": true, "color": "#ffffff"},
	"alignment": {"shrink_to_fit": true, "horizontal": "center"}
}
`

var dataStyleJSON = `
{
	"border": [
		{"type": "left", "color": "#000000", "style": 1},
		{"type": "top", "color": "#000000", "style": 1},
		{"type": "right", "color": "#000000", "style": 1},
		{"type": "bottom", "color": "#000000", "style": 1}
	],
	"alignment": {"shrink_to_fit": true}
}
`

// reportTips are printed on the last sheet of every report.
var reportTips = []string{
	"Accepted file formats: CSV, XLSX, XLS, ODS, JSON, XML and TXT.",
	"The first row must name the columns. Recognized names include nome/name, marca/brand, preco/price, categoria/category, descricao/description, imagem/image and unidade/unit.",
	"Prices accept both 1.234,56 and 1,234.56. Currency symbols are ignored.",
	"A product is identified by its name plus brand. Fill in the brand when two products share a name.",
	"Update mode matches rows to your existing catalog by product name and never creates new products.",
	"Row numbers in this report count the header as row 1.",
}

// BuildReport renders the import outcome as a human-facing workbook: a
// summary, the per-row error table with explanation, fix and code, the
// success table, duplicate collisions side by side (import mode) and a
// tips sheet.
func BuildReport(outcome *Outcome) (*excelize.File, error) {
	f := excelize.NewFile()

	headerStyle, err := f.NewStyle(headerStyleJSON)
	if err != nil {
		return nil, fmt.Errorf("catalog: report style: %w", err)
	}
	errorHeaderStyle, err := f.NewStyle(errorHeaderStyleJSON)
	if err != nil {
		return nil, fmt.Errorf("catalog: report style: %w", err)
	}
	dataStyle, err := f.NewStyle(dataStyleJSON)
	if err != nil {
		return nil, fmt.Errorf("catalog: report style: %w", err)
	}

	if err := writeSummarySheet(f, outcome, headerStyle, dataStyle); err != nil {
		return nil, err
	}
	if err := writeErrorSheet(f, outcome, errorHeaderStyle, dataStyle); err != nil {
		return nil, err
	}
	if err := writeSuccessSheet(f, outcome, headerStyle, dataStyle); err != nil {
		return nil, err
	}
	if outcome.Mode != ModeUpdate {
		if err := writeDuplicateSheet(f, outcome, errorHeaderStyle, dataStyle); err != nil {
			return nil, err
		}
	}
	if err := writeTipsSheet(f, headerStyle, dataStyle); err != nil {
		return nil, err
	}

	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(f.GetSheetIndex("Summary"))
	return f, nil
}

// writeSheet streams a header row plus data rows into a fresh sheet.
func writeSheet(f *excelize.File, name string, widths float64, headerStyle, dataStyle int, header []string, rows [][]interface{}) error {
	f.NewSheet(name)
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return fmt.Errorf("catalog: report sheet %s: %w", name, err)
	}
	if err := f.SetColWidth(name, "A", lastCol, widths); err != nil {
		return fmt.Errorf("catalog: report sheet %s: %w", name, err)
	}

	sw, err := f.NewStreamWriter(name)
	if err != nil {
		return fmt.Errorf("catalog: report sheet %s: %w", name, err)
	}
	headerCells := make([]interface{}, len(header))
	for i, h := range header {
		headerCells[i] = excelize.Cell{StyleID: headerStyle, Value: h}
	}
	if err := sw.SetRow("A1", headerCells); err != nil {
		return fmt.Errorf("catalog: report sheet %s: %w", name, err)
	}
	for n, row := range rows {
		cells := make([]interface{}, len(row))
		for i, v := range row {
			cells[i] = excelize.Cell{StyleID: dataStyle, Value: v}
		}
		cell, _ := excelize.CoordinatesToCellName(1, n+2)
		if err := sw.SetRow(cell, cells); err != nil {
			return fmt.Errorf("catalog: report sheet %s: %w", name, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("catalog: report sheet %s: %w", name, err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, outcome *Outcome, headerStyle, dataStyle int) error {
	action := "Imported"
	if outcome.Mode == ModeUpdate {
		action = "Updated"
	}
	rows := [][]interface{}{
		{"File", outcome.FileName},
		{"Mode", string(outcome.Mode)},
		{"Processed at", outcome.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"Rows in file", outcome.TotalRows},
		{action, len(outcome.Succeeded)},
		{"Errors", len(outcome.Errors)},
		{"Warnings", len(outcome.Warnings)},
	}
	return writeSheet(f, "Summary", 30, headerStyle, dataStyle, []string{"Field", "Value"}, rows)
}

func writeErrorSheet(f *excelize.File, outcome *Outcome, headerStyle, dataStyle int) error {
	header := []string{"Row", "Product", "Problem", "How to fix", "Code"}
	rows := make([][]interface{}, 0, len(outcome.Errors)+len(outcome.Warnings))
	for _, e := range outcome.Errors {
		rows = append(rows, []interface{}{e.Row, e.Name, e.Message(), e.Suggestion(), e.Code()})
	}
	for _, w := range outcome.Warnings {
		rows = append(rows, []interface{}{w.Row, w.Name, "Warning: " + w.Message(), w.Suggestion(), w.Code()})
	}
	return writeSheet(f, "Errors", 45, headerStyle, dataStyle, header, rows)
}

func writeSuccessSheet(f *excelize.File, outcome *Outcome, headerStyle, dataStyle int) error {
	name := "Imported"
	if outcome.Mode == ModeUpdate {
		name = "Updated"
	}
	header := []string{"Row", "Name", "Brand", "Price", "Unit", "Category"}
	rows := make([][]interface{}, 0, len(outcome.Succeeded))
	for _, s := range outcome.Succeeded {
		price := s.Price.StringFixed(2)
		if s.PriceUnchanged {
			price = "unchanged"
		}
		rows = append(rows, []interface{}{s.Row, s.Name, s.Brand, price, s.Unit, s.Category})
	}
	return writeSheet(f, name, 25, headerStyle, dataStyle, header, rows)
}

func writeDuplicateSheet(f *excelize.File, outcome *Outcome, headerStyle, dataStyle int) error {
	header := []string{"Kept row", "Kept values", "Rejected row", "Rejected values"}
	rows := make([][]interface{}, 0, len(outcome.Duplicates))
	for _, d := range outcome.Duplicates {
		rows = append(rows, []interface{}{d.FirstRow, flattenRow(d.First), d.SecondRow, flattenRow(d.Second)})
	}
	return writeSheet(f, "Duplicates", 50, headerStyle, dataStyle, header, rows)
}

func writeTipsSheet(f *excelize.File, headerStyle, dataStyle int) error {
	rows := make([][]interface{}, 0, len(reportTips))
	for i, tip := range reportTips {
		rows = append(rows, []interface{}{i + 1, tip})
	}
	return writeSheet(f, "Tips", 80, headerStyle, dataStyle, []string{"#", "Tip"}, rows)
}

func flattenRow(row Row) string {
	out := ""
	for _, field := range []string{"name", "brand", "price", "unit", "category", "description", "image"} {
		if v := row.Field(field); v != "" {
			if out != "" {
				out += " | "
			}
			out += field + ": " + v
		}
	}
	return out
}
