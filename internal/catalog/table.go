package catalog

import (
	"strings"

	"github.com/pricescout/pricescout/internal/shared"
)

// Table is the format-independent result of decoding an upload: a header
// of normalized column names and the data rows in file order.
type Table struct {
	Columns []string
	Rows    []Row
}

// Row maps normalized column names to raw cell text.
type Row map[string]string

// fieldAliases maps the column names accepted in uploads onto canonical
// field identifiers. Both Portuguese and English headers are common in
// merchant files.
var fieldAliases = map[string]string{
	"nome":        "name",
	"name":        "name",
	"produto":     "name",
	"marca":       "brand",
	"brand":       "brand",
	"preco":       "price",
	"price":       "price",
	"valor":       "price",
	"unidade":     "unit",
	"unit":        "unit",
	"categoria":   "category",
	"category":    "category",
	"descricao":   "description",
	"description": "description",
	"imagem":      "image",
	"image":       "image",
}

// NormalizeColumn lowers a header cell into a column key: accents
// stripped, lower-cased, internal whitespace collapsed to underscores.
func NormalizeColumn(s string) string {
	folded := shared.Fold(s)
	return strings.Join(strings.Fields(folded), "_")
}

// Field reads a cell by canonical field name, resolving header aliases.
func (r Row) Field(canonical string) string {
	for alias, target := range fieldAliases {
		if target != canonical {
			continue
		}
		if v, ok := r[alias]; ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// Key builds the deduplication key for a row: normalized (name, brand).
func dedupKey(name, brand string) string {
	return shared.Fold(name) + "\x00" + shared.Fold(brand)
}
