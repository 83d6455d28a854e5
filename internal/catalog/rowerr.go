// Package catalog implements the product file importer: decoding tabular
// uploads in several formats, validating and deduplicating rows, applying
// the resulting mutations and producing a human-readable report workbook.
package catalog

import "fmt"

// RowErrorKind classifies what went wrong with one file row.
type RowErrorKind string

const (
	KindMissingName           RowErrorKind = "missing_name"
	KindMissingOrInvalidPrice RowErrorKind = "missing_or_invalid_price"
	KindDuplicateInFile       RowErrorKind = "duplicate_in_file"
	KindAmbiguousBrand        RowErrorKind = "ambiguous_brand"
	KindNotFoundForUpdate     RowErrorKind = "not_found_for_update"
	KindUnexpected            RowErrorKind = "unexpected"
)

// RowError describes one rejected or suspicious row. Row numbers are
// 1-indexed counting the header as row 1, so the first data row is 2.
type RowError struct {
	Row      int
	Kind     RowErrorKind
	Name     string
	Detail   string
	FirstRow int // earlier occurrence, set for duplicates
}

// Code returns the machine-style code printed in the report.
func (e RowError) Code() string {
	switch e.Kind {
	case KindMissingName:
		return "E-01"
	case KindMissingOrInvalidPrice:
		return "E-03"
	case KindDuplicateInFile:
		return "E-04"
	case KindNotFoundForUpdate:
		return "E-05"
	case KindAmbiguousBrand:
		return "E-06"
	default:
		return "E-00"
	}
}

// Message returns the plain-language explanation for the report.
func (e RowError) Message() string {
	switch e.Kind {
	case KindMissingName:
		return "The product name is missing or empty."
	case KindMissingOrInvalidPrice:
		if e.Detail != "" {
			return fmt.Sprintf("The price could not be read: %s.", e.Detail)
		}
		return "The price is missing or could not be read."
	case KindDuplicateInFile:
		return fmt.Sprintf("This product already appears on row %d of the same file.", e.FirstRow)
	case KindAmbiguousBrand:
		return "Another row has the same product name and this one has no brand, so they cannot be told apart."
	case KindNotFoundForUpdate:
		return fmt.Sprintf("No product named %q exists in your catalog, so there is nothing to update.", e.Name)
	default:
		if e.Detail != "" {
			return "Unexpected problem: " + e.Detail + "."
		}
		return "Unexpected problem while processing this row."
	}
}

// Suggestion returns the actionable instruction printed next to the
// explanation.
func (e RowError) Suggestion() string {
	switch e.Kind {
	case KindMissingName:
		return "Fill in the name column for this row and import again."
	case KindMissingOrInvalidPrice:
		return "Use a numeric price such as 12,50 or 1234.56 and import again."
	case KindDuplicateInFile:
		return "Remove one of the duplicated rows, or give them different brands."
	case KindAmbiguousBrand:
		return "Fill in the brand column so equal names can be distinguished."
	case KindNotFoundForUpdate:
		return "Check the spelling against your catalog, or use import mode to create it."
	default:
		return "Fix the row and try again, or contact support with the report attached."
	}
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s %s", e.Row, e.Code(), e.Message())
}
