package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/pricescout/pricescout/internal/observability"
	"github.com/pricescout/pricescout/internal/products"
	"github.com/pricescout/pricescout/internal/shared"
)

// Mode selects what the pipeline does with valid rows.
type Mode string

const (
	// ModeImport inserts valid rows as new products.
	ModeImport Mode = "import"
	// ModeUpdate mutates existing products matched by normalized name and
	// never creates new ones.
	ModeUpdate Mode = "update"
)

// validationWorkers bounds the concurrent per-row validation stage.
const validationWorkers = 8

// imageBucket is the blob bucket holding product images.
const imageBucket = "products"

// CatalogStore is the slice of the products module the importer needs.
type CatalogStore interface {
	ListByMerchant(ctx context.Context, merchantID string) ([]products.Product, error)
	InsertBatch(ctx context.Context, items []products.Product) error
	UpdateFields(ctx context.Context, merchantID string, id int64, updates map[string]any) error
}

// ImageStore resolves image references from uploaded files against stored
// blobs.
type ImageStore interface {
	Exists(bucket, key string) bool
	PublicURL(bucket, key string) string
}

// RowSuccess is one row that made it through validation and persistence.
type RowSuccess struct {
	Row            int
	Name           string
	Brand          string
	Unit           string
	Category       string
	Description    string
	ImageKey       string
	Price          decimal.Decimal
	PriceUnchanged bool // update mode kept the previous price
}

// DuplicatePair records a within-file collision for the report, with both
// rows' values side by side.
type DuplicatePair struct {
	FirstRow  int
	SecondRow int
	First     Row
	Second    Row
}

// Outcome is everything the pipeline produced for one upload.
type Outcome struct {
	Mode        Mode
	FileName    string
	GeneratedAt time.Time
	TotalRows   int
	Succeeded   []RowSuccess
	Errors      []RowError
	Warnings    []RowError
	Duplicates  []DuplicatePair
}

// Importer runs the catalog import/update pipeline.
type Importer struct {
	logger  *slog.Logger
	store   CatalogStore
	images  ImageStore
	metrics *observability.Metrics
	now     func() time.Time
}

// NewImporter constructs an Importer.
func NewImporter(logger *slog.Logger, store CatalogStore, images ImageStore, metrics *observability.Metrics) *Importer {
	return &Importer{
		logger:  logger,
		store:   store,
		images:  images,
		metrics: metrics,
		now:     time.Now,
	}
}

// rowResult is the per-row output of the validation stage.
type rowResult struct {
	success *RowSuccess
	err     *RowError
	warning *RowError
}

// Run processes one uploaded file for a merchant. originalName is the
// name the merchant gave the file, used only for reporting. Row-level
// problems are collected into the outcome and never abort the batch; only
// an unreadable file or a store failure returns an error.
func (imp *Importer) Run(ctx context.Context, merchantID, filePath, originalName string, mode Mode) (*Outcome, error) {
	table, err := DecodeFile(filePath)
	if err != nil {
		return nil, err
	}

	if originalName == "" {
		originalName = filepath.Base(filePath)
	}
	outcome := &Outcome{
		Mode:        mode,
		FileName:    originalName,
		GeneratedAt: imp.now(),
		TotalRows:   len(table.Rows),
	}

	// First-occurrence assignment must follow file order exactly, so this
	// pre-pass stays sequential even though validation below is not.
	firstByKey := make(map[string]int)
	keysByName := make(map[string]map[string]bool)
	for i, row := range table.Rows {
		rowNum := i + 2
		name := row.Field("name")
		if name == "" {
			continue
		}
		key := dedupKey(name, row.Field("brand"))
		if _, seen := firstByKey[key]; !seen {
			firstByKey[key] = rowNum
		}
		nameKey := shared.Fold(name)
		if keysByName[nameKey] == nil {
			keysByName[nameKey] = make(map[string]bool)
		}
		keysByName[nameKey][key] = true
	}

	results := make([]rowResult, len(table.Rows))
	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(validationWorkers)
	for i := range table.Rows {
		i := i
		g.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			results[i] = imp.validateRow(merchantID, table.Rows[i], i+2, mode, firstByKey, keysByName)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("catalog: validate rows: %w", err)
	}

	var valid []RowSuccess
	for i, res := range results {
		if res.warning != nil {
			outcome.Warnings = append(outcome.Warnings, *res.warning)
		}
		if res.err != nil {
			outcome.Errors = append(outcome.Errors, *res.err)
			if res.err.Kind == KindDuplicateInFile {
				firstIdx := res.err.FirstRow - 2
				outcome.Duplicates = append(outcome.Duplicates, DuplicatePair{
					FirstRow:  res.err.FirstRow,
					SecondRow: i + 2,
					First:     table.Rows[firstIdx],
					Second:    table.Rows[i],
				})
			}
			continue
		}
		if res.success != nil {
			valid = append(valid, *res.success)
		}
	}

	switch mode {
	case ModeUpdate:
		if err := imp.persistUpdates(ctx, merchantID, valid, outcome); err != nil {
			return nil, err
		}
	default:
		if err := imp.persistInserts(ctx, merchantID, valid, outcome); err != nil {
			return nil, err
		}
	}

	sort.Slice(outcome.Errors, func(a, b int) bool { return outcome.Errors[a].Row < outcome.Errors[b].Row })
	sort.Slice(outcome.Warnings, func(a, b int) bool { return outcome.Warnings[a].Row < outcome.Warnings[b].Row })
	sort.Slice(outcome.Succeeded, func(a, b int) bool { return outcome.Succeeded[a].Row < outcome.Succeeded[b].Row })
	sort.Slice(outcome.Duplicates, func(a, b int) bool { return outcome.Duplicates[a].SecondRow < outcome.Duplicates[b].SecondRow })

	imp.metrics.CountImportRows(string(mode), "succeeded", len(outcome.Succeeded))
	imp.metrics.CountImportRows(string(mode), "error", len(outcome.Errors))
	imp.metrics.CountImportRows(string(mode), "warning", len(outcome.Warnings))

	imp.logger.Info("catalog file processed",
		slog.String("merchant_id", merchantID),
		slog.String("mode", string(mode)),
		slog.String("file", outcome.FileName),
		slog.Int("rows", outcome.TotalRows),
		slog.Int("succeeded", len(outcome.Succeeded)),
		slog.Int("errors", len(outcome.Errors)))
	return outcome, nil
}

func (imp *Importer) validateRow(merchantID string, row Row, rowNum int, mode Mode, firstByKey map[string]int, keysByName map[string]map[string]bool) rowResult {
	name := row.Field("name")
	if name == "" {
		return rowResult{err: &RowError{Row: rowNum, Kind: KindMissingName}}
	}
	brand := row.Field("brand")

	key := dedupKey(name, brand)
	if first := firstByKey[key]; first != rowNum {
		return rowResult{err: &RowError{Row: rowNum, Kind: KindDuplicateInFile, Name: name, FirstRow: first}}
	}
	// A nameless brand cannot be told apart from a same-named row carrying
	// a different brand.
	if brand == "" && len(keysByName[shared.Fold(name)]) > 1 {
		return rowResult{err: &RowError{Row: rowNum, Kind: KindAmbiguousBrand, Name: name}}
	}

	success := RowSuccess{
		Row:         rowNum,
		Name:        name,
		Brand:       brand,
		Unit:        row.Field("unit"),
		Category:    row.Field("category"),
		Description: row.Field("description"),
		ImageKey:    imp.resolveImage(merchantID, row.Field("image")),
	}

	price, err := ParsePrice(row.Field("price"))
	switch {
	case err == nil:
		success.Price = price
	case mode == ModeUpdate:
		success.PriceUnchanged = true
		return rowResult{
			success: &success,
			warning: &RowError{Row: rowNum, Kind: KindMissingOrInvalidPrice, Name: name, Detail: err.Error()},
		}
	default:
		return rowResult{err: &RowError{Row: rowNum, Kind: KindMissingOrInvalidPrice, Name: name, Detail: err.Error()}}
	}
	return rowResult{success: &success}
}

// resolveImage keeps absolute URLs, maps references to stored blobs onto
// their keys and drops everything else so the sentinel placeholder is
// served instead.
func (imp *Importer) resolveImage(merchantID, raw string) string {
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	key := merchantID + "/" + filepath.ToSlash(filepath.Clean(raw))
	if imp.images.Exists(imageBucket, key) {
		return key
	}
	return ""
}

func (imp *Importer) persistInserts(ctx context.Context, merchantID string, valid []RowSuccess, outcome *Outcome) error {
	if len(valid) == 0 {
		return nil
	}
	now := imp.now().UTC()
	items := make([]products.Product, 0, len(valid))
	for _, s := range valid {
		items = append(items, products.Product{
			MerchantID:  merchantID,
			Name:        s.Name,
			Brand:       s.Brand,
			Price:       s.Price.InexactFloat64(),
			Unit:        s.Unit,
			Category:    s.Category,
			Description: s.Description,
			ImageKey:    s.ImageKey,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	if err := imp.store.InsertBatch(ctx, items); err != nil {
		return fmt.Errorf("catalog: insert batch: %w", err)
	}
	outcome.Succeeded = valid
	return nil
}

// persistUpdates matches rows against the existing catalog by normalized
// name. Fields absent from the incoming row keep their previous values,
// and unmatched names are reported rather than created.
func (imp *Importer) persistUpdates(ctx context.Context, merchantID string, valid []RowSuccess, outcome *Outcome) error {
	existing, err := imp.store.ListByMerchant(ctx, merchantID)
	if err != nil {
		return fmt.Errorf("catalog: load catalog: %w", err)
	}
	byName := make(map[string]*products.Product, len(existing))
	for i := range existing {
		nameKey := shared.Fold(existing[i].Name)
		if _, ok := byName[nameKey]; !ok {
			byName[nameKey] = &existing[i]
		}
	}

	for _, s := range valid {
		target, ok := byName[shared.Fold(s.Name)]
		if !ok {
			outcome.Errors = append(outcome.Errors, RowError{Row: s.Row, Kind: KindNotFoundForUpdate, Name: s.Name})
			continue
		}
		updates := make(map[string]any)
		if !s.PriceUnchanged {
			updates["price"] = s.Price.InexactFloat64()
		}
		if s.Brand != "" {
			updates["brand"] = s.Brand
		}
		if s.Unit != "" {
			updates["unit"] = s.Unit
		}
		if s.Category != "" {
			updates["category"] = s.Category
		}
		if s.Description != "" {
			updates["description"] = s.Description
		}
		if s.ImageKey != "" {
			updates["image_key"] = s.ImageKey
		}
		if err := imp.store.UpdateFields(ctx, merchantID, target.ID, updates); err != nil {
			outcome.Errors = append(outcome.Errors, RowError{
				Row: s.Row, Kind: KindUnexpected, Name: s.Name, Detail: err.Error(),
			})
			continue
		}
		outcome.Succeeded = append(outcome.Succeeded, s)
	}
	return nil
}
