package exporter

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"cellprep/internal/config"
	apperrors "cellprep/internal/errors"
	"cellprep/internal/files"
	"cellprep/internal/infrastructure"
	"cellprep/internal/simulation"
)

// Workbook writes compartment tables to spreadsheet workbooks, one sheet
// per compartment.
type Workbook struct {
	files       *files.Manager
	extension   string
	scratchCopy bool
	workers     int
	logger      *slog.Logger
	observer    *infrastructure.Observer
}

// NewWorkbook creates a workbook exporter writing below fm's base directory
func NewWorkbook(fm *files.Manager, cfg config.ExportConfig, logger *slog.Logger, observer *infrastructure.Observer) *Workbook {
	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = infrastructure.NopObserver()
	}
	ext := cfg.Extension
	if ext == "" {
		ext = ".xls"
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Workbook{
		files:       fm,
		extension:   ext,
		scratchCopy: cfg.ScratchCopy,
		workers:     workers,
		logger:      infrastructure.WithComponent(logger, "exporter"),
		observer:    observer,
	}
}

// Export writes one run's tables to <name><ext>, entry names in column A and
// counts in column B. It returns the written path.
func (w *Workbook) Export(ctx context.Context, tables simulation.Tables, name string) (path string, err error) {
	ctx, end := w.observer.Stage(ctx, "export", attribute.String("name", name))
	defer func() { end(err) }()

	if name == "" {
		return "", apperrors.NewValidationError("workbook name is empty")
	}

	f, err := newCompartmentFile()
	if err != nil {
		return "", err
	}
	defer f.Close()

	for _, c := range simulation.Compartments() {
		sheet := c.SheetName()
		for row, entry := range tables[c] {
			if err := setCell(f, sheet, 0, row, entry.Name); err != nil {
				return "", err
			}
			if err := setCell(f, sheet, 1, row, entry.Count); err != nil {
				return "", err
			}
		}
	}

	path, err = w.save(ctx, f, name)
	if err != nil {
		return "", err
	}

	w.logger.InfoContext(ctx, "Workbook exported",
		slog.String("path", path),
		slog.Int("entries", tables.Len()))

	return path, nil
}

// Merge reads the first count runs of paths and writes them side by side:
// names from the first run in column A, run x's counts in column x+1
// (zero-based). It returns the written path.
func (w *Workbook) Merge(ctx context.Context, loader simulation.Loader, paths []string, count int, name string, frame int, ignoreNull bool) (path string, err error) {
	ctx, end := w.observer.Stage(ctx, "merge",
		attribute.String("name", name),
		attribute.Int("runs", count))
	defer func() { end(err) }()

	if count < 1 || count > len(paths) {
		return "", apperrors.NewValidationError(
			fmt.Sprintf("run count %d outside [1, %d]", count, len(paths)))
	}
	if name == "" {
		return "", apperrors.NewValidationError("workbook name is empty")
	}

	runs, err := w.loadRuns(ctx, loader, paths[:count], frame, ignoreNull)
	if err != nil {
		return "", err
	}

	f, err := newCompartmentFile()
	if err != nil {
		return "", err
	}
	defer f.Close()

	for _, c := range simulation.Compartments() {
		sheet := c.SheetName()
		for x, run := range runs {
			for row, entry := range run[c] {
				if err := setCell(f, sheet, 1*x+1, row, entry.Count); err != nil {
					return "", err
				}
			}
		}
		for row, entry := range runs[0][c] {
			if err := setCell(f, sheet, 0, row, entry.Name); err != nil {
				return "", err
			}
		}
	}

	path, err = w.save(ctx, f, name)
	if err != nil {
		return "", err
	}

	w.logger.InfoContext(ctx, "Runs merged",
		slog.String("path", path),
		slog.Int("runs", count))

	return path, nil
}

// loadRuns extracts every path, at most w.workers at a time. Results keep
// the order of paths.
func (w *Workbook) loadRuns(ctx context.Context, loader simulation.Loader, paths []string, frame int, ignoreNull bool) ([]simulation.Tables, error) {
	extractor := simulation.NewExtractor(loader, w.logger, w.observer)
	runs := make([]simulation.Tables, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.workers)

	for i, p := range paths {
		g.Go(func() error {
			tables, err := extractor.RawData(gctx, p, frame, ignoreNull)
			if err != nil {
				return err
			}
			runs[i] = tables
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return runs, nil
}

// save writes f to <name><ext> and, when configured, a discarded scratch copy.
func (w *Workbook) save(ctx context.Context, f *excelize.File, name string) (string, error) {
	target := name + w.extension
	write := func(out io.Writer) error {
		_, err := f.WriteTo(out)
		return err
	}

	if err := w.files.WriteAtomic(target, write); err != nil {
		return "", apperrors.NewStorageError(fmt.Sprintf("failed to save workbook %s", target), err)
	}
	if w.scratchCopy {
		if err := w.files.WriteScratch(write); err != nil {
			return "", apperrors.NewStorageError("failed to write scratch workbook", err)
		}
	}

	w.observer.Metrics().AddSheets(ctx, simulation.NumCompartments)
	w.observer.Metrics().AddFile(ctx, "workbook")

	return w.files.Resolve(target), nil
}

// newCompartmentFile creates a workbook holding the compartment sheets in
// order.
func newCompartmentFile() (*excelize.File, error) {
	f := excelize.NewFile()
	compartments := simulation.Compartments()

	if err := f.SetSheetName(f.GetSheetName(0), compartments[0].SheetName()); err != nil {
		f.Close()
		return nil, apperrors.NewStorageError("failed to name sheet", err)
	}
	for _, c := range compartments[1:] {
		if _, err := f.NewSheet(c.SheetName()); err != nil {
			f.Close()
			return nil, apperrors.NewStorageError(fmt.Sprintf("failed to add sheet %s", c.SheetName()), err)
		}
	}
	return f, nil
}

// setCell writes value at zero-based (col, row).
func setCell(f *excelize.File, sheet string, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("invalid cell (%d, %d)", col, row), err)
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to write %s!%s", sheet, cell), err)
	}
	return nil
}
