package exporter

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"

	apperrors "cellprep/internal/errors"
	"cellprep/internal/files"
	"cellprep/internal/infrastructure"
	"cellprep/internal/proteomics"
)

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	files    *files.Manager
	logger   *slog.Logger
	observer *infrastructure.Observer
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(fm *files.Manager, logger *slog.Logger, observer *infrastructure.Observer) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = infrastructure.NopObserver()
	}
	return &CSVWriter{
		files:    fm,
		logger:   infrastructure.WithComponent(logger, "exporter"),
		observer: observer,
	}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to a CSV file with the given options. The file is
// replaced atomically.
func (w *CSVWriter) WriteCSV(ctx context.Context, filePath string, options WriteOptions) error {
	w.logger.InfoContext(ctx, "Writing CSV file",
		slog.String("file_path", filePath),
		slog.String("full_path", w.files.Resolve(filePath)),
		slog.Int("record_count", len(options.Records)))

	err := w.files.WriteAtomic(filePath, func(out io.Writer) error {
		// Write BOM if requested (helps Excel recognize UTF-8)
		if options.BOMPrefix {
			if _, err := out.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
				return fmt.Errorf("failed to write BOM: %w", err)
			}
		}

		writer := csv.NewWriter(out)

		if len(options.Headers) > 0 {
			if err := writer.Write(options.Headers); err != nil {
				return fmt.Errorf("failed to write headers: %w", err)
			}
		}

		for i, record := range options.Records {
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("failed to write record %d: %w", i, err)
			}
		}

		writer.Flush()
		return writer.Error()
	})
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to write %s", filePath), err)
	}

	w.observer.Metrics().AddFile(ctx, "csv")
	return nil
}

// WriteSimpleCSV writes a simple CSV file with headers and records
func (w *CSVWriter) WriteSimpleCSV(ctx context.Context, filePath string, headers []string, records [][]string) error {
	return w.WriteCSV(ctx, filePath, WriteOptions{
		Headers:   headers,
		Records:   records,
		BOMPrefix: true,
	})
}

// TotalsHeaders is the header row of a totals file.
var TotalsHeaders = []string{"channel", "sample", "total"}

// TotalsRecords flattens totals to one record per channel and sample.
func TotalsRecords(t proteomics.Totals) [][]string {
	records := make([][]string, 0, len(proteomics.Groups)*proteomics.SamplesPerGroup)
	for g, group := range proteomics.Groups {
		for j, v := range t.Channel(g) {
			records = append(records, []string{group.Name, formatInt(j), formatFloat(v)})
		}
	}
	return records
}

// WriteTotals writes the channel totals of report to filePath.
func (w *CSVWriter) WriteTotals(ctx context.Context, filePath string, report *proteomics.Report) (err error) {
	ctx, end := w.observer.Stage(ctx, "write_totals")
	defer func() { end(err) }()

	return w.WriteSimpleCSV(ctx, filePath, TotalsHeaders, TotalsRecords(report.Totals))
}
