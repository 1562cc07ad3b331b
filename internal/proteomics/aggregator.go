package proteomics

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gonum.org/v1/gonum/floats"

	apperrors "cellprep/internal/errors"
	"cellprep/internal/infrastructure"
)

// Totals holds the per-sample sums of each channel.
type Totals struct {
	Intensity []float64 `json:"intensity"`
	IBAQ      []float64 `json:"ibaq"`
	LFQ       []float64 `json:"lfq"`
}

// NewTotals returns zeroed totals.
func NewTotals() Totals {
	return Totals{
		Intensity: make([]float64, SamplesPerGroup),
		IBAQ:      make([]float64, SamplesPerGroup),
		LFQ:       make([]float64, SamplesPerGroup),
	}
}

// Channel returns the vector for Groups[i].
func (t Totals) Channel(i int) []float64 {
	switch i {
	case 0:
		return t.Intensity
	case 1:
		return t.IBAQ
	case 2:
		return t.LFQ
	}
	return nil
}

// Report is the outcome of one aggregation run.
//
// MoleculeCounts, AverageMolecules, MolecularWeights and Names are part of
// the recipe format but nothing fills them yet.
type Report struct {
	Source string       `json:"source,omitempty"`
	Rows   int          `json:"rows"`
	Totals Totals       `json:"totals"`
	Cell   CellEstimate `json:"cell"`

	MoleculeCounts   []float64 `json:"molecule_counts"`
	AverageMolecules []float64 `json:"average_molecules"`
	MolecularWeights []float64 `json:"molecular_weights"`
	Names            []string  `json:"names"`
}

// Aggregator reads proteome spreadsheets.
type Aggregator struct {
	delimiter rune
	cell      CellConstants
	logger    *slog.Logger
	observer  *infrastructure.Observer
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithDelimiter sets the field separator. The default is a comma.
func WithDelimiter(r rune) Option {
	return func(a *Aggregator) { a.delimiter = r }
}

// WithCellConstants replaces the default cell model.
func WithCellConstants(c CellConstants) Option {
	return func(a *Aggregator) { a.cell = c }
}

// WithObserver attaches tracing and metrics.
func WithObserver(o *infrastructure.Observer) Option {
	return func(a *Aggregator) { a.observer = o }
}

// NewAggregator creates an aggregator
func NewAggregator(logger *slog.Logger, opts ...Option) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Aggregator{
		delimiter: ',',
		cell:      DefaultCellConstants(),
		logger:    infrastructure.WithComponent(logger, "proteomics"),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.observer == nil {
		a.observer = infrastructure.NopObserver()
	}
	return a
}

// AggregateFile opens path and aggregates it.
func (a *Aggregator) AggregateFile(ctx context.Context, path string) (*Report, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, apperrors.NewNotFoundError(path, err)
	}
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to open %s", path), err)
	}
	defer file.Close()

	report, err := a.Aggregate(ctx, file)
	if err != nil {
		return nil, err
	}
	report.Source = path
	return report, nil
}

// Aggregate sums every channel column over all data rows of r.
func (a *Aggregator) Aggregate(ctx context.Context, r io.Reader) (report *Report, err error) {
	ctx, end := a.observer.Stage(ctx, "aggregate")
	defer func() { end(err) }()

	reader := csv.NewReader(r)
	reader.Comma = a.delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	totals := NewTotals()
	row := make([]float64, SamplesPerGroup)
	rows := 0

	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read row %d", index), err)
		}
		if index == 0 {
			continue
		}

		for g, group := range Groups {
			if err := readGroup(record, index, group, row); err != nil {
				return nil, err
			}
			floats.Add(totals.Channel(g), row)
		}
		rows++
	}

	a.observer.Metrics().AddRows(ctx, rows)

	report = &Report{
		Rows:             rows,
		Totals:           totals,
		Cell:             DeriveCell(a.cell),
		MoleculeCounts:   []float64{},
		AverageMolecules: []float64{},
		MolecularWeights: []float64{},
		Names:            []string{},
	}

	a.logger.InfoContext(ctx, "Proteome aggregated",
		slog.Int("rows", rows),
		slog.Any("totals", report.Totals),
		slog.Any("cell", report.Cell))

	return report, nil
}

// readGroup parses the sample columns of group from record into dst.
func readGroup(record []string, index int, group ColumnGroup, dst []float64) error {
	for j := range dst {
		col := group.Offset + j
		if col >= len(record) {
			return apperrors.NewIndexOutOfRangeError(fmt.Sprintf("row %d column", index), col, len(record)).
				WithContext("row", index).
				WithContext("group", group.Name)
		}
		value, err := ParseIntensity(record[col])
		if err != nil {
			if appErr, ok := err.(*apperrors.AppError); ok {
				appErr.WithContext("row", index).WithContext("column", col)
			}
			return err
		}
		dst[j] = value
	}
	return nil
}
