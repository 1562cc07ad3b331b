package simulation

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"gonum.org/v1/gonum/floats"

	apperrors "cellprep/internal/errors"
	"cellprep/internal/infrastructure"
)

// InvalidParameterMarker is carried by a StateResult for an unknown state.
const InvalidParameterMarker = "simulation parameter not valid"

// ResultKind tags a StateResult.
type ResultKind int

const (
	Valid ResultKind = iota
	InvalidParameter
)

func (k ResultKind) String() string {
	if k == InvalidParameter {
		return "invalid_parameter"
	}
	return "valid"
}

// StateResult is the outcome of a state selection. Tables is set only for
// Valid results; Marker only for InvalidParameter.
type StateResult struct {
	Kind   ResultKind
	Tables Tables
	Marker string
}

// Extractor turns run files into compartment tables.
type Extractor struct {
	loader   Loader
	logger   *slog.Logger
	observer *infrastructure.Observer
}

// NewExtractor creates an extractor reading runs through loader.
func NewExtractor(loader Loader, logger *slog.Logger, observer *infrastructure.Observer) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = infrastructure.NopObserver()
	}
	return &Extractor{
		loader:   loader,
		logger:   infrastructure.WithComponent(logger, "simulation"),
		observer: observer,
	}
}

// RawData loads path and returns every compartment's entries at frame.
// With ignoreNull, entries whose count is not positive are dropped,
// independently per compartment. Frames count from zero; a negative frame
// is INDEX_OUT_OF_RANGE and does not count back from the last frame.
func (x *Extractor) RawData(ctx context.Context, path string, frame int, ignoreNull bool) (tables Tables, err error) {
	ctx, end := x.observer.Stage(ctx, "extract",
		attribute.String("path", path),
		attribute.Int("frame", frame),
		attribute.Bool("ignore_null", ignoreNull))
	defer func() { end(err) }()

	if err := ctx.Err(); err != nil {
		return Tables{}, err
	}

	ds, err := x.loader.Load(ctx, path)
	if err != nil {
		return Tables{}, err
	}

	tables, err = BuildTables(ds, frame, ignoreNull)
	if err != nil {
		return Tables{}, err
	}

	for _, c := range Compartments() {
		x.observer.Metrics().AddEntries(ctx, len(tables[c]), c.String())
	}

	x.logger.DebugContext(ctx, "Extracted compartment tables",
		slog.String("path", path),
		slog.Int("frame", frame),
		slog.Bool("ignore_null", ignoreNull),
		slog.Int("entries", tables.Len()))

	return tables, nil
}

// BuildTables slices ds at frame into per compartment tables.
func BuildTables(ds *Dataset, frame int, ignoreNull bool) (Tables, error) {
	if frame < 0 || frame >= ds.Frames {
		return Tables{}, apperrors.NewIndexOutOfRangeError("frame", frame, ds.Frames)
	}

	var tables Tables
	counts := make([]float64, ds.Entities())

	for _, c := range Compartments() {
		for e := range counts {
			counts[e] = ds.Count(e, c, frame)
		}

		if ignoreNull {
			keep, _ := floats.Find(nil, func(v float64) bool { return v > 0 }, counts, -1)
			table := make(Table, 0, len(keep))
			for _, e := range keep {
				table = append(table, Entry{Name: ds.Labels[e], Count: counts[e]})
			}
			tables[c] = table
			continue
		}

		table := make(Table, len(counts))
		for e, v := range counts {
			table[e] = Entry{Name: ds.Labels[e], Count: v}
		}
		tables[c] = table
	}

	return tables, nil
}

// Compartment returns one compartment's entries.
func (x *Extractor) Compartment(ctx context.Context, c Compartment, path string, frame int, ignoreNull bool) (Table, error) {
	if !c.Valid() {
		return nil, apperrors.NewIndexOutOfRangeError("compartment", int(c), NumCompartments)
	}
	tables, err := x.RawData(ctx, path, frame, ignoreNull)
	if err != nil {
		return nil, err
	}
	return tables[c], nil
}

// Cytosol returns the cytosol entries.
func (x *Extractor) Cytosol(ctx context.Context, path string, frame int, ignoreNull bool) (Table, error) {
	return x.Compartment(ctx, Cytosol, path, frame, ignoreNull)
}

// DNA returns the entries bound to DNA.
func (x *Extractor) DNA(ctx context.Context, path string, frame int, ignoreNull bool) (Table, error) {
	return x.Compartment(ctx, DNA, path, frame, ignoreNull)
}

// ExtracellularSpace returns the extracellular space entries.
func (x *Extractor) ExtracellularSpace(ctx context.Context, path string, frame int, ignoreNull bool) (Table, error) {
	return x.Compartment(ctx, ExtracellularSpace, path, frame, ignoreNull)
}

// Membrane returns the membrane entries.
func (x *Extractor) Membrane(ctx context.Context, path string, frame int, ignoreNull bool) (Table, error) {
	return x.Compartment(ctx, Membrane, path, frame, ignoreNull)
}

// TerminalOrganelleCytosol returns the terminal organelle cytosol entries.
func (x *Extractor) TerminalOrganelleCytosol(ctx context.Context, path string, frame int, ignoreNull bool) (Table, error) {
	return x.Compartment(ctx, TerminalOrganelleCytosol, path, frame, ignoreNull)
}

// TerminalOrganelleMembrane returns the terminal organelle membrane entries.
func (x *Extractor) TerminalOrganelleMembrane(ctx context.Context, path string, frame int, ignoreNull bool) (Table, error) {
	return x.Compartment(ctx, TerminalOrganelleMembrane, path, frame, ignoreNull)
}

// Simulation returns the block of entries belonging to state in every
// compartment. An unknown state is reported in the result, not as an
// error, and path is not read.
func (x *Extractor) Simulation(ctx context.Context, path string, frame int, ignoreNull bool, state State) (StateResult, error) {
	if !state.Valid() {
		x.logger.WarnContext(ctx, "Unknown simulation state",
			slog.Int("state", int(state)))
		return StateResult{Kind: InvalidParameter, Marker: InvalidParameterMarker}, nil
	}

	tables, err := x.RawData(ctx, path, frame, ignoreNull)
	if err != nil {
		return StateResult{}, err
	}

	return StateResult{Kind: Valid, Tables: SliceState(tables, state)}, nil
}

// SliceState keeps the entries of state in each table, clamped to the
// table length.
func SliceState(tables Tables, state State) Tables {
	var out Tables
	for c, table := range tables {
		lo := min(state.Offset(), len(table))
		hi := min(lo+ComplexesPerState, len(table))
		out[c] = table[lo:hi:hi]
	}
	return out
}
