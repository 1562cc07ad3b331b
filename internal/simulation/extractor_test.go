package simulation

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "cellprep/internal/errors"
)

// fakeLoader serves one dataset and counts loads.
type fakeLoader struct {
	ds    *Dataset
	err   error
	calls int
}

func (f *fakeLoader) Load(_ context.Context, _ string) (*Dataset, error) {
	f.calls++
	return f.ds, f.err
}

// newDataset builds entities × 6 × frames counts where count(e, c, f) is
// value(e, c, f).
func newDataset(t *testing.T, entities, frames int, value func(e, c, f int) float64) *Dataset {
	t.Helper()
	labels := make([]string, entities)
	for e := range labels {
		labels[e] = fmt.Sprintf("MG_%03d_MONOMER", e)
	}
	counts := make([]float64, entities*NumCompartments*frames)
	for e := 0; e < entities; e++ {
		for c := 0; c < NumCompartments; c++ {
			for f := 0; f < frames; f++ {
				counts[(e*NumCompartments+c)*frames+f] = value(e, c, f)
			}
		}
	}
	ds, err := NewDataset(labels, counts, NumCompartments, frames)
	require.NoError(t, err)
	return ds
}

func TestRawData_KeepsEveryEntity(t *testing.T) {
	ds := newDataset(t, 4, 2, func(e, c, f int) float64 {
		return float64(100*c + 10*e + f)
	})
	x := NewExtractor(&fakeLoader{ds: ds}, nil, nil)

	tables, err := x.RawData(context.Background(), "run.h5", 1, false)
	require.NoError(t, err)

	for _, c := range Compartments() {
		require.Len(t, tables[c], 4, c.String())
		for e, entry := range tables[c] {
			assert.Equal(t, ds.Labels[e], entry.Name)
			assert.Equal(t, float64(100*int(c)+10*e+1), entry.Count)
		}
	}
	assert.Equal(t, 24, tables.Len())
}

func TestRawData_IgnoreNullPerCompartment(t *testing.T) {
	cytosol := []float64{0, 5, 0, 3}
	ds := newDataset(t, 4, 1, func(e, c, f int) float64 {
		if Compartment(c) == Cytosol {
			return cytosol[e]
		}
		if Compartment(c) == Membrane && e == 0 {
			return 7
		}
		return 0
	})
	x := NewExtractor(&fakeLoader{ds: ds}, nil, nil)

	tables, err := x.RawData(context.Background(), "run.h5", 0, true)
	require.NoError(t, err)

	assert.Equal(t, Table{
		{Name: "MG_001_MONOMER", Count: 5},
		{Name: "MG_003_MONOMER", Count: 3},
	}, tables[Cytosol])
	assert.Equal(t, Table{{Name: "MG_000_MONOMER", Count: 7}}, tables[Membrane])
	assert.Empty(t, tables[DNA])

	all, err := x.RawData(context.Background(), "run.h5", 0, false)
	require.NoError(t, err)
	assert.Len(t, all[Cytosol], 4)
	assert.Equal(t, 0.0, all[Cytosol][0].Count)
}

func TestRawData_Errors(t *testing.T) {
	ds := newDataset(t, 2, 3, func(e, c, f int) float64 { return 1 })

	t.Run("frame past the end", func(t *testing.T) {
		x := NewExtractor(&fakeLoader{ds: ds}, nil, nil)
		_, err := x.RawData(context.Background(), "run.h5", 3, false)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeIndexOutOfRange), "got %v", err)
	})

	t.Run("negative frame", func(t *testing.T) {
		x := NewExtractor(&fakeLoader{ds: ds}, nil, nil)
		_, err := x.RawData(context.Background(), "run.h5", -1, false)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeIndexOutOfRange))
	})

	t.Run("loader failure propagates", func(t *testing.T) {
		notFound := apperrors.NewNotFoundError("run.h5", nil)
		x := NewExtractor(&fakeLoader{err: notFound}, nil, nil)
		_, err := x.RawData(context.Background(), "run.h5", 0, false)
		assert.ErrorIs(t, err, notFound)
	})

	t.Run("cancelled context skips the load", func(t *testing.T) {
		loader := &fakeLoader{ds: ds}
		x := NewExtractor(loader, nil, nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := x.RawData(ctx, "run.h5", 0, false)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, loader.calls)
	})
}

func TestCompartmentAccessors(t *testing.T) {
	ds := newDataset(t, 3, 1, func(e, c, f int) float64 { return float64(c) })
	x := NewExtractor(&fakeLoader{ds: ds}, nil, nil)
	ctx := context.Background()

	accessors := map[Compartment]func(context.Context, string, int, bool) (Table, error){
		Cytosol:                   x.Cytosol,
		DNA:                       x.DNA,
		ExtracellularSpace:        x.ExtracellularSpace,
		Membrane:                  x.Membrane,
		TerminalOrganelleCytosol:  x.TerminalOrganelleCytosol,
		TerminalOrganelleMembrane: x.TerminalOrganelleMembrane,
	}

	for c, get := range accessors {
		table, err := get(ctx, "run.h5", 0, false)
		require.NoError(t, err)
		require.Len(t, table, 3)
		assert.Equal(t, float64(c), table[0].Count, c.String())
	}

	_, err := x.Compartment(ctx, Compartment(6), "run.h5", 0, false)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeIndexOutOfRange))
}

func TestSimulation_StateBlocks(t *testing.T) {
	entities := NumStates * ComplexesPerState
	ds := newDataset(t, entities, 1, func(e, c, f int) float64 { return float64(e) })
	x := NewExtractor(&fakeLoader{ds: ds}, nil, nil)

	result, err := x.Simulation(context.Background(), "run.h5", 0, false, Mature)
	require.NoError(t, err)
	require.Equal(t, Valid, result.Kind)
	assert.Empty(t, result.Marker)

	full, err := x.RawData(context.Background(), "run.h5", 0, false)
	require.NoError(t, err)

	for _, c := range Compartments() {
		assert.Equal(t, full[c][201:402], result.Tables[c])
	}
}

func TestSimulation_InvalidState(t *testing.T) {
	loader := &fakeLoader{err: apperrors.NewNotFoundError("run.h5", nil)}
	x := NewExtractor(loader, nil, nil)

	for _, state := range []State{-1, 6, 99} {
		result, err := x.Simulation(context.Background(), "run.h5", 0, false, state)
		require.NoError(t, err)
		assert.Equal(t, InvalidParameter, result.Kind)
		assert.Equal(t, InvalidParameterMarker, result.Marker)
		assert.Zero(t, result.Tables.Len())
	}
	assert.Zero(t, loader.calls)
}

func TestSliceState_Clamps(t *testing.T) {
	var tables Tables
	tables[Cytosol] = make(Table, 300)
	tables[DNA] = make(Table, 100)

	out := SliceState(tables, Mature)
	assert.Len(t, out[Cytosol], 99)
	assert.Empty(t, out[DNA])

	out = SliceState(tables, Nascent)
	assert.Len(t, out[Cytosol], 201)
	assert.Len(t, out[DNA], 100)
}

func TestStateOffsets(t *testing.T) {
	want := []int{0, 201, 402, 603, 804, 1005}
	for s := Nascent; s <= Damaged; s++ {
		assert.Equal(t, want[s], s.Offset(), s.String())
	}
	assert.False(t, State(6).Valid())
	assert.Equal(t, "state(99)", State(99).String())
}

func TestNewDataset_Shape(t *testing.T) {
	_, err := NewDataset([]string{"a"}, make([]float64, 5), NumCompartments, 1)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))

	_, err = NewDataset([]string{"a"}, make([]float64, 3), 3, 1)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestSheetNames(t *testing.T) {
	want := []string{
		"cytosolData",
		"dnaData",
		"extracellularSpaceData",
		"membraneData",
		"terminalOrganelleCytosolData",
		"terminalOrganelleMembraneData",
	}
	for i, c := range Compartments() {
		assert.Equal(t, want[i], c.SheetName())
	}
}
