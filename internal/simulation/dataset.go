package simulation

import (
	"context"
	"fmt"

	apperrors "cellprep/internal/errors"
)

// Entry is one complex and its copy number.
type Entry struct {
	Name  string  `json:"name"`
	Count float64 `json:"count"`
}

// Table is the ordered entries of one compartment.
type Table []Entry

// Tables holds one table per compartment, indexed by Compartment.
type Tables [NumCompartments]Table

// Len returns the total number of entries over all compartments.
func (t *Tables) Len() int {
	n := 0
	for _, table := range t {
		n += len(table)
	}
	return n
}

// Dataset is the count array of one run with its entity labels.
// Counts is laid out entity-major: Counts[(e*Compartments+c)*Frames+f].
type Dataset struct {
	Labels       []string
	Counts       []float64
	Compartments int
	Frames       int
}

// NewDataset checks the array shape against the labels.
func NewDataset(labels []string, counts []float64, compartments, frames int) (*Dataset, error) {
	if compartments < NumCompartments {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("count array has %d compartments, need %d", compartments, NumCompartments))
	}
	if frames < 0 {
		return nil, apperrors.NewValidationError(fmt.Sprintf("negative frame count %d", frames))
	}
	if want := len(labels) * compartments * frames; len(counts) != want {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("count array has %d values, want %d entities x %d compartments x %d frames",
				len(counts), len(labels), compartments, frames))
	}
	return &Dataset{
		Labels:       labels,
		Counts:       counts,
		Compartments: compartments,
		Frames:       frames,
	}, nil
}

// Entities is the length of the entity axis.
func (d *Dataset) Entities() int {
	return len(d.Labels)
}

// Count returns the copy number of entity e in compartment c at frame f.
func (d *Dataset) Count(e int, c Compartment, f int) float64 {
	return d.Counts[(e*d.Compartments+int(c))*d.Frames+f]
}

// Loader reads the dataset stored at path.
type Loader interface {
	Load(ctx context.Context, path string) (*Dataset, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, path string) (*Dataset, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, path string) (*Dataset, error) {
	return f(ctx, path)
}
