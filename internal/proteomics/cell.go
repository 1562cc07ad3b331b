package proteomics

import "math"

// gramsPerPicogram converts µm³·g/cm³ (pg) to grams.
const gramsPerPicogram = 1e-12

// CellConstants is the physical model of one cell.
type CellConstants struct {
	Radius          float64 `json:"radius_um"`
	Density         float64 `json:"density_g_cc"`
	ProteinFraction float64 `json:"protein_fraction"`
}

// CellEstimate holds the quantities derived from CellConstants.
type CellEstimate struct {
	Volume      float64 `json:"volume_um3"`
	Mass        float64 `json:"mass_g"`
	ProteinMass float64 `json:"protein_mass_g"`
}

// DefaultCellConstants returns the Mycoplasma-sized cell model.
func DefaultCellConstants() CellConstants {
	return CellConstants{
		Radius:          0.15,
		Density:         1.07,
		ProteinFraction: 0.163,
	}
}

// DeriveCell computes volume, mass and protein mass of a spherical cell.
func DeriveCell(c CellConstants) CellEstimate {
	volume := 4.0 * math.Pi * math.Pow(c.Radius, 3) / 3.0
	mass := volume * c.Density * gramsPerPicogram
	return CellEstimate{
		Volume:      volume,
		Mass:        mass,
		ProteinMass: mass * c.ProteinFraction,
	}
}
