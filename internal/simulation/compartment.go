package simulation

import "fmt"

// Compartment identifies one of the six cellular locations of a run.
type Compartment int

const (
	Cytosol Compartment = iota
	DNA
	ExtracellularSpace
	Membrane
	TerminalOrganelleCytosol
	TerminalOrganelleMembrane
)

// NumCompartments is the size of the compartment axis.
const NumCompartments = 6

var compartmentNames = [NumCompartments]string{
	"cytosol",
	"dna",
	"extracellularSpace",
	"membrane",
	"terminalOrganelleCytosol",
	"terminalOrganelleMembrane",
}

// Compartments lists every compartment in sheet order.
func Compartments() [NumCompartments]Compartment {
	return [NumCompartments]Compartment{
		Cytosol, DNA, ExtracellularSpace, Membrane,
		TerminalOrganelleCytosol, TerminalOrganelleMembrane,
	}
}

// Valid reports whether c is a known compartment.
func (c Compartment) Valid() bool {
	return c >= 0 && c < NumCompartments
}

func (c Compartment) String() string {
	if !c.Valid() {
		return fmt.Sprintf("compartment(%d)", int(c))
	}
	return compartmentNames[c]
}

// SheetName is the workbook sheet holding c.
func (c Compartment) SheetName() string {
	return c.String() + "Data"
}

// State is a molecular condition of a protein complex.
type State int

const (
	Nascent State = iota
	Mature
	Inactivated
	Bound
	Misfolded
	Damaged
)

// NumStates is the number of state blocks per compartment.
const NumStates = 6

// ComplexesPerState is the width of each state block in a compartment's
// entity list.
const ComplexesPerState = 201

var stateNames = [...]string{"nascent", "mature", "inactivated", "bound", "misfolded", "damaged"}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	return s >= Nascent && s <= Damaged
}

func (s State) String() string {
	if !s.Valid() {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Offset is the index of the first entity of state s.
func (s State) Offset() int {
	return int(s) * ComplexesPerState
}
