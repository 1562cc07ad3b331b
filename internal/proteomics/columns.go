package proteomics

// SamplesPerGroup is the number of sample columns in every channel group.
const SamplesPerGroup = 4

// ColumnGroup names one measurement channel and the first spreadsheet
// column holding it.
type ColumnGroup struct {
	Name   string
	Offset int
}

// Channel column offsets in the proteome spreadsheet.
const (
	IntensityOffset = 42
	IBAQOffset      = 47
	LFQOffset       = 51
)

// Groups lists the channels in accumulation order.
var Groups = [3]ColumnGroup{
	{Name: "intensity", Offset: IntensityOffset},
	{Name: "ibaq", Offset: IBAQOffset},
	{Name: "lfq", Offset: LFQOffset},
}

// MinRowWidth is the shortest data row that reaches every channel column.
func MinRowWidth() int {
	width := 0
	for _, g := range Groups {
		if end := g.Offset + SamplesPerGroup; end > width {
			width = end
		}
	}
	return width
}
