package proteomics

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "cellprep/internal/errors"
)

// NaN is the literal the spreadsheet uses for a missing measurement.
const NaN = "NaN"

// ParseIntensity converts a spreadsheet cell to a number. The literal "NaN"
// counts as zero and a comma is read as the decimal separator.
func ParseIntensity(raw string) (float64, error) {
	if raw == NaN {
		return 0, nil
	}

	normalized := strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
	value, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, apperrors.NewParsingError(fmt.Sprintf("invalid intensity %q", raw), err)
	}
	return value, nil
}
