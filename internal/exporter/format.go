package exporter

import (
	"strconv"
)

// formatFloat formats a float64 value for CSV output using the shortest
// representation that reads back exactly
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// formatInt formats an int value for CSV output
func formatInt(i int) string {
	return strconv.Itoa(i)
}
