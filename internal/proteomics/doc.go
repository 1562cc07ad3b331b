// Package proteomics folds a mass-spectrometry proteome spreadsheet into
// per-channel intensity totals and derives per-cell mass estimates from a
// fixed physical model of the cell.
//
// The spreadsheet carries three measurement channels (raw intensity, iBAQ
// and LFQ), each spread over four consecutive sample columns at a fixed
// offset. Row 0 is a header.
package proteomics
