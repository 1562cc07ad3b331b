// Package exporter writes pipeline results to disk.
//
// Workbook renders simulation compartment tables as spreadsheet workbooks
// with one sheet per compartment, either for a single run or for several
// runs merged side by side. CSVWriter writes delimited files such as the
// proteomics channel totals. Every output is written to a temporary file
// and renamed into place.
package exporter
