// Package files provides the file system helpers shared by the cellprep
// commands.
//
// Manager writes output files atomically: content is streamed to a temp
// file in the destination directory and renamed into place only after it
// was written and closed successfully, so an aborted run never leaves a
// truncated workbook behind.
//
// FindByExtension and ExpandInputs turn command-line inputs (files or
// directories of simulation runs) into an ordered list of paths.
//
//	manager := files.NewManager("/data/out", logger)
//	err := manager.WriteAtomic("run1.xls", func(w io.Writer) error {
//	    _, err := workbook.WriteTo(w)
//	    return err
//	})
package files
