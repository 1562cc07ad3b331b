package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// HDF5Extensions are the suffixes treated as simulation output files.
var HDF5Extensions = []string{".h5", ".hdf5"}

// FindByExtension lists regular files in dir whose extension matches one of
// exts (case-insensitive), sorted by name so runs are merged in a stable order.
func FindByExtension(dir string, exts ...string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !hasExtension(entry.Name(), exts) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(dir, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})

	return files, nil
}

// ExpandInputs turns a list of files and directories into file paths.
// Directories contribute their HDF5 files; files are kept as given.
func ExpandInputs(inputs []string) ([]string, error) {
	var paths []string
	for _, in := range inputs {
		in = strings.TrimSpace(in)
		if in == "" {
			continue
		}
		info, err := os.Stat(in)
		if err != nil || !info.IsDir() {
			// Missing files are reported by the validator with a typed error.
			paths = append(paths, in)
			continue
		}
		found, err := FindByExtension(in, HDF5Extensions...)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			paths = append(paths, f.Path)
		}
	}
	return paths, nil
}

func hasExtension(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
