package h5store

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"

	"gonum.org/v1/hdf5"

	apperrors "cellprep/internal/errors"
	"cellprep/internal/simulation"
)

// Default dataset paths inside a run file.
const (
	DefaultCountsPath = "states/ProteinComplex/counts/data"
	DefaultLabelsPath = "states/ProteinComplex/counts/labels/0"
)

// libMu serializes every call into libhdf5, which is not built thread-safe.
// Load holds it from open to close, so concurrent merges read one file at a time.
var libMu sync.Mutex

// Store reads runs from HDF5 files. It implements simulation.Loader.
type Store struct {
	countsPath string
	labelsPath string
	logger     *slog.Logger
}

var _ simulation.Loader = (*Store)(nil)

// NewStore creates a store reading the given dataset paths. Empty paths
// fall back to the defaults.
func NewStore(countsPath, labelsPath string, logger *slog.Logger) *Store {
	if countsPath == "" {
		countsPath = DefaultCountsPath
	}
	if labelsPath == "" {
		labelsPath = DefaultLabelsPath
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		countsPath: countsPath,
		labelsPath: labelsPath,
		logger:     logger.With("component", "h5store"),
	}
}

// Load reads the count array and labels of the run at path. It is safe for
// concurrent use; calls into the HDF5 library are serialized.
func (s *Store) Load(ctx context.Context, path string) (*simulation.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError(path, err)
		}
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to stat %s", path), err)
	}

	libMu.Lock()
	defer libMu.Unlock()

	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to open %s", path), err)
	}
	defer f.Close()

	counts, dims, err := s.readCounts(f, path)
	if err != nil {
		return nil, err
	}

	labels, err := s.readLabels(f, path)
	if err != nil {
		return nil, err
	}

	if len(labels) != dims[0] {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("%s: %d labels for %d entities", path, len(labels), dims[0]))
	}

	s.logger.DebugContext(ctx, "Run loaded",
		slog.String("path", path),
		slog.Int("entities", dims[0]),
		slog.Int("compartments", dims[1]),
		slog.Int("frames", dims[2]))

	return simulation.NewDataset(labels, counts, dims[1], dims[2])
}

func (s *Store) openDataset(f *hdf5.File, path, name string) (*hdf5.Dataset, error) {
	dset, err := f.OpenDataset(name)
	if err != nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("dataset %s in %s", name, path), err)
	}
	return dset, nil
}

// readCounts reads the 3D count array as float64 in row-major order.
func (s *Store) readCounts(f *hdf5.File, path string) ([]float64, [3]int, error) {
	var dims [3]int

	dset, err := s.openDataset(f, path, s.countsPath)
	if err != nil {
		return nil, dims, err
	}
	defer dset.Close()

	shape, err := extent(dset)
	if err != nil {
		return nil, dims, apperrors.NewStorageError(fmt.Sprintf("failed to read shape of %s", s.countsPath), err)
	}
	if len(shape) != 3 {
		return nil, dims, apperrors.NewValidationError(
			fmt.Sprintf("%s: dataset %s has rank %d, want 3", path, s.countsPath, len(shape)))
	}
	for i, d := range shape {
		dims[i] = int(d)
	}

	dtype, err := dset.Datatype()
	if err != nil {
		return nil, dims, apperrors.NewStorageError(fmt.Sprintf("failed to read type of %s", s.countsPath), err)
	}
	defer dtype.Close()

	n := dims[0] * dims[1] * dims[2]
	values, err := readNumeric(dset, dtype, n)
	if err != nil {
		return nil, dims, apperrors.NewStorageError(
			fmt.Sprintf("failed to read %s from %s", s.countsPath, path), err)
	}
	return values, dims, nil
}

// readLabels reads a 1D array of fixed-length strings, trimming padding.
func (s *Store) readLabels(f *hdf5.File, path string) ([]string, error) {
	dset, err := s.openDataset(f, path, s.labelsPath)
	if err != nil {
		return nil, err
	}
	defer dset.Close()

	shape, err := extent(dset)
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to read shape of %s", s.labelsPath), err)
	}
	if len(shape) != 1 {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("%s: dataset %s has rank %d, want 1", path, s.labelsPath, len(shape)))
	}

	dtype, err := dset.Datatype()
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to read type of %s", s.labelsPath), err)
	}
	defer dtype.Close()

	if dtype.Class() != hdf5.T_STRING {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("%s: dataset %s is not a string array", path, s.labelsPath))
	}

	n, width := int(shape[0]), int(dtype.Size())
	raw := make([]byte, n*width)
	if n > 0 {
		if err := dset.Read(&raw); err != nil {
			return nil, apperrors.NewStorageError(
				fmt.Sprintf("failed to read %s from %s", s.labelsPath, path), err)
		}
	}

	labels := make([]string, n)
	for i := range labels {
		field := raw[i*width : (i+1)*width]
		labels[i] = string(bytes.TrimRight(field, "\x00 "))
	}
	return labels, nil
}

func extent(dset *hdf5.Dataset) ([]uint, error) {
	space := dset.Space()
	defer space.Close()
	dims, _, err := space.SimpleExtentDims()
	return dims, err
}

// elementDecoder widens one stored element of dtype to float64.
type elementDecoder struct {
	dtype  *hdf5.Datatype
	size   int
	decode func([]byte) float64
}

// storedTypes are the standard numeric types of one byte order.
type storedTypes struct {
	f64, f32, i64, u64, i32, u32, i16, u16, i8, u8 *hdf5.Datatype
}

func decodersFor(order binary.ByteOrder, t storedTypes) []elementDecoder {
	return []elementDecoder{
		{t.f64, 8, func(b []byte) float64 { return math.Float64frombits(order.Uint64(b)) }},
		{t.f32, 4, func(b []byte) float64 { return float64(math.Float32frombits(order.Uint32(b))) }},
		{t.i64, 8, func(b []byte) float64 { return float64(int64(order.Uint64(b))) }},
		{t.u64, 8, func(b []byte) float64 { return float64(order.Uint64(b)) }},
		{t.i32, 4, func(b []byte) float64 { return float64(int32(order.Uint32(b))) }},
		{t.u32, 4, func(b []byte) float64 { return float64(order.Uint32(b)) }},
		{t.i16, 2, func(b []byte) float64 { return float64(int16(order.Uint16(b))) }},
		{t.u16, 2, func(b []byte) float64 { return float64(order.Uint16(b)) }},
		{t.i8, 1, func(b []byte) float64 { return float64(int8(b[0])) }},
		{t.u8, 1, func(b []byte) float64 { return float64(b[0]) }},
	}
}

var elementDecoders = append(
	decodersFor(binary.LittleEndian, storedTypes{
		f64: hdf5.T_IEEE_F64LE, f32: hdf5.T_IEEE_F32LE,
		i64: hdf5.T_STD_I64LE, u64: hdf5.T_STD_U64LE,
		i32: hdf5.T_STD_I32LE, u32: hdf5.T_STD_U32LE,
		i16: hdf5.T_STD_I16LE, u16: hdf5.T_STD_U16LE,
		i8: hdf5.T_STD_I8LE, u8: hdf5.T_STD_U8LE,
	}),
	decodersFor(binary.BigEndian, storedTypes{
		f64: hdf5.T_IEEE_F64BE, f32: hdf5.T_IEEE_F32BE,
		i64: hdf5.T_STD_I64BE, u64: hdf5.T_STD_U64BE,
		i32: hdf5.T_STD_I32BE, u32: hdf5.T_STD_U32BE,
		i16: hdf5.T_STD_I16BE, u16: hdf5.T_STD_U16BE,
		i8: hdf5.T_STD_I8BE, u8: hdf5.T_STD_U8BE,
	})...,
)

// readNumeric reads n elements stored with dtype and widens them to float64.
// Dataset.Read copies elements in the file's own type, so the raw bytes are
// decoded here with the width, sign and byte order dtype declares.
func readNumeric(dset *hdf5.Dataset, dtype *hdf5.Datatype, n int) ([]float64, error) {
	var dec *elementDecoder
	for i := range elementDecoders {
		if dtype.Equal(elementDecoders[i].dtype) {
			dec = &elementDecoders[i]
			break
		}
	}
	if dec == nil {
		return nil, fmt.Errorf("unsupported element type (class %v, %d bytes)", dtype.Class(), dtype.Size())
	}

	out := make([]float64, n)
	if n == 0 {
		return out, nil
	}

	raw := make([]byte, n*dec.size)
	if err := dset.Read(&raw); err != nil {
		return nil, err
	}
	for i := range out {
		out[i] = dec.decode(raw[i*dec.size:])
	}
	return out, nil
}
