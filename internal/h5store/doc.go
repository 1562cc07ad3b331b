// Package h5store loads simulation count arrays from HDF5 files.
//
// A run file holds a 3D count array (entity × compartment × frame) and a
// 1D array of fixed-length entity labels. Both are read whole; every file,
// dataset, dataspace and datatype handle is released before Load returns.
package h5store
