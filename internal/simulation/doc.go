// Package simulation reshapes whole-cell simulation output into per
// compartment tables of (complex name, copy number) entries.
//
// A run stores counts as an entity × compartment × frame array with one
// label per entity. Each compartment's entity list is partitioned into six
// contiguous blocks of 201 complexes, one per molecular state.
package simulation
