// Package hexbin aggregates scattered (x, y) samples onto a hexagonal
// tiling.
//
// Samples are converted to fractional axial coordinates with one of two
// fixed orientation matrices, rounded to the nearest valid cube
// coordinate, and grouped per cell. Each occupied cell yields one Row in
// the resulting Table: its axial address (q, r) followed by one reduced
// value per value dimension, or a synthetic Count column.
//
// Key types: Samples, Config, Table, Aggregator, Orientation.
//
// Everything in this package is a pure function of its inputs and is safe
// for concurrent use. No I/O is performed here; rendering lives in
// internal/render and persistence in internal/db.
package hexbin
