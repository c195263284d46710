// Package sqlite persists TTC replay runs and their per-object results.
//
// All database read/write operations for the fusion pipeline belong here
// rather than in the layer packages (l2frames-l6ttc), which stay free of SQL.
// The schema is managed by golang-migrate from migrations embedded in the
// binary.
package sqlite
