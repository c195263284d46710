// Package l6ttc owns Layer 6 (TTC) of the fusion data model.
//
// Responsibilities: range-based and image-motion-based time-to-collision
// estimates for one tracked object over one frame pair, reported as tagged
// results so degenerate cases can never be mistaken for a finite estimate.
// Key types: Result, Outcome, CameraStats.
//
// Dependency rule: L6 may depend on L2-L5.
// No SQL/database code is allowed in this package.
package l6ttc
