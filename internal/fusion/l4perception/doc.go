// Package l4perception owns Layer 4 (Perception) of the fusion data model.
//
// Responsibilities: projecting range points into the image with the
// calibration chain, assigning projected points to object regions, and
// reducing a region's points to one outlier-resistant closest distance.
// Key types: Projector, ClusterStats, DistanceEstimator, RegionSummary.
//
// Dependency rule: L4 may depend on L2, but never on L5+.
// No SQL/database code is allowed in this package.
package l4perception
