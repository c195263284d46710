// Package l2frames owns Layer 2 (Frames) of the fusion data model.
//
// Responsibilities: value types for one camera/range frame and for the
// frame pair the TTC pipeline consumes. Key types: RangePoint, Rect,
// Keypoint, Match, ObjectRegion, Frame, FramePair, AssociationMap,
// Calibration.
//
// Dependency rule: L2 depends on nothing else in internal/fusion.
// No SQL/database code is allowed in this package.
package l2frames
