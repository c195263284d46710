// Package l5tracks owns Layer 5 (Tracks) of the fusion data model.
//
// Responsibilities: associating object regions between the previous and
// current frame by keypoint-correspondence voting, and scoping the frame
// pair's correspondences to one current region with motion-outlier
// rejection. Key types: VoteTable, AssociationStrategy, MatchFilterConfig.
//
// Dependency rule: L5 may depend on L2-L4, but never on L6.
// No SQL/database code is allowed in this package.
package l5tracks
