// Package pipeline orchestrates TTC estimation for one frame pair.
//
// It is the composition root for the fusion layers: it imports l2frames,
// l4perception, l5tracks and l6ttc, but none of those packages import
// pipeline/. The pipeline does not own domain logic; it sequences the layer
// operations, fans the per-object work out over a bounded worker pool and
// assembles a deterministic FramePairResult.
package pipeline
