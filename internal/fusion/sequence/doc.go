// Package sequence loads recorded frame sequences for offline TTC replay.
//
// A sequence file is JSON holding the calibration, the frames (object
// regions, keypoints and range points) and the keypoint correspondences
// between consecutive frames. Pairs yields independent FramePairs so the
// pipeline can process them without state leaking between pairs.
package sequence
