package l2frames

import (
	"sort"
	"time"
)

// Keypoint is an image feature location supplied by the external detector.
// Only Pt is read by the TTC pipeline; the remaining fields are carried so
// that detector output round-trips through sequence files unchanged.
type Keypoint struct {
	Pt       Point2  `json:"pt"`
	Size     float64 `json:"size,omitempty"`
	Angle    float64 `json:"angle,omitempty"`
	Response float64 `json:"response,omitempty"`
}

// Match is a correspondence between a previous-frame keypoint and a
// current-frame keypoint. Distance is the descriptor distance reported by
// the matcher and is not interpreted here.
type Match struct {
	PrevIdx  int     `json:"prev_idx"`
	CurrIdx  int     `json:"curr_idx"`
	Distance float64 `json:"distance,omitempty"`
}

// Endpoints returns the previous and current pixel locations of m.
// ok is false when either index is out of range for the given keypoints.
func (m Match) Endpoints(kptsPrev, kptsCurr []Keypoint) (prev, curr Point2, ok bool) {
	if m.PrevIdx < 0 || m.PrevIdx >= len(kptsPrev) || m.CurrIdx < 0 || m.CurrIdx >= len(kptsCurr) {
		return Point2{}, Point2{}, false
	}
	return kptsPrev[m.PrevIdx].Pt, kptsCurr[m.CurrIdx].Pt, true
}

// ObjectRegion is one detected object's footprint in a single frame.
// BoxID is stable within the frame only; cross-frame identity comes from
// the AssociationMap.
type ObjectRegion struct {
	BoxID      int     `json:"box_id"`
	ROI        Rect    `json:"roi"`
	ClassID    int     `json:"class_id,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`

	// Populated by the pipeline, never by the detector.
	RangePoints []RangePoint `json:"-"`
	Matches     []Match      `json:"-"`
	Keypoints   []Keypoint   `json:"-"`
}

// Frame holds everything known about one camera/range frame.
type Frame struct {
	Index       int            `json:"index"`
	Timestamp   time.Time      `json:"timestamp"`
	Regions     []ObjectRegion `json:"regions"`
	Keypoints   []Keypoint     `json:"keypoints"`
	RangePoints []RangePoint   `json:"range_points"`
}

// Region returns the region with the given box id, or nil.
func (f *Frame) Region(boxID int) *ObjectRegion {
	if f == nil {
		return nil
	}
	for i := range f.Regions {
		if f.Regions[i].BoxID == boxID {
			return &f.Regions[i]
		}
	}
	return nil
}

// Clone returns a copy of f whose regions can be mutated without affecting
// f. Range points and keypoints are shared since they are never written.
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	out := *f
	out.Regions = make([]ObjectRegion, len(f.Regions))
	for i, r := range f.Regions {
		out.Regions[i] = ObjectRegion{
			BoxID:      r.BoxID,
			ROI:        r.ROI,
			ClassID:    r.ClassID,
			Confidence: r.Confidence,
		}
	}
	return &out
}

// FramePair is the unit of work for the TTC pipeline: two consecutive
// frames plus the keypoint correspondences between them.
type FramePair struct {
	Prev    *Frame
	Curr    *Frame
	Matches []Match
}

// AssociationMap maps previous-frame box ids to current-frame box ids.
// A previous region absent from the map was lost in this frame pair.
type AssociationMap map[int]int

// SortedKeys returns the previous-frame box ids in ascending order.
func (m AssociationMap) SortedKeys() []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
