package report

import (
	"sort"

	"github.com/banshee-data/collision.report/internal/fusion/l6ttc"
	"github.com/banshee-data/collision.report/internal/fusion/pipeline"
)

// Sample is one object's TTC pair for one frame pair.
type Sample struct {
	PrevFrameIndex int // Previous frame index of the pair
	FrameIndex     int // Current frame index
	PrevBoxID      int
	CurrBoxID      int
	Range          l6ttc.Result
	Camera         l6ttc.Result
	ClosingSpeed   float64 // m/s
}

// SamplesFromResults flattens pipeline results into samples.
func SamplesFromResults(results []*pipeline.FramePairResult) []Sample {
	var out []Sample
	for _, res := range results {
		if res == nil {
			continue
		}
		for _, obj := range res.Objects {
			out = append(out, Sample{
				PrevFrameIndex: res.PrevFrameIndex,
				FrameIndex:     res.FrameIndex,
				PrevBoxID:      obj.PrevBoxID,
				CurrBoxID:      obj.CurrBoxID,
				Range:          obj.Range,
				Camera:         obj.Camera,
				ClosingSpeed:   obj.ClosingSpeed,
			})
		}
	}
	return out
}

// SeriesPoint is one frame of an ObjectSeries. TTC pointers are nil when
// the corresponding outcome is not an estimate.
type SeriesPoint struct {
	FrameIndex   int
	BoxID        int // Current-frame box id
	RangeTTC     *float64
	CameraTTC    *float64
	ClosingSpeed float64
}

// ObjectSeries is one object followed across frames through the
// per-frame-pair associations.
type ObjectSeries struct {
	ChainID int // 1-based, in order of first appearance
	Points  []SeriesPoint
}

// BuildSeries groups samples into chains. Box ids are only meaningful
// within one frame, so a sample continues a chain only when the chain's
// last point is in the sample's previous frame and ended on the sample's
// previous box id. Anything else starts a new chain, which is how an
// object lost for a frame pair reappears. When two samples of one frame
// pair reach the same current box, the one with the lower previous box id
// carries the chain forward.
func BuildSeries(samples []Sample) []ObjectSeries {
	sorted := append([]Sample(nil), samples...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].FrameIndex != sorted[j].FrameIndex {
			return sorted[i].FrameIndex < sorted[j].FrameIndex
		}
		return sorted[i].PrevBoxID < sorted[j].PrevBoxID
	})

	type chainEnd struct{ frame, box int }
	var series []ObjectSeries
	open := map[chainEnd]int{} // last (frame, box) of a chain -> series index
	for _, s := range sorted {
		key := chainEnd{frame: s.PrevFrameIndex, box: s.PrevBoxID}
		idx, ok := open[key]
		if ok {
			delete(open, key)
		} else {
			idx = len(series)
			series = append(series, ObjectSeries{ChainID: idx + 1})
		}
		series[idx].Points = append(series[idx].Points, SeriesPoint{
			FrameIndex:   s.FrameIndex,
			BoxID:        s.CurrBoxID,
			RangeTTC:     estimateValue(s.Range),
			CameraTTC:    estimateValue(s.Camera),
			ClosingSpeed: s.ClosingSpeed,
		})
		end := chainEnd{frame: s.FrameIndex, box: s.CurrBoxID}
		if _, taken := open[end]; !taken {
			open[end] = idx
		}
	}
	return series
}

func estimateValue(r l6ttc.Result) *float64 {
	if !r.Valid() {
		return nil
	}
	v := r.Seconds
	return &v
}
