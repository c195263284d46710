package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/collision.report/internal/config"
	"github.com/banshee-data/collision.report/internal/fusion/l2frames"
	"github.com/banshee-data/collision.report/internal/fusion/l4perception"
	"github.com/banshee-data/collision.report/internal/fusion/l5tracks"
	"github.com/banshee-data/collision.report/internal/fusion/l6ttc"
)

// ErrInvalidFramePair is returned when a frame pair is missing a frame.
var ErrInvalidFramePair = errors.New("frame pair requires previous and current frames")

// Config holds the tunables for one Processor.
type Config struct {
	FrameRate    float64 // Hz
	ShrinkFactor float64 // Fraction of each ROI dimension removed before clustering
	Workers      int     // Per-object worker limit; 0 means one per CPU
	Strategy     l5tracks.AssociationStrategy
	MatchFilter  l5tracks.MatchFilterConfig
	Distance     l4perception.DistanceEstimator
}

// DefaultConfig returns the production pipeline settings.
func DefaultConfig() Config {
	return Config{
		FrameRate:    10.0,
		ShrinkFactor: 0.10,
		Strategy:     l5tracks.StrategyBestVote,
		MatchFilter:  l5tracks.DefaultMatchFilterConfig(),
		Distance:     l4perception.DefaultDistanceEstimator(),
	}
}

// ConfigFromTuning builds a Config from a validated TuningConfig.
func ConfigFromTuning(tc *config.TuningConfig) (Config, error) {
	if tc == nil {
		return DefaultConfig(), nil
	}
	if err := tc.Validate(); err != nil {
		return Config{}, err
	}
	strategy, err := l5tracks.ParseAssociationStrategy(tc.GetAssociationStrategy())
	if err != nil {
		return Config{}, err
	}
	return Config{
		FrameRate:    tc.GetFrameRate(),
		ShrinkFactor: tc.GetShrinkFactor(),
		Workers:      tc.GetWorkers(),
		Strategy:     strategy,
		MatchFilter: l5tracks.MatchFilterConfig{
			Multiplier: tc.GetMatchDisplacementMultiplier(),
			SlackPx:    tc.GetMatchDisplacementSlackPx(),
			MaxMatches: tc.GetMaxMatchesPerRegion(),
		},
		Distance: l4perception.DistanceEstimator{
			OrderIndex: tc.GetDistanceOrderIndex(),
			MinPoints:  tc.GetDistanceMinPoints(),
		},
	}, nil
}

// Validate reports the first invalid field of c.
func (c Config) Validate() error {
	if err := l6ttc.CheckFrameRate(c.FrameRate); err != nil {
		return err
	}
	if c.ShrinkFactor < 0 || c.ShrinkFactor >= 1 {
		return fmt.Errorf("shrink factor must be in [0, 1), got %v", c.ShrinkFactor)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}
	if _, err := l5tracks.ParseAssociationStrategy(string(c.Strategy)); err != nil {
		return err
	}
	if !(c.MatchFilter.Multiplier > 0) || c.MatchFilter.SlackPx < 0 || c.MatchFilter.MaxMatches < 0 {
		return fmt.Errorf("invalid match filter %+v", c.MatchFilter)
	}
	if c.Distance.OrderIndex < 0 || c.Distance.MinPoints < c.Distance.OrderIndex {
		return fmt.Errorf("invalid distance estimator %+v", c.Distance)
	}
	return nil
}

// RegionPair is one associated object: its previous-frame and
// current-frame regions.
type RegionPair struct {
	Prev *l2frames.ObjectRegion
	Curr *l2frames.ObjectRegion
}

// ObjectTTC is the per-object output for one frame pair. Range and Camera
// are reported side by side; they are never fused.
type ObjectTTC struct {
	PrevBoxID int
	CurrBoxID int

	Range        l6ttc.Result
	DistPrev     float64 // Robust closest distance in the previous frame (metres)
	DistCurr     float64 // Robust closest distance in the current frame (metres)
	ClosingSpeed float64 // m/s; zero when not closing
	RangeSummary l4perception.RegionSummary

	Camera      l6ttc.Result
	CameraStats l6ttc.CameraStats
	Filter      l5tracks.FilterStats
	MatchCount  int // Correspondences attached to the current region
}

// FramePairResult is everything computed for one frame pair.
type FramePairResult struct {
	PrevFrameIndex int // Index of the previous frame
	FrameIndex     int // Index of the current frame
	Associations   l2frames.AssociationMap
	Objects        []ObjectTTC // Sorted by PrevBoxID
	Lost           []int       // Previous box ids with no association
	Unmatched      []int       // Current box ids no previous region maps to
	Clustering     l4perception.ClusterStats
	Votes          int // Distinct (previous, current) region pairs with votes
}

// Processor runs the per-frame-pair TTC pipeline. It holds no per-frame
// state and is safe for concurrent use.
type Processor struct {
	cfg     Config
	workers int
}

// NewProcessor validates cfg and returns a Processor.
func NewProcessor(cfg Config) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		opsf("rejecting pipeline config: %v", err)
		return nil, fmt.Errorf("pipeline config: %w", err)
	}
	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	return &Processor{cfg: cfg, workers: workers}, nil
}

// Config returns the processor's configuration.
func (p *Processor) Config() Config {
	return p.cfg
}

// ProcessFramePair estimates range and camera TTC for every object
// associated across pair.
//
// Association runs over all matches before any per-object work starts.
// Range points are then clustered in both frames, and each associated
// object is processed independently on the worker pool. The caller's frames
// are not modified.
func (p *Processor) ProcessFramePair(ctx context.Context, pair *l2frames.FramePair, cal l2frames.Calibration) (*FramePairResult, error) {
	if pair == nil || pair.Prev == nil || pair.Curr == nil {
		return nil, ErrInvalidFramePair
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	proj, err := l4perception.NewProjector(cal)
	if err != nil {
		return nil, err
	}

	prev := pair.Prev.Clone()
	curr := pair.Curr.Clone()

	votes := l5tracks.CountVotes(pair.Matches, prev, curr)
	assoc, err := votes.Associate(p.cfg.Strategy)
	if err != nil {
		return nil, err
	}

	var clustering l4perception.ClusterStats
	clustering.Add(l4perception.ClusterRangePointsWithROI(prev.Regions, prev.RangePoints, p.cfg.ShrinkFactor, proj))
	clustering.Add(l4perception.ClusterRangePointsWithROI(curr.Regions, curr.RangePoints, p.cfg.ShrinkFactor, proj))

	pairs := regionPairs(assoc, prev, curr)
	objects := make([]ObjectTTC, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i := range pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			objects[i] = p.processRegionPair(pairs[i], prev.Keypoints, curr.Keypoints, pair.Matches)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &FramePairResult{
		PrevFrameIndex: prev.Index,
		FrameIndex:     curr.Index,
		Associations:   assoc,
		Objects:        objects,
		Lost:           lostIDs(assoc, prev),
		Unmatched:      unmatchedIDs(assoc, curr),
		Clustering:     clustering,
		Votes:          votes.Len(),
	}
	diagf("frame %d: %d objects, %d lost, %d new, points %d/%d assigned (%d ambiguous), %d invalid matches",
		res.FrameIndex, len(res.Objects), len(res.Lost), len(res.Unmatched),
		clustering.Assigned, clustering.Total, clustering.Ambiguous, votes.InvalidMatch)
	return res, nil
}

// Run processes pairs in order, calling emit after each one. It stops at
// the first error from processing or from emit.
func (p *Processor) Run(ctx context.Context, pairs []*l2frames.FramePair, cal l2frames.Calibration, emit func(*FramePairResult) error) error {
	for _, pair := range pairs {
		res, err := p.ProcessFramePair(ctx, pair, cal)
		if err != nil {
			idx := -1
			if pair != nil && pair.Curr != nil {
				idx = pair.Curr.Index
			}
			return fmt.Errorf("frame %d: %w", idx, err)
		}
		if emit != nil {
			if err := emit(res); err != nil {
				return err
			}
		}
	}
	return nil
}

// processRegionPair writes only to a private copy of the current region, so
// two previous regions mapped to the same current region never share
// mutable state.
func (p *Processor) processRegionPair(rp RegionPair, kptsPrev, kptsCurr []l2frames.Keypoint, matches []l2frames.Match) ObjectTTC {
	region := *rp.Curr
	region.Matches = nil
	region.Keypoints = nil

	out := ObjectTTC{PrevBoxID: rp.Prev.BoxID, CurrBoxID: region.BoxID}
	out.Filter = l5tracks.ClusterMatchesWithROI(&region, kptsPrev, kptsCurr, matches, p.cfg.MatchFilter)
	out.MatchCount = len(region.Matches)

	est := p.cfg.Distance
	out.DistPrev = est.Estimate(rp.Prev.RangePoints)
	out.DistCurr = est.Estimate(region.RangePoints)
	out.ClosingSpeed = l6ttc.ClosingSpeed(out.DistPrev, out.DistCurr, p.cfg.FrameRate)
	out.RangeSummary = est.Summarize(&region)

	// Frame rate is validated in NewProcessor, so only camera outcomes
	// carry errors here and those are already encoded in the Result.
	out.Range, _ = l6ttc.TTCFromDistances(out.DistPrev, out.DistCurr, p.cfg.FrameRate)
	var camErr error
	out.Camera, out.CameraStats, camErr = l6ttc.ComputeTTCCamera(kptsPrev, kptsCurr, region.Matches, p.cfg.FrameRate)

	tracef("box %d->%d: range %v (%d pts), camera %v (%d matches, %d pairs)",
		out.PrevBoxID, out.CurrBoxID, out.Range, out.RangeSummary.PointCount,
		out.Camera, out.MatchCount, out.CameraStats.Retained)
	if camErr != nil {
		tracef("box %d->%d: camera: %v", out.PrevBoxID, out.CurrBoxID, camErr)
	}
	return out
}

// regionPairs resolves assoc into region pointers sorted by previous box id.
// Associations naming a region absent from either frame are skipped.
func regionPairs(assoc l2frames.AssociationMap, prev, curr *l2frames.Frame) []RegionPair {
	pairs := make([]RegionPair, 0, len(assoc))
	for _, prevID := range assoc.SortedKeys() {
		rp := RegionPair{Prev: prev.Region(prevID), Curr: curr.Region(assoc[prevID])}
		if rp.Prev == nil || rp.Curr == nil {
			opsf("association %d->%d references a missing region", prevID, assoc[prevID])
			continue
		}
		pairs = append(pairs, rp)
	}
	return pairs
}

func lostIDs(assoc l2frames.AssociationMap, prev *l2frames.Frame) []int {
	var ids []int
	for _, r := range prev.Regions {
		if _, ok := assoc[r.BoxID]; !ok {
			ids = append(ids, r.BoxID)
		}
	}
	sort.Ints(ids)
	return ids
}

func unmatchedIDs(assoc l2frames.AssociationMap, curr *l2frames.Frame) []int {
	used := make(map[int]struct{}, len(assoc))
	for _, c := range assoc {
		used[c] = struct{}{}
	}
	var ids []int
	for _, r := range curr.Regions {
		if _, ok := used[r.BoxID]; !ok {
			ids = append(ids, r.BoxID)
		}
	}
	sort.Ints(ids)
	return ids
}
