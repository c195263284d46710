package l5tracks

import (
	"fmt"
	"sort"

	"github.com/banshee-data/collision.report/internal/fusion/l2frames"
)

// AssociationStrategy selects how vote counts become an AssociationMap.
type AssociationStrategy string

const (
	// StrategyBestVote maps each previous region to the current region with
	// the most votes. Two previous regions may map to the same current one.
	StrategyBestVote AssociationStrategy = "best-vote"
	// StrategyHungarian solves a one-to-one assignment that maximises the
	// number of associated regions, then their total votes.
	StrategyHungarian AssociationStrategy = "hungarian"
)

// ParseAssociationStrategy validates s. The empty string selects
// StrategyBestVote.
func ParseAssociationStrategy(s string) (AssociationStrategy, error) {
	switch AssociationStrategy(s) {
	case "", StrategyBestVote:
		return StrategyBestVote, nil
	case StrategyHungarian:
		return StrategyHungarian, nil
	}
	return "", fmt.Errorf("unknown association strategy %q (want %s or %s)", s, StrategyBestVote, StrategyHungarian)
}

// Vote is the number of correspondences linking one previous region to one
// current region.
type Vote struct {
	PrevID int
	CurrID int
	Count  int
}

type votePair struct{ prev, curr int }

// VoteTable accumulates region-pair votes for one frame pair.
type VoteTable struct {
	counts       map[votePair]int
	InvalidMatch int // Matches whose keypoint indices were out of range
}

// CountVotes casts one vote per (previous region, current region) pair whose
// ROIs contain the previous and current endpoints of a match. A match inside
// overlapping regions votes for every combination.
func CountVotes(matches []l2frames.Match, prev, curr *l2frames.Frame) *VoteTable {
	vt := &VoteTable{counts: make(map[votePair]int)}
	if prev == nil || curr == nil {
		return vt
	}

	for _, m := range matches {
		pPrev, pCurr, ok := m.Endpoints(prev.Keypoints, curr.Keypoints)
		if !ok {
			vt.InvalidMatch++
			continue
		}
		for i := range prev.Regions {
			if !prev.Regions[i].ROI.Contains(pPrev) {
				continue
			}
			for j := range curr.Regions {
				if curr.Regions[j].ROI.Contains(pCurr) {
					vt.counts[votePair{prev.Regions[i].BoxID, curr.Regions[j].BoxID}]++
				}
			}
		}
	}
	return vt
}

// Votes returns the count for one region pair.
func (vt *VoteTable) Votes(prevID, currID int) int {
	return vt.counts[votePair{prevID, currID}]
}

// Len returns the number of region pairs with at least one vote.
func (vt *VoteTable) Len() int {
	return len(vt.counts)
}

// All returns every non-zero vote ordered by previous id, then count
// descending, then current id ascending.
func (vt *VoteTable) All() []Vote {
	out := make([]Vote, 0, len(vt.counts))
	for k, c := range vt.counts {
		out = append(out, Vote{PrevID: k.prev, CurrID: k.curr, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PrevID != out[j].PrevID {
			return out[i].PrevID < out[j].PrevID
		}
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].CurrID < out[j].CurrID
	})
	return out
}

// Candidates returns the votes for prevID, best first.
func (vt *VoteTable) Candidates(prevID int) []Vote {
	var out []Vote
	for _, v := range vt.All() {
		if v.PrevID == prevID {
			out = append(out, v)
		}
	}
	return out
}

// BestVote picks, for each previous region with votes, the current region
// with the highest count. Ties go to the smallest current box id.
func (vt *VoteTable) BestVote() l2frames.AssociationMap {
	out := make(l2frames.AssociationMap)
	for _, v := range vt.All() {
		// All() puts the winner first within each previous id.
		if _, seen := out[v.PrevID]; !seen {
			out[v.PrevID] = v.CurrID
		}
	}
	return out
}

// Hungarian picks a one-to-one association. Region pairs without votes are
// never associated.
func (vt *VoteTable) Hungarian() l2frames.AssociationMap {
	out := make(l2frames.AssociationMap)
	if len(vt.counts) == 0 {
		return out
	}

	prevSet := map[int]struct{}{}
	currSet := map[int]struct{}{}
	maxVotes := 0
	for k, c := range vt.counts {
		prevSet[k.prev] = struct{}{}
		currSet[k.curr] = struct{}{}
		if c > maxVotes {
			maxVotes = c
		}
	}
	prevIDs := sortedIDs(prevSet)
	currIDs := sortedIDs(currSet)

	cost := make([][]float64, len(prevIDs))
	forbidden := make([][]bool, len(prevIDs))
	for i, p := range prevIDs {
		cost[i] = make([]float64, len(currIDs))
		forbidden[i] = make([]bool, len(currIDs))
		for j, c := range currIDs {
			votes := vt.counts[votePair{p, c}]
			cost[i][j] = float64(maxVotes - votes)
			forbidden[i][j] = votes == 0
		}
	}

	for i, j := range hungarianAssign(cost, forbidden) {
		if j >= 0 {
			out[prevIDs[i]] = currIDs[j]
		}
	}
	return out
}

// Associate resolves vt with the given strategy.
func (vt *VoteTable) Associate(strategy AssociationStrategy) (l2frames.AssociationMap, error) {
	switch strategy {
	case "", StrategyBestVote:
		return vt.BestVote(), nil
	case StrategyHungarian:
		return vt.Hungarian(), nil
	}
	return nil, fmt.Errorf("unknown association strategy %q", strategy)
}

// MatchBoundingBoxes associates previous-frame regions with current-frame
// regions using best-vote selection. Previous regions that receive no votes
// are absent from the result.
func MatchBoundingBoxes(matches []l2frames.Match, prev, curr *l2frames.Frame) l2frames.AssociationMap {
	return CountVotes(matches, prev, curr).BestVote()
}

func sortedIDs(set map[int]struct{}) []int {
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
