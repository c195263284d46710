package sequence

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/banshee-data/collision.report/internal/fusion/l2frames"
	"github.com/banshee-data/collision.report/internal/monitoring"
)

// MaxFileSize bounds the size of a sequence file accepted by Load.
const MaxFileSize = 256 * 1024 * 1024 // 256MB

// ErrInvalidSequence is returned for structurally invalid sequences.
var ErrInvalidSequence = errors.New("invalid sequence")

// MatchSet holds the correspondences from frame PrevFrame to frame
// CurrFrame, identified by Frame.Index.
type MatchSet struct {
	PrevFrame int              `json:"prev_frame"`
	CurrFrame int              `json:"curr_frame"`
	Matches   []l2frames.Match `json:"matches"`
}

// Sequence is a recorded drive segment.
type Sequence struct {
	Source      string               `json:"-"`
	FrameRate   float64              `json:"frame_rate,omitempty"` // Hz; 0 defers to the tuning config
	Calibration l2frames.Calibration `json:"calibration"`
	Frames      []l2frames.Frame     `json:"frames"`
	Matches     []MatchSet           `json:"matches"`
}

// Load reads and validates a sequence file.
func Load(path string) (*Sequence, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("sequence file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat sequence file: %w", err)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("sequence file too large: %d bytes (max %d)", info.Size(), MaxFileSize)
	}

	f, err := os.Open(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sequence file: %w", err)
	}
	defer f.Close()

	seq, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cleanPath, err)
	}
	seq.Source = cleanPath
	return seq, nil
}

// Decode parses and validates a sequence from r.
func Decode(r io.Reader) (*Sequence, error) {
	var seq Sequence
	dec := json.NewDecoder(r)
	if err := dec.Decode(&seq); err != nil {
		return nil, fmt.Errorf("failed to parse sequence JSON: %w", err)
	}
	if err := seq.Validate(); err != nil {
		return nil, err
	}
	return &seq, nil
}

// Encode writes seq to w as indented JSON.
func (s *Sequence) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// Validate checks that frame indices strictly increase, that every match
// set links two consecutive frames at most once, and that the calibration
// is usable.
func (s *Sequence) Validate() error {
	if err := s.Calibration.Validate(); err != nil {
		return err
	}
	if s.FrameRate < 0 {
		return fmt.Errorf("%w: negative frame_rate %v", ErrInvalidSequence, s.FrameRate)
	}

	next := make(map[int]int, len(s.Frames))
	for i := range s.Frames {
		if i > 0 {
			if s.Frames[i].Index <= s.Frames[i-1].Index {
				return fmt.Errorf("%w: frame index %d follows %d", ErrInvalidSequence, s.Frames[i].Index, s.Frames[i-1].Index)
			}
			next[s.Frames[i-1].Index] = s.Frames[i].Index
		}
	}

	seen := make(map[int]bool, len(s.Matches))
	for _, ms := range s.Matches {
		if want, ok := next[ms.PrevFrame]; !ok || want != ms.CurrFrame {
			return fmt.Errorf("%w: match set %d->%d does not link consecutive frames", ErrInvalidSequence, ms.PrevFrame, ms.CurrFrame)
		}
		if seen[ms.PrevFrame] {
			return fmt.Errorf("%w: duplicate match set for frame %d", ErrInvalidSequence, ms.PrevFrame)
		}
		seen[ms.PrevFrame] = true
	}
	return nil
}

// Pairs returns one FramePair per consecutive frame pair. Each pair holds
// its own frame copies, so regions populated while processing one pair
// never appear in another. A missing match set yields an empty one.
func (s *Sequence) Pairs() []*l2frames.FramePair {
	if len(s.Frames) < 2 {
		return nil
	}

	byPrev := make(map[int][]l2frames.Match, len(s.Matches))
	for _, ms := range s.Matches {
		byPrev[ms.PrevFrame] = ms.Matches
	}

	pairs := make([]*l2frames.FramePair, 0, len(s.Frames)-1)
	for i := 1; i < len(s.Frames); i++ {
		prev, curr := &s.Frames[i-1], &s.Frames[i]
		matches, ok := byPrev[prev.Index]
		if !ok {
			monitoring.Debugf("sequence: no matches for frames %d->%d", prev.Index, curr.Index)
		}
		pairs = append(pairs, &l2frames.FramePair{
			Prev:    prev.Clone(),
			Curr:    curr.Clone(),
			Matches: append([]l2frames.Match(nil), matches...),
		})
	}
	return pairs
}
