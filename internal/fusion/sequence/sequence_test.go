package sequence

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/collision.report/internal/fusion/l2frames"
	"github.com/banshee-data/collision.report/internal/testutil"
)

// threeFrameSequence is the approach scene extended by one more frame
// closing another 2 m.
func threeFrameSequence() *Sequence {
	scene := testutil.DefaultApproachScene()
	first := scene.FramePair()
	scene.DistPrev, scene.DistCurr = 18, 16
	second := scene.FramePair()

	base := time.Date(2011, 9, 26, 13, 2, 25, 0, time.UTC)
	f0, f1, f2 := *first.Prev, *first.Curr, *second.Curr
	f0.Index, f1.Index, f2.Index = 0, 1, 2
	f0.Timestamp = base
	f1.Timestamp = base.Add(100 * time.Millisecond)
	f2.Timestamp = base.Add(200 * time.Millisecond)

	return &Sequence{
		FrameRate:   10,
		Calibration: testutil.DefaultCalibration(),
		Frames:      []l2frames.Frame{f0, f1, f2},
		Matches: []MatchSet{
			{PrevFrame: 0, CurrFrame: 1, Matches: first.Matches},
			{PrevFrame: 1, CurrFrame: 2, Matches: second.Matches},
		},
	}
}

func writeSequence(t *testing.T, seq *Sequence) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, seq.Encode(&buf))
	path := filepath.Join(t.TempDir(), "sequence.json")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func TestLoad(t *testing.T) {
	want := threeFrameSequence()
	path := writeSequence(t, want)

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, got.Source)

	want.Source = path
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("loaded sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load("/nonexistent/sequence.json")
	assert.Error(t, err)

	dir := t.TempDir()
	yaml := filepath.Join(dir, "sequence.yaml")
	require.NoError(t, os.WriteFile(yaml, []byte("frames: []"), 0644))
	_, err = Load(yaml)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".json")

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{"frames": [`), 0644))
	_, err = Load(broken)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Sequence)
		wantErr error
	}{
		{"valid", func(*Sequence) {}, nil},
		{"zero calibration", func(s *Sequence) { s.Calibration = l2frames.Calibration{} }, l2frames.ErrInvalidCalibration},
		{"negative frame rate", func(s *Sequence) { s.FrameRate = -1 }, ErrInvalidSequence},
		{"frames out of order", func(s *Sequence) { s.Frames[2].Index = 1 }, ErrInvalidSequence},
		{"match set skips a frame", func(s *Sequence) { s.Matches[0].CurrFrame = 2 }, ErrInvalidSequence},
		{"match set for unknown frame", func(s *Sequence) { s.Matches[1].PrevFrame = 7 }, ErrInvalidSequence},
		{"duplicate match set", func(s *Sequence) { s.Matches[1] = s.Matches[0] }, ErrInvalidSequence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := threeFrameSequence()
			tt.mutate(seq)
			err := seq.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecode_RejectsInvalid(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"calibration": {}, "frames": []}`))
	assert.ErrorIs(t, err, l2frames.ErrInvalidCalibration)
}

func TestPairs(t *testing.T) {
	seq := threeFrameSequence()
	pairs := seq.Pairs()
	require.Len(t, pairs, 2)

	assert.Equal(t, 0, pairs[0].Prev.Index)
	assert.Equal(t, 1, pairs[0].Curr.Index)
	assert.Equal(t, 1, pairs[1].Prev.Index)
	assert.Equal(t, 2, pairs[1].Curr.Index)
	assert.Len(t, pairs[0].Matches, len(seq.Matches[0].Matches))

	// Frame 1 appears in both pairs; its regions must be independent copies.
	pairs[0].Curr.Regions[0].RangePoints = append(pairs[0].Curr.Regions[0].RangePoints, l2frames.RangePoint{X: 1})
	assert.Empty(t, pairs[1].Prev.Regions[0].RangePoints)
	assert.Empty(t, seq.Frames[1].Regions[0].RangePoints)
}

func TestPairs_MissingMatchSet(t *testing.T) {
	seq := threeFrameSequence()
	seq.Matches = seq.Matches[1:]
	require.NoError(t, seq.Validate())

	pairs := seq.Pairs()
	require.Len(t, pairs, 2)
	assert.Empty(t, pairs[0].Matches)
	assert.NotEmpty(t, pairs[1].Matches)
}

func TestPairs_TooFewFrames(t *testing.T) {
	seq := threeFrameSequence()
	seq.Frames = seq.Frames[:1]
	seq.Matches = nil
	assert.Nil(t, seq.Pairs())
}
