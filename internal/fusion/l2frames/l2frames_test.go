package l2frames

import (
	"errors"
	"math"
	"testing"
)

func TestRectContains_HalfOpen(t *testing.T) {
	r := Rect{X: 10, Y: 20, Width: 5, Height: 5}
	tests := []struct {
		name string
		p    Point2
		want bool
	}{
		{"top-left corner", Point2{10, 20}, true},
		{"interior", Point2{12.5, 22.5}, true},
		{"right edge excluded", Point2{15, 22}, false},
		{"bottom edge excluded", Point2{12, 25}, false},
		{"left of rect", Point2{9.99, 22}, false},
		{"above rect", Point2{12, 19.99}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Contains(tt.p); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestRectShrink(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: 100, Height: 50}
	got := r.Shrink(0.1)
	want := Rect{X: 5, Y: 2.5, Width: 90, Height: 45}
	if got != want {
		t.Errorf("Shrink(0.1) = %+v, want %+v", got, want)
	}
	if r.Shrink(0) != r {
		t.Errorf("Shrink(0) should be a no-op")
	}
}

func TestMatchEndpoints_OutOfRange(t *testing.T) {
	prev := []Keypoint{{Pt: Point2{1, 1}}}
	curr := []Keypoint{{Pt: Point2{2, 2}}}

	if _, _, ok := (Match{PrevIdx: 0, CurrIdx: 1}).Endpoints(prev, curr); ok {
		t.Error("expected curr index 1 to be rejected")
	}
	if _, _, ok := (Match{PrevIdx: -1, CurrIdx: 0}).Endpoints(prev, curr); ok {
		t.Error("expected negative prev index to be rejected")
	}
	p, c, ok := (Match{PrevIdx: 0, CurrIdx: 0}).Endpoints(prev, curr)
	if !ok || p != prev[0].Pt || c != curr[0].Pt {
		t.Errorf("Endpoints() = %v, %v, %v", p, c, ok)
	}
}

func TestFrameClone_IsolatesRegions(t *testing.T) {
	f := &Frame{
		Index:   3,
		Regions: []ObjectRegion{{BoxID: 1, ROI: Rect{Width: 10, Height: 10}}},
	}
	c := f.Clone()
	c.Regions[0].RangePoints = append(c.Regions[0].RangePoints, RangePoint{X: 1})
	if len(f.Regions[0].RangePoints) != 0 {
		t.Fatal("clone mutation leaked into source frame")
	}
	if c.Region(1) == nil || c.Region(2) != nil {
		t.Error("Region lookup on clone returned unexpected result")
	}
}

func TestAssociationMapSortedKeys(t *testing.T) {
	m := AssociationMap{7: 1, 2: 3, 5: 5}
	got := m.SortedKeys()
	want := []int{2, 5, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SortedKeys() = %v, want %v", got, want)
		}
	}
}

func TestCalibrationValidate(t *testing.T) {
	good := Calibration{R: Identity4(), RT: Identity4()}
	good.P[0] = 700

	if err := good.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}

	zero := Calibration{R: Identity4(), RT: Identity4()}
	if err := zero.Validate(); !errors.Is(err, ErrInvalidCalibration) {
		t.Errorf("expected ErrInvalidCalibration for zero projection, got %v", err)
	}

	nan := good
	nan.RT[3] = math.NaN()
	if err := nan.Validate(); !errors.Is(err, ErrInvalidCalibration) {
		t.Errorf("expected ErrInvalidCalibration for NaN entry, got %v", err)
	}
}
