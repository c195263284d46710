package report

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// SaveTTCPlot writes a static plot of range TTC (solid) and camera TTC
// (dashed) per series. The image format follows the extension of path
// (.png, .svg, .pdf ...).
func SaveTTCPlot(path string, series []ObjectSeries, o Options) error {
	p, err := newTTCPlot(series, o)
	if err != nil {
		return err
	}
	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	return nil
}

func newTTCPlot(series []ObjectSeries, o Options) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = o.Title
	if p.Title.Text == "" {
		p.Title.Text = "Time to Collision"
	}
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "TTC (s)"
	p.Y.Min = 0
	p.Y.Max = o.maxTTC()
	p.Add(plotter.NewGrid())

	for i, s := range series {
		c := plotutil.Color(i)
		name := fmt.Sprintf("object %d", s.ChainID)

		for j, seg := range segments(s.Points, func(pt SeriesPoint) *float64 { return pt.RangeTTC }) {
			line, points, err := plotter.NewLinePoints(seg)
			if err != nil {
				return nil, err
			}
			line.Color = c
			line.Width = vg.Points(1.5)
			points.Color = c
			p.Add(line, points)
			if j == 0 {
				p.Legend.Add(name+" range", line)
			}
		}
		for j, seg := range segments(s.Points, func(pt SeriesPoint) *float64 { return pt.CameraTTC }) {
			line, err := plotter.NewLine(seg)
			if err != nil {
				return nil, err
			}
			line.Color = c
			line.Width = vg.Points(1)
			line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
			p.Add(line)
			if j == 0 {
				p.Legend.Add(name+" camera", line)
			}
		}
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// segments splits points into runs of consecutive estimates so frames
// without one break the line. Values above the axis are not clipped.
func segments(points []SeriesPoint, value func(SeriesPoint) *float64) []plotter.XYs {
	var out []plotter.XYs
	var cur plotter.XYs
	for _, pt := range points {
		v := value(pt)
		if v == nil {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: float64(pt.FrameIndex), Y: *v})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}
