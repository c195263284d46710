package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/collision.report/internal/units"
)

// gap is the ECharts placeholder for a missing value in a line series.
const gap = "-"

// Options controls RenderTTCChart.
type Options struct {
	Title      string
	Subtitle   string
	SpeedUnits string  // units package constant for the closing speed chart
	MaxTTC     float64 // Upper bound of the TTC axes (seconds); 0 selects 10
}

func (o Options) maxTTC() float64 {
	if o.MaxTTC <= 0 {
		return 10
	}
	return o.MaxTTC
}

// RenderTTCChart writes an HTML page with three line charts: range TTC,
// camera TTC and closing speed, one line per series. Frames where an
// object has no estimate are drawn as gaps.
func RenderTTCChart(w io.Writer, series []ObjectSeries, o Options) error {
	frames := frameAxis(series)
	labels := make([]string, len(frames))
	for i, f := range frames {
		labels[i] = strconv.Itoa(f)
	}
	title := o.Title
	if title == "" {
		title = "Time to Collision"
	}

	rangeChart := newLineChart(title, "Range TTC", o.Subtitle, "TTC (s)", o.maxTTC())
	cameraChart := newLineChart(title, "Camera TTC", o.Subtitle, "TTC (s)", o.maxTTC())
	speedChart := newLineChart(title, "Closing speed", o.Subtitle, units.Label(o.SpeedUnits), 0)
	rangeChart.SetXAxis(labels)
	cameraChart.SetXAxis(labels)
	speedChart.SetXAxis(labels)

	for _, s := range series {
		name := fmt.Sprintf("object %d", s.ChainID)
		rangeData, cameraData, speedData := lineData(s, frames, o.SpeedUnits)
		lineOpts := charts.WithLineChartOpts(opts.LineChart{ConnectNulls: opts.Bool(false), ShowSymbol: opts.Bool(true)})
		rangeChart.AddSeries(name, rangeData, lineOpts)
		cameraChart.AddSeries(name, cameraData, lineOpts)
		speedChart.AddSeries(name, speedData, lineOpts)
	}

	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(rangeChart, cameraChart, speedChart)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

func newLineChart(pageTitle, title, subtitle, yName string, yMax float64) *charts.Line {
	line := charts.NewLine()
	yAxis := opts.YAxis{Name: yName, NameLocation: "middle", NameGap: 40, Min: 0}
	if yMax > 0 {
		yAxis.Max = yMax
	}
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: pageTitle, Theme: "dark", Width: "1200px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(yAxis),
	)
	return line
}

// frameAxis returns the sorted union of frame indices across series.
func frameAxis(series []ObjectSeries) []int {
	seen := map[int]struct{}{}
	for _, s := range series {
		for _, p := range s.Points {
			seen[p.FrameIndex] = struct{}{}
		}
	}
	frames := make([]int, 0, len(seen))
	for f := range seen {
		frames = append(frames, f)
	}
	sort.Ints(frames)
	return frames
}

// lineData aligns s to the frame axis, filling frames without an estimate
// with gaps.
func lineData(s ObjectSeries, frames []int, speedUnits string) (rangeData, cameraData, speedData []opts.LineData) {
	byFrame := make(map[int]SeriesPoint, len(s.Points))
	for _, p := range s.Points {
		byFrame[p.FrameIndex] = p
	}

	rangeData = make([]opts.LineData, len(frames))
	cameraData = make([]opts.LineData, len(frames))
	speedData = make([]opts.LineData, len(frames))
	for i, f := range frames {
		p, ok := byFrame[f]
		rangeData[i] = opts.LineData{Value: gap}
		cameraData[i] = opts.LineData{Value: gap}
		speedData[i] = opts.LineData{Value: gap}
		if !ok {
			continue
		}
		if p.RangeTTC != nil {
			rangeData[i].Value = *p.RangeTTC
		}
		if p.CameraTTC != nil {
			cameraData[i].Value = *p.CameraTTC
		}
		speedData[i].Value = units.ConvertSpeed(p.ClosingSpeed, speedUnits)
	}
	return rangeData, cameraData, speedData
}
