package plot

import (
	"io"
	"math"

	"git.unix.lgbt/diamondburned/sigview"
	"github.com/pkg/errors"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNothingVisible is returned by WritePNG when every trace is hidden.
var ErrNothingVisible = errors.New("no visible traces to draw")

// WritePNG draws the visible traces of the store as a PNG line chart with the
// same axes as Render.
func WritePNG(w io.Writer, s *sigview.Store, opts Options) error {
	visible := s.Visible()
	if len(visible) == 0 {
		return ErrNothingVisible
	}

	series := make([]chart.Series, 0, len(visible))
	for _, trace := range visible {
		n := len(trace.Values)
		if n > len(s.X) {
			n = len(s.X)
		}

		series = append(series, chart.ContinuousSeries{
			Name:    ShortName(trace.Name),
			XValues: s.X[:n],
			YValues: trace.Values[:n],
			Style: chart.Style{
				StrokeColor: drawingColor(trace.Color),
				StrokeWidth: 1.5,
			},
		})
	}

	xmin, xmax := s.XRange()
	ymin, ymax := s.YRange()
	if ymin == ymax {
		// go-chart refuses zero-height ranges.
		ymin, ymax = ymin-0.5, ymax+0.5
	}

	ch := chart.Chart{
		Width:  opts.Width,
		Height: opts.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 14, Left: 16, Right: 12, Bottom: 16},
		},
		XAxis: chart.XAxis{
			Name:  XTitle,
			Range: &chart.ContinuousRange{Min: xmin, Max: xmax},
		},
		YAxis: chart.YAxis{
			Name:  YTitle,
			Range: &chart.ContinuousRange{Min: ymin, Max: ymax},
		},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	if err := ch.Render(chart.PNG, w); err != nil {
		return errors.Wrap(err, "failed to render chart")
	}

	return nil
}

func drawingColor(c sigview.Color) drawing.Color {
	return drawing.Color{
		R: c.R,
		G: c.G,
		B: c.B,
		A: uint8(math.Round(c.A * 255)),
	}
}
