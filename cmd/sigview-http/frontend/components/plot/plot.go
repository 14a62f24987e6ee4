// Package plot turns a signal store into Plotly figures and static PNG charts.
package plot

import (
	"strings"

	"git.unix.lgbt/diamondburned/sigview"
	grob "github.com/MetalBlueberry/go-plotly/graph_objects"
)

// Axis titles.
const (
	XTitle = "Time(min)"
	YTitle = "Signal"
)

// MarkerSize is the size of the trace markers in pixels.
const MarkerSize = 10

// sampleMarker separates the sample name from the run details in trace names,
// e.g. IMPT6620_NTX_E2-3_012216-SIGNAL01.
const sampleMarker = "_NTX_"

// Options controls the figure size in pixels.
type Options struct {
	Width  int
	Height int
}

// OptionsFromConfig returns the plot options in the configuration.
func OptionsFromConfig(cfg sigview.PlotConfig) Options {
	return Options{Width: cfg.Width, Height: cfg.Height}
}

// Plot is a rendered figure bound to the page element it is drawn into.
type Plot struct {
	// Target is the id of the element the figure replaces the contents of.
	Target string
	Figure *grob.Fig
}

// Render builds a new figure from the visible traces of the store. Each call
// builds the whole figure from scratch.
func Render(target string, s *sigview.Store, opts Options) *Plot {
	visible := s.Visible()

	data := make(grob.Traces, 0, len(visible))
	for _, trace := range visible {
		data = append(data, &grob.Scatter{
			Type: grob.TraceTypeScatter,
			Name: grob.String(ShortName(trace.Name)),
			X:    s.X,
			Y:    trace.Values,
			Marker: &grob.ScatterMarker{
				Size:  MarkerSize,
				Color: grob.Color(trace.Color.String()),
			},
		})
	}

	xmin, xmax := s.XRange()
	ymin, ymax := s.YRange()

	return &Plot{
		Target: target,
		Figure: &grob.Fig{
			Data: data,
			Layout: &grob.Layout{
				Width:  float64(opts.Width),
				Height: float64(opts.Height),
				Xaxis: &grob.LayoutXaxis{
					Title: &grob.LayoutXaxisTitle{Text: XTitle},
					Range: []float64{xmin, xmax},
					Type:  grob.LayoutXaxisTypeLinear,
				},
				Yaxis: &grob.LayoutYaxis{
					Title: &grob.LayoutYaxisTitle{Text: YTitle},
					Range: []float64{ymin, ymax},
				},
			},
		},
	}
}

// ShortName trims a trace name down to its sample name, which is everything
// before the "_NTX_" marker. Names without the marker are returned as-is.
func ShortName(trace string) string {
	if n := strings.Index(trace, sampleMarker); n > 0 {
		return trace[:n]
	}
	return trace
}
