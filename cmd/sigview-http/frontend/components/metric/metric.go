// Package metric draws line graphs using SVG paths. It is the fallback for
// browsers without JavaScript and is primarily taken from zserge/metric.
package metric

import (
	"fmt"
	"html/template"
	"math"
	"strconv"
	"strings"

	"git.unix.lgbt/diamondburned/sigview"
	"git.unix.lgbt/diamondburned/sigview/cmd/sigview-http/frontend"
	"git.unix.lgbt/diamondburned/sigview/cmd/sigview-http/frontend/components/plot"
)

func init() {
	frontend.Templater.Func("drawPaths", drawPaths)
	frontend.Templater.Func("prepareGraph", prepareGraph)
}

// GraphData contains the data for graphing.
type GraphData struct {
	// Names contains a list of names that correspond to each Samples sets.
	Names []string
	// Colors contains a list of colors that correspond to Names. If there are
	// more names than colors, then those names will be colored black.
	Colors []uint32
	// Samplesets contains a sampleset list of samples. Sample points can be
	// NaN, in which it will not be drawn out. All samplesets must be as long
	// as the X axis.
	Samplesets [][]float64
	// MinSample and MaxSample are the bounds of the Y axis. If either is NaN,
	// both are found from the samples.
	MinSample float64
	MaxSample float64
	// Width is the number of points on the X axis. If it's 0, then the length
	// of the longest sampleset is used. It is only relative: SVGs can be
	// scaled arbitrarily.
	Width float64
	// Height is the height of the graph. It determines the aspect ratio of the
	// graph.
	Height float64
}

// NewGraphData creates graph data from the visible traces of the store. Traces
// shorter than the X axis are padded with NaN.
func NewGraphData(s *sigview.Store, height int) GraphData {
	visible := s.Visible()
	ymin, ymax := s.YRange()

	data := GraphData{
		Names:      make([]string, len(visible)),
		Colors:     make([]uint32, len(visible)),
		Samplesets: make([][]float64, len(visible)),
		MinSample:  ymin,
		MaxSample:  ymax,
		Width:      float64(len(s.X)),
		Height:     float64(height),
	}

	for i, trace := range visible {
		samples := make([]float64, len(s.X))
		n := copy(samples, trace.Values)
		for j := n; j < len(samples); j++ {
			samples[j] = NaN
		}

		data.Names[i] = plot.ShortName(trace.Name)
		data.Colors[i] = trace.Color.Hex()
		data.Samplesets[i] = samples
	}

	return data
}

// ColorHex returns the name's color in CSS hexadecimal format. It returns
// black if the name isn't in the colors list.
func (data *GraphData) ColorHex(nameIx int) template.HTMLAttr {
	if nameIx >= len(data.Colors) {
		return "#000"
	}

	return template.HTMLAttr(fmt.Sprintf("#%06X", data.Colors[nameIx]))
}

// ColorStyle returns the name's color as an inline CSS declaration.
func (data *GraphData) ColorStyle(nameIx int) template.CSS {
	return template.CSS("color: " + string(data.ColorHex(nameIx)))
}

// FormatSigFigs formats a floating point number to the given significant
// figures.
func FormatSigFigs(v float64, sf int) string {
	return strconv.FormatFloat(v, 'g', sf, 64)
}

// NaN is a float64 not-a-number constant.
var NaN = math.NaN()

type graphData struct {
	GraphData
	Error error
}

// MinLabel and MaxLabel label the Y axis bounds.
func (data *graphData) MinLabel() string { return FormatSigFigs(data.MinSample, 4) }
func (data *graphData) MaxLabel() string { return FormatSigFigs(data.MaxSample, 4) }

func prepareGraph(data GraphData) *graphData {
	if len(data.Samplesets) == 0 {
		return &graphData{data, nil}
	}

	if data.Width == 0 {
		for _, samples := range data.Samplesets {
			if w := float64(len(samples)); w > data.Width {
				data.Width = w
			}
		}
	}

	// Ensure that all samples span the X axis.
	for i, samples := range data.Samplesets {
		if float64(len(samples)) != data.Width {
			return &graphData{data, fmt.Errorf(
				"sampleset %d has %d points, expected %.0f",
				i, len(samples), data.Width,
			)}
		}
	}

	if math.IsNaN(data.MinSample) || math.IsNaN(data.MaxSample) {
		data.MinSample = NaN
		data.MaxSample = NaN

		// Search across all samplesets for the absolute maximum and minimum
		// across all of them.
		for _, samples := range data.Samplesets {
			for _, x := range samples {
				if math.IsNaN(x) {
					continue
				}
				if math.IsNaN(data.MinSample) || x < data.MinSample {
					data.MinSample = x
				}
				if math.IsNaN(data.MaxSample) || x > data.MaxSample {
					data.MaxSample = x
				}
			}
		}
	}

	return &graphData{data, nil}
}

func drawPaths(data *graphData) template.HTML {
	html := strings.Builder{}
	html.Grow(8 * 1024) // 8KB

	for i := len(data.Samplesets) - 1; i >= 0; i-- {
		html.WriteString(`<path class="sample-`)
		html.WriteString(strconv.Itoa(i))
		html.WriteString(`" `)

		html.WriteString(`stroke="`)
		html.WriteString(string(data.ColorHex(i)))
		html.WriteString(`" `)

		html.WriteString(`d="`)
		pathD(&html, data, data.Samplesets[i])
		html.WriteString(`" />`)
	}

	return template.HTML(html.String())
}

func pathD(paths *strings.Builder, data *graphData, samples []float64) {
	height := data.Height

	min := data.MinSample
	offset := data.MaxSample - data.MinSample
	if offset == 0 || math.IsNaN(offset) {
		// Flat graphs are drawn through the middle.
		min, offset = min-1, 2
	}

	prev := false

	for i, v := range samples {
		if math.IsNaN(v) {
			prev = false
			continue
		}

		x := float64(i)
		y := (v - min) / offset

		// If we're initially drawing the first point on the SVG, then Move to
		// that point. Otherwise, draw a Line to that point.
		var cmd = 'L'
		if !prev {
			cmd = 'M'
		}

		prev = true

		// Code unwrapped from "%c%.5f %.5f ".
		paths.WriteRune(cmd)
		paths.WriteString(strconv.FormatFloat(x, 'f', 5, 64))
		paths.WriteByte(' ')
		paths.WriteString(strconv.FormatFloat((1-y)*height, 'f', 5, 64))
		paths.WriteByte(' ')
	}
}
