package index

import (
	"html/template"
	"io"

	"git.unix.lgbt/diamondburned/sigview/cmd/sigview-http/frontend"
	_ "git.unix.lgbt/diamondburned/sigview/cmd/sigview-http/frontend/components/errbox"
	"git.unix.lgbt/diamondburned/sigview/cmd/sigview-http/frontend/components/metric"
	"git.unix.lgbt/diamondburned/sigview/cmd/sigview-http/frontend/components/plot"
)

var index = frontend.Templater.Register("index", "pages/index/index.html")

func init() {
	frontend.Templater.Func("shortName", plot.ShortName)
}

type renderData struct {
	*frontend.View
	Plot      *plot.Plot
	Graph     metric.GraphData
	PlotlySrc string
}

// TraceStyle colors the toggle link of trace i.
func (r *renderData) TraceStyle(i int) template.CSS {
	return template.CSS("color: " + r.Store.Traces[i].Color.String())
}

// Render renders the viewer page of the given view.
func Render(w io.Writer, v *frontend.View, opts plot.Options) error {
	return index.Execute(w, &renderData{
		View:      v,
		Plot:      plot.Render(frontend.PlotTarget, v.Store, opts),
		Graph:     metric.NewGraphData(v.Store, opts.Height),
		PlotlySrc: frontend.PlotlySrc,
	})
}
