package handler

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"git.unix.lgbt/diamondburned/sigview"
	"git.unix.lgbt/diamondburned/sigview/cmd/sigview-http/frontend"
	"git.unix.lgbt/diamondburned/sigview/cmd/sigview-http/frontend/components/plot"
	"git.unix.lgbt/diamondburned/sigview/cmd/sigview-http/frontend/pages/errpage"
	"git.unix.lgbt/diamondburned/sigview/cmd/sigview-http/frontend/pages/index"
	grob "github.com/MetalBlueberry/go-plotly/graph_objects"
	"github.com/diamondburned/tmplutil"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/pkg/errors"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
)

var minifier = minify.New()

func init() {
	minifier.Add("text/html", html.DefaultMinifier)
	minifier.AddFunc("text/css", css.Minify)
}

type handler struct {
	loader   *sigview.Loader
	sampling sigview.Sampling
	baseline int
	opts     plot.Options
}

// New creates the viewer handler. Blobs are loaded through l.
func New(cfg sigview.Config, l *sigview.Loader) http.Handler {
	h := handler{
		loader:   l,
		sampling: cfg.Sampling,
		baseline: cfg.Baseline,
		opts:     plot.OptionsFromConfig(cfg.Plot),
	}

	r := chi.NewRouter()
	r.Mount("/static", http.StripPrefix("/static", frontend.MountStatic()))
	r.Group(func(r chi.Router) {
		r.Use(middleware.NoCache)
		r.Use(middleware.Compress(5))

		r.Get("/plot.png", h.png)
	})
	r.Group(func(r chi.Router) {
		r.Use(tmplutil.AlwaysFlush)
		r.Use(middleware.NoCache)
		r.Use(middleware.Compress(5))

		// TODO: remove * once FCGI works; blame NGINX.
		r.Get("/*", h.root)
	})

	return r
}

type jsonError struct {
	Error string
}

type viewResponse struct {
	URL        string
	Baseline   int
	Group      string
	Normalized bool
	Traces     []traceResponse
	XRange     [2]float64
	YRange     [2]float64
	Figure     *grob.Fig
}

type traceResponse struct {
	Index      int
	Name       string
	Color      string
	Visible    bool
	Degenerate bool
}

func newViewResponse(v *frontend.View, p *plot.Plot) viewResponse {
	resp := viewResponse{
		URL:        v.URL,
		Baseline:   v.Baseline,
		Group:      v.Store.Group,
		Normalized: v.Store.Normalized,
		Traces:     make([]traceResponse, len(v.Store.Traces)),
		Figure:     p.Figure,
	}

	resp.XRange[0], resp.XRange[1] = v.Store.XRange()
	resp.YRange[0], resp.YRange[1] = v.Store.YRange()

	for i, trace := range v.Store.Traces {
		resp.Traces[i] = traceResponse{
			Index:      i,
			Name:       trace.Name,
			Color:      trace.Color.String(),
			Visible:    trace.Visible,
			Degenerate: trace.Degenerate,
		}
	}

	return resp
}

func (h handler) view(r *http.Request) (*frontend.View, error) {
	q, err := frontend.ParseQuery(r, h.baseline)
	if err != nil {
		return nil, err
	}

	return frontend.LoadView(r.Context(), h.loader, h.sampling, q)
}

func (h handler) root(w http.ResponseWriter, r *http.Request) {
	v, err := h.view(r)

	for _, accept := range strings.Split(r.Header.Get("Accept"), ",") {
		accept, _, _ = strings.Cut(accept, ";")

		switch strings.TrimSpace(accept) {
		case "application/json":
			w.Header().Set("Content-Type", "application/json; charset=UTF-8")

			if err != nil {
				w.WriteHeader(StatusCode(err))
				json.NewEncoder(w).Encode(jsonError{Error: err.Error()})
				return
			}

			p := plot.Render(frontend.PlotTarget, v.Store, h.opts)
			if err := json.NewEncoder(w).Encode(newViewResponse(v, p)); err != nil {
				log.Println("failed to write JSON:", err)
			}
			return

		case "text/html":
			fallthrough
		default:
			w.Header().Set("Content-Type", "text/html; charset=UTF-8")

			if err != nil {
				errpage.Respond(w, StatusCode(err), err)
				return
			}

			w := minifier.Writer("text/html", w)
			defer w.Close()

			if err := index.Render(w, v, h.opts); err != nil {
				log.Println("failed to render index:", err)
			}
			return
		}
	}
}

func (h handler) png(w http.ResponseWriter, r *http.Request) {
	v, err := h.view(r)
	if err != nil {
		http.Error(w, err.Error(), StatusCode(err))
		return
	}

	var buf bytes.Buffer

	if err := plot.WritePNG(&buf, v.Store, h.opts); err != nil {
		http.Error(w, err.Error(), StatusCode(err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	buf.WriteTo(w)
}

// StatusCode returns the HTTP status code for an error returned while loading
// or rendering a view.
func StatusCode(err error) int {
	var (
		queryErr  *frontend.QueryError
		indexErr  *sigview.IndexOutOfRangeError
		loadErr   *sigview.LoadFailureError
		parseErr  *sigview.ParseError
		schemaErr *sigview.SchemaError
		lengthErr *sigview.LengthMismatchError
	)

	switch {
	case errors.As(err, &queryErr), errors.As(err, &indexErr):
		return http.StatusBadRequest
	case errors.Is(err, plot.ErrNothingVisible):
		return http.StatusBadRequest
	case errors.As(err, &loadErr):
		return http.StatusBadGateway
	case errors.As(err, &parseErr), errors.As(err, &schemaErr), errors.As(err, &lengthErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
