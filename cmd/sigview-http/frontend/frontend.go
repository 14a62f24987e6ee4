package frontend

import (
	"context"
	"embed"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"git.unix.lgbt/diamondburned/sigview"
	"github.com/diamondburned/tmplutil"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

//go:embed *
var webFS embed.FS

var Templater = tmplutil.Templater{
	FileSystem: webFS,
	Includes: map[string]string{
		"plot":   "components/plot/plot.html",
		"metric": "components/metric/graph.html",
		"errbox": "components/errbox/errbox.html",
		"rawcss": "static/style.css",
	},
	Functions: template.FuncMap{
		"humanizeTime":  humanize.Time,
		"humanizeBytes": func(n int) string { return humanize.Bytes(uint64(n)) },
	},
}

func init() {
	// tmplutil.Log = true
	tmplutil.Preregister(&Templater)
}

// MountStatic mounts a static HTTP handler.
func MountStatic() http.Handler {
	sub, err := fs.Sub(webFS, "static")
	if err != nil {
		log.Panicln("failed to get static:", err)
	}

	return http.FileServer(http.FS(sub))
}

// PlotlySrc is the Plotly bundle loaded by the viewer page.
var PlotlySrc = "https://cdn.plot.ly/plotly-2.29.1.min.js"

// PlotTarget is the id of the element that the interactive plot is drawn in.
const PlotTarget = "plotly-graph"

// QueryError is returned for query strings that cannot be turned into a view.
type QueryError struct {
	Key    string
	Reason string
}

func (e *QueryError) Error() string {
	return "invalid query " + strconv.Quote(e.Key) + ": " + e.Reason
}

// Query is the full state of a view as carried in the page's query string:
// the blob arguments plus the display mode and the toggled traces.
type Query struct {
	sigview.Args
	// Normalized is true for norm=1.
	Normalized bool
	// Toggles lists every toggle=<i> in order. A trace toggled twice is
	// visible again.
	Toggles []int
}

// ParseQuery parses the request's query string. baseline is used when the
// query has no valid one.
func ParseQuery(r *http.Request, baseline int) (Query, error) {
	q := Query{Args: sigview.ParseArgsBaseline(r.URL.RawQuery, baseline)}
	if q.URL == "" {
		return q, &QueryError{Key: "url", Reason: "missing blob URL"}
	}

	values := r.URL.Query()

	switch norm := values.Get("norm"); norm {
	case "", "0":
	case "1":
		q.Normalized = true
	default:
		return q, &QueryError{Key: "norm", Reason: "expected 0 or 1, got " + strconv.Quote(norm)}
	}

	for _, v := range values["toggle"] {
		i, err := strconv.Atoi(v)
		if err != nil {
			return q, &QueryError{Key: "toggle", Reason: "not an index: " + strconv.Quote(v)}
		}
		q.Toggles = append(q.Toggles, i)
	}

	return q, nil
}

// Encode encodes the query back into a query string, with the toggles reduced
// to the set of hidden traces.
func (q Query) Encode() string {
	v := q.Args.Query()
	if q.Normalized {
		v.Set("norm", "1")
	}
	for _, i := range q.hidden() {
		v.Add("toggle", strconv.Itoa(i))
	}
	return v.Encode()
}

func (q Query) hidden() []int {
	flipped := make(map[int]bool, len(q.Toggles))
	for _, i := range q.Toggles {
		flipped[i] = !flipped[i]
	}

	hidden := make([]int, 0, len(flipped))
	for i, on := range flipped {
		if on {
			hidden = append(hidden, i)
		}
	}

	sort.Ints(hidden)
	return hidden
}

// View is a loaded blob with the query applied to its store.
type View struct {
	Query
	Entry *sigview.Entry
	Store *sigview.Store
}

// LoadView loads the blob named in the query and replays the query's mode and
// toggles onto a fresh store.
func LoadView(ctx context.Context, l *sigview.Loader, sampling sigview.Sampling, q Query) (*View, error) {
	e, err := l.Load(ctx, q.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load blob")
	}

	s := sigview.NewStore(sampling)
	if err := s.Process(e.Set); err != nil {
		return nil, errors.Wrap(err, "failed to process blob")
	}

	s.SetNormalized(q.Normalized)

	for _, i := range q.Toggles {
		if err := s.Toggle(i); err != nil {
			return nil, err
		}
	}

	return &View{Query: q, Entry: e, Store: s}, nil
}

// ToggleURL returns the link that flips the visibility of trace i.
func (v *View) ToggleURL(i int) template.URL {
	q := v.Query
	q.Toggles = append(append([]int(nil), v.Toggles...), i)
	return link(q)
}

// NormalizeURL returns the link that flips the normalization mode.
func (v *View) NormalizeURL() template.URL {
	q := v.Query
	q.Normalized = !q.Normalized
	return link(q)
}

// ResetURL returns the link to the initial plot of the same blob.
func (v *View) ResetURL() template.URL {
	return link(Query{Args: v.Args})
}

// PNGURL returns the link to the static chart of the current view.
func (v *View) PNGURL() template.URL {
	return template.URL("plot.png?" + v.Query.Encode())
}

// Fetched returns when the blob was fetched.
func (v *View) Fetched() time.Time {
	return v.Entry.FetchedAt()
}

func link(q Query) template.URL {
	return template.URL("?" + q.Encode())
}

// BlobURL returns the blob URL for display, stripped of any credentials.
func (v *View) BlobURL() string {
	u, err := url.Parse(v.URL)
	if err != nil {
		return v.URL
	}
	u.User = nil
	return u.String()
}
