package sigview

import (
	"math"

	"github.com/pkg/errors"
)

// Trace is a single signal held by a Store.
type Trace struct {
	Name  string
	Y     []float64
	YNorm []float64
	Color Color
	// Visible is false when the trace has been toggled off.
	Visible bool
	// Degenerate is true when every sample is equal. YNorm is then all zeros.
	Degenerate bool
}

// TraceView is a visible trace ready for plotting. Values are either the raw
// or the normalized samples depending on the store's mode.
type TraceView struct {
	Index  int
	Name   string
	Values []float64
	Color  Color
}

// Store holds the state of a single viewer: every trace processed so far, the
// shared X axis and the display mode. Traces are only ever appended; hiding a
// trace flips its visibility flag.
//
// A Store is not safe for concurrent use. Each request builds its own.
type Store struct {
	Sampling Sampling
	// Group is the name of the first processed signal group.
	Group  string
	Traces []Trace
	// X is the time axis in minutes shared by all traces.
	X []float64
	// YMin and YMax are the raw extrema across all traces. They are NaN until
	// the first trace is added.
	YMin float64
	YMax float64
	// Normalized selects YNorm over Y for rendering.
	Normalized bool
}

// NewStore creates an empty store whose X axis follows the given sampling.
func NewStore(sampling Sampling) *Store {
	return &Store{
		Sampling: sampling,
		X:        sampling.XAxis(),
		YMin:     math.NaN(),
		YMax:     math.NaN(),
	}
}

// Process adds every trace of the set to the store in blob order. The set is
// validated first, so on error the store is left untouched.
func (s *Store) Process(set SignalSet) error {
	if len(set.Traces) == 0 {
		return &SchemaError{Path: set.Group, Reason: "group has no traces"}
	}

	for _, trace := range set.Traces {
		if len(trace.Values) == 0 {
			return &SchemaError{Path: set.Group + "." + trace.Name, Reason: "trace has no samples"}
		}
		if len(trace.Values) > len(s.X) {
			return &LengthMismatchError{
				Trace: trace.Name,
				Len:   len(trace.Values),
				Max:   len(s.X),
			}
		}
	}

	if s.Group == "" {
		s.Group = set.Group
	}

	for _, raw := range set.Traces {
		norm, err := Normalize(raw.Values)
		if err != nil && !errors.Is(err, ErrDegenerateSequence) {
			return errors.Wrapf(err, "cannot normalize %q", raw.Name)
		}

		s.Traces = append(s.Traces, Trace{
			Name:       raw.Name,
			Y:          raw.Values,
			YNorm:      norm,
			Color:      ColorFor(len(s.Traces)),
			Visible:    true,
			Degenerate: err != nil,
		})

		min, max := MinMax(raw.Values)
		if math.IsNaN(s.YMin) || min < s.YMin {
			s.YMin = min
		}
		if math.IsNaN(s.YMax) || max > s.YMax {
			s.YMax = max
		}
	}

	return nil
}

// Toggle flips the visibility of the trace at index.
func (s *Store) Toggle(index int) error {
	if index < 0 || index >= len(s.Traces) {
		return &IndexOutOfRangeError{Index: index, Len: len(s.Traces)}
	}

	s.Traces[index].Visible = !s.Traces[index].Visible
	return nil
}

// ToggleNormalized flips the normalization mode.
func (s *Store) ToggleNormalized() {
	s.Normalized = !s.Normalized
}

// SetNormalized sets the normalization mode.
func (s *Store) SetNormalized(normalized bool) {
	s.Normalized = normalized
}

// Hidden returns the indices of all hidden traces in order.
func (s *Store) Hidden() []int {
	var hidden []int
	for i, trace := range s.Traces {
		if !trace.Visible {
			hidden = append(hidden, i)
		}
	}
	return hidden
}

// Visible returns the visible traces in index order.
func (s *Store) Visible() []TraceView {
	views := make([]TraceView, 0, len(s.Traces))

	for i, trace := range s.Traces {
		if !trace.Visible {
			continue
		}

		values := trace.Y
		if s.Normalized {
			values = trace.YNorm
		}

		views = append(views, TraceView{
			Index:  i,
			Name:   trace.Name,
			Values: values,
			Color:  trace.Color,
		})
	}

	return views
}

// YRange returns the Y axis range to plot: [0, 1] in normalized mode and the
// global raw extrema otherwise. An empty store returns [0, 1].
func (s *Store) YRange() (min, max float64) {
	if s.Normalized || math.IsNaN(s.YMin) {
		return 0, 1
	}
	return s.YMin, s.YMax
}

// XRange returns the X axis range in minutes. It covers the whole configured
// sampling window regardless of how long the traces actually are.
func (s *Store) XRange() (min, max float64) {
	return 0, s.Sampling.XMax()
}
