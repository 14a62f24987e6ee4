package metric

import (
	"math"
	"strings"
	"testing"

	"git.unix.lgbt/diamondburned/sigview"
)

func testStore(t *testing.T) *sigview.Store {
	t.Helper()

	set, err := sigview.ParseSignalSet([]byte(`{"k": {"A_NTX_x": [1, 2], "B": [3, 4, 5, 6]}}`))
	if err != nil {
		t.Fatal("failed to parse:", err)
	}

	s := sigview.NewStore(sigview.Sampling{Interval: 1, Count: 4, Unit: sigview.UnitMinutes})
	if err := s.Process(set); err != nil {
		t.Fatal("failed to process:", err)
	}

	return s
}

func TestNewGraphData(t *testing.T) {
	data := NewGraphData(testStore(t), 100)

	if data.Width != 4 || data.Height != 100 {
		t.Errorf("unexpected size %vx%v", data.Width, data.Height)
	}
	if data.MinSample != 1 || data.MaxSample != 6 {
		t.Errorf("unexpected bounds [%v, %v]", data.MinSample, data.MaxSample)
	}
	if data.Names[0] != "A" || data.Names[1] != "B" {
		t.Errorf("unexpected names %v", data.Names)
	}
	if c := data.ColorHex(0); c != "#008000" {
		t.Errorf("unexpected first color %s", c)
	}

	a := data.Samplesets[0]
	if len(a) != 4 || a[1] != 2 || !math.IsNaN(a[2]) || !math.IsNaN(a[3]) {
		t.Errorf("short trace not padded with NaN: %v", a)
	}
}

func TestDrawPaths(t *testing.T) {
	g := prepareGraph(NewGraphData(testStore(t), 100))
	if g.Error != nil {
		t.Fatal("failed to prepare graph:", g.Error)
	}

	paths := string(drawPaths(g))

	// B is drawn first so that A ends up on top.
	b := `<path class="sample-1" stroke="#980000" d="M0.00000 60.00000 L1.00000 40.00000 L2.00000 20.00000 L3.00000 0.00000 " />`
	a := `<path class="sample-0" stroke="#008000" d="M0.00000 100.00000 L1.00000 80.00000 " />`

	if paths != b+a {
		t.Errorf("unexpected paths:\n%s", paths)
	}
}

func TestPrepareGraphMismatch(t *testing.T) {
	g := prepareGraph(GraphData{
		Samplesets: [][]float64{{1, 2, 3}, {1, 2}},
		MinSample:  NaN,
		MaxSample:  NaN,
	})

	if g.Error == nil {
		t.Error("expected mismatched samplesets to fail")
	}
}

func TestPrepareGraphAuto(t *testing.T) {
	g := prepareGraph(GraphData{
		Samplesets: [][]float64{{NaN, 2, 3}, {-1, NaN, 0}},
		MinSample:  NaN,
		MaxSample:  NaN,
		Height:     10,
	})

	if g.Error != nil {
		t.Fatal("failed to prepare graph:", g.Error)
	}
	if g.Width != 3 || g.MinSample != -1 || g.MaxSample != 3 {
		t.Errorf("unexpected graph %+v", g.GraphData)
	}
	if g.MinLabel() != "-1" || g.MaxLabel() != "3" {
		t.Errorf("unexpected labels %s, %s", g.MinLabel(), g.MaxLabel())
	}
}

func TestDrawPathsFlat(t *testing.T) {
	g := prepareGraph(GraphData{
		Samplesets: [][]float64{{5, 5}},
		MinSample:  5,
		MaxSample:  5,
		Height:     10,
	})

	if !strings.Contains(string(drawPaths(g)), `d="M0.00000 5.00000 L1.00000 5.00000 "`) {
		t.Errorf("flat graph not drawn through the middle: %s", drawPaths(g))
	}
}
