package sigview

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

func TestParseSignalSetOrder(t *testing.T) {
	set := mustParse(t, `{
		"IMPT6749": {"zeta": [1.5, 2], "alpha": [3], "mid": [-4e2]},
		"IMPT6749_time": {"0": 0, "1": 0.4}
	}`)

	want := SignalSet{
		Group: "IMPT6749",
		Traces: []RawTrace{
			{Name: "zeta", Values: []float64{1.5, 2}},
			{Name: "alpha", Values: []float64{3}},
			{Name: "mid", Values: []float64{-400}},
		},
		Ignored: []string{"IMPT6749_time"},
	}

	if diff := cmp.Diff(want, set); diff != "" {
		t.Errorf("set mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSignalSetErrors(t *testing.T) {
	tests := []struct {
		name   string
		blob   string
		schema bool
	}{
		{"truncated", `{"k": {"A": [1, 2`, false},
		{"garbage", `not json`, false},
		{"trailing", `{"k": {"A": [1]}} {}`, false},
		{"array top level", `[1, 2, 3]`, true},
		{"no group", `{}`, true},
		{"group not object", `{"k": [1, 2]}`, true},
		{"trace not array", `{"k": {"A": 1}}`, true},
		{"trace null", `{"k": {"A": null}}`, true},
		{"string sample", `{"k": {"A": [1, "2"]}}`, true},
		{"null sample", `{"k": {"A": [1, null]}}`, true},
		{"empty trace", `{"k": {"A": []}}`, true},
		{"empty group", `{"k": {}}`, true},
		{"duplicate trace", `{"k": {"A": [1], "A": [2]}}`, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ParseSignalSet([]byte(test.blob))
			if err == nil {
				t.Fatal("expected error")
			}

			var schema *SchemaError
			var parse *ParseError

			switch {
			case test.schema && !errors.As(err, &schema):
				t.Errorf("expected SchemaError, got %T: %v", err, err)
			case !test.schema && !errors.As(err, &parse):
				t.Errorf("expected ParseError, got %T: %v", err, err)
			}
		})
	}
}

func TestSignalSetJSONRoundTrip(t *testing.T) {
	in := mustParse(t, `{"g": {"b \"quoted\"": [0.1, 1e-7, 3], "a": [42]}}`)

	b, err := json.Marshal(in)
	if err != nil {
		t.Fatal("failed to marshal:", err)
	}

	var out SignalSet
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("failed to unmarshal %s: %v", b, err)
	}

	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
