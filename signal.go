package sigview

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

// SignalSet is a parsed blob. A blob is a JSON object whose first key names a
// group of traces, each trace mapping a name to an array of samples:
//
//	{"IMPT6749_NTX_E2-3": {"SIGNAL01": [0.1, 0.2, ...], "SIGNAL02": [...]}}
//
// Only the first group is consumed. Keys after it are listed in Ignored and
// their values are dropped. Trace order follows the order in the blob.
type SignalSet struct {
	Group   string     `json:"group"`
	Traces  []RawTrace `json:"traces"`
	Ignored []string   `json:"ignored,omitempty"`
}

// RawTrace is a single named trace as it appears in a blob.
type RawTrace struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// ParseSignalSet parses a blob. Malformed JSON returns a *ParseError; valid
// JSON of the wrong shape returns a *SchemaError.
func ParseSignalSet(b []byte) (SignalSet, error) {
	var raw json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return SignalSet{}, &ParseError{Err: err}
	}

	var set SignalSet
	if err := set.decode(json.NewDecoder(bytes.NewReader(raw))); err != nil {
		return SignalSet{}, err
	}

	return set, nil
}

// UnmarshalJSON implements json.Unmarshaler using the blob format.
func (set *SignalSet) UnmarshalJSON(b []byte) error {
	*set = SignalSet{}
	return set.decode(json.NewDecoder(bytes.NewReader(b)))
}

// MarshalJSON implements json.Marshaler. It writes the consumed group back in
// the blob format with the trace order preserved. Ignored groups are not
// written.
func (set SignalSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(64 + 16*len(set.Traces)*8)

	buf.WriteByte('{')
	writeJSONString(&buf, set.Group)
	buf.WriteString(":{")

	for i, trace := range set.Traces {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeJSONString(&buf, trace.Name)
		buf.WriteString(":[")
		for j, v := range trace.Values {
			if j > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
		buf.WriteByte(']')
	}

	buf.WriteString("}}")
	return buf.Bytes(), nil
}

func writeJSONString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}

func (set *SignalSet) decode(dec *json.Decoder) error {
	if err := expectDelim(dec, '{', "", "top level must be an object"); err != nil {
		return err
	}

	var haveGroup bool

	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return err
		}

		if haveGroup {
			set.Ignored = append(set.Ignored, key)

			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return &ParseError{Err: err}
			}
			continue
		}

		haveGroup = true
		set.Group = key

		if err := set.decodeGroup(dec); err != nil {
			return err
		}
	}

	if !haveGroup {
		return &SchemaError{Reason: "no signal group"}
	}

	// Consume the closing brace, then ensure nothing trails the object.
	if _, err := dec.Token(); err != nil {
		return &ParseError{Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return &ParseError{Err: errors.New("trailing data after object")}
	}

	return nil
}

func (set *SignalSet) decodeGroup(dec *json.Decoder) error {
	if err := expectDelim(dec, '{', set.Group, "group must be an object"); err != nil {
		return err
	}

	seen := make(map[string]struct{})

	for dec.More() {
		name, err := readKey(dec)
		if err != nil {
			return err
		}

		path := set.Group + "." + name

		if _, dup := seen[name]; dup {
			return &SchemaError{Path: path, Reason: "duplicate trace"}
		}
		seen[name] = struct{}{}

		values, err := decodeSamples(dec, path)
		if err != nil {
			return err
		}

		set.Traces = append(set.Traces, RawTrace{Name: name, Values: values})
	}

	// closing brace of the group
	if _, err := dec.Token(); err != nil {
		return &ParseError{Err: err}
	}

	if len(set.Traces) == 0 {
		return &SchemaError{Path: set.Group, Reason: "group has no traces"}
	}

	return nil
}

func decodeSamples(dec *json.Decoder, path string) ([]float64, error) {
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, &ParseError{Err: err}
	}

	if len(raw) == 0 || raw[0] != '[' {
		return nil, &SchemaError{Path: path, Reason: "trace must be an array of numbers"}
	}

	var samples []*float64
	if err := json.Unmarshal(raw, &samples); err != nil {
		return nil, &SchemaError{Path: path, Reason: "trace must be an array of numbers"}
	}

	if len(samples) == 0 {
		return nil, &SchemaError{Path: path, Reason: "trace has no samples"}
	}

	values := make([]float64, len(samples))
	for i, v := range samples {
		if v == nil {
			return nil, &SchemaError{
				Path:   path + "[" + strconv.Itoa(i) + "]",
				Reason: "sample is null",
			}
		}
		values[i] = *v
	}

	return values, nil
}

func expectDelim(dec *json.Decoder, delim json.Delim, path, reason string) error {
	tok, err := dec.Token()
	if err != nil {
		return &ParseError{Err: err}
	}

	if d, ok := tok.(json.Delim); !ok || d != delim {
		return &SchemaError{Path: path, Reason: reason}
	}

	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", &ParseError{Err: err}
	}

	key, ok := tok.(string)
	if !ok {
		return "", &ParseError{Err: errors.Errorf("unexpected token %v, want object key", tok)}
	}

	return key, nil
}
