package sigview

import (
	"net/url"
	"strconv"
	"strings"
)

// Args are the viewer arguments carried in a page's query string.
type Args struct {
	// URL is the location of the blob to plot.
	URL string
	// Baseline is passed through to the page untouched.
	Baseline int
}

// ParseArgs parses a raw query string. Both of these forms are accepted:
//
//	?http://localhost/data/IMPT4825_NTX_E2-3_020216.json
//	?url=http://localhost/data/IMPT4825_NTX_E2-3_020216.json&baseline=0
//
// A segment without "=" is taken as the URL as a whole. Unknown keys and
// baselines that are not integers are ignored; repeated keys overwrite
// earlier ones.
func ParseArgs(query string) Args {
	return ParseArgsBaseline(query, DefaultBaseline)
}

// ParseArgsBaseline is ParseArgs with baseline used whenever the query has no
// valid baseline of its own.
func ParseArgsBaseline(query string, baseline int) Args {
	args := Args{Baseline: baseline}

	for _, segment := range strings.Split(query, "&") {
		if segment == "" {
			continue
		}

		if s, err := url.QueryUnescape(segment); err == nil {
			segment = s
		}

		key, value, ok := strings.Cut(segment, "=")
		if !ok {
			args.URL = trimURL(segment)
			continue
		}

		switch strings.TrimSpace(key) {
		case "url":
			args.URL = trimURL(value)
		case "baseline":
			if b, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
				args.Baseline = b
			}
		}
	}

	return args
}

func trimURL(s string) string {
	return strings.TrimSuffix(strings.TrimSpace(s), "/")
}

// Query encodes the arguments back into the key-value form understood by
// ParseArgs.
func (a Args) Query() url.Values {
	v := url.Values{}
	v.Set("url", a.URL)
	v.Set("baseline", strconv.Itoa(a.Baseline))
	return v
}
