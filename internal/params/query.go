package params

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Query parameter names used by the remote API.
const (
	keyDataSource     = "data_source"
	keyVariable       = "variable"
	keyResolution     = "temporal_resolution"
	keyAggregation    = "aggregation"
	keyDepthLevel     = "depth_level"
	keyDateStart      = "date_start"
	keyDateEnd        = "date_end"
	keyLatitudeRange  = "latitude_range"
	keyLongitudeRange = "longitude_range"
	keySiteIDs        = "site_ids"
	keySiteNetworks   = "site_networks"
	keyState          = "state"
	keyMinNumObs      = "min_num_obs"
	keyReturnMetadata = "return_metadata"
	keyAllAttributes  = "all_attributes"
)

// Encode converts r into query parameters. Unset fields are omitted.
// Ranges are written as "(min, max)", lists as "['a', 'b']" and booleans as
// "True"/"False", which is what the HydroData API expects.
func Encode(r Request) url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set(keyDataSource, r.DataSource)
	set(keyVariable, r.Variable)
	set(keyResolution, r.TemporalResolution)
	set(keyAggregation, r.Aggregation)
	if r.DepthLevel != 0 {
		set(keyDepthLevel, strconv.Itoa(r.DepthLevel))
	}
	set(keyDateStart, r.DateStart)
	set(keyDateEnd, r.DateEnd)
	set(keyLatitudeRange, formatRange(r.LatitudeRange))
	set(keyLongitudeRange, formatRange(r.LongitudeRange))
	set(keySiteIDs, formatList(r.SiteIDs))
	set(keySiteNetworks, formatList(r.SiteNetworks))
	set(keyState, r.State)
	if r.MinNumObs != 0 {
		set(keyMinNumObs, strconv.Itoa(r.MinNumObs))
	}
	set(keyReturnMetadata, formatBool(r.ReturnMetadata))
	set(keyAllAttributes, formatBool(r.AllAttributes))
	return q
}

// Decode is the inverse of Encode. It does not validate the request.
func Decode(q url.Values) (Request, error) {
	r := Request{
		DataSource:         q.Get(keyDataSource),
		Variable:           q.Get(keyVariable),
		TemporalResolution: q.Get(keyResolution),
		Aggregation:        q.Get(keyAggregation),
		DateStart:          q.Get(keyDateStart),
		DateEnd:            q.Get(keyDateEnd),
		State:              q.Get(keyState),
		SiteIDs:            parseList(q.Get(keySiteIDs)),
		SiteNetworks:       parseList(q.Get(keySiteNetworks)),
	}
	var err error
	if r.DepthLevel, err = parseInt(q.Get(keyDepthLevel)); err != nil {
		return r, fmt.Errorf("%w: %s: %v", ErrInvalid, keyDepthLevel, err)
	}
	if r.MinNumObs, err = parseInt(q.Get(keyMinNumObs)); err != nil {
		return r, fmt.Errorf("%w: %s: %v", ErrInvalid, keyMinNumObs, err)
	}
	if r.LatitudeRange, err = parseRange(q.Get(keyLatitudeRange)); err != nil {
		return r, fmt.Errorf("%w: %s: %v", ErrInvalid, keyLatitudeRange, err)
	}
	if r.LongitudeRange, err = parseRange(q.Get(keyLongitudeRange)); err != nil {
		return r, fmt.Errorf("%w: %s: %v", ErrInvalid, keyLongitudeRange, err)
	}
	if r.ReturnMetadata, err = parseBool(q.Get(keyReturnMetadata)); err != nil {
		return r, fmt.Errorf("%w: %s: %v", ErrInvalid, keyReturnMetadata, err)
	}
	if r.AllAttributes, err = parseBool(q.Get(keyAllAttributes)); err != nil {
		return r, fmt.Errorf("%w: %s: %v", ErrInvalid, keyAllAttributes, err)
	}
	return r, nil
}

func formatRange(rg *Range) string {
	if rg == nil {
		return ""
	}
	return "(" + strconv.FormatFloat(rg.Min, 'f', -1, 64) + ", " + strconv.FormatFloat(rg.Max, 'f', -1, 64) + ")"
}

func formatList(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	q := make([]string, len(vals))
	for i, v := range vals {
		q[i] = "'" + v + "'"
	}
	return "[" + strings.Join(q, ", ") + "]"
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return ""
}

func parseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "None" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "false", "0":
		return false, nil
	case "true", "1":
		return true, nil
	}
	return false, fmt.Errorf("not a boolean: %q", s)
}

func parseRange(s string) (*Range, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "None" {
		return nil, nil
	}
	parts := splitItems(s)
	if len(parts) != 2 {
		return nil, fmt.Errorf("want 2 values, got %d", len(parts))
	}
	lo, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return nil, err
	}
	hi, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return nil, err
	}
	return &Range{Min: lo, Max: hi}, nil
}

func parseList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "None" {
		return nil
	}
	var out []string
	for _, p := range splitItems(s) {
		p = strings.Trim(p, `'"`)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitItems splits "(a, b)", "[a, b]" or "a,b" into trimmed items.
func splitItems(s string) []string {
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
