// Package obs reads per-site observation files. Each site of a variable has
// one NetCDF file named <site_id>.nc holding a single data variable indexed by
// a time coordinate.
package obs

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

// Scanner reads the files of a site list one site at a time.
type Scanner struct {
	dir     string
	varName string
	sites   []string
	start   time.Time
	end     time.Time
	pos     int
	series  Series
	err     error
}

// NewScanner creates a scanner over the files of sites in dir. Observations
// outside [start, end] are dropped; a zero bound is open.
func NewScanner(dir, varName string, sites []string, start, end time.Time) *Scanner {
	return &Scanner{
		dir:     dir,
		varName: varName,
		sites:   sites,
		start:   start,
		end:     end,
	}
}

// Summary returns the summary information about the scan suitable for
// logging.
func (s *Scanner) Summary() []any {
	return []any{
		"dir", s.dir,
		"var", s.varName,
		"siteCnt", len(s.sites),
		"start", s.start,
		"end", s.end,
	}
}

// Scan reads the next site file. It returns false when all sites have been
// read or an error occurred; see Err.
func (s *Scanner) Scan() bool {
	if s.err != nil || s.pos >= len(s.sites) {
		return false
	}
	site := s.sites[s.pos]
	series, err := ReadFile(Path(s.dir, site), s.varName)
	if err != nil {
		s.err = fmt.Errorf("site %s: %w", site, err)
		return false
	}
	series.SiteID = site
	s.series = series.Window(s.start, s.end)
	s.pos++
	return true
}

// Series returns the series read by the last Scan.
func (s *Scanner) Series() Series {
	return s.series
}

// Err returns the first error met by Scan.
func (s *Scanner) Err() error {
	return s.err
}

// Path returns the file of site in dir.
func Path(dir, site string) string {
	return filepath.Join(dir, site+".nc")
}

// ReadFile reads varName and its time coordinate from a NetCDF file.
func ReadFile(path, varName string) (Series, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return Series{}, err
	}
	defer nc.Close()

	vg, err := nc.GetVarGetter(varName)
	if err != nil {
		return Series{}, fmt.Errorf("variable %q: %w", varName, err)
	}
	dims := vg.Dimensions()
	if len(dims) == 0 {
		return Series{}, fmt.Errorf("variable %q has no dimensions", varName)
	}

	times, err := readTimes(nc, dims[0])
	if err != nil {
		return Series{}, fmt.Errorf("coordinate %q: %w", dims[0], err)
	}
	raw, err := vg.Values()
	if err != nil {
		return Series{}, fmt.Errorf("variable %q: %w", varName, err)
	}
	values, err := toFloats(raw)
	if err != nil {
		return Series{}, fmt.Errorf("variable %q: %w", varName, err)
	}
	if len(values) != len(times) {
		return Series{}, fmt.Errorf("variable %q has %d values for %d timestamps", varName, len(values), len(times))
	}
	maskFill(values, vg.Attributes())

	return Series{Times: times, Values: values}, nil
}

func readTimes(nc api.Group, dimName string) ([]time.Time, error) {
	vg, err := nc.GetVarGetter(dimName)
	if err != nil {
		return nil, err
	}
	raw, err := vg.Values()
	if err != nil {
		return nil, err
	}
	if labels, ok := raw.([]string); ok {
		times := make([]time.Time, len(labels))
		for i, l := range labels {
			if times[i], err = parseTime(strings.TrimSpace(l)); err != nil {
				return nil, err
			}
		}
		return times, nil
	}

	offsets, err := toFloats(raw)
	if err != nil {
		return nil, err
	}
	units, _ := attrString(vg.Attributes(), "units")
	step, epoch, err := parseUnits(units)
	if err != nil {
		return nil, err
	}
	times := make([]time.Time, len(offsets))
	for i, o := range offsets {
		times[i] = epoch.Add(time.Duration(math.Round(o * float64(step))))
	}
	return times, nil
}

var timeLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// parseUnits parses CF time units such as "days since 1970-01-01".
func parseUnits(units string) (time.Duration, time.Time, error) {
	unit, since, ok := strings.Cut(strings.TrimSpace(units), " since ")
	if !ok {
		return 0, time.Time{}, fmt.Errorf("unsupported time units %q", units)
	}
	var step time.Duration
	switch strings.ToLower(unit) {
	case "days", "day":
		step = 24 * time.Hour
	case "hours", "hour":
		step = time.Hour
	case "minutes", "minute":
		step = time.Minute
	case "seconds", "second":
		step = time.Second
	default:
		return 0, time.Time{}, fmt.Errorf("unsupported time unit %q", unit)
	}
	epoch, err := parseTime(strings.TrimSuffix(strings.TrimSpace(since), " UTC"))
	if err != nil {
		return 0, time.Time{}, err
	}
	return step, epoch, nil
}

func toFloats(raw any) ([]float64, error) {
	switch v := raw.(type) {
	case []float64:
		return v, nil
	case []float32:
		return convert(v), nil
	case []int64:
		return convert(v), nil
	case []int32:
		return convert(v), nil
	case []int16:
		return convert(v), nil
	case []int8:
		return convert(v), nil
	}
	return nil, fmt.Errorf("unsupported value type %T", raw)
}

func convert[T float32 | int64 | int32 | int16 | int8](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

// maskFill replaces _FillValue and missing_value entries with NaN.
func maskFill(values []float64, attrs api.AttributeMap) {
	for _, key := range []string{"_FillValue", "missing_value"} {
		fill, ok := attrFloat(attrs, key)
		if !ok || math.IsNaN(fill) {
			continue
		}
		for i, v := range values {
			if v == fill {
				values[i] = math.NaN()
			}
		}
	}
}

func attrString(attrs api.AttributeMap, key string) (string, bool) {
	if attrs == nil {
		return "", false
	}
	v, ok := attrs.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func attrFloat(attrs api.AttributeMap, key string) (float64, bool) {
	if attrs == nil {
		return 0, false
	}
	v, ok := attrs.Get(key)
	if !ok {
		return 0, false
	}
	switch f := v.(type) {
	case float64:
		return f, true
	case float32:
		return float64(f), true
	case int32:
		return float64(f), true
	case int16:
		return float64(f), true
	case []float64:
		if len(f) == 1 {
			return f[0], true
		}
	case []float32:
		if len(f) == 1 {
			return float64(f[0]), true
		}
	}
	return 0, false
}
