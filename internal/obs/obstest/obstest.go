// Package obstest writes small per-site NetCDF files for tests.
package obstest

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
)

// Fill is the _FillValue written in place of NaN.
const Fill = -9999.0

// WriteSite writes path with a "date" coordinate in hours since the Unix
// epoch and a float64 data variable named varName.
func WriteSite(t testing.TB, path, varName string, times []time.Time, values []float64) {
	t.Helper()

	hours := make([]float64, len(times))
	for i, ts := range times {
		hours[i] = ts.Sub(time.Unix(0, 0).UTC()).Hours()
	}
	write(t, path, varName, hours, attrs(t, "units", "hours since 1970-01-01 00:00:00"), values)
}

// WriteLabeled is WriteSite with a string "date" coordinate holding labels
// such as "2020-01-01" or "2020-01-01 06:00:00".
func WriteLabeled(t testing.TB, path, varName string, labels []string, values []float64) {
	t.Helper()
	write(t, path, varName, labels, attrs(t, "long_name", "date"), values)
}

func write(t testing.TB, path, varName string, coord any, coordAttrs api.AttributeMap, values []float64) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	cw, err := cdf.OpenWriter(path)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}

	err = cw.AddVar("date", api.Variable{
		Values:     coord,
		Dimensions: []string{"date"},
		Attributes: coordAttrs,
	})
	if err != nil {
		t.Fatalf("add date: %v", err)
	}

	vals := make([]float64, len(values))
	for i, v := range values {
		vals[i] = v
		if math.IsNaN(v) {
			vals[i] = Fill
		}
	}
	err = cw.AddVar(varName, api.Variable{
		Values:     vals,
		Dimensions: []string{"date"},
		Attributes: attrs(t, "_FillValue", Fill),
	})
	if err != nil {
		t.Fatalf("add %s: %v", varName, err)
	}
	if err := cw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
}

func attrs(t testing.TB, key string, value any) api.AttributeMap {
	t.Helper()
	m, err := util.NewOrderedMap([]string{key}, map[string]interface{}{key: value})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

// Days returns n consecutive midnights starting at first (YYYY-MM-DD).
func Days(first string, n int) []time.Time {
	start, err := time.Parse("2006-01-02", first)
	if err != nil {
		panic(err)
	}
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out
}
