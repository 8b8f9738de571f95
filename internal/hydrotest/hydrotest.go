// Package hydrotest builds a small HydroData tree for tests: a catalog, daily
// streamflow files for three Maine gauges, two discrete water table wells
// and one site network.
package hydrotest

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rtm0/pointdata/internal/catalog"
	"github.com/rtm0/pointdata/internal/network"
	"github.com/rtm0/pointdata/internal/obs"
	"github.com/rtm0/pointdata/internal/obs/obstest"
)

// Gauges holds the daily streamflow written for each gauge, starting on
// 2020-01-01.
var Gauges = map[string][]float64{
	"01019000": {18.395, 18.3667, 17.9, math.NaN(), 17.1},
	"01027200": {4.9242, 4.6412, math.NaN(), math.NaN(), math.NaN()},
	"01029500": {35.092, 33.677, 33.0, 32.5, 32.1},
}

// Camels is the content of the usgs_nwis/streamflow/camels network.
var Camels = []string{"01019000", "01029500"}

// Build writes the tree under a temporary directory and returns its root
// and the network list directory.
func Build(t testing.TB) (root, networkDir string) {
	t.Helper()

	root = t.TempDir()
	networkDir = filepath.Join(root, "network_lists")

	path := filepath.Join(root, "national_obs", "point_obs.sqlite")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	d, err := catalog.Create(path)
	if err != nil {
		t.Fatalf("create catalog: %v", err)
	}
	defer func() { _ = d.Close() }()
	if err := d.SeedVariables(); err != nil {
		t.Fatalf("seed variables: %v", err)
	}

	const site = `INSERT INTO sites (site_id, site_name, site_type, agency, state, latitude, longitude, huc, doi) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	const summary = `INSERT INTO observations VALUES (?, ?, ?, ?, ?)`
	const wtd = `INSERT INTO wtd_discrete_data VALUES (?, ?, ?, ?)`
	stmts := []struct {
		query string
		args  []any
	}{
		{site, []any{"01019000", "ST. JOHN RIVER AT NINEMILE BRIDGE", "stream gauge", "USGS", "ME", 46.70, -69.72, "1010001", nil}},
		{site, []any{"01027200", "NORTH BRANCH POCKWOCKAMUS STREAM", "stream gauge", "USGS", "ME", 46.43, -68.51, "01010003", nil}},
		{site, []any{"01029500", "EAST BRANCH PENOBSCOT RIVER", "stream gauge", "USGS", "ME", 45.96, -68.63, "102000", nil}},
		{site, []any{"06730200", "BOULDER CREEK", "stream gauge", "USGS", "CO", 40.05, -105.18, "10190005", nil}},
		{site, []any{"w1", "Well 1", "groundwater well", "USGS", "ME", 45.1, -69.1, "", nil}},
		{site, []any{"w2", "Well 2", "groundwater well", "USGS", "ME", 45.2, -69.2, "", nil}},
		{site, []any{"US-xBR", "Bartlett", "flux tower", "AmeriFlux", "NH", 44.06, -71.29, "", "10.17190/AMF/1246046"}},
		{summary, []any{"01019000", 2, "2020-01-01", "2020-01-05", 4}},
		{summary, []any{"01027200", 2, "2020-01-01", "2020-01-02", 2}},
		{summary, []any{"01029500", 2, "2020-01-01", "2020-01-05", 5}},
		{summary, []any{"06730200", 2, "2015-01-01", "2019-12-31", 1800}},
		{summary, []any{"w1", catalog.DiscreteWTD, "2001-01-15", "2002-03-15", 3}},
		{summary, []any{"w2", catalog.DiscreteWTD, "1999-06-01", "2001-01-20", 2}},
		{`INSERT INTO streamgauge_attributes (site_id, gages_drainage_sqkm, class) VALUES (?, ?, ?)`, []any{"01019000", 3450.5, "Ref"}},
		{wtd, []any{"w1", "2001-01-15", 3.2, "1"}},
		{wtd, []any{"w1", "2001-02-15", 3.4, "P"}},
		{wtd, []any{"w1", "2002-03-15", nil, nil}},
		{wtd, []any{"w2", "2001-01-20", 10.0, "1"}},
		{wtd, []any{"w2", "1999-06-01", 11.0, "1"}},
	}
	for _, s := range stmts {
		if err := d.Exec(s.query, s.args...); err != nil {
			t.Fatalf("seed %q: %v", s.query, err)
		}
	}

	v, _ := catalog.Lookup(2)
	dir := filepath.Join(root, v.Dir)
	for id, values := range Gauges {
		obstest.WriteSite(t, obs.Path(dir, id), v.NCVar, obstest.Days("2020-01-01", len(values)), values)
	}
	obstest.WriteSite(t, obs.Path(dir, "06730200"), v.NCVar, obstest.Days("2019-12-30", 2), []float64{1.1, 1.2})

	list := network.Path(networkDir, "usgs_nwis", "streamflow", "camels")
	if err := os.MkdirAll(filepath.Dir(list), 0o755); err != nil {
		t.Fatal(err)
	}
	content := ""
	for _, id := range Camels {
		content += id + "\n"
	}
	if err := os.WriteFile(list, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return root, networkDir
}
