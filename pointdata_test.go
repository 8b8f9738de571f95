package pointdata

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/rtm0/pointdata/internal/catalog"
	"github.com/rtm0/pointdata/internal/config"
	"github.com/rtm0/pointdata/internal/frame"
	"github.com/rtm0/pointdata/internal/hydrotest"
	"github.com/rtm0/pointdata/internal/network"
	"github.com/rtm0/pointdata/internal/params"
	"github.com/rtm0/pointdata/internal/remote"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newLocalClient(t *testing.T) *Client {
	t.Helper()
	root, networkDir := hydrotest.Build(t)
	cfg := config.Default()
	cfg.Root = root
	cfg.NetworkDir = networkDir
	cfg.Mode = config.ModeLocal
	c, err := New(cfg, discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func streamflow() Request {
	return Request{
		DataSource:         "usgs_nwis",
		Variable:           "streamflow",
		TemporalResolution: "daily",
		Aggregation:        "average",
		DateStart:          "2020-01-01",
		DateEnd:            "2020-01-05",
		State:              "me",
	}
}

func TestGetDataLocal(t *testing.T) {
	c := newLocalClient(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		edit      func(r *Request)
		wantSites []string
		wantDates int
	}{
		{"all gauges", func(r *Request) {}, []string{"01019000", "01027200", "01029500"}, 5},
		{"min obs after window", func(r *Request) { r.MinNumObs = 3 }, []string{"01019000", "01029500"}, 5},
		{"end date narrows columns", func(r *Request) { r.DateEnd = "2020-01-02"; r.MinNumObs = 2 }, []string{"01019000", "01027200", "01029500"}, 2},
		{"window drops sparse site", func(r *Request) { r.DateStart = "2020-01-03"; r.MinNumObs = 1 }, []string{"01019000", "01029500"}, 3},
		{"bounding box", func(r *Request) { r.LatitudeRange = &Range{Min: 46.5, Max: 47} }, []string{"01019000"}, 5},
		{"site ids", func(r *Request) { r.SiteIDs = []string{"01029500", "01027200"} }, []string{"01027200", "01029500"}, 5},
		{"network", func(r *Request) { r.SiteNetworks = []string{"camels"} }, hydrotest.Camels, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := streamflow()
			tt.edit(&req)
			res, err := c.GetData(ctx, req)
			if err != nil {
				t.Fatalf("GetData: %v", err)
			}
			if res.Data == nil || res.Records != nil {
				t.Fatalf("expected a frame, got %+v", res)
			}
			if got := res.SiteIDs(); !reflect.DeepEqual(got, tt.wantSites) {
				t.Errorf("sites = %v, want %v", got, tt.wantSites)
			}
			if len(res.Data.Dates) != tt.wantDates {
				t.Errorf("dates = %v, want %d columns", res.Data.Dates, tt.wantDates)
			}
			if res.Metadata != nil {
				t.Errorf("metadata returned without being requested")
			}
		})
	}
}

func TestGetDataValues(t *testing.T) {
	c := newLocalClient(t)
	res, err := c.GetData(context.Background(), streamflow())
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if res.Data.Dates[0] != "2020-01-01" || res.Data.Dates[4] != "2020-01-05" {
		t.Errorf("dates = %v", res.Data.Dates)
	}
	row := res.Data.Rows[0]
	want := hydrotest.Gauges[row.SiteID]
	for i, v := range row.Values {
		if math.IsNaN(want[i]) != math.IsNaN(v) || (!math.IsNaN(v) && v != want[i]) {
			t.Errorf("%s[%d] = %v, want %v", row.SiteID, i, v, want[i])
		}
	}
}

func TestGetDataMetadata(t *testing.T) {
	c := newLocalClient(t)
	req := streamflow()
	req.MinNumObs = 3
	req.ReturnMetadata = true
	req.AllAttributes = true

	res, err := c.GetData(context.Background(), req)
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if len(res.Metadata) != len(res.Data.Rows) {
		t.Fatalf("metadata has %d sites, data has %d", len(res.Metadata), len(res.Data.Rows))
	}
	for i, m := range res.Metadata {
		if m.SiteID != res.Data.Rows[i].SiteID {
			t.Errorf("metadata[%d] = %s, row = %s", i, m.SiteID, res.Data.Rows[i].SiteID)
		}
	}
	first := res.Metadata[0]
	if first.HUC != "01010001" {
		t.Errorf("huc = %q, want the zero-padded 01010001", first.HUC)
	}
	if first.Attributes["class"] != "Ref" {
		t.Errorf("attributes = %v", first.Attributes)
	}
	if res.Metadata[1].HUC != "" {
		t.Errorf("short huc = %q, want empty", res.Metadata[1].HUC)
	}
}

func TestGetDataDiscrete(t *testing.T) {
	c := newLocalClient(t)
	req := Request{
		DataSource:         "usgs_nwis",
		Variable:           "wtd",
		TemporalResolution: "instantaneous",
		Aggregation:        "instantaneous",
		DateStart:          "2001-01-01",
		DateEnd:            "2001-12-31",
		MinNumObs:          2,
		ReturnMetadata:     true,
	}
	res, err := c.GetData(context.Background(), req)
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if res.Data != nil {
		t.Fatalf("expected records, got a frame")
	}
	if len(res.Records) != 2 || res.Records[0].SiteID != "w1" || res.Records[1].PumpingStatus != "P" {
		t.Errorf("records = %+v", res.Records)
	}
	if len(res.Metadata) != 1 || res.Metadata[0].SiteID != "w1" {
		t.Errorf("metadata = %+v", res.Metadata)
	}

	req.State = "CO"
	if _, err := c.GetData(context.Background(), req); !errors.Is(err, ErrNoSites) {
		t.Errorf("expected ErrNoSites, got %v", err)
	}
}

func TestGetDataErrors(t *testing.T) {
	c := newLocalClient(t)
	ctx := context.Background()

	tests := []struct {
		name string
		edit func(r *Request)
		want error
	}{
		{"misspelled variable", func(r *Request) { r.Variable = "steamflow" }, params.ErrInvalid},
		{"soil moisture without depth", func(r *Request) {
			r.DataSource, r.Variable, r.Aggregation = "usda_nrcs", "soil moisture", "start-of-day"
		}, params.ErrInvalid},
		{"attributes without metadata", func(r *Request) { r.AllAttributes = true }, params.ErrInvalid},
		{"unsupported combination", func(r *Request) { r.Aggregation = "total" }, catalog.ErrUnsupported},
		{"zero sites", func(r *Request) { r.State = "TX" }, ErrNoSites},
		{"unknown network", func(r *Request) { r.SiteNetworks = []string{"nope"} }, network.ErrUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := streamflow()
			tt.edit(&req)
			if _, err := c.GetData(ctx, req); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestGetSites(t *testing.T) {
	c := newLocalClient(t)
	req := streamflow()
	req.AllAttributes = true
	sites, err := c.GetSites(context.Background(), req)
	if err != nil {
		t.Fatalf("GetSites: %v", err)
	}
	if len(sites) != 3 || sites[0].SiteID != "01019000" {
		t.Fatalf("sites = %+v", sites)
	}
	if sites[0].Attributes == nil {
		t.Error("expected attributes for 01019000")
	}
}

func TestVariablesAndDOIs(t *testing.T) {
	c := newLocalClient(t)
	ctx := context.Background()

	vars, err := c.Variables(ctx)
	if err != nil {
		t.Fatalf("Variables: %v", err)
	}
	if len(vars) != len(catalog.Known) {
		t.Errorf("got %d variables, want %d", len(vars), len(catalog.Known))
	}

	dois, err := c.CitationDOIs(ctx, []string{"US-xBR", "01019000"})
	if err != nil {
		t.Fatalf("CitationDOIs: %v", err)
	}
	if want := map[string]string{"US-xBR": "10.17190/AMF/1246046"}; !reflect.DeepEqual(dois, want) {
		t.Errorf("dois = %v, want %v", dois, want)
	}
}

func TestCitation(t *testing.T) {
	for source, needle := range map[string]string{
		"usgs_nwis": "courtesy of the U.S. Geological Survey",
		"usda_nrcs": "U.S. Department of Agriculture",
		"ameriflux": "CC-BY-4.0",
	} {
		text, err := Citation(source)
		if err != nil {
			t.Errorf("Citation(%s): %v", source, err)
			continue
		}
		if !strings.Contains(text, needle) {
			t.Errorf("Citation(%s) does not mention %q", source, needle)
		}
	}
	if _, err := Citation("noaa"); !errors.Is(err, params.ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestNewLocalMissingCatalog(t *testing.T) {
	cfg := config.Default()
	cfg.Root = t.TempDir()
	cfg.Mode = config.ModeLocal
	if _, err := New(cfg, discard()); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetDataRemote(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/api_pins", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(remote.Token{Expires: "2999/01/01 00:00:00 GMT-0000", JWTToken: "token"})
	})
	mux.HandleFunc("/api/point-data-app", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(Result{Data: &frame.Frame{
			Dates: []string{"2020-01-01"},
			Rows: []frame.Row{
				{SiteID: "01019000", Values: []float64{18.395}},
				{SiteID: "01027200", Values: []float64{math.NaN()}},
			},
		}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Mode = config.ModeRemote
	cfg.URL = srv.URL
	cfg.PINFile = filepath.Join(t.TempDir(), "pin.json")
	if err := remote.RegisterPIN(cfg.PINFile, "dummy@email.com", "1234"); err != nil {
		t.Fatal(err)
	}
	c, err := New(cfg, discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Mode() != config.ModeRemote {
		t.Fatalf("mode = %q", c.Mode())
	}

	res, err := c.GetData(context.Background(), streamflow())
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if got := res.Data.Rows[0].SiteID; got != "01019000" {
		t.Errorf("first site = %q, want 01019000", got)
	}
	if !math.IsNaN(res.Data.Rows[1].Values[0]) {
		t.Errorf("null did not decode to NaN: %v", res.Data.Rows[1].Values)
	}

	if _, err := c.CitationDOIs(context.Background(), []string{"US-xBR"}); !errors.Is(err, ErrLocalOnly) {
		t.Errorf("expected ErrLocalOnly, got %v", err)
	}
	bad := streamflow()
	bad.Aggregation = "median"
	if _, err := c.GetData(context.Background(), bad); !errors.Is(err, params.ErrInvalid) {
		t.Errorf("expected local validation before any call, got %v", err)
	}
}
