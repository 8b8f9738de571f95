package obs

import (
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rtm0/pointdata/internal/obs/obstest"
)

var nan = math.NaN()

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	days := obstest.Days("2020-01-01", 4)
	obstest.WriteSite(t, Path(dir, "01019000"), "streamflow", days, []float64{18.395, 18.3667, nan, 17.5})

	s, err := ReadFile(Path(dir, "01019000"), "streamflow")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !reflect.DeepEqual(s.Labels("2006-01-02"), []string{"2020-01-01", "2020-01-02", "2020-01-03", "2020-01-04"}) {
		t.Errorf("labels = %v", s.Labels("2006-01-02"))
	}
	if s.Values[0] != 18.395 || !math.IsNaN(s.Values[2]) {
		t.Errorf("values = %v", s.Values)
	}
	if s.Count() != 3 {
		t.Errorf("Count = %d, want 3", s.Count())
	}

	if _, err := ReadFile(Path(dir, "01019000"), "wtd"); err == nil {
		t.Error("expected an error for a missing variable")
	}
	if _, err := ReadFile(Path(dir, "missing"), "streamflow"); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestReadFileLabeledTimes(t *testing.T) {
	dir := t.TempDir()
	obstest.WriteLabeled(t, Path(dir, "393109104464500"), "wtd",
		[]string{"2020-01-01 00:00:00", "2020-01-01 01:00:00", "2020-01-02"}, []float64{1.5, nan, 2.5})

	s, err := ReadFile(Path(dir, "393109104464500"), "wtd")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := []time.Time{
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 1, 1, 1, 0, 0, 0, time.UTC),
		time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	if len(s.Times) != len(want) {
		t.Fatalf("times = %v, want %v", s.Times, want)
	}
	for i := range want {
		if !s.Times[i].Equal(want[i]) {
			t.Errorf("times[%d] = %v, want %v", i, s.Times[i], want[i])
		}
	}
	if s.Values[0] != 1.5 || !math.IsNaN(s.Values[1]) || s.Count() != 2 {
		t.Errorf("values = %v", s.Values)
	}
}

func TestScanner(t *testing.T) {
	dir := t.TempDir()
	obstest.WriteSite(t, Path(dir, "a"), "swe", obstest.Days("2020-01-01", 5), []float64{1, 2, 3, 4, 5})
	obstest.WriteSite(t, Path(dir, "b"), "swe", obstest.Days("2020-01-03", 5), []float64{30, 40, 50, 60, 70})

	start := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2020, 1, 4, 0, 0, 0, 0, time.UTC)
	s := NewScanner(dir, "swe", []string{"a", "b"}, start, end)

	var got []Series
	for s.Scan() {
		got = append(got, s.Series())
	}
	if err := s.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("scanned %d sites, want 2", len(got))
	}
	if got[0].SiteID != "a" || !reflect.DeepEqual(got[0].Values, []float64{2, 3, 4}) {
		t.Errorf("site a = %+v", got[0])
	}
	if got[1].SiteID != "b" || !reflect.DeepEqual(got[1].Values, []float64{30, 40}) {
		t.Errorf("site b = %+v", got[1])
	}
}

func TestScannerMissingSite(t *testing.T) {
	dir := t.TempDir()
	obstest.WriteSite(t, Path(dir, "a"), "swe", obstest.Days("2020-01-01", 1), []float64{1})

	s := NewScanner(dir, "swe", []string{"a", "gone"}, time.Time{}, time.Time{})
	n := 0
	for s.Scan() {
		n++
	}
	if n != 1 {
		t.Errorf("scanned %d sites before failing, want 1", n)
	}
	if s.Err() == nil || !strings.Contains(s.Err().Error(), "gone") {
		t.Errorf("Err = %v, want an error naming the site", s.Err())
	}
	if s.Scan() {
		t.Error("Scan after an error should return false")
	}
}

func TestWindow(t *testing.T) {
	s := Series{
		Times: []time.Time{
			time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2020, 1, 1, 23, 0, 0, 0, time.UTC),
			time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC),
			time.Date(2020, 1, 2, 1, 0, 0, 0, time.UTC),
		},
		Values: []float64{1, 2, 3, 4},
	}
	tests := []struct {
		name       string
		start, end time.Time
		want       []float64
	}{
		{"open", time.Time{}, time.Time{}, []float64{1, 2, 3, 4}},
		{"start only", time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC), time.Time{}, []float64{2, 3, 4}},
		{"end is inclusive midnight", time.Time{}, time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), []float64{1, 2, 3}},
		{"empty", time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), time.Time{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Window(tt.start, tt.end).Values; !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Window = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseUnits(t *testing.T) {
	tests := []struct {
		units  string
		offset float64
		want   time.Time
	}{
		{"days since 1970-01-01", 18262, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"hours since 1900-01-01 00:00:00", 24, time.Date(1900, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"seconds since 2000-01-01T00:00:00Z", 90, time.Date(2000, 1, 1, 0, 1, 30, 0, time.UTC)},
	}
	for _, tt := range tests {
		step, epoch, err := parseUnits(tt.units)
		if err != nil {
			t.Errorf("parseUnits(%q): %v", tt.units, err)
			continue
		}
		if got := epoch.Add(time.Duration(tt.offset * float64(step))); !got.Equal(tt.want) {
			t.Errorf("%q + %v = %v, want %v", tt.units, tt.offset, got, tt.want)
		}
	}
	for _, bad := range []string{"", "days", "fortnights since 2000-01-01", "days since yesterday"} {
		if _, _, err := parseUnits(bad); err == nil {
			t.Errorf("parseUnits(%q) should fail", bad)
		}
	}
}

func TestParseTime(t *testing.T) {
	for _, s := range []string{"2020-01-01", "2020-01-01 06:00:00", "2020-01-01T06:00:00"} {
		if _, err := parseTime(s); err != nil {
			t.Errorf("parseTime(%q): %v", s, err)
		}
	}
	if _, err := parseTime("01/01/2020"); err == nil {
		t.Error("expected an error for an unsupported layout")
	}
}
