// Package frame holds the tabular results of a point observations request.
package frame

import (
	"encoding/json"
	"math"
	"sort"
)

// Frame is a site-by-date table. Each row holds one value per date; NaN
// marks a missing observation.
type Frame struct {
	Dates []string `json:"dates"`
	Rows  []Row    `json:"rows"`
}

// Row is the series of one site, aligned with Frame.Dates.
type Row struct {
	SiteID string
	Values []float64
}

// Series is a single site's observations before alignment.
type Series struct {
	SiteID string
	Dates  []string
	Values []float64
}

// Stack outer-joins series on their dates. Dates are sorted ascending and
// cells a site has no value for are NaN. Row order follows series order.
func Stack(series []Series) *Frame {
	seen := make(map[string]struct{})
	var dates []string
	for _, s := range series {
		for _, d := range s.Dates {
			if _, ok := seen[d]; !ok {
				seen[d] = struct{}{}
				dates = append(dates, d)
			}
		}
	}
	sort.Strings(dates)

	col := make(map[string]int, len(dates))
	for i, d := range dates {
		col[d] = i
	}

	f := &Frame{Dates: dates, Rows: make([]Row, len(series))}
	for i, s := range series {
		vals := make([]float64, len(dates))
		for j := range vals {
			vals[j] = math.NaN()
		}
		for j, d := range s.Dates {
			vals[col[d]] = s.Values[j]
		}
		f.Rows[i] = Row{SiteID: s.SiteID, Values: vals}
	}
	return f
}

// Count returns the number of non-missing values in the row.
func (r Row) Count() int {
	n := 0
	for _, v := range r.Values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// FilterMinObs returns a frame holding only the rows with at least minNumObs
// non-missing values. Dates are kept as they are.
func (f *Frame) FilterMinObs(minNumObs int) *Frame {
	out := &Frame{Dates: f.Dates, Rows: make([]Row, 0, len(f.Rows))}
	for _, r := range f.Rows {
		if r.Count() >= minNumObs {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// SiteIDs returns the site of each row, in row order.
func (f *Frame) SiteIDs() []string {
	ids := make([]string, len(f.Rows))
	for i, r := range f.Rows {
		ids[i] = r.SiteID
	}
	return ids
}

type rowJSON struct {
	SiteID string     `json:"site_id"`
	Values []*float64 `json:"values"`
}

// MarshalJSON encodes missing values as null.
func (r Row) MarshalJSON() ([]byte, error) {
	out := rowJSON{SiteID: r.SiteID, Values: make([]*float64, len(r.Values))}
	for i := range r.Values {
		if !math.IsNaN(r.Values[i]) {
			out.Values[i] = &r.Values[i]
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes null values as NaN.
func (r *Row) UnmarshalJSON(b []byte) error {
	var in rowJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	r.SiteID = in.SiteID
	r.Values = make([]float64, len(in.Values))
	for i, v := range in.Values {
		if v == nil {
			r.Values[i] = math.NaN()
		} else {
			r.Values[i] = *v
		}
	}
	return nil
}
