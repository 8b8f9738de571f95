package obs

import (
	"math"
	"time"
)

// Series is the observation record of one site, ordered as stored in its
// file.
type Series struct {
	SiteID string

	// Dimension
	Times []time.Time

	// Values, NaN where missing
	Values []float64
}

// Window returns the observations with start <= t <= end. A zero bound is
// open.
func (s Series) Window(start, end time.Time) Series {
	if start.IsZero() && end.IsZero() {
		return s
	}
	out := Series{SiteID: s.SiteID}
	for i, t := range s.Times {
		if !start.IsZero() && t.Before(start) {
			continue
		}
		if !end.IsZero() && t.After(end) {
			continue
		}
		out.Times = append(out.Times, t)
		out.Values = append(out.Values, s.Values[i])
	}
	return out
}

// Labels formats each timestamp with layout.
func (s Series) Labels(layout string) []string {
	labels := make([]string, len(s.Times))
	for i, t := range s.Times {
		labels[i] = t.Format(layout)
	}
	return labels
}

// Count returns the number of non-missing values.
func (s Series) Count() int {
	n := 0
	for _, v := range s.Values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}
