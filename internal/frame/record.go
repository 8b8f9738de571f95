package frame

import (
	"encoding/json"
	"math"
)

// Record is one discrete water table depth reading.
type Record struct {
	SiteID string
	Date   string

	WTD float64 // meters below land surface, NaN if not reported
	// PumpingStatus is "1" (static), "P" (pumping) or "" (unknown).
	PumpingStatus string
}

type recordJSON struct {
	SiteID        string   `json:"site_id"`
	Date          string   `json:"date"`
	WTD           *float64 `json:"wtd"`
	PumpingStatus string   `json:"pumping_status"`
}

// MarshalJSON encodes a missing depth as null.
func (r Record) MarshalJSON() ([]byte, error) {
	out := recordJSON{SiteID: r.SiteID, Date: r.Date, PumpingStatus: r.PumpingStatus}
	if !math.IsNaN(r.WTD) {
		out.WTD = &r.WTD
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a null depth as NaN.
func (r *Record) UnmarshalJSON(b []byte) error {
	var in recordJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	r.SiteID, r.Date, r.PumpingStatus = in.SiteID, in.Date, in.PumpingStatus
	r.WTD = math.NaN()
	if in.WTD != nil {
		r.WTD = *in.WTD
	}
	return nil
}

// RecordSiteIDs returns the distinct sites of recs in first-seen order.
func RecordSiteIDs(recs []Record) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, r := range recs {
		if _, ok := seen[r.SiteID]; !ok {
			seen[r.SiteID] = struct{}{}
			ids = append(ids, r.SiteID)
		}
	}
	return ids
}
