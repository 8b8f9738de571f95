package frame

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
)

// WriteCSV writes the frame with a site_id column followed by one column per
// date. Missing values are empty cells.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"site_id"}, f.Dates...)); err != nil {
		return err
	}
	rec := make([]string, len(f.Dates)+1)
	for _, r := range f.Rows {
		rec[0] = r.SiteID
		for i, v := range r.Values {
			rec[i+1] = formatValue(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteRecordsCSV writes discrete records as site_id,date,wtd,pumping_status.
func WriteRecordsCSV(w io.Writer, recs []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"site_id", "date", "wtd", "pumping_status"}); err != nil {
		return err
	}
	for _, r := range recs {
		if err := cw.Write([]string{r.SiteID, r.Date, formatValue(r.WTD), r.PumpingStatus}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
