package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Site is a site row joined with its observation summary for one variable.
// RecordCount is the overall count and ignores any date filtering.
type Site struct {
	SiteID                  string         `json:"site_id"`
	SiteName                string         `json:"site_name"`
	SiteType                string         `json:"site_type"`
	Agency                  string         `json:"agency"`
	State                   string         `json:"state"`
	Latitude                float64        `json:"latitude"`
	Longitude               float64        `json:"longitude"`
	HUC                     string         `json:"huc"`
	FirstDateDataAvailable  string         `json:"first_date_data_available"`
	LastDateDataAvailable   string         `json:"last_date_data_available"`
	RecordCount             int            `json:"record_count"`
	SiteQueryURL            string         `json:"site_query_url"`
	DateMetadataLastUpdated string         `json:"date_metadata_last_updated"`
	TZCode                  string         `json:"tz_cd"`
	DOI                     string         `json:"doi"`
	Attributes              map[string]any `json:"attributes,omitempty"`
}

// SiteFilter narrows Sites. Zero values are ignored.
type SiteFilter struct {
	DateStart      string
	DateEnd        string
	LatitudeRange  *[2]float64
	LongitudeRange *[2]float64
	SiteIDs        []string
	State          string
	// NetworkSiteIDs restricts the result to members of the requested site
	// networks. A non-nil empty slice matches nothing.
	NetworkSiteIDs []string
}

// Sites returns the sites that have data for varID and match f.
func (d *DB) Sites(ctx context.Context, varID int, f SiteFilter) ([]Site, error) {
	conditions := []string{"o.first_date_data_available <> 'None'"}
	args := []any{varID}

	if f.DateStart != "" {
		conditions = append(conditions, "o.last_date_data_available >= ?")
		args = append(args, f.DateStart)
	}
	if f.DateEnd != "" {
		conditions = append(conditions, "o.first_date_data_available <= ?")
		args = append(args, f.DateEnd)
	}
	if f.LatitudeRange != nil {
		conditions = append(conditions, "s.latitude BETWEEN ? AND ?")
		args = append(args, f.LatitudeRange[0], f.LatitudeRange[1])
	}
	if f.LongitudeRange != nil {
		conditions = append(conditions, "s.longitude BETWEEN ? AND ?")
		args = append(args, f.LongitudeRange[0], f.LongitudeRange[1])
	}
	if len(f.SiteIDs) > 0 {
		conditions = append(conditions, "s.site_id IN ("+placeholders(len(f.SiteIDs))+")")
		args = append(args, stringArgs(f.SiteIDs)...)
	}
	if f.State != "" {
		conditions = append(conditions, "s.state = ?")
		args = append(args, f.State)
	}
	if f.NetworkSiteIDs != nil {
		if len(f.NetworkSiteIDs) == 0 {
			return nil, nil
		}
		conditions = append(conditions, "s.site_id IN ("+placeholders(len(f.NetworkSiteIDs))+")")
		args = append(args, stringArgs(f.NetworkSiteIDs)...)
	}

	query := `
		SELECT s.site_id, s.site_name, s.site_type, s.agency, s.state,
			s.latitude, s.longitude, s.huc, o.first_date_data_available,
			o.last_date_data_available, o.record_count, s.site_query_url,
			s.date_metadata_last_updated, s.tz_cd, s.doi
		FROM sites s
		INNER JOIN observations o
		ON s.site_id = o.site_id AND o.var_id = ?
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY s.site_id`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sites: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sites []Site
	for rows.Next() {
		var s Site
		var name, typ, agency, state, huc, first, last, url, updated, tz, doi sql.NullString
		var lat, lon sql.NullFloat64
		var count sql.NullInt64
		err := rows.Scan(&s.SiteID, &name, &typ, &agency, &state, &lat, &lon, &huc,
			&first, &last, &count, &url, &updated, &tz, &doi)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		s.SiteName = name.String
		s.SiteType = typ.String
		s.Agency = agency.String
		s.State = state.String
		s.Latitude = lat.Float64
		s.Longitude = lon.Float64
		s.HUC = CleanHUC(huc.String)
		s.FirstDateDataAvailable = first.String
		s.LastDateDataAvailable = last.String
		s.RecordCount = int(count.Int64)
		s.SiteQueryURL = url.String
		s.DateMetadataLastUpdated = updated.String
		s.TZCode = tz.String
		s.DOI = doi.String
		sites = append(sites, s)
	}
	return sites, rows.Err()
}

// attributeTables maps a site type to the table holding its attributes.
var attributeTables = map[string]string{
	"stream gauge":     "streamgauge_attributes",
	"groundwater well": "well_attributes",
	"SNOTEL station":   "snotel_station_attributes",
	"SCAN station":     "scan_station_attributes",
	"flux tower":       "flux_tower_attributes",
}

// Attributes fills Site.Attributes from the per-type attribute tables.
// Sites of an unknown type, or without a row, are left untouched.
func (d *DB) Attributes(ctx context.Context, sites []Site) error {
	byType := make(map[string][]string)
	for _, s := range sites {
		if _, ok := attributeTables[s.SiteType]; ok {
			byType[s.SiteType] = append(byType[s.SiteType], s.SiteID)
		}
	}

	attrs := make(map[string]map[string]any)
	for typ, ids := range byType {
		if err := d.readAttributes(ctx, attributeTables[typ], ids, attrs); err != nil {
			return fmt.Errorf("%s attributes: %w", typ, err)
		}
	}
	for i := range sites {
		if a, ok := attrs[sites[i].SiteID]; ok {
			sites[i].Attributes = a
		}
	}
	return nil
}

func (d *DB) readAttributes(ctx context.Context, table string, ids []string, out map[string]map[string]any) error {
	// table comes from attributeTables, never from the caller.
	query := fmt.Sprintf("SELECT * FROM %s WHERE site_id IN (%s)", table, placeholders(len(ids)))
	rows, err := d.db.QueryContext(ctx, query, stringArgs(ids)...)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		var siteID string
		rec := make(map[string]any, len(cols)-1)
		for i, c := range cols {
			v := vals[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			if c == "site_id" {
				siteID, _ = v.(string)
				continue
			}
			rec[c] = v
		}
		out[siteID] = rec
	}
	return rows.Err()
}

// DOIs returns the DOI of each requested site that has one.
func (d *DB) DOIs(ctx context.Context, siteIDs []string) (map[string]string, error) {
	dois := make(map[string]string)
	if len(siteIDs) == 0 {
		return dois, nil
	}
	query := "SELECT site_id, doi FROM sites WHERE site_id IN (" + placeholders(len(siteIDs)) + ")"
	rows, err := d.db.QueryContext(ctx, query, stringArgs(siteIDs)...)
	if err != nil {
		return nil, fmt.Errorf("query dois: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id string
		var doi sql.NullString
		if err := rows.Scan(&id, &doi); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if doi.Valid && doi.String != "" {
			dois[id] = doi.String
		}
	}
	return dois, rows.Err()
}
