package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Variable describes one (data source, variable, resolution, aggregation,
// depth) combination.
type Variable struct {
	ID                 int    `json:"var_id"`
	Name               string `json:"variable_name"`
	Units              string `json:"units"`
	DataSource         string `json:"data_source"`
	Variable           string `json:"variable"`
	TemporalResolution string `json:"temporal_resolution"`
	Aggregation        string `json:"aggregation"`
	DepthLevel         int    `json:"depth_level,omitempty"`

	// Dir is the directory of the per-site NetCDF files, relative to the
	// HydroData root. Empty for variables stored in SQL.
	Dir string `json:"-"`
	// NCVar is the name of the data variable inside the NetCDF files.
	NCVar string `json:"-"`
}

// DiscreteWTD is the variable stored in the wtd_discrete_data table rather
// than in per-site files.
const DiscreteWTD = 5

// Known is the fixed variable table of the HydroData catalog.
var Known = []Variable{
	{1, "streamflow_hourly_average", "cms", "usgs_nwis", "streamflow", "hourly", "average", 0, "national_obs/streamflow/data/hourly", "streamflow"},
	{2, "streamflow_daily_average", "cms", "usgs_nwis", "streamflow", "daily", "average", 0, "national_obs/streamflow/data/daily", "streamflow"},
	{3, "wtd_hourly_average", "m", "usgs_nwis", "wtd", "hourly", "average", 0, "national_obs/groundwater/data/hourly", "wtd"},
	{4, "wtd_daily_average", "m", "usgs_nwis", "wtd", "daily", "average", 0, "national_obs/groundwater/data/daily", "wtd"},
	{5, "wtd_instantaneous", "m", "usgs_nwis", "wtd", "instantaneous", "instantaneous", 0, "", "wtd"},
	{6, "swe_daily_start-of-day", "mm", "usda_nrcs", "swe", "daily", "start-of-day", 0, "national_obs/swe/data/daily", "swe"},
	{7, "precipitation_daily_accumulated", "mm", "usda_nrcs", "precipitation", "daily", "accumulated", 0, "national_obs/point_meteorology/NRCS_precipitation/data/daily", "precip_acc"},
	{8, "precipitation_daily_total", "mm", "usda_nrcs", "precipitation", "daily", "total", 0, "national_obs/point_meteorology/NRCS_precipitation/data/daily", "precip_inc"},
	{9, "precipitation_daily_total_snow-adjusted", "mm", "usda_nrcs", "precipitation", "daily", "total, snow-adjusted", 0, "national_obs/point_meteorology/NRCS_precipitation/data/daily", "precip_inc_sa"},
	{10, "temperature_daily_minimum", "C", "usda_nrcs", "temperature", "daily", "minimum", 0, "national_obs/point_meteorology/NRCS_temperature/data/daily", "temp_min"},
	{11, "temperature_daily_maximum", "C", "usda_nrcs", "temperature", "daily", "maximum", 0, "national_obs/point_meteorology/NRCS_temperature/data/daily", "temp_max"},
	{12, "temperature_daily_average", "C", "usda_nrcs", "temperature", "daily", "average", 0, "national_obs/point_meteorology/NRCS_temperature/data/daily", "temp_avg"},
	{13, "soil_moisture_daily_start-of-day_2in", "pct", "usda_nrcs", "soil moisture", "daily", "start-of-day", 2, "national_obs/soil_moisture/data/daily", "sms_2in"},
	{14, "soil_moisture_daily_start-of-day_4in", "pct", "usda_nrcs", "soil moisture", "daily", "start-of-day", 4, "national_obs/soil_moisture/data/daily", "sms_4in"},
	{15, "soil_moisture_daily_start-of-day_8in", "pct", "usda_nrcs", "soil moisture", "daily", "start-of-day", 8, "national_obs/soil_moisture/data/daily", "sms_8in"},
	{16, "soil_moisture_daily_start-of-day_20in", "pct", "usda_nrcs", "soil moisture", "daily", "start-of-day", 20, "national_obs/soil_moisture/data/daily", "sms_20in"},
	{17, "soil_moisture_daily_start-of-day_40in", "pct", "usda_nrcs", "soil moisture", "daily", "start-of-day", 40, "national_obs/soil_moisture/data/daily", "sms_40in"},
	{18, "latent_heat_flux_hourly_total", "W/m2", "ameriflux", "latent heat flux", "hourly", "total", 0, "national_obs/ameriflux/data/hourly", "latent heat flux"},
	{19, "sensible_heat_flux_hourly_total", "W/m2", "ameriflux", "sensible heat flux", "hourly", "total", 0, "national_obs/ameriflux/data/hourly", "sensible heat flux"},
	{20, "shortwave_radiation_hourly_average", "W/m2", "ameriflux", "shortwave radiation", "hourly", "average", 0, "national_obs/ameriflux/data/hourly", "shortwave radiation"},
	{21, "longwave_radiation_hourly_average", "W/m2", "ameriflux", "longwave radiation", "hourly", "average", 0, "national_obs/ameriflux/data/hourly", "longwave radiation"},
	{22, "vapor_pressure_deficit_hourly_average", "hPa", "ameriflux", "vapor pressure deficit", "hourly", "average", 0, "national_obs/ameriflux/data/hourly", "vapor pressure deficit"},
	{23, "air_temperature_hourly_average", "C", "ameriflux", "temperature", "hourly", "average", 0, "national_obs/ameriflux/data/hourly", "air temperature"},
	{24, "wind_speed_hourly_average", "m/s", "ameriflux", "wind speed", "hourly", "average", 0, "national_obs/ameriflux/data/hourly", "wind speed"},
}

// Lookup returns the known variable with the given ID.
func Lookup(id int) (Variable, bool) {
	for _, v := range Known {
		if v.ID == id {
			return v, true
		}
	}
	return Variable{}, false
}

// VarID resolves a variable ID. depthLevel is only matched for soil
// moisture.
func (d *DB) VarID(ctx context.Context, dataSource, variable, resolution, aggregation string, depthLevel int) (int, error) {
	query := `
		SELECT var_id
		FROM variables
		WHERE data_source = ?
			AND variable = ?
			AND temporal_resolution = ?
			AND aggregation = ?`
	args := []any{dataSource, variable, resolution, aggregation}
	if variable == "soil moisture" {
		query += ` AND depth_level = ?`
		args = append(args, depthLevel)
	}

	var id int
	err := d.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrUnsupported
	}
	if err != nil {
		return 0, fmt.Errorf("query var_id: %w", err)
	}
	return id, nil
}

// Variables lists every variable in the catalog.
func (d *DB) Variables(ctx context.Context) ([]Variable, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT var_id, variable_name, units, data_source, variable, temporal_resolution, aggregation, depth_level
		FROM variables
		ORDER BY var_id`)
	if err != nil {
		return nil, fmt.Errorf("query variables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var vars []Variable
	for rows.Next() {
		var v Variable
		var name, units sql.NullString
		var depth sql.NullInt64
		if err := rows.Scan(&v.ID, &name, &units, &v.DataSource, &v.Variable, &v.TemporalResolution, &v.Aggregation, &depth); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		v.Name = name.String
		v.Units = units.String
		v.DepthLevel = int(depth.Int64)
		if k, ok := Lookup(v.ID); ok {
			v.Dir, v.NCVar = k.Dir, k.NCVar
		}
		vars = append(vars, v)
	}
	return vars, rows.Err()
}
