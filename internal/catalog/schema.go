package catalog

// CreateSchema creates the catalog tables if they do not exist.
func (d *DB) CreateSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS variables (
		var_id INTEGER PRIMARY KEY,
		variable_name TEXT,
		units TEXT,
		data_source TEXT NOT NULL,
		variable TEXT NOT NULL,
		temporal_resolution TEXT NOT NULL,
		aggregation TEXT NOT NULL,
		depth_level INTEGER
	);

	CREATE TABLE IF NOT EXISTS sites (
		site_id TEXT PRIMARY KEY,
		site_name TEXT,
		site_type TEXT,
		agency TEXT,
		state TEXT,
		latitude REAL,
		longitude REAL,
		huc TEXT,
		site_query_url TEXT,
		date_metadata_last_updated TEXT,
		tz_cd TEXT,
		doi TEXT
	);

	CREATE TABLE IF NOT EXISTS observations (
		site_id TEXT NOT NULL,
		var_id INTEGER NOT NULL,
		first_date_data_available TEXT,
		last_date_data_available TEXT,
		record_count INTEGER,
		PRIMARY KEY (site_id, var_id)
	);

	CREATE TABLE IF NOT EXISTS wtd_discrete_data (
		site_id TEXT NOT NULL,
		date TEXT NOT NULL,
		wtd REAL,
		pumping_status TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_wtd_discrete_site ON wtd_discrete_data(site_id);
	CREATE INDEX IF NOT EXISTS idx_wtd_discrete_date ON wtd_discrete_data(date);

	CREATE TABLE IF NOT EXISTS streamgauge_attributes (
		site_id TEXT PRIMARY KEY,
		gages_drainage_sqkm REAL,
		class TEXT,
		site_elevation_ngvd29 REAL,
		ecoregion TEXT
	);

	CREATE TABLE IF NOT EXISTS well_attributes (
		site_id TEXT PRIMARY KEY,
		nat_aqfr_cd TEXT,
		aqfr_cd TEXT,
		aqfr_type_cd TEXT,
		well_depth_va REAL,
		hole_depth_va REAL
	);

	CREATE TABLE IF NOT EXISTS snotel_station_attributes (
		site_id TEXT PRIMARY KEY,
		elevation REAL,
		area TEXT,
		ecoregion TEXT
	);

	CREATE TABLE IF NOT EXISTS scan_station_attributes (
		site_id TEXT PRIMARY KEY,
		elevation REAL,
		area TEXT,
		ecoregion TEXT
	);

	CREATE TABLE IF NOT EXISTS flux_tower_attributes (
		site_id TEXT PRIMARY KEY,
		site_description TEXT,
		elevation REAL,
		igbp TEXT,
		climate_koeppen TEXT,
		mean_annual_temp REAL,
		mean_annual_precip REAL
	);
	`
	_, err := d.db.Exec(schema)
	return err
}

// SeedVariables loads the known variable table.
func (d *DB) SeedVariables() error {
	for _, v := range Known {
		var depth any
		if v.DepthLevel != 0 {
			depth = v.DepthLevel
		}
		_, err := d.db.Exec(`
			INSERT OR REPLACE INTO variables (var_id, variable_name, units, data_source, variable, temporal_resolution, aggregation, depth_level)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, v.ID, v.Name, v.Units, v.DataSource, v.Variable, v.TemporalResolution, v.Aggregation, depth)
		if err != nil {
			return err
		}
	}
	return nil
}
