package pointdata

import (
	"fmt"

	"github.com/rtm0/pointdata/internal/params"
)

var citations = map[string]string{
	"usgs_nwis": `Most U.S. Geological Survey (USGS) information resides in Public Domain
and may be used without restriction, though they do ask that proper credit be given.
An example credit statement would be: "(Product or data name) courtesy of the U.S. Geological Survey"
Source: https://www.usgs.gov/information-policies-and-instructions/acknowledging-or-crediting-usgs`,

	"usda_nrcs": `Most information presented on the USDA Web site is considered public domain information.
Public domain information may be freely distributed or copied, but use of appropriate
byline/photo/image credits is requested.
Attribution may be cited as follows: "U.S. Department of Agriculture"
Source: https://www.usda.gov/policies-and-links`,

	"ameriflux": `All AmeriFlux sites provided by the HydroData service follow the CC-BY-4.0 License.
The CC-BY-4.0 license specifies that the data user is free to Share (copy and redistribute
the material in any medium or format) and/or Adapt (remix, transform, and build upon the
material) for any purpose.

Users of this data must acknowledge the AmeriFlux data resource with the following statement:
"Funding for the AmeriFlux data portal was provided by the U.S. Department of Energy Office
of Science."

Additionally, for each AmeriFlux site used, you must provide a citation to the site's
data product that includes the data product DOI. The DOI for each site is included in the
full metadata query. Alternately, CitationDOIs returns each site-specific DOI.

Source: https://ameriflux.lbl.gov/data/data-policy/`,
}

// Citation returns the citation and usage policy of a data source.
func Citation(dataSource string) (string, error) {
	text, ok := citations[dataSource]
	if !ok {
		return "", fmt.Errorf("%w: unexpected data_source %q, supported values are 'usgs_nwis', 'usda_nrcs', 'ameriflux'", params.ErrInvalid, dataSource)
	}
	return text, nil
}
