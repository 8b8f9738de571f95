// Package network resolves named site networks, externally curated subsets
// of site identifiers such as reference gauge networks.
package network

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ErrUnknown is returned for networks that are not offered for a data
// source and variable, or whose list file is missing.
var ErrUnknown = errors.New("network option is not recognized")

// Options lists the networks available per data source and variable.
var Options = map[string]map[string][]string{
	"usgs_nwis": {
		"streamflow": {"camels", "gagesii_reference", "gagesii", "hcdn2009"},
		"wtd":        {"climate_response_network"},
	},
}

// Path returns the location of a network list under dir.
func Path(dir, dataSource, variable, name string) string {
	return filepath.Join(dir, dataSource, variable, name+".csv")
}

// SiteList returns the de-duplicated site IDs of the named networks, in
// first-seen order. Each list is a header-less CSV with one site ID per line.
func SiteList(dir, dataSource, variable string, names []string) ([]string, error) {
	seen := make(map[string]struct{})
	var sites []string
	for _, name := range names {
		path := Path(dir, dataSource, variable, name)
		if !slices.Contains(Options[dataSource][variable], name) {
			return nil, fmt.Errorf("%w: %s, make sure %s exists", ErrUnknown, name, path)
		}
		ids, err := readList(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnknown, name, err)
		}
		for _, id := range ids {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				sites = append(sites, id)
			}
		}
	}
	return sites, nil
}

func readList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var ids []string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) == 0 {
			continue
		}
		if id := strings.TrimSpace(rec[0]); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
