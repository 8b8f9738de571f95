// Package pointdata retrieves point observation time series from HydroData,
// either from a locally mounted catalog and NetCDF files or from the remote
// point data API.
package pointdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/rtm0/pointdata/internal/catalog"
	"github.com/rtm0/pointdata/internal/config"
	"github.com/rtm0/pointdata/internal/frame"
	"github.com/rtm0/pointdata/internal/params"
	"github.com/rtm0/pointdata/internal/remote"
)

type (
	// Request describes the observations to retrieve.
	Request = params.Request
	// Range is an inclusive (min, max) interval.
	Range = params.Range
	// Site is the metadata of one site.
	Site = catalog.Site
	// Variable is one row of the variable table.
	Variable = catalog.Variable
)

var (
	// ErrNoSites is returned when no site satisfies a request.
	ErrNoSites = errors.New("there are zero sites that satisfy the given parameters")
	// ErrLocalOnly is returned by operations that need the local catalog.
	ErrLocalOnly = errors.New("operation requires a local HydroData catalog")
)

// Result is the answer to a data request. Exactly one of Data and Records is
// set: Records for discrete water table depth, Data otherwise.
type Result struct {
	Data     *frame.Frame   `json:"data,omitempty"`
	Records  []frame.Record `json:"records,omitempty"`
	Metadata []catalog.Site `json:"metadata,omitempty"`
}

// SiteIDs returns the sites present in the result, in row order.
func (r *Result) SiteIDs() []string {
	if r.Data != nil {
		return r.Data.SiteIDs()
	}
	return frame.RecordSiteIDs(r.Records)
}

// Client answers requests from the backend selected by its configuration.
type Client struct {
	logger     *slog.Logger
	mode       config.Mode
	root       string
	networkDir string
	db         *catalog.DB
	remote     *remote.Client
}

// New creates a client. With config.ModeAuto the local backend is used when
// cfg.Root exists and the remote API otherwise.
func New(cfg config.Config, logger *slog.Logger) (*Client, error) {
	c := &Client{
		logger:     logger,
		mode:       cfg.ResolveMode(),
		root:       cfg.Root,
		networkDir: cfg.NetworkDir,
	}
	switch c.mode {
	case config.ModeLocal:
		db, err := catalog.Open(cfg.CatalogPath())
		if err != nil {
			return nil, fmt.Errorf("open catalog: %w", err)
		}
		c.db = db
	case config.ModeRemote:
		rc, err := remote.NewClient(logger, remote.Options{
			BaseURL:        cfg.URL,
			PINFile:        cfg.PINFile,
			RequestTimeout: cfg.RequestTimeout,
			LoginTimeout:   cfg.LoginTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("create remote client: %w", err)
		}
		c.remote = rc
	default:
		return nil, fmt.Errorf("unknown mode %q", c.mode)
	}
	logger.Debug("pointdata client ready", "mode", c.mode, "root", c.root)
	return c, nil
}

// Mode returns the backend in use.
func (c *Client) Mode() config.Mode {
	return c.mode
}

// Close releases the catalog connection, if any.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// GetData returns the observations matching req. Sites with fewer than
// req.MinNumObs observations in the requested window are dropped. When
// req.ReturnMetadata is set, Result.Metadata holds one entry per returned
// site in the same order.
func (c *Client) GetData(ctx context.Context, req Request) (*Result, error) {
	req.Normalize()
	if err := params.Validate(req); err != nil {
		return nil, err
	}
	if c.remote != nil {
		var res Result
		if err := c.remote.GetData(ctx, req, &res); err != nil {
			return nil, err
		}
		return &res, nil
	}
	return c.getLocal(ctx, req)
}

// GetSites returns the metadata of the sites matching req without reading
// any observation. Attributes are included when req.AllAttributes is set.
func (c *Client) GetSites(ctx context.Context, req Request) ([]Site, error) {
	req.Normalize()
	req.ReturnMetadata = true
	if err := params.Validate(req); err != nil {
		return nil, err
	}
	if c.remote != nil {
		var sites []Site
		if err := c.remote.GetSites(ctx, req, &sites); err != nil {
			return nil, err
		}
		return sites, nil
	}

	_, sites, err := c.sites(ctx, req)
	if err != nil {
		return nil, err
	}
	if req.AllAttributes {
		if err := c.db.Attributes(ctx, sites); err != nil {
			return nil, err
		}
	}
	return sites, nil
}

// Variables lists the supported variables. Without a local catalog the
// built-in table is returned.
func (c *Client) Variables(ctx context.Context) ([]Variable, error) {
	if c.db == nil {
		return slices.Clone(catalog.Known), nil
	}
	return c.db.Variables(ctx)
}

// CitationDOIs returns the data product DOI of each site, keyed by site ID.
// Sites without a DOI are omitted.
func (c *Client) CitationDOIs(ctx context.Context, siteIDs []string) (map[string]string, error) {
	if c.db == nil {
		return nil, ErrLocalOnly
	}
	return c.db.DOIs(ctx, siteIDs)
}
