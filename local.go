package pointdata

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rtm0/pointdata/internal/catalog"
	"github.com/rtm0/pointdata/internal/frame"
	"github.com/rtm0/pointdata/internal/network"
	"github.com/rtm0/pointdata/internal/obs"
	"github.com/rtm0/pointdata/internal/params"
)

const (
	dailyLayout  = "2006-01-02"
	hourlyLayout = "2006-01-02 15:04:05"
)

func (c *Client) getLocal(ctx context.Context, req Request) (*Result, error) {
	v, sites, err := c.sites(ctx, req)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	if v.ID == catalog.DiscreteWTD {
		recs, err := c.db.Discrete(ctx, req.DateStart, req.DateEnd, req.MinNumObs)
		if err != nil {
			return nil, err
		}
		res.Records = keepSites(recs, sites)
	} else {
		f, err := c.readFrame(v, sites, req)
		if err != nil {
			return nil, err
		}
		res.Data = f
	}

	if req.ReturnMetadata {
		res.Metadata = restrict(sites, res.SiteIDs())
		if req.AllAttributes {
			if err := c.db.Attributes(ctx, res.Metadata); err != nil {
				return nil, err
			}
		}
	}
	return res, nil
}

// sites resolves the variable of req and the sites having data for it.
func (c *Client) sites(ctx context.Context, req Request) (catalog.Variable, []catalog.Site, error) {
	id, err := c.db.VarID(ctx, req.DataSource, req.Variable, req.TemporalResolution, req.Aggregation, req.DepthLevel)
	if err != nil {
		return catalog.Variable{}, nil, err
	}
	v, ok := catalog.Lookup(id)
	if !ok {
		return catalog.Variable{}, nil, fmt.Errorf("%w: variable id %d has no data directory", catalog.ErrUnsupported, id)
	}

	filter := catalog.SiteFilter{
		DateStart:      req.DateStart,
		DateEnd:        req.DateEnd,
		LatitudeRange:  bounds(req.LatitudeRange),
		LongitudeRange: bounds(req.LongitudeRange),
		SiteIDs:        req.SiteIDs,
		State:          req.State,
	}
	if len(req.SiteNetworks) > 0 {
		ids, err := network.SiteList(c.networkDir, req.DataSource, req.Variable, req.SiteNetworks)
		if err != nil {
			return v, nil, err
		}
		filter.NetworkSiteIDs = append([]string{}, ids...)
	}

	sites, err := c.db.Sites(ctx, id, filter)
	if err != nil {
		return v, nil, err
	}
	if len(sites) == 0 {
		return v, nil, ErrNoSites
	}
	return v, sites, nil
}

// readFrame reads the file of every site and stacks them into a frame.
func (c *Client) readFrame(v catalog.Variable, sites []catalog.Site, req Request) (*frame.Frame, error) {
	start, end, err := window(req.DateStart, req.DateEnd)
	if err != nil {
		return nil, err
	}
	layout := dailyLayout
	if v.TemporalResolution == "hourly" {
		layout = hourlyLayout
	}

	ids := make([]string, len(sites))
	for i, s := range sites {
		ids[i] = s.SiteID
	}

	s := obs.NewScanner(filepath.Join(c.root, v.Dir), v.NCVar, ids, start, end)
	c.logger.Info("collecting data", s.Summary()...)
	began := time.Now()

	series := make([]frame.Series, 0, len(ids))
	for s.Scan() {
		o := s.Series()
		c.logger.Debug("site read", "site", o.SiteID, "obs", o.Count())
		series = append(series, frame.Series{SiteID: o.SiteID, Dates: o.Labels(layout), Values: o.Values})
	}
	if err := s.Err(); err != nil {
		return nil, err
	}

	f := frame.Stack(series).FilterMinObs(req.MinNumObs)
	c.logger.Info("data collected", "sites", len(f.Rows), "dates", len(f.Dates), "in", time.Since(began).Round(time.Millisecond))
	return f, nil
}

// window turns inclusive request dates into scanner bounds. The end date
// covers its whole day.
func window(dateStart, dateEnd string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error
	if dateStart != "" {
		if start, err = time.Parse(params.DateLayout, dateStart); err != nil {
			return start, end, err
		}
	}
	if dateEnd != "" {
		if end, err = time.Parse(params.DateLayout, dateEnd); err != nil {
			return start, end, err
		}
		end = end.Add(24*time.Hour - time.Nanosecond)
	}
	return start, end, nil
}

func bounds(r *params.Range) *[2]float64 {
	if r == nil {
		return nil
	}
	return &[2]float64{r.Min, r.Max}
}

// keepSites drops records of sites outside sites.
func keepSites(recs []frame.Record, sites []catalog.Site) []frame.Record {
	allowed := make(map[string]struct{}, len(sites))
	for _, s := range sites {
		allowed[s.SiteID] = struct{}{}
	}
	out := recs[:0]
	for _, r := range recs {
		if _, ok := allowed[r.SiteID]; ok {
			out = append(out, r)
		}
	}
	return out
}

// restrict returns the metadata of ids, in ids order.
func restrict(sites []catalog.Site, ids []string) []catalog.Site {
	byID := make(map[string]catalog.Site, len(sites))
	for _, s := range sites {
		byID[s.SiteID] = s
	}
	out := make([]catalog.Site, 0, len(ids))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			out = append(out, s)
		}
	}
	return out
}
