package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/rtm0/pointdata"
	"github.com/rtm0/pointdata/internal/config"
	"github.com/rtm0/pointdata/internal/frame"
	"github.com/rtm0/pointdata/internal/remote"
)

const usage = `usage: pointdata [command] [flags]

commands:
  data       print observations (default)
  sites      print the metadata of matching sites
  variables  list supported variables
  citation   print the citation policy of -dataSource and the DOIs of -siteIds
  register   store -email and -pin for the remote API
`

var (
	fs = flag.NewFlagSet("pointdata", flag.ExitOnError)

	mode           = fs.String("mode", "", "auto, local or remote. Default: $HYDRODATA_MODE or auto")
	dataSource     = fs.String("dataSource", "", "usgs_nwis, usda_nrcs or ameriflux")
	variable       = fs.String("variable", "", "observed variable, e.g. streamflow, wtd, swe")
	resolution     = fs.String("temporalResolution", "", "daily, hourly or instantaneous")
	aggregation    = fs.String("aggregation", "", "e.g. average, total, start-of-day")
	depthLevel     = fs.Int("depthLevel", 0, "soil moisture sensor depth in inches")
	dateStart      = fs.String("dateStart", "", "first date, YYYY-MM-DD")
	dateEnd        = fs.String("dateEnd", "", "last date, YYYY-MM-DD")
	state          = fs.String("state", "", "two-letter state code")
	minNumObs      = fs.Int("minNumObs", 1, "minimum number of observations a site must have in the date range")
	returnMetadata = fs.Bool("returnMetadata", false, "also return site metadata")
	allAttributes  = fs.Bool("allAttributes", false, "include site type specific attributes in the metadata")
	format         = fs.String("format", "csv", "output format of data: csv or json")
	metadataFile   = fs.String("metadataFile", "", "write metadata as JSON to this file instead of stdout")
	email          = fs.String("email", "", "email registered at the HydroData website")
	pin            = fs.String("pin", "", "PIN created at the HydroData website")
	verbose        = fs.Bool("verbose", false, "log debug messages")

	latitudeRange  rangeFlag
	longitudeRange rangeFlag
	siteIDs        listFlag
	siteNetworks   listFlag
)

func init() {
	fs.Var(&latitudeRange, "latitudeRange", "min,max latitude")
	fs.Var(&longitudeRange, "longitudeRange", "min,max longitude")
	fs.Var(&siteIDs, "siteIds", "comma separated site IDs")
	fs.Var(&siteNetworks, "siteNetworks", "comma separated site network names, e.g. camels,hcdn2009")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
}

func main() {
	args := os.Args[1:]
	cmd := "data"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}
	_ = fs.Parse(args)

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Could not load configuration", "err", err)
		os.Exit(1)
	}
	if *mode != "" {
		cfg.Mode = config.Mode(*mode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, logger, cfg, cmd, os.Stdout); err != nil {
		logger.Error("Could not run "+cmd, "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg config.Config, cmd string, w io.Writer) error {
	switch cmd {
	case "register":
		if err := remote.RegisterPIN(cfg.PINFile, *email, *pin); err != nil {
			return err
		}
		logger.Info("PIN registered", "file", cfg.PINFile)
		return nil
	case "citation":
		text, err := pointdata.Citation(*dataSource)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, text)
		if len(siteIDs) == 0 {
			return nil
		}
	case "data", "sites", "variables":
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}

	c, err := pointdata.New(cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()
	logger.Debug("client created", "mode", c.Mode())

	switch cmd {
	case "citation":
		dois, err := c.CitationDOIs(ctx, siteIDs)
		if err != nil {
			return err
		}
		return writeJSON(w, dois)
	case "variables":
		vars, err := c.Variables(ctx)
		if err != nil {
			return err
		}
		return writeJSON(w, vars)
	case "sites":
		sites, err := c.GetSites(ctx, request())
		if err != nil {
			return err
		}
		return writeJSON(w, sites)
	}

	res, err := c.GetData(ctx, request())
	if err != nil {
		return err
	}
	logger.Info("data retrieved", "sites", len(res.SiteIDs()), "metadata", len(res.Metadata))
	return writeResult(w, res)
}

func request() pointdata.Request {
	return pointdata.Request{
		DataSource:         *dataSource,
		Variable:           *variable,
		TemporalResolution: *resolution,
		Aggregation:        *aggregation,
		DepthLevel:         *depthLevel,
		DateStart:          *dateStart,
		DateEnd:            *dateEnd,
		LatitudeRange:      latitudeRange.r,
		LongitudeRange:     longitudeRange.r,
		SiteIDs:            siteIDs,
		SiteNetworks:       siteNetworks,
		State:              *state,
		MinNumObs:          *minNumObs,
		ReturnMetadata:     *returnMetadata,
		AllAttributes:      *allAttributes,
	}
}

func writeResult(w io.Writer, res *pointdata.Result) error {
	if *metadataFile != "" && res.Metadata != nil {
		f, err := os.Create(*metadataFile)
		if err != nil {
			return err
		}
		err = writeJSON(f, res.Metadata)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		res.Metadata = nil
	}

	switch *format {
	case "json":
		return writeJSON(w, res)
	case "csv":
		if res.Metadata != nil {
			return errors.New("csv output cannot hold metadata, use -metadataFile or -format json")
		}
		if res.Data != nil {
			return res.Data.WriteCSV(w)
		}
		return frame.WriteRecordsCSV(w, res.Records)
	}
	return fmt.Errorf("unknown format %q", *format)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// rangeFlag parses "min,max".
type rangeFlag struct {
	r *pointdata.Range
}

func (f *rangeFlag) String() string {
	if f == nil || f.r == nil {
		return ""
	}
	return fmt.Sprintf("%g,%g", f.r.Min, f.r.Max)
}

func (f *rangeFlag) Set(s string) error {
	lo, hi, ok := strings.Cut(s, ",")
	if !ok {
		return fmt.Errorf("want min,max, got %q", s)
	}
	a, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
	if err != nil {
		return err
	}
	b, err := strconv.ParseFloat(strings.TrimSpace(hi), 64)
	if err != nil {
		return err
	}
	f.r = &pointdata.Range{Min: a, Max: b}
	return nil
}

// listFlag parses a comma separated list.
type listFlag []string

func (f *listFlag) String() string {
	return strings.Join(*f, ",")
}

func (f *listFlag) Set(s string) error {
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			*f = append(*f, item)
		}
	}
	return nil
}
