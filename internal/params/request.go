// Package params describes a point observations request and the rules a
// request must satisfy before any data is touched.
package params

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DateLayout is the layout of DateStart and DateEnd.
const DateLayout = "2006-01-02"

// ErrInvalid is returned for requests that fail validation.
var ErrInvalid = errors.New("invalid request")

// Supported enumerations.
var (
	DataSources = []string{"usgs_nwis", "usda_nrcs", "ameriflux"}

	Variables = []string{
		"streamflow", "wtd", "swe", "precipitation", "temperature", "soil moisture",
		"latent heat flux", "sensible heat flux", "shortwave radiation", "longwave radiation",
		"vapor pressure deficit", "wind speed",
	}

	TemporalResolutions = []string{"daily", "hourly", "instantaneous"}

	Aggregations = []string{
		"average", "instantaneous", "total", "total, snow-adjusted",
		"start-of-day", "accumulated", "minimum", "maximum",
	}

	// DepthLevels are soil moisture sensor depths in inches.
	DepthLevels = []int{2, 4, 8, 20, 40}
)

// SoilMoisture is the only variable measured at several depths.
const SoilMoisture = "soil moisture"

// Range is an inclusive numeric interval, lesser value first.
type Range struct {
	Min float64
	Max float64
}

// Request holds every field of a point observations request. Zero values
// mean "not set".
type Request struct {
	DataSource         string `validate:"datasource"`
	Variable           string `validate:"variable"`
	TemporalResolution string `validate:"resolution"`
	Aggregation        string `validate:"aggregation"`
	DepthLevel         int

	DateStart string `validate:"omitempty,datetime=2006-01-02"`
	DateEnd   string `validate:"omitempty,datetime=2006-01-02"`

	LatitudeRange  *Range
	LongitudeRange *Range
	SiteIDs        []string `validate:"omitempty,dive,required"`
	SiteNetworks   []string `validate:"omitempty,dive,required"`
	State          string   `validate:"omitempty,len=2,alpha"`

	MinNumObs      int `validate:"min=1"`
	ReturnMetadata bool
	AllAttributes  bool
}

// Normalize fills defaults in place.
func (r *Request) Normalize() {
	if r.MinNumObs <= 0 {
		r.MinNumObs = 1
	}
	r.State = strings.ToUpper(strings.TrimSpace(r.State))
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	oneOf := func(allowed []string) validator.Func {
		return func(fl validator.FieldLevel) bool {
			return slices.Contains(allowed, fl.Field().String())
		}
	}
	// oneof cannot be used: some values contain commas and spaces.
	mustRegister(v, "datasource", oneOf(DataSources))
	mustRegister(v, "variable", oneOf(Variables))
	mustRegister(v, "resolution", oneOf(TemporalResolutions))
	mustRegister(v, "aggregation", oneOf(Aggregations))
	v.RegisterStructValidation(requestStructLevel, Request{})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %q validation: %v", tag, err))
	}
}

func requestStructLevel(sl validator.StructLevel) {
	r := sl.Current().Interface().(Request)

	if r.Variable == SoilMoisture && !slices.Contains(DepthLevels, r.DepthLevel) {
		sl.ReportError(r.DepthLevel, "depth_level", "DepthLevel", "depth", "")
	}
	if r.AllAttributes && !r.ReturnMetadata {
		sl.ReportError(r.AllAttributes, "all_attributes", "AllAttributes", "metadata", "")
	}
	if r.DateStart != "" && r.DateEnd != "" && r.DateStart > r.DateEnd {
		sl.ReportError(r.DateEnd, "date_end", "DateEnd", "order", "")
	}
	if rg := r.LatitudeRange; rg != nil && (rg.Min > rg.Max || rg.Min < -90 || rg.Max > 90) {
		sl.ReportError(r.LatitudeRange, "latitude_range", "LatitudeRange", "range", "")
	}
	if rg := r.LongitudeRange; rg != nil && (rg.Min > rg.Max || rg.Min < -180 || rg.Max > 180) {
		sl.ReportError(r.LongitudeRange, "longitude_range", "LongitudeRange", "range", "")
	}
}

// Validate checks r against the supported enumerations and the cross-field
// rules. Call Normalize first.
func Validate(r Request) error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe, r))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError, r Request) string {
	switch fe.Tag() {
	case "datasource":
		return fmt.Sprintf("unexpected data_source %q, supported values are %s", r.DataSource, quoteAll(DataSources))
	case "variable":
		return fmt.Sprintf("unexpected variable %q, supported values are %s", r.Variable, quoteAll(Variables))
	case "resolution":
		return fmt.Sprintf("unexpected temporal_resolution %q, supported values are %s", r.TemporalResolution, quoteAll(TemporalResolutions))
	case "aggregation":
		return fmt.Sprintf("unexpected aggregation %q, supported values are %s", r.Aggregation, quoteAll(Aggregations))
	case "depth":
		return fmt.Sprintf("variable %q requires depth_level in %v, got %d", SoilMoisture, DepthLevels, r.DepthLevel)
	case "metadata":
		return "all_attributes requires return_metadata"
	case "order":
		return fmt.Sprintf("date_start %s is after date_end %s", r.DateStart, r.DateEnd)
	case "range":
		return fmt.Sprintf("%s must be a valid (min, max) pair", fe.Field())
	case "datetime":
		return fmt.Sprintf("%s must use the YYYY-MM-DD format", fe.Field())
	}
	return fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag())
}

func quoteAll(vals []string) string {
	q := make([]string, len(vals))
	for i, v := range vals {
		q[i] = "'" + v + "'"
	}
	return strings.Join(q, ", ")
}
