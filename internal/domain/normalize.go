package domain

import (
	"math"
	"slices"
	"strings"
	"time"
)

// sampleDateLayouts are tried in order when reading a provider sample date.
var sampleDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseSampleDate reads a provider sample date. The boolean is false for
// empty or unrecognised input.
func ParseSampleDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range sampleDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

type datedMeasurement struct {
	at time.Time // zero when the date did not parse, which sorts as earliest
	m  Measurement
}

// GroupByParameter splits measurements into one series per catalog parameter,
// matched on provider code. Each series is stably sorted by sample date, most
// recent first; undated samples go last. Parameters without any measurement
// get an empty, non-nil series.
func GroupByParameter(measurements []Measurement, c *Catalog) map[string]Series {
	params := c.All()
	byCode := make(map[string][]int, len(params))
	for i, p := range params {
		byCode[p.Code] = append(byCode[p.Code], i)
	}

	buckets := make([][]datedMeasurement, len(params))
	for _, m := range measurements {
		idx, ok := byCode[m.ParameterCode]
		if !ok {
			continue
		}
		at, _ := ParseSampleDate(m.SampledAt)
		for _, i := range idx {
			buckets[i] = append(buckets[i], datedMeasurement{at: at, m: m})
		}
	}

	groups := make(map[string]Series, len(params))
	for i, p := range params {
		bucket := buckets[i]
		slices.SortStableFunc(bucket, func(a, b datedMeasurement) int {
			return b.at.Compare(a.at)
		})
		series := make(Series, len(bucket))
		for j, dm := range bucket {
			series[j] = dm.m
		}
		groups[p.Name] = series
	}
	return groups
}

// LatestValue returns the value of the most recent measurement, or nil when
// the series is empty or its head has no value.
func LatestValue(s Series) *float64 {
	if len(s) == 0 || s[0].Value == nil {
		return nil
	}
	v := *s[0].Value
	return &v
}

// Snapshot reduces grouped series to one concentration per catalog parameter.
//
// Missing data is zero, never absent: a parameter whose series is empty, or
// whose latest measurement has no finite value, is reported as 0 so the
// simulator always starts from a complete profile.
//
// Derived alkalinity takes precedence: when the TAC series is non-empty and its
// latest value converts, HCO3 is the TAC-derived bicarbonate and any raw HCO3
// value is discarded.
func Snapshot(groups map[string]Series, c *Catalog) IonProfile {
	profile := make(IonProfile, c.Len())
	for _, p := range c.All() {
		profile[p.Name] = finiteOrZero(LatestValue(groups[p.Name]))
	}

	if tac := groups[ParamTAC]; len(tac) > 0 {
		if hco3 := DeriveBicarbonate(LatestValue(tac)); hco3 != nil {
			profile[ParamBicarbonate] = *hco3
		}
	}
	return profile
}

// TrendPoints returns the series as plottable points in ascending date order.
// Samples without a value or a readable date cannot be placed on a time axis
// and are dropped.
func TrendPoints(s Series) []Point {
	return trend(s, func(v *float64) *float64 { return v })
}

// BicarbonateTrend converts a TAC series into a derived HCO3 trend.
func BicarbonateTrend(tac Series) []Point {
	return trend(tac, DeriveBicarbonate)
}

func trend(s Series, convert func(*float64) *float64) []Point {
	points := make([]Point, 0, len(s))
	for _, m := range s {
		v := convert(m.Value)
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
			continue
		}
		at, ok := ParseSampleDate(m.SampledAt)
		if !ok {
			continue
		}
		points = append(points, Point{X: at, Y: *v})
	}
	slices.SortStableFunc(points, func(a, b Point) int {
		return a.X.Compare(b.X)
	})
	return points
}

func finiteOrZero(v *float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0
	}
	return *v
}
