package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DerivedBicarbonateLabel names the TAC-derived HCO3 card and trend.
const DerivedBicarbonateLabel = "HCO3 (calculé)"

// LatestCard is the most recent sample of one parameter.
type LatestCard struct {
	Name      string   `json:"name"`
	Value     *float64 `json:"value"`
	Unit      string   `json:"unit"`
	SampledAt string   `json:"sampled_at,omitempty"`
	Derived   bool     `json:"derived,omitempty"` // computed from TAC rather than measured
}

// Trend is a plottable history of one parameter.
type Trend struct {
	Name    string  `json:"name"`
	Unit    string  `json:"unit"`
	Color   Color   `json:"color"`
	Derived bool    `json:"derived,omitempty"`
	Points  []Point `json:"points"`
}

// WaterReport is everything the UI needs for one distribution network.
type WaterReport struct {
	NetworkCode      string       `json:"network_code"`
	MeasurementCount int          `json:"measurement_count"`
	Profile          IonProfile   `json:"profile"`
	Rows             []ProfileRow `json:"rows"`
	Latest           []LatestCard `json:"latest"`
	Trends           []Trend      `json:"trends"`
	GeneratedAt      time.Time    `json:"generated_at"`
}

// BuildReport normalizes the raw measurements of one network into a report:
// a snapshot profile, calculator rows, one latest card and one trend per
// parameter with data, and the derived HCO3 card and trend when TAC is known.
func BuildReport(networkCode string, measurements []Measurement, reg *Registry) WaterReport {
	groups := GroupByParameter(measurements, reg.Catalog)
	profile := Snapshot(groups, reg.Catalog)

	report := WaterReport{
		NetworkCode:      networkCode,
		MeasurementCount: len(measurements),
		Profile:          profile,
		Rows:             EvaluateProfile(profile, reg.Catalog),
		Latest:           make([]LatestCard, 0, reg.Catalog.Len()+1),
		Trends:           make([]Trend, 0, reg.Catalog.Len()+1),
		GeneratedAt:      clock.Now().UTC(),
	}

	for _, p := range reg.Catalog.All() {
		series := groups[p.Name]
		if len(series) == 0 {
			continue
		}
		report.Latest = append(report.Latest, LatestCard{
			Name:      p.Name,
			Value:     LatestValue(series),
			Unit:      p.Unit,
			SampledAt: series[0].SampledAt,
		})
		report.Trends = append(report.Trends, Trend{
			Name:   p.Name,
			Unit:   p.Unit,
			Color:  reg.ColorFor(p.Name),
			Points: TrendPoints(series),
		})
	}

	tac := groups[ParamTAC]
	if len(tac) == 0 {
		return report
	}
	hco3Param, _ := reg.Catalog.Lookup(ParamBicarbonate)
	if hco3 := DeriveBicarbonate(LatestValue(tac)); hco3 != nil {
		report.Latest = append(report.Latest, LatestCard{
			Name:      DerivedBicarbonateLabel,
			Value:     hco3,
			Unit:      hco3Param.Unit,
			SampledAt: tac[0].SampledAt,
			Derived:   true,
		})
	}
	report.Trends = append(report.Trends, Trend{
		Name:    DerivedBicarbonateLabel,
		Unit:    hco3Param.Unit,
		Color:   reg.ColorFor(ParamBicarbonate),
		Derived: true,
		Points:  BicarbonateTrend(tac),
	})
	return report
}

// ReportRequest asks for the report of one network.
type ReportRequest struct {
	NetworkCode string `json:"network_code"`
}

// ParseReportRequest decodes a report request from a source message. The
// message key is used when the payload carries no code.
func ParseReportRequest(raw RawEvent) (ReportRequest, error) {
	var req ReportRequest
	if len(raw.Value) > 0 {
		if err := json.Unmarshal(raw.Value, &req); err != nil {
			return ReportRequest{}, fmt.Errorf("%w: parse report request: %w", ErrDataShape, err)
		}
	}
	req.NetworkCode = strings.TrimSpace(req.NetworkCode)
	if req.NetworkCode == "" {
		req.NetworkCode = strings.TrimSpace(string(raw.Key))
	}
	if req.NetworkCode == "" {
		return ReportRequest{}, fmt.Errorf("%w: report request has no network code", ErrDataShape)
	}
	return req, nil
}

// SerializeReport marshals a report for the sink topic, keyed by network code.
func SerializeReport(r WaterReport) (OutputEvent, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("%w: serialize water report: %w", ErrDataShape, err)
	}
	return OutputEvent{
		Key:   []byte(r.NetworkCode),
		Value: data,
		Headers: map[string]string{
			"network_code": r.NetworkCode,
			"generated_at": r.GeneratedAt.Format(time.RFC3339),
		},
	}, nil
}
