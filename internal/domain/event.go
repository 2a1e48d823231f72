package domain

import (
	"context"
	"time"
)

// Measurement is one laboratory result as published by the provider. The
// engine only reads it.
type Measurement struct {
	ParameterCode string   `json:"code_parametre"`
	Value         *float64 `json:"resultat_numerique"` // nil when absent or not numeric
	SampledAt     string   `json:"date_prelevement"`   // ISO-8601, may be empty or malformed
}

// Series holds the measurements of one parameter, most recent first.
type Series []Measurement

// NetworkRecord is one raw "commune served by network" row.
type NetworkRecord struct {
	Code string `json:"code_reseau"`
	Name string `json:"nom_reseau"`
}

// Network is a deduplicated distribution network.
type Network struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Departement is a French administrative département.
type Departement struct {
	Code string `json:"code"`
	Name string `json:"nom"`
}

// Commune is a French municipality.
type Commune struct {
	Code string `json:"code"`
	Name string `json:"nom"`
}

// Point is one plottable sample: X is the sample date, Y the value.
type Point struct {
	X time.Time `json:"x"`
	Y float64   `json:"y"`
}

// IonProfile maps catalog parameter names to concentrations.
type IonProfile map[string]float64

// Clone returns an independent copy of the profile with room for extra keys.
func (p IonProfile) Clone(extra int) IonProfile {
	out := make(IonProfile, len(p)+extra)
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Additions maps salt identifiers to masses in grams.
type Additions map[string]float64

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
