package hubeau

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// Hub'Eau API response types.

type envelope struct {
	Count *int            `json:"count"`
	Next  *string         `json:"next"`
	Data  json.RawMessage `json:"data"`
}

func (e envelope) validate() error {
	if e.Count == nil {
		return errors.New("response has no count")
	}
	trimmed := bytes.TrimSpace(e.Data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return errors.New("response data is not an array")
	}
	return nil
}

func (e envelope) next() string {
	if e.Next == nil {
		return ""
	}
	return strings.TrimSpace(*e.Next)
}

type networkRow struct {
	Code code   `json:"code_reseau"`
	Name string `json:"nom_reseau"`
}

type analysisRow struct {
	ParameterCode code   `json:"code_parametre"`
	Value         number `json:"resultat_numerique"`
	SampledAt     string `json:"date_prelevement"`
}

// code accepts identifiers published either as JSON strings or numbers.
type code string

func (c *code) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = code(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*c = code(n.String())
	return nil
}

// number is a result value that may be null, a number, or a numeric string.
// Anything else reads as absent rather than failing the whole page.
type number struct {
	value float64
	valid bool
}

func (n *number) UnmarshalJSON(b []byte) error {
	*n = number{}
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	raw := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	*n = number{value: v, valid: true}
	return nil
}

func (n number) ptr() *float64 {
	if !n.valid {
		return nil
	}
	v := n.value
	return &v
}
