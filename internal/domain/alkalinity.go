package domain

import "math"

// DeriveBicarbonate converts a titration alkalinity (TAC, French degrees) into
// a bicarbonate concentration in mg/L. One °f is 10 mg/L as CaCO3, and CaCO3
// converts to HCO3 by 61/50. Returns nil when tac is absent or not finite.
func DeriveBicarbonate(tac *float64) *float64 {
	if tac == nil || math.IsNaN(*tac) || math.IsInf(*tac, 0) {
		return nil
	}
	caco3 := *tac * 10
	hco3 := caco3 * 61 / 50
	return &hco3
}
