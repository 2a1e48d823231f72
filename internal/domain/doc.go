// Package domain models drinking-water chemistry for brewers.
//
// # Data Source
//
// Analyses come from the Hub'Eau "qualité de l'eau potable" API, which
// republishes the sanitary control results of French distribution networks
// (UDI). A commune is served by one or more networks; a network carries a
// time series of laboratory results, one row per parameter per sample.
//
// # Hub'Eau Conventions
//
// Parameters are identified by a numeric SANDRE code (code_parametre), e.g.
// 1374 for calcium. Codes may arrive as JSON strings or numbers; adapters
// normalize them to strings before they reach this package.
//
// Values (resultat_numerique) may be absent or non-numeric. Dates
// (date_prelevement) are ISO-8601 and occasionally empty.
//
// Units:
//
//	Ions: mg/L
//	PH:   unité pH
//	TAC:  °f (French degrees, 1 °f = 10 mg/L CaCO3)
//
// # Derived Alkalinity
//
// Few networks report bicarbonate directly, but nearly all report TAC. HCO3 is
// derived as TAC × 10 × 61 / 50 (mg/L CaCO3 to mg/L HCO3, i.e. ×12.2). When a
// network has any TAC data, the derived value replaces a measured HCO3 in the
// snapshot profile. See [DeriveBicarbonate] and [Snapshot].
//
// # Missing Data
//
// A snapshot never omits a catalog parameter: no data, or a latest sample
// without a finite value, reads as 0 mg/L. Trends drop such samples instead.
//
// # Salt Additions
//
// Each salt contributes fixed mass fractions of its ions, from molar masses of
// the hydrated forms brewers actually buy (e.g. CaSO4·2H2O is 23.3% Ca). The
// fractions of one salt sum to at most 1; the rest is water of hydration or
// ions the model does not track. Chalk's HCO3 share is an alkalinity
// equivalent rather than a mass and is exempt from that check. See [Registry].
package domain
