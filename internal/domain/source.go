package domain

import "context"

// AnalysisSource supplies drinking-water analyses.
type AnalysisSource interface {
	// CommuneNetworks lists the raw network rows serving an INSEE commune.
	CommuneNetworks(ctx context.Context, communeCode string) ([]NetworkRecord, error)

	// NetworkAnalyses returns every measurement of the given parameter codes
	// for one distribution network, in any order.
	NetworkAnalyses(ctx context.Context, networkCode string, parameterCodes []string) ([]Measurement, error)
}

// Directory lists French administrative areas.
type Directory interface {
	Departements(ctx context.Context) ([]Departement, error)
	Communes(ctx context.Context, departementCode string) ([]Commune, error)
}
