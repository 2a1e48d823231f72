package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/brew-water-service/internal/domain"
)

// ReportBuilder produces the water report of a network.
type ReportBuilder interface {
	Report(ctx context.Context, networkCode string) (domain.WaterReport, error)
}

// ReportTransformer implements Transformer on top of a ReportBuilder.
type ReportTransformer struct {
	builder ReportBuilder
	logger  *slog.Logger
}

func NewTransformer(builder ReportBuilder, logger *slog.Logger) *ReportTransformer {
	return &ReportTransformer{builder: builder, logger: logger}
}

// Transform parses the request, builds the report and serializes it.
func (t *ReportTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	req, err := domain.ParseReportRequest(raw)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	r, err := t.builder.Report(ctx, req.NetworkCode)
	if err != nil {
		return domain.OutputEvent{}, err
	}
	t.logger.Debug("report ready", "network_code", req.NetworkCode, "measurements", r.MeasurementCount)

	return domain.SerializeReport(r)
}
