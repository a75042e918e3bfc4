package pipeline

import (
	"context"

	"github.com/ksyounes98/agri-risk-etl/internal/domain"
)

// MultiExporter fans the scored set out to several exporters in order,
// stopping at the first failure so a run never half-succeeds silently.
type MultiExporter []Exporter

// Export sends the scores to every wrapped exporter.
func (m MultiExporter) Export(ctx context.Context, scores []domain.RiskScore) error {
	for _, e := range m {
		if err := e.Export(ctx, scores); err != nil {
			return err
		}
	}
	return nil
}
