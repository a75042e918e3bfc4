package ingest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/ksyounes98/agri-risk-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileIngestor_Ingest(t *testing.T) {
	dir := t.TempDir()

	monitoring := monitoringSpec()
	monitoring.Path = writeFile(t, dir, "monitoring.csv",
		"parcelle_id,rendement,ndvi,latitude,longitude\n"+
			"P001,,0.72,46.2,5.2\n"+
			"P002,5.1,0.61,46.3,5.1\n")

	soils := soilSpec()
	soils.Path = writeFile(t, dir, "sols.csv",
		"parcelle_id,ph,matiere_organique,type_sol\n"+
			"P001,6.5,3.0,limoneux\n"+
			"P002,6.8,3.2,argileux\n")

	yields := yieldSpec()
	yields.Path = writeFile(t, dir, "rendements.csv",
		"parcelle_id,annee,rendement\n"+
			"P001,2022,6.2\nP001,2023,6.4\nP002,2023,5.4\n")
	yields.Backfill = true
	yields.DeriveTrend = true

	ing := NewFileIngestor([]SourceSpec{monitoring, soils}, &yields, slog.Default())
	dataset, report, err := ing.Ingest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Parcels)
	assert.Equal(t, 3, report.YieldRecords)
	assert.Equal(t, 1, report.Backfilled, "P001 yield backfilled from history")
	assert.Equal(t, 1, report.TrendsDerived, "P002 has a single observation")
	assert.Equal(t, map[string]int{"monitoring": 2, "sols": 2}, report.RowsPerSource)
	assert.Empty(t, report.Errors)

	require.Len(t, dataset.Parcels, 2)
	y, ok := dataset.Parcels[0].Feature(domain.FeatureYield)
	require.True(t, ok)
	assert.Equal(t, 6.4, y, "backfill uses the most recent year")
}

func TestFileIngestor_MissingFile(t *testing.T) {
	spec := monitoringSpec()
	spec.Path = filepath.Join(t.TempDir(), "absent.csv")

	ing := NewFileIngestor([]SourceSpec{spec}, nil, slog.Default())
	_, _, err := ing.Ingest(context.Background())
	assert.Error(t, err)
}

func TestFileIngestor_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ing := NewFileIngestor([]SourceSpec{monitoringSpec()}, nil, slog.Default())
	_, _, err := ing.Ingest(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
