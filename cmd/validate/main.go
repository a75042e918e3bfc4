// Command validate performs end-to-end data integrity checks across the risk
// pipeline's inputs and output: the pipeline configuration, the per-source
// parcel CSVs it references, and the exported GeoJSON. It verifies schema
// presence, join-key coverage, numeric parseability, and score/category
// consistency.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -config config/pipeline.yaml \
//	  -geojson out/risk_scores.geojson
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ksyounes98/agri-risk-etl/internal/config"
	"github.com/ksyounes98/agri-risk-etl/internal/domain"
	"github.com/ksyounes98/agri-risk-etl/internal/ingest"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	configPath := flag.String("config", "", "path to the pipeline YAML configuration")
	geojsonPath := flag.String("geojson", "", "path to the exported GeoJSON (optional)")
	flag.Parse()

	if *configPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*configPath, *geojsonPath); code != 0 {
		os.Exit(code)
	}
}

func run(configPath, geojsonPath string) int {
	fmt.Println("=== Parcel Risk Data Integrity Validation ===")
	fmt.Println()

	cfgPhase, cfg := validateConfig(configPath)

	phases := []*phase{cfgPhase}
	var parcelIDs map[string]bool
	if cfg != nil {
		var srcPhase *phase
		srcPhase, parcelIDs = validateSources(cfg)
		phases = append(phases, srcPhase)
	}
	if geojsonPath != "" {
		phases = append(phases, validateExport(geojsonPath, parcelIDs))
	}

	// Report results.
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Configuration ──
// Loads the pipeline config and checks every referenced file exists.

func validateConfig(path string) (*phase, *config.PipelineConfig) {
	p := &phase{name: "Phase 1: Pipeline configuration"}

	cfg, err := config.LoadPipeline(path)
	if err != nil {
		p.errorf("load %s: %v", path, err)
		return p, nil
	}

	for _, src := range cfg.Sources {
		if _, err := os.Stat(src.Path); err != nil {
			p.errorf("source %q: file not accessible: %v", src.Name, err)
		}
	}
	if cfg.YieldHistory != nil {
		if _, err := os.Stat(cfg.YieldHistory.Path); err != nil {
			p.errorf("yield history: file not accessible: %v", err)
		}
	}

	// Every scored feature should be producible by some source or derived
	// from yield history, otherwise all parcels miss it.
	produced := map[string]bool{}
	for _, src := range cfg.Sources {
		for _, col := range src.Columns {
			produced[col.Field] = true
		}
	}
	if cfg.YieldHistory != nil {
		if cfg.YieldHistory.Backfill {
			produced[domain.FeatureYield] = true
		}
		if cfg.YieldHistory.DeriveTrend {
			produced[domain.FeatureYieldTrend] = true
		}
	}
	for feature := range cfg.Scoring.Features {
		if !produced[feature] {
			p.errorf("scored feature %q is not produced by any source", feature)
		}
	}

	return p, cfg
}

// ── Phase 2: Source CSVs ──
// Checks each source file parses, carries its mapped columns, and has usable
// join keys. Collects the union of parcel IDs for the export phase.

func validateSources(cfg *config.PipelineConfig) (*phase, map[string]bool) {
	p := &phase{name: "Phase 2: Source CSV integrity"}
	parcelIDs := map[string]bool{}

	for _, src := range cfg.Sources {
		rows, header, err := loadCSV(src.Path)
		if err != nil {
			p.errorf("source %q: %v", src.Name, err)
			continue
		}
		checkSource(p, src, rows, header, parcelIDs)
	}

	if cfg.YieldHistory != nil {
		checkYieldHistory(p, cfg.YieldHistory, parcelIDs)
	}

	fmt.Printf("  Parcels across all sources: %d\n", len(parcelIDs))
	return p, parcelIDs
}

func checkSource(p *phase, src ingest.SourceSpec, rows []map[string]string, header map[string]bool, parcelIDs map[string]bool) {
	if !header[src.KeyColumn] {
		p.errorf("source %q: missing key column %q", src.Name, src.KeyColumn)
		return
	}
	for col := range src.Columns {
		if !header[col] {
			p.errorf("source %q: missing mapped column %q", src.Name, col)
		}
	}
	for col := range src.Labels {
		if !header[col] {
			p.errorf("source %q: missing label column %q", src.Name, col)
		}
	}

	seen := map[string]int{}
	for i, row := range rows {
		line := i + 2
		key := row[src.KeyColumn]
		if key == "" {
			p.errorf("source %q line %d: empty join key", src.Name, line)
			continue
		}
		seen[key]++
		parcelIDs[key] = true

		for col := range src.Columns {
			v := row[col]
			if v == "" {
				continue // missing values are legal, cleaning handles them
			}
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				p.errorf("source %q line %d: column %q: not numeric: %q", src.Name, line, col, v)
			}
		}
	}
	for key, count := range seen {
		if count > 1 {
			p.errorf("source %q: parcel %q appears %d times", src.Name, key, count)
		}
	}
}

func checkYieldHistory(p *phase, spec *ingest.YieldHistorySpec, parcelIDs map[string]bool) {
	rows, header, err := loadCSV(spec.Path)
	if err != nil {
		p.errorf("yield history: %v", err)
		return
	}
	for _, col := range []string{spec.KeyColumn, spec.YearColumn, spec.YieldColumn} {
		if !header[col] {
			p.errorf("yield history: missing column %q", col)
			return
		}
	}
	for i, row := range rows {
		line := i + 2
		key := row[spec.KeyColumn]
		if key == "" {
			p.errorf("yield history line %d: empty join key", line)
			continue
		}
		parcelIDs[key] = true
		if _, err := strconv.Atoi(row[spec.YearColumn]); err != nil {
			p.errorf("yield history line %d: year not an integer: %q", line, row[spec.YearColumn])
		}
		if v := row[spec.YieldColumn]; v != "" {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				p.errorf("yield history line %d: yield not numeric: %q", line, v)
			}
		}
	}
}

// ── Phase 3: Exported GeoJSON ──
// Checks the export is a well-formed FeatureCollection whose scores are in
// bounds, whose categories match the score thresholds, and whose parcels
// exist in the sources.

type featureCollection struct {
	Type     string `json:"type"`
	Features []struct {
		Type     string `json:"type"`
		Geometry struct {
			Type        string    `json:"type"`
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			ParcelID string  `json:"parcel_id"`
			Score    float64 `json:"score"`
			Category string  `json:"category"`
		} `json:"properties"`
	} `json:"features"`
}

func validateExport(path string, parcelIDs map[string]bool) *phase {
	p := &phase{name: "Phase 3: Exported GeoJSON"}

	data, err := os.ReadFile(path)
	if err != nil {
		p.errorf("read %s: %v", path, err)
		return p
	}
	var fc featureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		p.errorf("parse %s: %v", path, err)
		return p
	}
	if fc.Type != "FeatureCollection" {
		p.errorf("type is %q, expected FeatureCollection", fc.Type)
	}

	seen := map[string]bool{}
	for i, f := range fc.Features {
		id := f.Properties.ParcelID
		if id == "" {
			p.errorf("feature %d: missing parcel_id", i)
			continue
		}
		if seen[id] {
			p.errorf("feature %d: duplicate parcel %q", i, id)
		}
		seen[id] = true

		if f.Type != "Feature" {
			p.errorf("parcel %s: feature type is %q", id, f.Type)
		}
		if f.Geometry.Type != "Point" {
			p.errorf("parcel %s: geometry type is %q, expected Point", id, f.Geometry.Type)
		}
		if len(f.Geometry.Coordinates) != 2 {
			p.errorf("parcel %s: expected 2 coordinates, got %d", id, len(f.Geometry.Coordinates))
		} else {
			lon, lat := f.Geometry.Coordinates[0], f.Geometry.Coordinates[1]
			if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
				p.errorf("parcel %s: coordinates out of range: lon=%g lat=%g", id, lon, lat)
			}
		}

		if f.Properties.Score < 0 || f.Properties.Score > 1 {
			p.errorf("parcel %s: score %g outside [0,1]", id, f.Properties.Score)
		}
		if want := domain.Categorize(f.Properties.Score); f.Properties.Category != want {
			p.errorf("parcel %s: category %q does not match score %g (expected %q)",
				id, f.Properties.Category, f.Properties.Score, want)
		}
		if parcelIDs != nil && !parcelIDs[id] {
			p.errorf("parcel %s: not present in any source CSV", id)
		}
	}

	fmt.Printf("  Exported features: %d\n", len(fc.Features))
	return p
}

// ── Helpers ──

func loadCSV(path string) ([]map[string]string, map[string]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(all) < 2 {
		return nil, nil, fmt.Errorf("no data rows in %s", path)
	}

	header := all[0]
	headerSet := make(map[string]bool, len(header))
	for _, h := range header {
		headerSet[strings.TrimSpace(h)] = true
	}

	rows := make([]map[string]string, 0, len(all)-1)
	for _, row := range all[1:] {
		fields := make(map[string]string, len(header))
		for j, h := range header {
			if j < len(row) {
				fields[strings.TrimSpace(h)] = strings.TrimSpace(row[j])
			}
		}
		rows = append(rows, fields)
	}
	return rows, headerSet, nil
}
