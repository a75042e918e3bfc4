// Command genmock generates mock per-parcel CSV fixtures for the risk
// pipeline: agronomic monitoring, soil analyses, and multi-year yield
// history. Output is deterministic for a given seed so test assertions
// stay stable.
//
// Usage:
//
//	go run ./cmd/genmock -out-dir data/mock -parcels 50 -seed 42
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
)

type locality struct {
	commune string
	region  string
	lat     float64
	lon     float64
}

// Agricultural communes used for parcel placement. Coordinates are jittered
// per parcel so points do not stack on the map.
var localities = []locality{
	{"Chartres", "Centre-Val de Loire", 48.4439, 1.4890},
	{"Amiens", "Hauts-de-France", 49.8941, 2.2958},
	{"Auch", "Occitanie", 43.6465, 0.5855},
	{"Bourges", "Centre-Val de Loire", 47.0810, 2.3988},
	{"Troyes", "Grand Est", 48.2973, 4.0744},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out-dir", "", "directory to write CSV fixtures into")
	parcels := flag.Int("parcels", 50, "number of parcels to generate")
	years := flag.Int("years", 5, "years of yield history per parcel")
	seed := flag.Int64("seed", 42, "random seed for reproducible output")
	flag.Parse()

	if *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out-dir")
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	rng := rand.New(rand.NewSource(*seed))

	monitoring := [][]string{{"parcelle_id", "rendement", "commune", "region", "latitude", "longitude"}}
	sols := [][]string{{"parcelle_id", "ph", "matiere_organique"}}
	historique := [][]string{{"parcelle_id", "annee", "rendement"}}

	var missingPH, missingYield, outliers int

	for i := 1; i <= *parcels; i++ {
		id := fmt.Sprintf("P%03d", i)
		loc := localities[rng.Intn(len(localities))]
		lat := loc.lat + rng.Float64()*0.2 - 0.1
		lon := loc.lon + rng.Float64()*0.2 - 0.1

		baseYield := 4.0 + rng.Float64()*6.0 // t/ha
		yield := formatFloat(baseYield)
		// A few parcels report no current yield to exercise imputation.
		if rng.Float64() < 0.05 {
			yield = ""
			missingYield++
		}
		monitoring = append(monitoring, []string{
			id, yield, loc.commune, loc.region,
			strconv.FormatFloat(lat, 'f', 4, 64),
			strconv.FormatFloat(lon, 'f', 4, 64),
		})

		// Every parcel has a monitoring row but a handful lack soil analyses,
		// exercising the outer join.
		if rng.Float64() < 0.06 {
			continue
		}
		ph := formatFloat(5.5 + rng.Float64()*3.0)
		if rng.Float64() < 0.08 {
			ph = ""
			missingPH++
		} else if rng.Float64() < 0.02 {
			// Implausible lab reading, should be dropped as an outlier.
			ph = formatFloat(15.0 + rng.Float64()*4.0)
			outliers++
		}
		om := formatFloat(1.0 + rng.Float64()*5.0) // percent, rescaled at ingest
		sols = append(sols, []string{id, ph, om})
	}

	// Yield history with a mild per-parcel trend plus noise, for trend
	// derivation and backfill.
	for i := 1; i <= *parcels; i++ {
		id := fmt.Sprintf("P%03d", i)
		base := 4.0 + rng.Float64()*6.0
		slope := rng.Float64()*0.4 - 0.2
		for y := 0; y < *years; y++ {
			year := 2026 - *years + y
			v := base + slope*float64(y) + rng.NormFloat64()*0.3
			if v < 0 {
				v = 0
			}
			historique = append(historique, []string{id, strconv.Itoa(year), formatFloat(v)})
		}
	}

	files := map[string][][]string{
		"monitoring.csv": monitoring,
		"sols.csv":       sols,
		"historique.csv": historique,
	}
	for name, rows := range files {
		path := filepath.Join(*outDir, name)
		if err := writeCSV(path, rows); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		log.Printf("wrote %s: %d data rows", path, len(rows)-1)
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Parcels: %d\n", *parcels)
	fmt.Printf("Soil rows: %d (missing ph: %d, ph outliers: %d)\n", len(sols)-1, missingPH, outliers)
	fmt.Printf("Missing current yield: %d\n", missingYield)
	fmt.Printf("Yield history rows: %d\n", len(historique)-1)
	return nil
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
