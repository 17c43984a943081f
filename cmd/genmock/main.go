// Command genmock generates local fixtures for running the pipeline without
// the real Maji Ndogo sources: a SQLite survey database and the two CSV
// feeds. The survey data reproduces the upstream defects on purpose — the
// crop/yield column labels are swapped, some crop names are misspelled, and
// some elevations carry a negative sign — so the cleaning steps have
// something to clean.
//
// Usage:
//
//	go run ./cmd/genmock -db farm-survey.db -out-dir fixtures -fields 200
package main

import (
	"database/sql"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite"
)

var crops = []string{"cassava", "wheat", "tea", "maize", "rice", "coffee"}

// misspellings the field processor is expected to canonicalize
var typos = map[string]string{"cassava": "cassaval", "wheat": "wheatn", "tea": "teaa"}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dbPath := flag.String("db", "farm-survey.db", "output path for the survey SQLite database")
	outDir := flag.String("out-dir", ".", "output directory for the CSV fixtures")
	fields := flag.Int("fields", 200, "number of survey fields to generate")
	stations := flag.Int("stations", 5, "number of weather stations")
	messages := flag.Int("messages", 500, "number of raw station messages")
	seed := flag.Int64("seed", 42, "random seed for deterministic fixtures")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))

	if err := writeDatabase(*dbPath, *fields, rng); err != nil {
		return err
	}
	if err := writeMappingCSV(filepath.Join(*outDir, "Weather_data_field_mapping.csv"), *fields, *stations, rng); err != nil {
		return err
	}
	if err := writeWeatherCSV(filepath.Join(*outDir, "Weather_station_data.csv"), *stations, *messages, rng); err != nil {
		return err
	}

	log.Printf("wrote %s and CSV fixtures under %s", *dbPath, *outDir)
	return nil
}

func writeDatabase(path string, fields int, rng *rand.Rand) error {
	os.Remove(path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer db.Close()

	schema := []string{
		`CREATE TABLE geographic_features (
			Field_ID INTEGER PRIMARY KEY,
			Elevation REAL, Latitude REAL, Longitude REAL,
			Location TEXT, Slope REAL)`,
		`CREATE TABLE weather_features (
			Field_ID INTEGER PRIMARY KEY,
			Rainfall REAL, Min_temperature_C REAL, Max_temperature_C REAL, Ave_temps REAL)`,
		`CREATE TABLE soil_and_crop_features (
			Field_ID INTEGER PRIMARY KEY,
			Soil_fertility REAL, Soil_type TEXT, pH REAL)`,
		`CREATE TABLE farm_management_features (
			Field_ID INTEGER PRIMARY KEY,
			Pollution_level REAL, Plot_size REAL,
			Annual_yield TEXT, Crop_type REAL, Standard_yield REAL)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	locations := []string{"Akatsi", "Sokoto", "Kilimani", "Hawassa", "Amina"}
	soils := []string{"Sandy", "Loamy", "Silt", "Volcanic", "Clay"}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for id := 1; id <= fields; id++ {
		elevation := 200 + rng.Float64()*1400
		if rng.Float64() < 0.1 {
			elevation = -elevation // sign corruption the pipeline must undo
		}
		if _, err := tx.Exec(
			`INSERT INTO geographic_features VALUES (?, ?, ?, ?, ?, ?)`,
			id, elevation, -2+rng.Float64()*4, 34+rng.Float64()*6,
			locations[rng.Intn(len(locations))], rng.Float64()*20,
		); err != nil {
			return err
		}

		minT := 8 + rng.Float64()*8
		maxT := minT + 8 + rng.Float64()*10
		if _, err := tx.Exec(
			`INSERT INTO weather_features VALUES (?, ?, ?, ?, ?)`,
			id, 400+rng.Float64()*1200, minT, maxT, (minT+maxT)/2,
		); err != nil {
			return err
		}

		if _, err := tx.Exec(
			`INSERT INTO soil_and_crop_features VALUES (?, ?, ?, ?)`,
			id, rng.Float64(), soils[rng.Intn(len(soils))], 4.5+rng.Float64()*3,
		); err != nil {
			return err
		}

		crop := crops[rng.Intn(len(crops))]
		if typo, ok := typos[crop]; ok && rng.Float64() < 0.3 {
			crop = typo
		}
		// Annual_yield and Crop_type are deliberately stored under each
		// other's label, matching the upstream defect.
		if _, err := tx.Exec(
			`INSERT INTO farm_management_features VALUES (?, ?, ?, ?, ?, ?)`,
			id, rng.Float64()*30, 0.5+rng.Float64()*4.5,
			crop, 0.5+rng.Float64()*2.5, 0.4+rng.Float64()*2,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func writeMappingCSV(path string, fields, stations int, rng *rand.Rand) error {
	records := [][]string{{"Field_ID", "Weather_station"}}
	for id := 1; id <= fields; id++ {
		if rng.Float64() < 0.05 {
			continue // some fields have no station mapping
		}
		records = append(records, []string{
			strconv.Itoa(id), strconv.Itoa(rng.Intn(stations)),
		})
	}
	return writeCSV(path, records)
}

func writeWeatherCSV(path string, stations, messages int, rng *rand.Rand) error {
	records := [][]string{{"Weather_station_ID", "Message"}}
	for i := 0; i < messages; i++ {
		station := strconv.Itoa(rng.Intn(stations))
		var message string
		switch rng.Intn(4) {
		case 0:
			message = fmt.Sprintf("Temperature of %.1f C recorded at noon", 12+rng.Float64()*20)
		case 1:
			message = fmt.Sprintf("Rainfall gauge reports %.1f mm over 24h", rng.Float64()*90)
		case 2:
			message = fmt.Sprintf("Pollution at %.2f ppm near the river", rng.Float64()*40)
		default:
			message = "Sensor maintenance visit, no reading taken"
		}
		records = append(records, []string{station, message})
	}
	return writeCSV(path, records)
}

func writeCSV(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	w.Flush()
	return w.Error()
}
