// mkclaims generates synthetic claims files for local development and
// testing. Roughly 15% of rows carry a deliberate anomaly (inflated
// amount, out-of-range age, unusual specialty, or a same-day duplicate)
// so the risk scorer has something to find.
// Usage: go run ./cmd/mkclaims --out data/claims.csv --rows 1000 --seed 42
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
)

type codeRange struct {
	code string
	min  float64
	max  float64
}

var serviceCodes = []codeRange{
	{"99213", 150, 300},
	{"99214", 200, 400},
	{"97110", 50, 150},
	{"99215", 300, 600},
	{"99212", 100, 200},
	{"99201", 80, 180},
	{"99202", 120, 250},
	{"99203", 150, 300},
	{"99204", 200, 450},
	{"99205", 250, 500},
}

var specialties = []string{
	"Internal Medicine", "Family Medicine", "Cardiology",
	"Dermatology", "Orthopedics", "Neurology", "Pediatrics",
	"Psychiatry", "Ophthalmology", "Gastroenterology",
}

type claim struct {
	ClaimID           string  `json:"claim_id" parquet:"claim_id"`
	PatientID         string  `json:"patient_id" parquet:"patient_id"`
	PatientAge        int     `json:"patient_age" parquet:"patient_age"`
	PatientGender     string  `json:"patient_gender" parquet:"patient_gender"`
	ServiceCode       string  `json:"service_code" parquet:"service_code"`
	BilledAmount      float64 `json:"billed_amount" parquet:"billed_amount"`
	AllowedAmount     float64 `json:"allowed_amount" parquet:"allowed_amount"`
	ProviderID        string  `json:"provider_id" parquet:"provider_id"`
	ProviderSpecialty string  `json:"provider_specialty" parquet:"provider_specialty"`
	ClaimDate         string  `json:"claim_date" parquet:"claim_date"`
}

func main() {
	out := flag.String("out", "data/synthetic_claims.csv", "output path (.csv, .json or .parquet)")
	rows := flag.Int("rows", 1000, "number of claims to generate")
	seed := flag.Int64("seed", 42, "random seed")
	anomalyRate := flag.Float64("anomaly-rate", 0.15, "fraction of rows given a deliberate anomaly")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))
	claims := generate(rng, *rows, *anomalyRate)

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create output dir: %v\n", err)
		os.Exit(1)
	}

	var err error
	switch strings.ToLower(filepath.Ext(*out)) {
	case ".csv":
		err = writeCSV(*out, claims)
	case ".json":
		err = writeJSON(*out, claims)
	case ".parquet":
		err = writeParquet(*out, claims)
	default:
		err = fmt.Errorf("unsupported output extension %q (want .csv, .json or .parquet)", filepath.Ext(*out))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		os.Exit(1)
	}

	var billed float64
	for _, c := range claims {
		billed += c.BilledAmount
	}
	fmt.Printf("Wrote %d claims to %s (total billed $%.2f)\n", len(claims), *out, billed)
}

func generate(rng *rand.Rand, n int, anomalyRate float64) []claim {
	claims := make([]claim, 0, n)
	now := time.Now()

	for i := 0; i < n; i++ {
		cr := serviceCodes[rng.Intn(len(serviceCodes))]
		c := claim{
			ClaimID:           fmt.Sprintf("CLM_%06d", i+1),
			PatientID:         fmt.Sprintf("PAT_%06d", 100000+rng.Intn(900000)),
			PatientAge:        18 + rng.Intn(63),
			PatientGender:     []string{"M", "F"}[rng.Intn(2)],
			ServiceCode:       cr.code,
			ProviderID:        fmt.Sprintf("PROV_%04d", 1000+rng.Intn(9000)),
			ProviderSpecialty: specialties[rng.Intn(len(specialties))],
			ClaimDate:         now.AddDate(0, 0, -(1 + rng.Intn(180))).Format("2006-01-02"),
		}
		c.BilledAmount = cr.min + rng.Float64()*(cr.max-cr.min)

		if rng.Float64() < anomalyRate {
			switch rng.Intn(4) {
			case 0: // inflated amount
				c.BilledAmount *= 3 + rng.Float64()*5
			case 1: // underage patient on an adult code
				c.PatientAge = 5 + rng.Intn(13)
			case 2: // unusual specialty for office visits
				if c.ServiceCode == "99213" || c.ServiceCode == "99214" {
					c.ProviderSpecialty = "Dermatology"
				}
			case 3: // same-day duplicate of the previous claim
				if len(claims) > 0 {
					prev := claims[len(claims)-1]
					c.PatientID = prev.PatientID
					c.ServiceCode = prev.ServiceCode
					c.ClaimDate = prev.ClaimDate
				}
			}
		}

		c.BilledAmount = round2(c.BilledAmount)
		c.AllowedAmount = round2(c.BilledAmount * (0.80 + rng.Float64()*0.15))
		claims = append(claims, c)
	}
	return claims
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

func writeCSV(path string, claims []claim) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"claim_id", "patient_id", "patient_age", "patient_gender",
		"service_code", "billed_amount", "allowed_amount",
		"provider_id", "provider_specialty", "claim_date",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, c := range claims {
		rec := []string{
			c.ClaimID, c.PatientID, strconv.Itoa(c.PatientAge), c.PatientGender,
			c.ServiceCode,
			strconv.FormatFloat(c.BilledAmount, 'f', 2, 64),
			strconv.FormatFloat(c.AllowedAmount, 'f', 2, 64),
			c.ProviderID, c.ProviderSpecialty, c.ClaimDate,
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeJSON(path string, claims []claim) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(claims)
}

func writeParquet(path string, claims []claim) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	pw := parquet.NewGenericWriter[claim](f, parquet.Compression(&parquet.Snappy))
	for off := 0; off < len(claims); off += 1024 {
		end := off + 1024
		if end > len(claims) {
			end = len(claims)
		}
		if _, err := pw.Write(claims[off:end]); err != nil {
			pw.Close()
			return err
		}
	}
	return pw.Close()
}
