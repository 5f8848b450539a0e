// mkfixture writes synthetic clinical notes for batch testing. Output is
// deterministic for a given seed.
// Usage: go run ./cmd/mkfixture --out testdata/notes --count 25 --seed 7
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/gyeh/claimforge/internal/document"
	"github.com/gyeh/claimforge/internal/extract"
	"github.com/gyeh/claimforge/internal/model"
)

type person struct {
	first, middle, last, sex string
}

type condition struct {
	code, desc, complaint string
}

type service struct {
	code, desc string
	charge     float64
}

var (
	people = []person{
		{"John", "Michael", "Doe", "Male"},
		{"Maria", "Elena", "Garcia", "Female"},
		{"Wei", "", "Chen", "Male"},
		{"Aisha", "N", "Okafor", "Female"},
		{"Robert", "James", "Miller", "Male"},
		{"Priya", "", "Raman", "Female"},
	}
	cities = []struct{ city, state, zip string }{
		{"Springfield", "IL", "62701"},
		{"Madison", "WI", "53703"},
		{"Columbus", "OH", "43215"},
		{"Austin", "TX", "78701"},
	}
	payers = []string{"Blue Cross Blue Shield", "Aetna", "UnitedHealthcare", "Cigna"}
	conds  = []condition{
		{"J20.9", "Acute bronchitis, unspecified", "persistent cough and fever"},
		{"I10", "Essential (primary) hypertension", "elevated blood pressure readings"},
		{"E11.9", "Type 2 diabetes mellitus without complications", "follow-up of blood sugar control"},
		{"M54.50", "Low back pain, unspecified", "lower back pain after lifting"},
		{"J02.9", "Acute pharyngitis, unspecified", "sore throat and difficulty swallowing"},
		{"R05.9", "Cough, unspecified", "dry cough for two weeks"},
	}
	services = []service{
		{"99213", "Office visit, established patient, moderate complexity", 150},
		{"99214", "Office visit, established patient, high complexity", 210},
		{"94010", "Spirometry", 85},
		{"87880", "Rapid strep test", 35},
		{"83036", "Hemoglobin A1c", 45},
		{"J1100", "Dexamethasone sodium phosphate injection", 25},
	}
	relations = []string{"Self", "Self", "Self", "Spouse", "Child"}
)

func main() {
	out := flag.String("out", "testdata/notes", "output directory")
	count := flag.Int("count", 20, "number of notes to write")
	seed := flag.Uint64("seed", 1, "random seed")
	sparse := flag.Int("sparse-every", 7, "every Nth note omits insurance and provider sections (0 disables)")
	checkOnly := flag.Bool("check", false, "only extract the notes already in --out and print stats")
	flag.Parse()

	if *checkOnly {
		if err := check(*out); err != nil {
			fmt.Fprintf(os.Stderr, "check: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create output dir: %v\n", err)
		os.Exit(1)
	}

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	for i := 1; i <= *count; i++ {
		isSparse := *sparse > 0 && i%*sparse == 0
		note := generate(rng, i, isSparse)
		path := filepath.Join(*out, fmt.Sprintf("note-%03d.txt", i))
		if err := os.WriteFile(path, []byte(note), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write %s: %v\n", path, err)
			os.Exit(1)
		}
	}
	fmt.Printf("Wrote %d notes to %s\n", *count, *out)
}

func pick[T any](rng *rand.Rand, s []T) T {
	return s[rng.IntN(len(s))]
}

func generate(rng *rand.Rand, n int, sparse bool) string {
	p := pick(rng, people)
	loc := pick(rng, cities)
	year := 1940 + rng.IntN(70)
	month, day := 1+rng.IntN(12), 1+rng.IntN(28)
	svcMonth, svcDay := 1+rng.IntN(12), 1+rng.IntN(28)

	var b strings.Builder
	b.WriteString("MEDICAL RECORD - SYNTHETIC DATA FOR TESTING ONLY\n\n")
	b.WriteString("Patient Information:\n")
	name := p.first + " " + p.last
	if p.middle != "" {
		name = p.first + " " + p.middle + " " + p.last
	}
	fmt.Fprintf(&b, "Patient Name: %s\n", name)
	fmt.Fprintf(&b, "Date of Birth: %02d/%02d/%d\n", month, day, year)
	fmt.Fprintf(&b, "Sex: %s\n", p.sex)
	fmt.Fprintf(&b, "Address: %d Main Street\n", 100+rng.IntN(900))
	fmt.Fprintf(&b, "City: %s\nState: %s\nZip Code: %s\n", loc.city, loc.state, loc.zip)
	fmt.Fprintf(&b, "Phone: (555) %03d-%04d\n\n", rng.IntN(1000), rng.IntN(10000))

	if !sparse {
		b.WriteString("Insurance Information:\n")
		fmt.Fprintf(&b, "Insurance Company: %s\n", pick(rng, payers))
		fmt.Fprintf(&b, "Policy Number: %s%09d\n", string(rune('A'+rng.IntN(26)))+"XY", rng.IntN(1_000_000_000))
		fmt.Fprintf(&b, "Group Number: GRP%06d\n", rng.IntN(1_000_000))
		fmt.Fprintf(&b, "Subscriber: %s\n\n", pick(rng, relations))

		b.WriteString("Provider Information:\n")
		fmt.Fprintf(&b, "Provider Name: Dr. %s\n", pick(rng, []string{"Jane Smith", "Omar Haddad", "Lucy Park"}))
		fmt.Fprintf(&b, "Provider NPI: %010d\n", 1_000_000_000+rng.IntN(999_999_999))
		fmt.Fprintf(&b, "Facility Name: %s Medical Center\n", loc.city)
		fmt.Fprintf(&b, "Facility NPI: %010d\n", 1_000_000_000+rng.IntN(999_999_999))
		fmt.Fprintf(&b, "Facility Address: %d Healthcare Drive, %s, %s %s\n", 100+rng.IntN(900), loc.city, loc.state, loc.zip)
		fmt.Fprintf(&b, "Tax ID: %02d-%07d\n\n", 10+rng.IntN(90), rng.IntN(10_000_000))
	}

	b.WriteString("Visit Information:\n")
	fmt.Fprintf(&b, "Date of Service: %02d/%02d/2024\n", svcMonth, svcDay)
	b.WriteString("Place of Service: Office (11)\n\n")

	nDx := 1 + rng.IntN(3)
	perm := rng.Perm(len(conds))[:nDx]
	fmt.Fprintf(&b, "Chief Complaint:\nPatient presents with %s.\n\n", conds[perm[0]].complaint)
	b.WriteString("Diagnoses:\n")
	for i, idx := range perm {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, conds[idx].code, conds[idx].desc)
	}

	nProc := 1 + rng.IntN(3)
	sperm := rng.Perm(len(services))[:nProc]
	b.WriteString("\nProcedures:\n")
	for i, idx := range sperm {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, services[idx].code, services[idx].desc)
	}
	b.WriteString("\nCharges:\n")
	var total float64
	for _, idx := range sperm {
		fmt.Fprintf(&b, "- %s: $%.2f\n", services[idx].code, services[idx].charge)
		total += services[idx].charge
	}
	fmt.Fprintf(&b, "Total: $%.2f\n\n", total)

	fmt.Fprintf(&b, "Clinical Notes:\nSynthetic encounter %d. Findings consistent with the listed diagnoses.\n", n)
	return b.String()
}

func check(dir string) error {
	paths, err := document.Discover(dir)
	if err != nil {
		return err
	}
	ex := extract.New(nil)
	codeCounts := make(map[string]int)
	var withPatient, withInsurance, withProvider int
	var conf float64
	for _, path := range paths {
		doc, err := document.TextParser{}.Parse(context.Background(), path)
		if err != nil {
			return err
		}
		d := ex.Extract(context.Background(), doc.Text)
		if d.Patient != nil {
			withPatient++
		}
		if d.Insurance != nil {
			withInsurance++
		}
		if d.Provider != nil {
			withProvider++
		}
		codeCounts[model.CodeTypeICD10] += len(d.Diagnoses)
		for _, p := range d.Procedures {
			codeCounts[model.ClassifyProcedure(p.Code)]++
		}
		conf += d.ExtractionConfidence
	}
	fmt.Printf("Notes: %d (patient %d, insurance %d, provider %d)\n",
		len(paths), withPatient, withInsurance, withProvider)
	if len(paths) > 0 {
		fmt.Printf("Mean extraction confidence: %.2f\n", conf/float64(len(paths)))
	}
	fmt.Println("Code distribution:")
	for _, ct := range model.AllCodeTypes {
		if c := codeCounts[ct.Name]; c > 0 {
			fmt.Printf("  %-10s %d\n", ct.Name, c)
		}
	}
	return nil
}
