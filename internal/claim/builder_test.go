package claim

import (
	"context"
	"errors"
	"math"
	"os"
	"testing"

	"github.com/gyeh/claimforge/internal/coding"
	"github.com/gyeh/claimforge/internal/extract"
	"github.com/gyeh/claimforge/internal/model"
)

func floatPtr(v float64) *float64 { return &v }

func sampleExtracted() *model.ExtractedData {
	return &model.ExtractedData{
		Patient: &model.PatientInfo{
			FirstName:  "John",
			MiddleName: "michael",
			LastName:   "Doe",
			DOB:        "1980-01-15",
			Sex:        "M",
			Address:    "123 Main Street",
			City:       "Springfield",
			State:      "IL",
			ZipCode:    "62701",
			Phone:      "(217) 555-0123",
		},
		Insurance: &model.InsuranceInfo{
			InsuranceName: "Blue Cross Blue Shield",
			PolicyNumber:  "XYZ123456789",
			GroupNumber:   "GRP001",
		},
		Provider: &model.ProviderInfo{
			ProviderName:    "Dr. Sarah Smith",
			ProviderNPI:     "1234567890",
			FacilityName:    "Springfield Medical Center",
			FacilityAddress: "456 Oak Avenue",
			FacilityCity:    "Springfield",
			FacilityState:   "IL",
			FacilityZip:     "62702",
			Phone:           "(217) 555-0100",
			TaxID:           "12-3456789",
		},
		Dates:    map[string]string{model.DateService: "2024-10-15"},
		Metadata: map[string]string{},
	}
}

func sampleCoding() *model.CodingResult {
	return &model.CodingResult{
		Diagnoses: []model.CodeSuggestion{{Code: "J20.9"}, {Code: "I10"}},
		Procedures: []model.CodeSuggestion{
			{Code: "99213", Metadata: model.SuggestionMetadata{Charge: floatPtr(150), DiagnosisPointers: []string{"A", "B"}}},
			{Code: "94010", Metadata: model.SuggestionMetadata{Charge: floatPtr(85), Units: 2}},
		},
		DiagnosisLetters: model.DiagnosisLetters{{Code: "J20.9", Letter: "A"}, {Code: "I10", Letter: "B"}},
	}
}

func TestBuild_PatientAndInsured(t *testing.T) {
	c, err := New().Build(sampleExtracted(), sampleCoding())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if c.PatientDOB != "01 15 1980" {
		t.Errorf("dob = %q, want 01 15 1980", c.PatientDOB)
	}
	if c.PatientMiddleInitial != "M" {
		t.Errorf("middle initial = %q", c.PatientMiddleInitial)
	}
	if !c.PatientRelationshipSelf || c.PatientRelationshipSpouse || c.PatientRelationshipChild || c.PatientRelationshipOther {
		t.Errorf("relationship flags wrong: %+v", c)
	}
	if c.InsuredAddress != "123 Main Street" || c.InsuredZip != "62701" || c.InsuredPhone != "(217) 555-0123" {
		t.Errorf("insured address not inherited: %q %q %q", c.InsuredAddress, c.InsuredZip, c.InsuredPhone)
	}
	if c.InsuredIDNumber != "XYZ123456789" || c.InsuredPolicyGroup != "GRP001" {
		t.Errorf("insured ids: %q %q", c.InsuredIDNumber, c.InsuredPolicyGroup)
	}
	if c.InsurancePlanName != "Blue Cross Blue Shield" {
		t.Errorf("plan = %q", c.InsurancePlanName)
	}
	if c.ICDIndicator != model.ICDIndicator10 || c.FormVersion != model.FormVersion {
		t.Errorf("defaults missing: %q %q", c.ICDIndicator, c.FormVersion)
	}
}

func TestBuild_MiddleInitialIsFirstCharacter(t *testing.T) {
	ext := sampleExtracted()
	ext.Patient.MiddleName = "élodie"
	c, err := New().Build(ext, sampleCoding())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if c.PatientMiddleInitial != "É" {
		t.Errorf("middle initial = %q, want É", c.PatientMiddleInitial)
	}
}

func TestBuild_RelationshipNotSelf(t *testing.T) {
	for _, tt := range []struct {
		rel   string
		check func(*model.Claim) bool
	}{
		{"Spouse", func(c *model.Claim) bool { return c.PatientRelationshipSpouse }},
		{"CHILD", func(c *model.Claim) bool { return c.PatientRelationshipChild }},
		{"grandparent", func(c *model.Claim) bool { return c.PatientRelationshipOther }},
	} {
		t.Run(tt.rel, func(t *testing.T) {
			ext := sampleExtracted()
			ext.Insurance.SubscriberRelationship = tt.rel
			c, err := New().Build(ext, sampleCoding())
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if !tt.check(c) || c.PatientRelationshipSelf {
				t.Errorf("wrong flags for %q", tt.rel)
			}
			if c.InsuredAddress != "" {
				t.Errorf("insured address inherited for %q", tt.rel)
			}
		})
	}
}

func TestBuild_RelationshipDefaultsToSelfWithoutInsurance(t *testing.T) {
	ext := sampleExtracted()
	ext.Insurance = nil
	c, err := New().Build(ext, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !c.PatientRelationshipSelf {
		t.Error("expected self")
	}
}

func TestBuild_TaxIDType(t *testing.T) {
	for _, tt := range []struct {
		id       string
		ssn, ein bool
	}{
		{"123-45-6789", true, false},
		{"12-3456789", false, true},
		{"123456789", false, true},
	} {
		ext := sampleExtracted()
		ext.Provider.TaxID = tt.id
		c, err := New().Build(ext, nil)
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		if c.TaxIDTypeSSN != tt.ssn || c.TaxIDTypeEIN != tt.ein {
			t.Errorf("%s: ssn=%v ein=%v", tt.id, c.TaxIDTypeSSN, c.TaxIDTypeEIN)
		}
	}
}

func TestBuild_BillingProviderFallback(t *testing.T) {
	c, err := New().Build(sampleExtracted(), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if c.BillingProviderName != "Springfield Medical Center" {
		t.Errorf("billing name = %q", c.BillingProviderName)
	}
	if c.BillingProviderNPI != "1234567890" {
		t.Errorf("billing npi should fall back to provider npi, got %q", c.BillingProviderNPI)
	}
	if c.BillingProviderPhone != "(217) 555-0100" || c.BillingProviderAddress != "456 Oak Avenue" {
		t.Errorf("billing contact = %q %q", c.BillingProviderPhone, c.BillingProviderAddress)
	}
	if c.ReferringProviderName != "Dr. Sarah Smith" || c.ReferringProviderNPI != "1234567890" {
		t.Errorf("referring = %q %q", c.ReferringProviderName, c.ReferringProviderNPI)
	}

	ext := sampleExtracted()
	ext.Provider.FacilityName = ""
	ext.Provider.FacilityNPI = "9876543210"
	c, _ = New().Build(ext, nil)
	if c.BillingProviderName != "Dr. Sarah Smith" || c.BillingProviderNPI != "9876543210" {
		t.Errorf("billing = %q %q", c.BillingProviderName, c.BillingProviderNPI)
	}
}

func TestBuild_DiagnosesAndLines(t *testing.T) {
	c, err := New().Build(sampleExtracted(), sampleCoding())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if c.DiagnosisA != "J20.9" || c.DiagnosisB != "I10" || c.DiagnosisC != "" {
		t.Errorf("diagnoses = %v", c.Diagnoses())
	}
	if len(c.ServiceLines) != 2 {
		t.Fatalf("lines = %+v", c.ServiceLines)
	}
	l := c.ServiceLines[0]
	if l.DiagnosisPointer != "AB" || l.DateFrom != "10 15 2024" || l.PlaceOfService != "11" {
		t.Errorf("line 1 = %+v", l)
	}
	if l.RenderingProviderID != "1234567890" {
		t.Errorf("rendering id = %q", l.RenderingProviderID)
	}
	if c.ServiceLines[1].DiagnosisPointer != "A" {
		t.Errorf("pointer fallback = %q", c.ServiceLines[1].DiagnosisPointer)
	}
	if c.TotalCharge != 320 {
		t.Errorf("total = %v, want 320", c.TotalCharge)
	}
}

func TestBuild_WithoutCodingKeepsExplicitPointers(t *testing.T) {
	ext := &model.ExtractedData{
		Diagnoses: []model.DiagnosisCode{{Code: "J20.9", Confidence: 0.7}, {Code: "I10", Confidence: 0.7}},
		Procedures: []model.ProcedureCode{
			{Code: "94010", Confidence: 0.7, DiagnosisPointers: []string{"B"}},
			{Code: "99213", Confidence: 0.7},
		},
	}
	c, err := New().Build(ext, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(c.ServiceLines) != 2 {
		t.Fatalf("lines = %+v", c.ServiceLines)
	}
	if got := c.ServiceLines[0].DiagnosisPointer; got != "B" {
		t.Errorf("explicit pointer = %q, want B", got)
	}
	if got := c.ServiceLines[1].DiagnosisPointer; got != "A" {
		t.Errorf("default pointer = %q, want A", got)
	}
}

func TestBuild_TotalIsSumOfLines(t *testing.T) {
	cr := &model.CodingResult{}
	charges := []float64{0.1, 0.2, 19.99, 1234.56, 0.07}
	for i, ch := range charges {
		cr.Procedures = append(cr.Procedures, model.CodeSuggestion{
			Code:     []string{"99211", "99212", "99213", "99214", "99215"}[i],
			Metadata: model.SuggestionMetadata{Charge: floatPtr(ch), Units: i + 1},
		})
	}
	c, err := New().Build(nil, cr)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var want float64
	for _, l := range c.ServiceLines {
		want += l.Charges * float64(l.DaysOrUnits)
	}
	if math.Abs(c.TotalCharge-want) > 0.005 {
		t.Errorf("total = %v, want %v", c.TotalCharge, want)
	}
}

func TestBuild_CapsAtSixLines(t *testing.T) {
	cr := &model.CodingResult{}
	for _, code := range []string{"99211", "99212", "99213", "99214", "99215", "94010", "71046", "85025"} {
		cr.Procedures = append(cr.Procedures, model.CodeSuggestion{Code: code})
	}
	c, err := New().Build(nil, cr)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(c.ServiceLines) != model.MaxServiceLines {
		t.Errorf("lines = %d", len(c.ServiceLines))
	}
	for _, l := range c.ServiceLines {
		if l.Charges != 0 || l.DaysOrUnits != 1 {
			t.Errorf("defaults not applied: %+v", l)
		}
	}
}

func TestBuild_PlaceOfServicePrecedence(t *testing.T) {
	ext := sampleExtracted()
	ext.Metadata[model.MetaPlaceOfService] = "22"
	cr := &model.CodingResult{Procedures: []model.CodeSuggestion{
		{Code: "99213", Metadata: model.SuggestionMetadata{PlaceOfService: "02"}},
		{Code: "94010"},
	}}
	c, err := New(WithDefaultPlaceOfService("99")).Build(ext, cr)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if c.ServiceLines[0].PlaceOfService != "02" || c.ServiceLines[1].PlaceOfService != "22" {
		t.Errorf("pos = %q %q", c.ServiceLines[0].PlaceOfService, c.ServiceLines[1].PlaceOfService)
	}

	c, _ = New(WithDefaultPlaceOfService("99")).Build(nil, &model.CodingResult{Procedures: cr.Procedures[1:]})
	if c.ServiceLines[0].PlaceOfService != "99" {
		t.Errorf("default pos = %q", c.ServiceLines[0].PlaceOfService)
	}
}

func TestBuild_NoServiceDateLeavesLineDateEmpty(t *testing.T) {
	c, err := New().Build(nil, &model.CodingResult{Procedures: []model.CodeSuggestion{{Code: "99213"}}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if c.ServiceLines[0].DateFrom != "" {
		t.Errorf("date_from = %q", c.ServiceLines[0].DateFrom)
	}
}

func TestBuild_EmptyInput(t *testing.T) {
	c, err := New().Build(nil, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(c.ServiceLines) != 0 || c.TotalCharge != 0 {
		t.Errorf("expected empty claim, got %+v", c)
	}
	if c.ICDIndicator != model.ICDIndicator10 || !c.PatientRelationshipSelf {
		t.Errorf("defaults missing")
	}
}

func TestBuild_Overrides(t *testing.T) {
	c, err := New().Build(sampleExtracted(), sampleCoding(),
		WithBillingProviderNPI("123"),
		WithTotalCharge(999),
		WithPatientAccountNumber("ACCT-1"),
		Set(func(c *model.Claim) { c.PatientSex = "F" }),
	)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if c.BillingProviderNPI != "123" || c.TotalCharge != 999 || c.PatientAccountNumber != "ACCT-1" || c.PatientSex != "F" {
		t.Errorf("overrides not applied: %+v", c)
	}
}

func TestBuild_OverrideErrors(t *testing.T) {
	lines := make([]model.ServiceLine, 7)
	_, err := New().Build(nil, nil, WithServiceLines(lines...))
	if !errors.Is(err, model.ErrTooManyServiceLines) {
		t.Errorf("err = %v, want ErrTooManyServiceLines", err)
	}

	_, err = New().Build(nil, nil, WithServiceLines())
	if !errors.Is(err, model.ErrNoServiceLines) {
		t.Errorf("err = %v, want ErrNoServiceLines", err)
	}

	_, err = New().Build(nil, nil, WithDiagnosis("M", "I10"))
	if err == nil {
		t.Error("expected error for letter M")
	}
}

func TestBuild_WithServiceLinesRecomputesTotal(t *testing.T) {
	c, err := New().Build(nil, nil, WithServiceLines(
		model.ServiceLine{CPTHCPCS: "99213", DiagnosisPointer: "A", Charges: 100, DaysOrUnits: 2},
	))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if c.TotalCharge != 200 {
		t.Errorf("total = %v", c.TotalCharge)
	}
}

func TestBuild_FromSampleRecordPipeline(t *testing.T) {
	data, err := os.ReadFile("../../testdata/sample_record.txt")
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	ctx := context.Background()
	ext := extract.New(nil).Extract(ctx, string(data))
	conf := ext.ExtractionConfidence
	cr := coding.New(nil).SuggestCodes(ctx, string(data), ext.Diagnoses, ext.Procedures, &conf)

	c, err := New().Build(ext, cr)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if c.PatientLastName != "Doe" || c.PatientDOB != "01 15 1980" {
		t.Errorf("patient = %q %q", c.PatientLastName, c.PatientDOB)
	}
	if len(c.ServiceLines) != 2 || c.TotalCharge != 235 {
		t.Errorf("lines = %d total = %v", len(c.ServiceLines), c.TotalCharge)
	}
}
