package model

import (
	"errors"
	"testing"
)

func line(ptr string) ServiceLine {
	return ServiceLine{
		DateFrom:         "03 01 2024",
		PlaceOfService:   "11",
		CPTHCPCS:         "99213",
		DiagnosisPointer: ptr,
		Charges:          150,
		DaysOrUnits:      1,
	}
}

func TestNewClaim_Defaults(t *testing.T) {
	c, err := NewClaim(line("A"))
	if err != nil {
		t.Fatalf("NewClaim: %v", err)
	}
	if c.ICDIndicator != "0" || c.FormVersion != "02/12" {
		t.Errorf("unexpected defaults: indicator=%q version=%q", c.ICDIndicator, c.FormVersion)
	}
	if c.PatientSignature != SignatureOnFile {
		t.Errorf("patient signature = %q", c.PatientSignature)
	}
}

func TestNewClaim_NoLines(t *testing.T) {
	_, err := NewClaim()
	if !errors.Is(err, ErrNoServiceLines) {
		t.Fatalf("expected ErrNoServiceLines, got %v", err)
	}
}

func TestNewClaim_TooManyLines(t *testing.T) {
	lines := make([]ServiceLine, 7)
	for i := range lines {
		lines[i] = line("A")
	}
	_, err := NewClaim(lines...)
	if !errors.Is(err, ErrTooManyServiceLines) {
		t.Fatalf("expected ErrTooManyServiceLines, got %v", err)
	}
}

func TestNewClaim_PointerOutsideRange(t *testing.T) {
	if _, err := NewClaim(line("AZ")); err == nil {
		t.Fatal("expected error for pointer letter Z")
	}
	if _, err := NewClaim(line("ABCL")); err != nil {
		t.Fatalf("letters A..L should be accepted: %v", err)
	}
}

func TestNewServiceLine_Units(t *testing.T) {
	l := line("A")
	l.DaysOrUnits = 0
	if _, err := NewServiceLine(l); err == nil {
		t.Fatal("expected error for zero units")
	}
	l.DaysOrUnits = 1
	l.Charges = -1
	if _, err := NewServiceLine(l); err == nil {
		t.Fatal("expected error for negative charge")
	}
}

func TestClaimDiagnosisSlots(t *testing.T) {
	c := NewDraftClaim()
	if !c.SetDiagnosis("L", "I10") {
		t.Fatal("SetDiagnosis(L) returned false")
	}
	if c.SetDiagnosis("M", "I10") {
		t.Error("SetDiagnosis(M) should be rejected")
	}
	if got := c.Diagnosis("L"); got != "I10" {
		t.Errorf("Diagnosis(L) = %q", got)
	}
	if d := c.Diagnoses(); len(d) != 1 || d["L"] != "I10" {
		t.Errorf("Diagnoses() = %v", d)
	}
}

func TestValidationResult_ValidNeverReverts(t *testing.T) {
	r := NewValidationResult()
	r.Add(ValidationMessage{Severity: SeverityWarning, RuleID: "W"})
	if !r.Valid {
		t.Fatal("warning must not invalidate")
	}
	r.Add(ValidationMessage{Severity: SeverityError, RuleID: "E"})
	r.Add(ValidationMessage{Severity: SeverityInfo, RuleID: "I"})
	if r.Valid {
		t.Fatal("expected invalid after error")
	}
	if r.ErrorsCount != 1 || r.WarningsCount != 1 || r.InfoCount != 1 {
		t.Errorf("counts = %d/%d/%d", r.ErrorsCount, r.WarningsCount, r.InfoCount)
	}
}

func TestDiagnosisLetters_MarshalOrder(t *testing.T) {
	d := DiagnosisLetters{{Code: "J20.9", Letter: "A"}, {Code: "I10", Letter: "B"}}
	b, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if string(b) != `{"J20.9":"A","I10":"B"}` {
		t.Errorf("got %s", b)
	}
	if code, ok := d.Code("B"); !ok || code != "I10" {
		t.Errorf("Code(B) = %q, %v", code, ok)
	}
}

func TestClassifyProcedure(t *testing.T) {
	tests := map[string]string{
		"99213": CodeTypeCPT,
		"J1100": CodeTypeHCPCS,
		"9921":  "",
		"J20.9": "",
	}
	for code, want := range tests {
		if got := ClassifyProcedure(code); got != want {
			t.Errorf("ClassifyProcedure(%q) = %q, want %q", code, got, want)
		}
	}
}
