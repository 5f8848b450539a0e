// Package validate checks a CMS-1500 claim against NUCC field rules and CMS
// claims processing edits.
package validate

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/gyeh/claimforge/internal/model"
	"github.com/gyeh/claimforge/internal/normalize"
)

var (
	npiRe      = regexp.MustCompile(`^\d{10}$`)
	taxIDRe    = regexp.MustCompile(`^\d{9}$`)
	posRe      = regexp.MustCompile(`^\d{2}$`)
	modifierRe = regexp.MustCompile(`^[A-Z0-9]{2}$`)
	stateRe    = regexp.MustCompile(`^[A-Z]{2}$`)
)

// Field length limits from the NUCC manual.
const (
	maxInsuredIDLen   = 29
	maxLastNameLen    = 35
	maxPriorAuthLen   = 30
	maxPointersOnLine = 4
)

type rule func(c *model.Claim, r *model.ValidationResult)

// Validator runs a fixed, ordered battery of checks. Every check runs on
// every claim; findings accumulate in one result.
type Validator struct {
	battery []rule
}

// New returns a Validator.
func New() *Validator {
	return &Validator{battery: []rule{
		requiredFields,
		item1a,
		items2and3,
		item6,
		item10,
		item11,
		item17,
		item21,
		item23,
		item24,
		item25,
		items28and29,
		item32,
		item33,
		diagnosisPointers,
		dateLogic,
	}}
}

// Validate checks c and returns every finding. It does not modify c.
func (v *Validator) Validate(c *model.Claim) *model.ValidationResult {
	r := model.NewValidationResult()
	for _, check := range v.battery {
		check(c, r)
	}
	return r
}

func errorMsg(field, ruleID, msg string) model.ValidationMessage {
	return model.ValidationMessage{Field: field, Severity: model.SeverityError, Message: msg, RuleID: ruleID}
}

func warningMsg(field, ruleID, msg string) model.ValidationMessage {
	return model.ValidationMessage{Field: field, Severity: model.SeverityWarning, Message: msg, RuleID: ruleID}
}

func requiredFields(c *model.Claim, r *model.ValidationResult) {
	required := []struct {
		field, value, name string
	}{
		{"1a", c.InsuredIDNumber, "Insured's ID Number"},
		{"2", c.PatientLastName, "Patient Last Name"},
		{"2", c.PatientFirstName, "Patient First Name"},
		{"3", c.PatientDOB, "Patient Date of Birth"},
		{"3", c.PatientSex, "Patient Sex"},
		{"21", c.ICDIndicator, "ICD Indicator"},
		{"33a", c.BillingProviderNPI, "Billing Provider NPI"},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			r.Add(errorMsg(f.field, "NUCC-"+f.field+"-REQ", f.name+" is required"))
		}
	}
}

func item1a(c *model.Claim, r *model.ValidationResult) {
	if len(c.InsuredIDNumber) > maxInsuredIDLen {
		r.Add(errorMsg("1a", "NUCC-1a-LEN", fmt.Sprintf("Insured's ID cannot exceed %d characters", maxInsuredIDLen)))
	}
}

func items2and3(c *model.Claim, r *model.ValidationResult) {
	if len(c.PatientLastName) > maxLastNameLen {
		r.Add(errorMsg("2", "NUCC-2-LEN", fmt.Sprintf("Patient last name exceeds %d characters", maxLastNameLen)))
	}
	if c.PatientDOB != "" {
		if _, ok := normalize.ParseClaimDate(c.PatientDOB); !ok {
			m := errorMsg("3", "NUCC-3-FMT", "Patient DOB must be in MM DD YYYY format")
			m.Suggestion = "Use MM DD YYYY with spaces"
			r.Add(m)
		}
	}
	if c.PatientSex != "" {
		switch c.PatientSex {
		case "M", "F", "U":
		default:
			r.Add(errorMsg("3", "NUCC-3-SEX", "Patient sex must be M, F, or U"))
		}
	}
}

func item6(c *model.Claim, r *model.ValidationResult) {
	n := 0
	for _, set := range []bool{
		c.PatientRelationshipSelf,
		c.PatientRelationshipSpouse,
		c.PatientRelationshipChild,
		c.PatientRelationshipOther,
	} {
		if set {
			n++
		}
	}
	switch {
	case n == 0:
		r.Add(errorMsg("6", "NUCC-6-REQ", "Patient relationship to insured must be specified"))
	case n > 1:
		r.Add(errorMsg("6", "NUCC-6-EXCL", "Only one relationship can be selected"))
	}
}

func item10(c *model.Claim, r *model.ValidationResult) {
	if !c.ConditionRelatedAutoAccident {
		return
	}
	switch {
	case c.AutoAccidentState == "":
		r.Add(errorMsg("10b", "NUCC-10b-STATE", "State code required when auto accident is checked"))
	case !stateRe.MatchString(c.AutoAccidentState):
		r.Add(errorMsg("10b", "NUCC-10b-STATE", "Auto accident state must be a two-letter code"))
	}
}

func item11(c *model.Claim, r *model.ValidationResult) {
	if !c.PatientRelationshipSelf && c.InsuredName == "" {
		r.Add(warningMsg("4", "NUCC-4-REC", "Insured's name recommended when patient is not self"))
	}
}

func item17(c *model.Claim, r *model.ValidationResult) {
	if c.ReferringProviderName != "" && c.ReferringProviderNPI == "" {
		r.Add(warningMsg("17b", "NUCC-17b-REC", "Referring provider NPI recommended when name is provided"))
	}
	if c.ReferringProviderNPI != "" && !npiRe.MatchString(c.ReferringProviderNPI) {
		r.Add(errorMsg("17b", "NUCC-17b-FMT", "Referring provider NPI must be 10 digits"))
	}
}

func item21(c *model.Claim, r *model.ValidationResult) {
	switch c.ICDIndicator {
	case "", model.ICDIndicator10:
	case model.ICDIndicator9:
		r.Add(warningMsg("21", "CMS-21-ICD10", "ICD-9 is deprecated; should use ICD-10 (indicator 0)"))
	default:
		r.Add(errorMsg("21", "CMS-21-ICD10", fmt.Sprintf("Unknown ICD indicator %q; use 0 for ICD-10", c.ICDIndicator)))
	}

	found := false
	for i := 0; i < model.MaxDiagnosisLetters; i++ {
		letter := model.DiagnosisLetter(i)
		code := c.Diagnosis(letter)
		if code == "" {
			continue
		}
		found = true
		if !model.IsICD10(code) {
			m := errorMsg("21"+letter, "CMS-21-ICD10-FMT", "Invalid ICD-10 format: "+code)
			m.Suggestion = "ICD-10 format: Letter + 2 digits, optional decimal and more digits"
			r.Add(m)
		}
	}
	if !found {
		r.Add(errorMsg("21", "NUCC-21-REQ", "At least one diagnosis code required"))
	}
}

func item23(c *model.Claim, r *model.ValidationResult) {
	if len(c.PriorAuthorizationNumber) > maxPriorAuthLen {
		r.Add(warningMsg("23", "NUCC-23-LEN", "Prior authorization number exceeds typical length"))
	}
}

// pointerLetters returns the letters of a 24E pointer, ignoring separators.
func pointerLetters(ptr string) []string {
	var out []string
	for _, ch := range ptr {
		switch ch {
		case ',', ' ', ';', '/':
			continue
		}
		out = append(out, strings.ToUpper(string(ch)))
	}
	return out
}

func item24(c *model.Claim, r *model.ValidationResult) {
	if len(c.ServiceLines) == 0 {
		r.Add(errorMsg("24", "NUCC-24-REQ", "At least one service line required"))
		return
	}
	for i, l := range c.ServiceLines {
		idx := i + 1
		id := fmt.Sprintf("24.%d", idx)

		if _, ok := normalize.ParseClaimDate(l.DateFrom); !ok {
			r.Add(errorMsg(id+"A", "NUCC-24A-FMT", fmt.Sprintf("Line %d: Invalid date format", idx)))
		}
		if l.DateTo != "" {
			if _, ok := normalize.ParseClaimDate(l.DateTo); !ok {
				r.Add(errorMsg(id+"A", "NUCC-24A-FMT", fmt.Sprintf("Line %d: Invalid end date format", idx)))
			}
		}
		if !posRe.MatchString(l.PlaceOfService) {
			r.Add(errorMsg(id+"B", "NUCC-24B-FMT", fmt.Sprintf("Line %d: Place of Service must be 2 digits", idx)))
		}
		if !model.IsProcedureCode(l.CPTHCPCS) {
			r.Add(errorMsg(id+"D", "NUCC-24D-FMT", fmt.Sprintf("Line %d: Invalid CPT/HCPCS code format", idx)))
		}
		for _, mod := range l.Modifiers() {
			if !modifierRe.MatchString(mod) {
				r.Add(errorMsg(id+"D", "NUCC-24D-MOD", fmt.Sprintf("Line %d: Modifier %q must be 2 characters", idx, mod)))
			}
		}
		ptrs := pointerLetters(l.DiagnosisPointer)
		if len(ptrs) == 0 {
			r.Add(errorMsg(id+"E", "NUCC-24E-REQ", fmt.Sprintf("Line %d: Diagnosis pointer required", idx)))
		} else if len(ptrs) > maxPointersOnLine {
			r.Add(warningMsg(id+"E", "NUCC-24E-MAX", fmt.Sprintf("Line %d: Only the first %d diagnosis pointers are read", idx, maxPointersOnLine)))
		}
		if l.RenderingProviderID != "" && !npiRe.MatchString(l.RenderingProviderID) {
			r.Add(warningMsg(id+"J", "NUCC-24J-NPI", fmt.Sprintf("Line %d: Rendering provider ID should be 10-digit NPI", idx)))
		}
	}
}

func item25(c *model.Claim, r *model.ValidationResult) {
	if c.FederalTaxID == "" {
		return
	}
	if !taxIDRe.MatchString(normalize.TaxIDDigits(c.FederalTaxID)) {
		r.Add(errorMsg("25", "NUCC-25-FMT", "Federal Tax ID must be 9 digits (EIN or SSN)"))
	}
	switch {
	case !c.TaxIDTypeEIN && !c.TaxIDTypeSSN:
		r.Add(errorMsg("25", "NUCC-25-TYPE", "Must specify EIN or SSN checkbox"))
	case c.TaxIDTypeEIN && c.TaxIDTypeSSN:
		r.Add(errorMsg("25", "NUCC-25-TYPE", "Only one of EIN or SSN may be checked"))
	}
}

func items28and29(c *model.Claim, r *model.ValidationResult) {
	var cents int64
	for _, l := range c.ServiceLines {
		cents += normalize.LineTotalCents(l.Charges, l.DaysOrUnits)
	}
	calculated := normalize.CentsToDollars(cents)
	if math.Abs(c.TotalCharge-calculated) > 0.01 {
		m := warningMsg("28", "NUCC-28-CALC",
			fmt.Sprintf("Total charge (%.2f) doesn't match sum of lines (%.2f)", c.TotalCharge, calculated))
		m.Suggestion = fmt.Sprintf("Should be $%.2f", calculated)
		r.Add(m)
	}
	if c.AmountPaid != nil && *c.AmountPaid > c.TotalCharge+0.01 {
		r.Add(warningMsg("29", "NUCC-29-AMT",
			fmt.Sprintf("Amount paid (%.2f) exceeds total charge (%.2f)", *c.AmountPaid, c.TotalCharge)))
	}
}

func item32(c *model.Claim, r *model.ValidationResult) {
	if c.ServiceFacilityName != "" && c.ServiceFacilityNPI == "" {
		r.Add(errorMsg("32a", "NUCC-32a-REQ", "Service facility NPI required when facility name provided"))
	}
	if c.ServiceFacilityNPI != "" && !npiRe.MatchString(c.ServiceFacilityNPI) {
		r.Add(errorMsg("32a", "NUCC-32a-FMT", "Service facility NPI must be 10 digits"))
	}
}

// item33 leaves a missing NPI to requiredFields.
func item33(c *model.Claim, r *model.ValidationResult) {
	if c.BillingProviderNPI != "" && !npiRe.MatchString(c.BillingProviderNPI) {
		r.Add(errorMsg("33a", "NUCC-33a-FMT", "Billing provider NPI must be 10 digits"))
	}
	if c.BillingProviderName == "" {
		r.Add(warningMsg("33", "NUCC-33-NAME", "Billing provider name recommended"))
	}
}

func diagnosisPointers(c *model.Claim, r *model.ValidationResult) {
	filled := c.Diagnoses()
	valid := make([]string, 0, len(filled))
	for letter := range filled {
		valid = append(valid, letter)
	}
	sort.Strings(valid)
	suggestion := "Valid pointers: " + strings.Join(valid, ", ")

	for i, l := range c.ServiceLines {
		idx := i + 1
		for _, ptr := range pointerLetters(l.DiagnosisPointer) {
			if _, ok := filled[ptr]; ok {
				continue
			}
			m := errorMsg(fmt.Sprintf("24.%dE", idx), "CMS-24E-REF",
				fmt.Sprintf("Line %d: Diagnosis pointer '%s' references empty diagnosis code", idx, ptr))
			m.Suggestion = suggestion
			r.Add(m)
		}
	}
}

// dateLogic checks service dates against the date of birth and each line's
// range. Dates that do not parse are left to the format checks.
func dateLogic(c *model.Claim, r *model.ValidationResult) {
	dob, hasDOB := normalize.ParseClaimDate(c.PatientDOB)
	for i, l := range c.ServiceLines {
		idx := i + 1
		field := fmt.Sprintf("24.%dA", idx)
		from, ok := normalize.ParseClaimDate(l.DateFrom)
		if !ok {
			continue
		}
		if hasDOB && from.Before(dob) {
			r.Add(errorMsg(field, "CMS-DATE-DOB",
				fmt.Sprintf("Line %d: Service date %s is before patient date of birth %s", idx, l.DateFrom, c.PatientDOB)))
		}
		if to, ok := normalize.ParseClaimDate(l.DateTo); ok && to.Before(from) {
			r.Add(errorMsg(field, "CMS-DATE-RANGE",
				fmt.Sprintf("Line %d: Service end date %s is before start date %s", idx, l.DateTo, l.DateFrom)))
		}
	}
}
