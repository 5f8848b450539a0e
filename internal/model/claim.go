package model

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// MaxServiceLines is the number of service lines a single CMS-1500 carries.
const MaxServiceLines = 6

// Form defaults.
const (
	ICDIndicator10   = "0"
	ICDIndicator9    = "9"
	FormVersion      = "02/12"
	SignatureOnFile  = "Signature on File"
	DefaultUnits     = 1
	ClaimDateLayout  = "01 02 2006"
	SourceDateLayout = "2006-01-02"
)

var (
	ErrNoServiceLines      = errors.New("claim requires at least one service line")
	ErrTooManyServiceLines = fmt.Errorf("claim allows at most %d service lines", MaxServiceLines)
)

var validate = validator.New()

func init() {
	_ = validate.RegisterValidation("dxpointer", func(fl validator.FieldLevel) bool {
		for _, r := range fl.Field().String() {
			if r < 'A' || r > 'L' {
				return false
			}
		}
		return true
	})
}

// ServiceLine is one item 24 row.
type ServiceLine struct {
	DateFrom            string  `json:"date_from"`
	DateTo              string  `json:"date_to,omitempty"`
	PlaceOfService      string  `json:"place_of_service"`
	EMG                 string  `json:"emg,omitempty"`
	CPTHCPCS            string  `json:"cpt_hcpcs"`
	Modifier1           string  `json:"modifier1,omitempty"`
	Modifier2           string  `json:"modifier2,omitempty"`
	Modifier3           string  `json:"modifier3,omitempty"`
	Modifier4           string  `json:"modifier4,omitempty"`
	DiagnosisPointer    string  `json:"diagnosis_pointer" validate:"dxpointer"`
	Charges             float64 `json:"charges" validate:"gte=0"`
	DaysOrUnits         int     `json:"days_or_units" validate:"gte=1"`
	EPSDTFamilyPlan     string  `json:"epsdt_family_plan,omitempty"`
	IDQualifier         string  `json:"id_qualifier,omitempty"`
	RenderingProviderID string  `json:"rendering_provider_id,omitempty"`
}

// Modifiers returns the non-empty modifiers in slot order.
func (l ServiceLine) Modifiers() []string {
	var out []string
	for _, m := range []string{l.Modifier1, l.Modifier2, l.Modifier3, l.Modifier4} {
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

// NewServiceLine checks the construction contract of a single line.
func NewServiceLine(l ServiceLine) (ServiceLine, error) {
	if err := validate.Struct(l); err != nil {
		return ServiceLine{}, fmt.Errorf("invalid service line %s: %w", l.CPTHCPCS, err)
	}
	return l, nil
}

type serviceLineSet struct {
	Lines []ServiceLine `validate:"min=1,max=6,dive"`
}

// Claim is the assembled CMS-1500 record. Field groups follow the form's
// item numbers.
type Claim struct {
	// Carrier
	CarrierName    string `json:"carrier_name,omitempty"`
	CarrierAddress string `json:"carrier_address,omitempty"`
	PayerID        string `json:"payer_id,omitempty"`

	// Item 1
	InsuranceTypeMedicare    bool `json:"insurance_type_medicare"`
	InsuranceTypeMedicaid    bool `json:"insurance_type_medicaid"`
	InsuranceTypeTricare     bool `json:"insurance_type_tricare"`
	InsuranceTypeChampva     bool `json:"insurance_type_champva"`
	InsuranceTypeGroupHealth bool `json:"insurance_type_group_health"`
	InsuranceTypeFECA        bool `json:"insurance_type_feca"`
	InsuranceTypeOther       bool `json:"insurance_type_other"`

	// Item 1a
	InsuredIDNumber string `json:"insured_id_number"`

	// Items 2, 3, 5
	PatientLastName      string `json:"patient_last_name"`
	PatientFirstName     string `json:"patient_first_name"`
	PatientMiddleInitial string `json:"patient_middle_initial,omitempty"`
	PatientDOB           string `json:"patient_dob"`
	PatientSex           string `json:"patient_sex"`
	PatientAddress       string `json:"patient_address,omitempty"`
	PatientCity          string `json:"patient_city,omitempty"`
	PatientState         string `json:"patient_state,omitempty"`
	PatientZip           string `json:"patient_zip,omitempty"`
	PatientPhone         string `json:"patient_phone,omitempty"`

	// Item 4
	InsuredName string `json:"insured_name,omitempty"`

	// Item 6
	PatientRelationshipSelf   bool `json:"patient_relationship_self"`
	PatientRelationshipSpouse bool `json:"patient_relationship_spouse"`
	PatientRelationshipChild  bool `json:"patient_relationship_child"`
	PatientRelationshipOther  bool `json:"patient_relationship_other"`

	// Item 7
	InsuredAddress string `json:"insured_address,omitempty"`
	InsuredCity    string `json:"insured_city,omitempty"`
	InsuredState   string `json:"insured_state,omitempty"`
	InsuredZip     string `json:"insured_zip,omitempty"`
	InsuredPhone   string `json:"insured_phone,omitempty"`

	// Item 9
	OtherInsuredName   string `json:"other_insured_name,omitempty"`
	OtherInsuredPolicy string `json:"other_insured_policy,omitempty"`

	// Item 10
	ConditionRelatedEmployment    bool   `json:"condition_related_employment"`
	ConditionRelatedAutoAccident  bool   `json:"condition_related_auto_accident"`
	AutoAccidentState             string `json:"auto_accident_state,omitempty"`
	ConditionRelatedOtherAccident bool   `json:"condition_related_other_accident"`

	// Item 11
	InsuredPolicyGroup string `json:"insured_policy_group,omitempty"`
	InsuredDOB         string `json:"insured_dob,omitempty"`
	InsuredSex         string `json:"insured_sex,omitempty"`
	InsurancePlanName  string `json:"insurance_plan_name,omitempty"`

	// Items 12, 13
	PatientSignature string `json:"patient_signature,omitempty"`
	InsuredSignature string `json:"insured_signature,omitempty"`

	// Item 14
	DateOfCurrentIllness string `json:"date_of_current_illness,omitempty"`
	IllnessQualifier     string `json:"illness_qualifier,omitempty"`

	// Item 17
	ReferringProviderName string `json:"referring_provider_name,omitempty"`
	ReferringProviderNPI  string `json:"referring_provider_npi,omitempty"`

	// Item 19
	AdditionalClaimInfo string `json:"additional_claim_info,omitempty"`

	// Item 21
	ICDIndicator string `json:"icd_indicator"`
	DiagnosisA   string `json:"diagnosis_a,omitempty"`
	DiagnosisB   string `json:"diagnosis_b,omitempty"`
	DiagnosisC   string `json:"diagnosis_c,omitempty"`
	DiagnosisD   string `json:"diagnosis_d,omitempty"`
	DiagnosisE   string `json:"diagnosis_e,omitempty"`
	DiagnosisF   string `json:"diagnosis_f,omitempty"`
	DiagnosisG   string `json:"diagnosis_g,omitempty"`
	DiagnosisH   string `json:"diagnosis_h,omitempty"`
	DiagnosisI   string `json:"diagnosis_i,omitempty"`
	DiagnosisJ   string `json:"diagnosis_j,omitempty"`
	DiagnosisK   string `json:"diagnosis_k,omitempty"`
	DiagnosisL   string `json:"diagnosis_l,omitempty"`

	// Items 22, 23
	ResubmissionCode         string `json:"resubmission_code,omitempty"`
	OriginalRefNo            string `json:"original_ref_no,omitempty"`
	PriorAuthorizationNumber string `json:"prior_authorization_number,omitempty"`

	// Item 24
	ServiceLines []ServiceLine `json:"service_lines"`

	// Item 25
	FederalTaxID string `json:"federal_tax_id,omitempty"`
	TaxIDTypeSSN bool   `json:"tax_id_type_ssn"`
	TaxIDTypeEIN bool   `json:"tax_id_type_ein"`

	// Items 26-29
	PatientAccountNumber string   `json:"patient_account_number,omitempty"`
	AcceptAssignment     bool     `json:"accept_assignment"`
	TotalCharge          float64  `json:"total_charge"`
	AmountPaid           *float64 `json:"amount_paid,omitempty"`

	// Item 31
	PhysicianSignature string `json:"physician_signature,omitempty"`

	// Item 32
	ServiceFacilityName    string `json:"service_facility_name,omitempty"`
	ServiceFacilityAddress string `json:"service_facility_address,omitempty"`
	ServiceFacilityCity    string `json:"service_facility_city,omitempty"`
	ServiceFacilityState   string `json:"service_facility_state,omitempty"`
	ServiceFacilityZip     string `json:"service_facility_zip,omitempty"`
	ServiceFacilityNPI     string `json:"service_facility_npi,omitempty"`

	// Item 33
	BillingProviderName     string `json:"billing_provider_name,omitempty"`
	BillingProviderAddress  string `json:"billing_provider_address,omitempty"`
	BillingProviderCity     string `json:"billing_provider_city,omitempty"`
	BillingProviderState    string `json:"billing_provider_state,omitempty"`
	BillingProviderZip      string `json:"billing_provider_zip,omitempty"`
	BillingProviderPhone    string `json:"billing_provider_phone,omitempty"`
	BillingProviderNPI      string `json:"billing_provider_npi,omitempty"`
	BillingProviderTaxonomy string `json:"billing_provider_taxonomy,omitempty"`

	FormVersion string `json:"form_version"`
}

// NewDraftClaim returns a claim carrying the form defaults and no service
// lines yet.
func NewDraftClaim() *Claim {
	return &Claim{
		ICDIndicator:       ICDIndicator10,
		PatientSignature:   SignatureOnFile,
		InsuredSignature:   SignatureOnFile,
		PhysicianSignature: SignatureOnFile,
		FormVersion:        FormVersion,
	}
}

// NewClaim returns a claim with form defaults and the given service lines.
func NewClaim(lines ...ServiceLine) (*Claim, error) {
	c := NewDraftClaim()
	if err := c.SetServiceLines(lines); err != nil {
		return nil, err
	}
	return c, nil
}

// SetServiceLines replaces the claim's service lines after checking the
// construction contract: one to six lines, pointer letters in A..L,
// non-negative charges and at least one unit.
func (c *Claim) SetServiceLines(lines []ServiceLine) error {
	switch {
	case len(lines) == 0:
		return ErrNoServiceLines
	case len(lines) > MaxServiceLines:
		return fmt.Errorf("%w: got %d", ErrTooManyServiceLines, len(lines))
	}
	if err := validate.Struct(serviceLineSet{Lines: lines}); err != nil {
		return fmt.Errorf("invalid service lines: %w", err)
	}
	c.ServiceLines = append([]ServiceLine(nil), lines...)
	return nil
}

func (c *Claim) diagnosisSlot(letter string) *string {
	switch letter {
	case "A":
		return &c.DiagnosisA
	case "B":
		return &c.DiagnosisB
	case "C":
		return &c.DiagnosisC
	case "D":
		return &c.DiagnosisD
	case "E":
		return &c.DiagnosisE
	case "F":
		return &c.DiagnosisF
	case "G":
		return &c.DiagnosisG
	case "H":
		return &c.DiagnosisH
	case "I":
		return &c.DiagnosisI
	case "J":
		return &c.DiagnosisJ
	case "K":
		return &c.DiagnosisK
	case "L":
		return &c.DiagnosisL
	}
	return nil
}

// Diagnosis returns the code in the slot for letter, or "".
func (c *Claim) Diagnosis(letter string) string {
	if p := c.diagnosisSlot(letter); p != nil {
		return *p
	}
	return ""
}

// SetDiagnosis stores code in the slot for letter. It reports false when the
// letter is not in A..L.
func (c *Claim) SetDiagnosis(letter, code string) bool {
	p := c.diagnosisSlot(letter)
	if p == nil {
		return false
	}
	*p = code
	return true
}

// Diagnoses returns the non-empty diagnosis slots keyed by letter.
func (c *Claim) Diagnoses() map[string]string {
	out := make(map[string]string)
	for i := 0; i < MaxDiagnosisLetters; i++ {
		letter := DiagnosisLetter(i)
		if code := c.Diagnosis(letter); code != "" {
			out[letter] = code
		}
	}
	return out
}
