package model

// PatientInfo holds patient demographics as extracted from a document.
type PatientInfo struct {
	FirstName        string `json:"first_name,omitempty"`
	MiddleName       string `json:"middle_name,omitempty"`
	LastName         string `json:"last_name,omitempty"`
	DOB              string `json:"dob,omitempty"` // YYYY-MM-DD
	Sex              string `json:"sex,omitempty"` // M, F or U
	Address          string `json:"address,omitempty"`
	City             string `json:"city,omitempty"`
	State            string `json:"state,omitempty"`
	ZipCode          string `json:"zip_code,omitempty"`
	Phone            string `json:"phone,omitempty"`
	MaritalStatus    string `json:"marital_status,omitempty"`
	EmploymentStatus string `json:"employment_status,omitempty"`
}

// IsZero reports whether no field has been filled.
func (p *PatientInfo) IsZero() bool {
	return p == nil || *p == PatientInfo{}
}

// InsuranceInfo holds coverage details for the primary payer.
type InsuranceInfo struct {
	InsuranceName          string `json:"insurance_name,omitempty"`
	PlanName               string `json:"plan_name,omitempty"`
	PolicyNumber           string `json:"policy_number,omitempty"`
	GroupNumber            string `json:"group_number,omitempty"`
	SubscriberName         string `json:"subscriber_name,omitempty"`
	SubscriberRelationship string `json:"subscriber_relationship,omitempty"`
	SubscriberDOB          string `json:"subscriber_dob,omitempty"`
	PayerID                string `json:"payer_id,omitempty"`
	InsuranceAddress       string `json:"insurance_address,omitempty"`
	InsuranceCity          string `json:"insurance_city,omitempty"`
	InsuranceState         string `json:"insurance_state,omitempty"`
	InsuranceZip           string `json:"insurance_zip,omitempty"`
}

// IsZero reports whether no field has been filled.
func (i *InsuranceInfo) IsZero() bool {
	return i == nil || *i == InsuranceInfo{}
}

// ProviderInfo holds the rendering provider and the facility.
type ProviderInfo struct {
	ProviderName    string `json:"provider_name,omitempty"`
	ProviderNPI     string `json:"provider_npi,omitempty"`
	FacilityName    string `json:"facility_name,omitempty"`
	FacilityNPI     string `json:"facility_npi,omitempty"`
	FacilityAddress string `json:"facility_address,omitempty"`
	FacilityCity    string `json:"facility_city,omitempty"`
	FacilityState   string `json:"facility_state,omitempty"`
	FacilityZip     string `json:"facility_zip,omitempty"`
	Phone           string `json:"phone,omitempty"`
	TaxID           string `json:"tax_id,omitempty"`
	TaxonomyCode    string `json:"taxonomy_code,omitempty"`
}

// IsZero reports whether no field has been filled.
func (p *ProviderInfo) IsZero() bool {
	return p == nil || *p == ProviderInfo{}
}

// DiagnosisCode is an ICD-10 code found in a document. The code string is
// its identity.
type DiagnosisCode struct {
	Code        string  `json:"code"`
	Description string  `json:"description,omitempty"`
	Confidence  float64 `json:"confidence"`
	SourceSpan  string  `json:"source_span,omitempty"`
}

// ProcedureCode is a CPT/HCPCS code found in a document. Code plus modifier
// identifies a service line.
type ProcedureCode struct {
	Code              string   `json:"code"`
	Modifier          string   `json:"modifier,omitempty"`
	Description       string   `json:"description,omitempty"`
	Charge            *float64 `json:"charge,omitempty"`
	Units             int      `json:"units,omitempty"`
	Confidence        float64  `json:"confidence"`
	DiagnosisPointers []string `json:"diagnosis_pointers,omitempty"`
	DateOfService     string   `json:"date_of_service,omitempty"`
	PlaceOfService    string   `json:"place_of_service,omitempty"`
	SourceSpan        string   `json:"source_span,omitempty"`
}

// Key returns the identity of the procedure: code, plus "-modifier" when set.
func (p ProcedureCode) Key() string {
	if p.Modifier == "" {
		return p.Code
	}
	return p.Code + "-" + p.Modifier
}

// Keys used in ExtractedData maps.
const (
	DateService = "service_date"
	DateIllness = "illness_date"

	AmountTotalCharge = "total_charge"
	AmountPaid        = "amount_paid"

	MetaExtractionMethod = "extraction_method"
	MetaPlaceOfService   = "place_of_service"
	MetaModelStatus      = "model_status"
)

// Values for MetaModelStatus.
const (
	ModelStatusDisabled = "disabled"
	ModelStatusOK       = "ok"
	ModelStatusFailed   = "failed"
)

// ExtractedData is everything the Extractor recovered from one document.
// It is built once and treated as read-only afterwards.
type ExtractedData struct {
	Patient              *PatientInfo       `json:"patient,omitempty"`
	Insurance            *InsuranceInfo     `json:"insurance,omitempty"`
	Provider             *ProviderInfo      `json:"provider,omitempty"`
	Diagnoses            []DiagnosisCode    `json:"diagnoses"`
	Procedures           []ProcedureCode    `json:"procedures"`
	Dates                map[string]string  `json:"dates,omitempty"`
	Amounts              map[string]float64 `json:"amounts,omitempty"`
	Metadata             map[string]string  `json:"metadata,omitempty"`
	ExtractionConfidence float64            `json:"extraction_confidence"`
}
