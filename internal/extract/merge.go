package extract

import (
	"strings"

	"github.com/gyeh/claimforge/internal/model"
	"github.com/gyeh/claimforge/internal/modelclient"
	"github.com/gyeh/claimforge/internal/normalize"
)

// Confidence assumed for model codes that do not state one.
const defaultModelConfidence = 0.8

// fieldPolicy binds a model response key to the record field it may fill.
// A pattern value already in the field always wins.
type fieldPolicy[T any] struct {
	key   string
	field func(*T) *string
	clean func(string) string
}

var patientPolicy = []fieldPolicy[model.PatientInfo]{
	{"first_name", func(p *model.PatientInfo) *string { return &p.FirstName }, normalize.CleanText},
	{"middle_name", func(p *model.PatientInfo) *string { return &p.MiddleName }, normalize.CleanText},
	{"last_name", func(p *model.PatientInfo) *string { return &p.LastName }, normalize.CleanText},
	{"dob", func(p *model.PatientInfo) *string { return &p.DOB }, normalize.ToISODate},
	{"sex", func(p *model.PatientInfo) *string { return &p.Sex }, normalize.NormalizeSex},
	{"address", func(p *model.PatientInfo) *string { return &p.Address }, normalize.CleanText},
	{"city", func(p *model.PatientInfo) *string { return &p.City }, normalize.CleanText},
	{"state", func(p *model.PatientInfo) *string { return &p.State }, upperTrim},
	{"zip_code", func(p *model.PatientInfo) *string { return &p.ZipCode }, normalize.CleanText},
	{"phone", func(p *model.PatientInfo) *string { return &p.Phone }, normalize.CleanText},
	{"marital_status", func(p *model.PatientInfo) *string { return &p.MaritalStatus }, normalize.CleanText},
	{"employment_status", func(p *model.PatientInfo) *string { return &p.EmploymentStatus }, normalize.CleanText},
}

var insurancePolicy = []fieldPolicy[model.InsuranceInfo]{
	{"insurance_name", func(i *model.InsuranceInfo) *string { return &i.InsuranceName }, normalize.CleanText},
	{"plan_name", func(i *model.InsuranceInfo) *string { return &i.PlanName }, normalize.CleanText},
	{"policy_number", func(i *model.InsuranceInfo) *string { return &i.PolicyNumber }, upperTrim},
	{"group_number", func(i *model.InsuranceInfo) *string { return &i.GroupNumber }, upperTrim},
	{"subscriber_name", func(i *model.InsuranceInfo) *string { return &i.SubscriberName }, normalize.CleanText},
	{"subscriber_relationship", func(i *model.InsuranceInfo) *string { return &i.SubscriberRelationship }, titleWord},
	{"subscriber_dob", func(i *model.InsuranceInfo) *string { return &i.SubscriberDOB }, normalize.ToISODate},
	{"payer_id", func(i *model.InsuranceInfo) *string { return &i.PayerID }, upperTrim},
}

var providerPolicy = []fieldPolicy[model.ProviderInfo]{
	{"provider_name", func(p *model.ProviderInfo) *string { return &p.ProviderName }, normalize.CleanText},
	{"provider_npi", func(p *model.ProviderInfo) *string { return &p.ProviderNPI }, digitsOnly},
	{"facility_name", func(p *model.ProviderInfo) *string { return &p.FacilityName }, normalize.CleanText},
	{"facility_npi", func(p *model.ProviderInfo) *string { return &p.FacilityNPI }, digitsOnly},
	{"facility_address", func(p *model.ProviderInfo) *string { return &p.FacilityAddress }, normalize.CleanText},
	{"facility_city", func(p *model.ProviderInfo) *string { return &p.FacilityCity }, normalize.CleanText},
	{"facility_state", func(p *model.ProviderInfo) *string { return &p.FacilityState }, upperTrim},
	{"facility_zip", func(p *model.ProviderInfo) *string { return &p.FacilityZip }, normalize.CleanText},
	{"phone", func(p *model.ProviderInfo) *string { return &p.Phone }, normalize.CleanText},
	{"tax_id", func(p *model.ProviderInfo) *string { return &p.TaxID }, normalize.CleanText},
	{"taxonomy_code", func(p *model.ProviderInfo) *string { return &p.TaxonomyCode }, upperTrim},
}

// mergeFields fills empty fields of dst from src according to policy and
// returns how many fields the model supplied.
func mergeFields[T any](dst *T, src map[string]any, policy []fieldPolicy[T]) int {
	if src == nil {
		return 0
	}
	filled := 0
	for _, fp := range policy {
		f := fp.field(dst)
		if *f != "" {
			continue
		}
		v := modelclient.String(src, fp.key)
		if fp.clean != nil {
			v = fp.clean(v)
		}
		if v == "" {
			continue
		}
		*f = v
		filled++
	}
	return filled
}

func upperTrim(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func modelConfidence(m map[string]any) float64 {
	c, ok := modelclient.Float(m, "confidence")
	if !ok {
		return defaultModelConfidence
	}
	return normalize.Clamp(c, 0, 1)
}

// modelDiagnoses converts the response's diagnosis list, dropping entries
// whose code is not ICD-10 shaped.
func modelDiagnoses(resp map[string]any) []model.DiagnosisCode {
	var out []model.DiagnosisCode
	for _, d := range modelclient.Objects(resp, "diagnoses") {
		code := normalize.NormalizeICD10(modelclient.String(d, "code"))
		if !model.IsICD10(code) {
			continue
		}
		out = append(out, model.DiagnosisCode{
			Code:        code,
			Description: normalize.CleanText(modelclient.String(d, "description")),
			Confidence:  modelConfidence(d),
		})
	}
	return out
}

// modelProcedures converts the response's procedure list, dropping entries
// whose code is neither CPT nor HCPCS shaped.
func modelProcedures(resp map[string]any) []model.ProcedureCode {
	var out []model.ProcedureCode
	for _, p := range modelclient.Objects(resp, "procedures") {
		code, mod := normalize.SplitModifier(modelclient.String(p, "code"))
		if !model.IsProcedureCode(code) {
			continue
		}
		if mod == "" {
			mod = normalize.NormalizeCode(modelclient.String(p, "modifier"))
		}
		pc := model.ProcedureCode{
			Code:        code,
			Modifier:    mod,
			Description: normalize.CleanText(modelclient.String(p, "description")),
			Confidence:  modelConfidence(p),
		}
		if charge, ok := modelclient.Float(p, "charge"); ok && charge >= 0 {
			pc.Charge = &charge
		}
		for _, l := range modelclient.Strings(p, "diagnosis_pointers") {
			if l = strings.ToUpper(l); model.IsDiagnosisLetter(l) {
				pc.DiagnosisPointers = append(pc.DiagnosisPointers, l)
			}
		}
		out = append(out, pc)
	}
	return out
}
