// Package claim projects extracted data and a coding result onto a CMS-1500
// claim.
package claim

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/gyeh/claimforge/internal/coding"
	"github.com/gyeh/claimforge/internal/model"
	"github.com/gyeh/claimforge/internal/normalize"
)

// DefaultPlaceOfService is the office place-of-service code.
const DefaultPlaceOfService = "11"

// Builder assembles claims. It holds no per-claim state and is safe for
// concurrent use.
type Builder struct {
	defaultPOS string
	log        zerolog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(b *Builder) { b.log = log }
}

// WithDefaultPlaceOfService sets the place of service used when neither the
// procedure nor the document names one.
func WithDefaultPlaceOfService(pos string) Option {
	return func(b *Builder) {
		if pos != "" {
			b.defaultPOS = pos
		}
	}
}

// New returns a Builder.
func New(opts ...Option) *Builder {
	b := &Builder{defaultPOS: DefaultPlaceOfService, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build derives a claim from extracted data and a coding result, either of
// which may be nil, then applies overrides in order. Overrides always win.
// A claim derived from sparse input may have no service lines; the
// validator reports that.
func (b *Builder) Build(extracted *model.ExtractedData, cr *model.CodingResult, overrides ...Override) (*model.Claim, error) {
	c := model.NewDraftClaim()
	if extracted == nil {
		extracted = &model.ExtractedData{}
	}
	if cr == nil {
		cr = codingFromExtracted(extracted)
	}

	mapPatient(c, extracted.Patient)
	mapInsurance(c, extracted.Insurance, extracted.Patient)
	mapProvider(c, extracted.Provider)
	mapDates(c, extracted)
	mapDiagnoses(c, cr)

	lines, err := b.serviceLines(cr, extracted)
	if err != nil {
		return nil, err
	}
	if len(lines) > 0 {
		if err := c.SetServiceLines(lines); err != nil {
			return nil, err
		}
	}
	c.TotalCharge = TotalCharge(c.ServiceLines)

	for _, o := range overrides {
		if err := o(c); err != nil {
			return nil, fmt.Errorf("apply claim override: %w", err)
		}
	}

	b.log.Debug().
		Int("service_lines", len(c.ServiceLines)).
		Int("diagnoses", len(c.Diagnoses())).
		Float64("total_charge", c.TotalCharge).
		Msg("claim built")
	return c, nil
}

// codingFromExtracted gives a claim built without a coding pass the
// extracted codes in document order, with pointers linked the same way a
// coding pass links them.
func codingFromExtracted(d *model.ExtractedData) *model.CodingResult {
	dx := coding.FromDiagnoses(d.Diagnoses)
	procs := coding.FromProcedures(d.Procedures)
	letters := coding.AssignLetters(dx)
	r := &model.CodingResult{
		Diagnoses:             dx,
		Procedures:            procs,
		DiagnosisLetters:      letters,
		DiagnosisProcedureMap: coding.MapDiagnosesToProcedures(dx, procs, letters),
	}
	coding.BackfillPointers(r)
	return r
}

// TotalCharge sums charge × units over the lines in cents and returns
// dollars.
func TotalCharge(lines []model.ServiceLine) float64 {
	var cents int64
	for _, l := range lines {
		cents += normalize.LineTotalCents(l.Charges, l.DaysOrUnits)
	}
	return normalize.CentsToDollars(cents)
}

// claimDate renders a source date as MM DD YYYY. Dates in no known layout
// pass through so the validator can report them.
func claimDate(s string) string {
	if iso := normalize.ToISODate(s); iso != "" {
		return normalize.ToClaimDate(iso)
	}
	return strings.TrimSpace(s)
}

func mapPatient(c *model.Claim, p *model.PatientInfo) {
	if p == nil {
		return
	}
	c.PatientLastName = p.LastName
	c.PatientFirstName = p.FirstName
	if p.MiddleName != "" {
		r, _ := utf8.DecodeRuneInString(p.MiddleName)
		c.PatientMiddleInitial = string(unicode.ToUpper(r))
	}
	if p.DOB != "" {
		c.PatientDOB = claimDate(p.DOB)
	}
	c.PatientSex = p.Sex
	c.PatientAddress = p.Address
	c.PatientCity = p.City
	c.PatientState = p.State
	c.PatientZip = p.ZipCode
	c.PatientPhone = p.Phone
}

func mapInsurance(c *model.Claim, ins *model.InsuranceInfo, p *model.PatientInfo) {
	var rel string
	if ins != nil {
		rel = ins.SubscriberRelationship
	}
	switch normalize.NormalizeRelationship(rel) {
	case normalize.RelationshipSelf:
		c.PatientRelationshipSelf = true
	case normalize.RelationshipSpouse:
		c.PatientRelationshipSpouse = true
	case normalize.RelationshipChild:
		c.PatientRelationshipChild = true
	default:
		c.PatientRelationshipOther = true
	}

	if c.PatientRelationshipSelf && p != nil {
		c.InsuredAddress = p.Address
		c.InsuredCity = p.City
		c.InsuredState = p.State
		c.InsuredZip = p.ZipCode
		c.InsuredPhone = p.Phone
	}
	if ins == nil {
		return
	}

	c.CarrierName = ins.InsuranceName
	c.CarrierAddress = joinNonEmpty(", ", ins.InsuranceAddress, ins.InsuranceCity,
		joinNonEmpty(" ", ins.InsuranceState, ins.InsuranceZip))
	c.PayerID = ins.PayerID
	c.InsuredIDNumber = ins.PolicyNumber
	c.InsuredName = ins.SubscriberName
	c.InsuredPolicyGroup = ins.GroupNumber
	c.InsurancePlanName = ins.PlanName
	if c.InsurancePlanName == "" {
		c.InsurancePlanName = ins.InsuranceName
	}
	if ins.SubscriberDOB != "" {
		c.InsuredDOB = claimDate(ins.SubscriberDOB)
	}
	c.InsuranceTypeGroupHealth = ins.InsuranceName != "" || ins.PolicyNumber != ""
}

func mapProvider(c *model.Claim, p *model.ProviderInfo) {
	if p == nil {
		return
	}
	c.ReferringProviderName = p.ProviderName
	c.ReferringProviderNPI = p.ProviderNPI

	if p.TaxID != "" {
		c.FederalTaxID = p.TaxID
		switch normalize.TaxIDType(p.TaxID) {
		case normalize.TaxIDSSN:
			c.TaxIDTypeSSN = true
		default:
			c.TaxIDTypeEIN = true
		}
	}

	c.ServiceFacilityName = p.FacilityName
	c.ServiceFacilityNPI = p.FacilityNPI
	c.ServiceFacilityAddress = p.FacilityAddress
	c.ServiceFacilityCity = p.FacilityCity
	c.ServiceFacilityState = p.FacilityState
	c.ServiceFacilityZip = p.FacilityZip

	c.BillingProviderName = firstNonEmpty(p.FacilityName, p.ProviderName)
	c.BillingProviderNPI = firstNonEmpty(p.FacilityNPI, p.ProviderNPI)
	c.BillingProviderAddress = p.FacilityAddress
	c.BillingProviderCity = p.FacilityCity
	c.BillingProviderState = p.FacilityState
	c.BillingProviderZip = p.FacilityZip
	c.BillingProviderPhone = p.Phone
	c.BillingProviderTaxonomy = p.TaxonomyCode
}

func mapDates(c *model.Claim, d *model.ExtractedData) {
	if v := d.Dates[model.DateIllness]; v != "" {
		c.DateOfCurrentIllness = claimDate(v)
		c.IllnessQualifier = "431"
	}
	if v, ok := d.Amounts[model.AmountPaid]; ok {
		paid := v
		c.AmountPaid = &paid
	}
}

func mapDiagnoses(c *model.Claim, cr *model.CodingResult) {
	c.ICDIndicator = model.ICDIndicator10
	for _, a := range cr.DiagnosisLetters {
		c.SetDiagnosis(a.Letter, a.Code)
	}
}

func (b *Builder) serviceLines(cr *model.CodingResult, d *model.ExtractedData) ([]model.ServiceLine, error) {
	procs := cr.Procedures
	if len(procs) > model.MaxServiceLines {
		b.log.Warn().
			Int("procedures", len(procs)).
			Int("max", model.MaxServiceLines).
			Msg("dropping procedures beyond the service line limit")
		procs = procs[:model.MaxServiceLines]
	}

	var npi string
	if d.Provider != nil {
		npi = d.Provider.ProviderNPI
	}
	lines := make([]model.ServiceLine, 0, len(procs))
	for _, p := range procs {
		line, err := model.NewServiceLine(b.serviceLine(p, d, npi))
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (b *Builder) serviceLine(p model.CodeSuggestion, d *model.ExtractedData, npi string) model.ServiceLine {
	md := p.Metadata

	code, mod := normalize.SplitModifier(p.Code)
	if md.Modifier != "" {
		mod = md.Modifier
	}

	var dateFrom string
	switch {
	case md.DateOfService != "":
		dateFrom = claimDate(md.DateOfService)
	case d.Dates[model.DateService] != "":
		dateFrom = claimDate(d.Dates[model.DateService])
	}

	charge := 0.0
	if md.Charge != nil {
		charge = *md.Charge
	}
	units := md.Units
	if units < 1 {
		units = model.DefaultUnits
	}

	pointer := strings.Join(md.DiagnosisPointers, "")
	if pointer == "" {
		pointer = "A"
	}

	line := model.ServiceLine{
		DateFrom:            dateFrom,
		PlaceOfService:      firstNonEmpty(md.PlaceOfService, d.Metadata[model.MetaPlaceOfService], b.defaultPOS),
		CPTHCPCS:            code,
		Modifier1:           mod,
		DiagnosisPointer:    pointer,
		Charges:             charge,
		DaysOrUnits:         units,
		RenderingProviderID: npi,
	}
	if npi != "" {
		line.IDQualifier = "NPI"
	}
	return line
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func joinNonEmpty(sep string, vals ...string) string {
	var parts []string
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, sep)
}
