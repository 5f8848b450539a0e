package extract

import (
	"regexp"
	"strings"

	"github.com/gyeh/claimforge/internal/model"
	"github.com/gyeh/claimforge/internal/normalize"
)

const datePart = `(\d{4}-\d{2}-\d{2}|\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`

var (
	patientNameRe = regexp.MustCompile(`(?im)^[ \t]*patient(?:[ \t]+name)?[ \t]*:[ \t]*(.+)$`)
	dobRe         = regexp.MustCompile(`(?i)\b(?:dob|d\.o\.b\.?|date[ \t]+of[ \t]+birth|birth[ \t]*date)[ \t]*[:#]?[ \t]*` + datePart)
	sexRe         = regexp.MustCompile(`(?i)\b(?:sex|gender)[ \t]*:?[ \t]*(male|female|unknown|m|f|u)\b`)
	phoneRe       = regexp.MustCompile(`(?im)^[ \t]*(?:patient[ \t]+)?(?:phone|tel|telephone)(?:[ \t]+(?:number|no\.?))?[ \t]*:?[ \t]*(\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4})`)
	addressRe     = regexp.MustCompile(`(?im)^[ \t]*(?:patient[ \t]+)?address[ \t]*:[ \t]*(.+)$`)
	cityRe        = regexp.MustCompile(`(?im)^[ \t]*(?:patient[ \t]+)?city[ \t]*:[ \t]*(.+)$`)
	stateRe       = regexp.MustCompile(`(?im)^[ \t]*(?:patient[ \t]+)?state[ \t]*:[ \t]*([A-Za-z]{2})\b`)
	zipRe         = regexp.MustCompile(`(?im)^[ \t]*(?:patient[ \t]+)?zip(?:[ \t]*code)?[ \t]*:[ \t]*(\d{5}(?:-\d{4})?)`)
	maritalRe     = regexp.MustCompile(`(?im)^[ \t]*marital[ \t]+status[ \t]*:[ \t]*(single|married|divorced|widowed|separated|other)\b`)
	employmentRe  = regexp.MustCompile(`(?im)^[ \t]*employment(?:[ \t]+status)?[ \t]*:[ \t]*(employed|unemployed|retired|student|full[- ]time[ \t]+student|part[- ]time[ \t]+student)\b`)

	insuranceNameRe  = regexp.MustCompile(`(?im)^[ \t]*(?:insurance|payer|carrier)(?:[ \t]+(?:company|name|carrier))?[ \t]*:[ \t]*(.+)$`)
	planNameRe       = regexp.MustCompile(`(?im)^[ \t]*(?:insurance[ \t]+)?plan(?:[ \t]+name)?[ \t]*:[ \t]*(.+)$`)
	policyRe         = regexp.MustCompile(`(?i)\b(?:policy|member|subscriber)[ \t]*(?:number|#|no\.?|id)[ \t]*:?[ \t]*#?[ \t]*([A-Z0-9][A-Z0-9-]{2,})`)
	groupRe          = regexp.MustCompile(`(?i)\bgroup(?:[ \t]*(?:number|#|no\.?|id))?[ \t]*:[ \t]*#?[ \t]*([A-Z0-9][A-Z0-9-]+)`)
	subscriberNameRe = regexp.MustCompile(`(?im)^[ \t]*(?:subscriber|insured|policy[ \t]*holder)[ \t]+name[ \t]*:[ \t]*(.+)$`)
	relationshipRe   = regexp.MustCompile(`(?i)\brelationship(?:[ \t]+to[ \t]+(?:insured|subscriber))?[ \t]*:[ \t]*(self|spouse|child|other)\b`)
	subscriberRelRe  = regexp.MustCompile(`(?im)^[ \t]*subscriber[ \t]*:[ \t]*(self|spouse|child|other)\b`)
	subscriberDOBRe  = regexp.MustCompile(`(?i)\b(?:subscriber|insured)[ \t]+(?:dob|date[ \t]+of[ \t]+birth)[ \t]*:?[ \t]*` + datePart)
	payerIDRe        = regexp.MustCompile(`(?i)\bpayer[ \t]*id[ \t]*:?[ \t]*([A-Z0-9]{2,})`)

	providerNameRe    = regexp.MustCompile(`(?im)^[ \t]*(?:rendering[ \t]+provider|treating[ \t]+provider|attending(?:[ \t]+physician)?|provider|physician)(?:[ \t]+name)?[ \t]*:[ \t]*(.+)$`)
	npiRe             = regexp.MustCompile(`(?i)\b(?:([a-z]+)[ \t]+)?npi(?:[ \t]*(?:number|#|no\.?))?[ \t]*[:#]?[ \t]*(\d{10})\b`)
	facilityNameRe    = regexp.MustCompile(`(?im)^[ \t]*(?:service[ \t]+facility|facility|clinic|practice)(?:[ \t]+name)?[ \t]*:[ \t]*(.+)$`)
	facilityAddressRe = regexp.MustCompile(`(?im)^[ \t]*(?:service[ \t]+)?facility[ \t]+address[ \t]*:[ \t]*(.+)$`)
	providerPhoneRe   = regexp.MustCompile(`(?im)^[ \t]*(?:provider|office|facility|billing)[ \t]+(?:phone|tel|telephone)[ \t]*:?[ \t]*(\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4})`)
	taxIDRe           = regexp.MustCompile(`(?i)\b(?:federal[ \t]+)?(?:tax[ \t]*id|ein|tin)(?:[ \t]*(?:number|#|no\.?))?[ \t]*[:#]?[ \t]*(\d{3}-\d{2}-\d{4}|\d{2}-?\d{7})\b`)
	taxonomyRe        = regexp.MustCompile(`(?i)\btaxonomy(?:[ \t]+code)?[ \t]*:?[ \t]*([0-9A-Z]{9}X)\b`)

	serviceDateRe    = regexp.MustCompile(`(?i)\b(?:date[ \t]+of[ \t]+service|service[ \t]+date|visit[ \t]+date|dos)[ \t]*:?[ \t]*` + datePart)
	illnessDateRe    = regexp.MustCompile(`(?i)\b(?:date[ \t]+of[ \t]+(?:injury|onset|current[ \t]+illness)|onset[ \t]+date)[ \t]*:?[ \t]*` + datePart)
	placeOfServiceRe = regexp.MustCompile(`(?i)\b(?:place[ \t]+of[ \t]+service[ \t]*:?|pos[ \t]*:)[^\n\d]*?(\d{2})\b`)
	totalChargeRe    = regexp.MustCompile(`(?i)\btotal(?:[ \t]+(?:charges?|amount|billed))?[ \t]*:[ \t]*\$?[ \t]*(\d[\d,]*(?:\.\d{1,2})?)`)
	amountPaidRe     = regexp.MustCompile(`(?i)\bamount[ \t]+paid[ \t]*:?[ \t]*\$?[ \t]*(\d[\d,]*(?:\.\d{1,2})?)`)

	cityStateZipRe = regexp.MustCompile(`^(.+?),[ \t]*([^,]+?),[ \t]*([A-Za-z]{2})[ \t]+(\d{5}(?:-\d{4})?)$`)
	dependentRe    = regexp.MustCompile(`(?i)\b(?:subscriber|insured)\b`)
	insuranceCutRe = regexp.MustCompile(`(?i)[ \t,;]+policy\b.*$`)
	honorifics     = map[string]bool{"mr": true, "mrs": true, "ms": true, "miss": true, "dr": true}
)

// firstMatch returns the first capture group of the first match, trimmed.
func firstMatch(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// firstOf returns the first non-empty firstMatch across patterns, in order.
func firstOf(text string, res ...*regexp.Regexp) string {
	for _, re := range res {
		if v := firstMatch(re, text); v != "" {
			return v
		}
	}
	return ""
}

// firstMatchUnless is firstMatch, skipping matches whose line prefix matches skip.
func firstMatchUnless(re, skip *regexp.Regexp, text string) string {
	for _, idx := range re.FindAllStringSubmatchIndex(text, -1) {
		lineStart := strings.LastIndexByte(text[:idx[0]], '\n') + 1
		if skip.MatchString(text[lineStart:idx[0]]) {
			continue
		}
		return strings.TrimSpace(text[idx[2]:idx[3]])
	}
	return ""
}

// splitName parses "First [Middle] Last" or "Last, First [Middle]". It stops
// at the first token that is not a name word, so trailing labels on the same
// line are ignored.
func splitName(raw string) (first, middle, last string) {
	var tokens []string
	commaAfterFirst := false
	for _, tok := range strings.Fields(raw) {
		if strings.Contains(tok, ":") {
			break
		}
		hasComma := strings.HasSuffix(tok, ",")
		word := strings.Trim(tok, ",.")
		if !isNameWord(word) {
			break
		}
		if len(tokens) == 0 && honorifics[strings.ToLower(word)] {
			continue
		}
		tokens = append(tokens, word)
		if hasComma && len(tokens) == 1 {
			commaAfterFirst = true
		}
		if len(tokens) == 4 {
			break
		}
	}
	if len(tokens) < 2 {
		return "", "", ""
	}
	if commaAfterFirst {
		return tokens[1], strings.Join(tokens[2:], " "), tokens[0]
	}
	return tokens[0], strings.Join(tokens[1:len(tokens)-1], " "), tokens[len(tokens)-1]
}

func isNameWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r == '-' || r == '\'') {
			return false
		}
	}
	return true
}

// splitAddress splits "street, city, ST 12345". ok is false when the value
// does not have that shape.
func splitAddress(v string) (street, city, state, zip string, ok bool) {
	m := cityStateZipRe.FindStringSubmatch(strings.TrimSpace(v))
	if m == nil {
		return "", "", "", "", false
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), strings.ToUpper(m[3]), m[4], true
}

func titleWord(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToLower(s)
	return strings.ToUpper(s[:1]) + s[1:]
}

func extractPatient(text string) model.PatientInfo {
	var p model.PatientInfo
	if raw := firstMatch(patientNameRe, text); raw != "" {
		p.FirstName, p.MiddleName, p.LastName = splitName(raw)
	}
	p.DOB = normalize.ToISODate(firstMatchUnless(dobRe, dependentRe, text))
	p.Sex = normalize.NormalizeSex(firstMatch(sexRe, text))
	p.Phone = firstMatch(phoneRe, text)

	if addr := firstMatch(addressRe, text); addr != "" {
		if street, city, state, zip, ok := splitAddress(addr); ok {
			p.Address, p.City, p.State, p.ZipCode = street, city, state, zip
		} else {
			p.Address = normalize.CleanText(addr)
		}
	}
	if p.City == "" {
		p.City = normalize.CleanText(firstMatch(cityRe, text))
	}
	if p.State == "" {
		p.State = strings.ToUpper(firstMatch(stateRe, text))
	}
	if p.ZipCode == "" {
		p.ZipCode = firstMatch(zipRe, text)
	}
	p.MaritalStatus = titleWord(firstMatch(maritalRe, text))
	p.EmploymentStatus = normalize.NormalizeName(firstMatch(employmentRe, text))
	return p
}

func extractInsurance(text string) model.InsuranceInfo {
	var ins model.InsuranceInfo
	if name := firstMatch(insuranceNameRe, text); name != "" {
		ins.InsuranceName = normalize.CleanText(insuranceCutRe.ReplaceAllString(name, ""))
	}
	ins.PlanName = normalize.CleanText(firstMatch(planNameRe, text))
	ins.PolicyNumber = strings.ToUpper(firstMatch(policyRe, text))
	ins.GroupNumber = strings.ToUpper(firstMatch(groupRe, text))
	ins.SubscriberName = normalize.CleanText(firstMatch(subscriberNameRe, text))
	ins.SubscriberRelationship = titleWord(firstOf(text, relationshipRe, subscriberRelRe))
	ins.SubscriberDOB = normalize.ToISODate(firstMatch(subscriberDOBRe, text))
	ins.PayerID = strings.ToUpper(firstMatch(payerIDRe, text))
	return ins
}

// npiOwner classifies the word in front of "NPI".
func npiOwner(prefix string) string {
	switch strings.ToLower(prefix) {
	case "facility", "billing", "group", "organization", "organizational":
		return "facility"
	case "referring", "ordering", "supervising":
		return "other"
	}
	return "provider"
}

func extractProvider(text string) model.ProviderInfo {
	var p model.ProviderInfo
	p.ProviderName = normalize.CleanText(firstMatch(providerNameRe, text))

	for _, m := range npiRe.FindAllStringSubmatch(text, -1) {
		switch npiOwner(m[1]) {
		case "provider":
			if p.ProviderNPI == "" {
				p.ProviderNPI = m[2]
			}
		case "facility":
			if p.FacilityNPI == "" {
				p.FacilityNPI = m[2]
			}
		}
	}

	p.FacilityName = normalize.CleanText(firstMatch(facilityNameRe, text))
	if addr := firstMatch(facilityAddressRe, text); addr != "" {
		if street, city, state, zip, ok := splitAddress(addr); ok {
			p.FacilityAddress, p.FacilityCity, p.FacilityState, p.FacilityZip = street, city, state, zip
		} else {
			p.FacilityAddress = normalize.CleanText(addr)
		}
	}
	p.Phone = firstMatch(providerPhoneRe, text)
	p.TaxID = firstMatch(taxIDRe, text)
	p.TaxonomyCode = strings.ToUpper(firstMatch(taxonomyRe, text))
	return p
}

func extractDates(text string) map[string]string {
	dates := make(map[string]string)
	if d := normalize.ToISODate(firstMatch(serviceDateRe, text)); d != "" {
		dates[model.DateService] = d
	}
	if d := normalize.ToISODate(firstMatch(illnessDateRe, text)); d != "" {
		dates[model.DateIllness] = d
	}
	return dates
}

func extractAmounts(text string) map[string]float64 {
	amounts := make(map[string]float64)
	if v := normalize.ParseAmount(firstMatch(totalChargeRe, text)); v != nil {
		amounts[model.AmountTotalCharge] = *v
	}
	if v := normalize.ParseAmount(firstMatch(amountPaidRe, text)); v != nil {
		amounts[model.AmountPaid] = *v
	}
	return amounts
}
