// Package prompts holds the model prompt templates and the JSON shapes the
// model is asked to answer with.
package prompts

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/gyeh/claimforge/internal/modelclient"
)

//go:embed templates/extract_document.tmpl
var extractDocument string

//go:embed templates/code_mapping.tmpl
var codeMapping string

var (
	extractTmpl = template.Must(template.New("extract_document").Parse(extractDocument))
	codingTmpl  = template.Must(template.New("code_mapping").Parse(codeMapping))
)

// ExtractDocument renders the extraction prompt for text.
func ExtractDocument(text string) (string, error) {
	return render(extractTmpl, text)
}

// CodeMapping renders the code suggestion prompt for clinical notes.
func CodeMapping(notes string) (string, error) {
	return render(codingTmpl, notes)
}

func render(t *template.Template, text string) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, struct{ Text string }{text}); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t.Name(), err)
	}
	return b.String(), nil
}

// ExtractionSchema is the answer shape for ExtractDocument.
var ExtractionSchema = modelclient.Schema{
	"patient": map[string]any{
		"first_name":  "string or null",
		"middle_name": "string or null",
		"last_name":   "string or null",
		"dob":         "YYYY-MM-DD or null",
		"sex":         "M/F/U or null",
		"address":     "string or null",
		"city":        "string or null",
		"state":       "two-letter code or null",
		"zip_code":    "string or null",
		"phone":       "string or null",
	},
	"insurance": map[string]any{
		"insurance_name":          "string or null",
		"plan_name":               "string or null",
		"policy_number":           "string or null",
		"group_number":            "string or null",
		"subscriber_name":         "string or null",
		"subscriber_relationship": "Self/Spouse/Child/Other or null",
		"payer_id":                "string or null",
	},
	"provider": map[string]any{
		"provider_name": "string or null",
		"provider_npi":  "10 digits or null",
		"facility_name": "string or null",
		"facility_npi":  "10 digits or null",
		"tax_id":        "string or null",
	},
	"diagnoses": []any{map[string]any{
		"code":        "ICD-10 code",
		"description": "string",
		"confidence":  "number 0-1",
	}},
	"procedures": []any{map[string]any{
		"code":        "CPT/HCPCS code",
		"modifier":    "two characters or null",
		"description": "string",
		"charge":      "number or null",
		"confidence":  "number 0-1",
	}},
}

// CodingSchema is the answer shape for CodeMapping.
var CodingSchema = modelclient.Schema{
	"diagnoses": []any{map[string]any{
		"code":        "ICD-10-CM code",
		"description": "string",
		"rationale":   "string",
		"confidence":  "number 0-1",
	}},
	"procedures": []any{map[string]any{
		"code":               "CPT or HCPCS code",
		"modifier":           "two characters or null",
		"description":        "string",
		"rationale":          "string",
		"diagnosis_pointers": []any{"letter A-L"},
		"confidence":         "number 0-1",
	}},
}
