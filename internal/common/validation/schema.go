// Package validation checks incoming profile documents against JSON
// schemas before they reach the store or the score engine.
package validation

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	apperrors "nest-readiness/internal/common/errors"
)

// profileProperties is shared by the complete and the partial schema.
const profileProperties = `{
	"age":                {"type": "integer", "minimum": 18, "maximum": 120},
	"livingSituation":    {"type": "string", "enum": ["alone", "with-partner", "with-family", "assisted-living", "other"]},
	"maritalStatus":      {"type": "string", "enum": ["single", "married", "partnered", "divorced", "widowed"]},
	"incomeRange":        {"type": "number", "minimum": 0},
	"pensionSavings":     {"type": "number", "minimum": 0},
	"householdSavings":   {"type": "number", "minimum": 0},
	"hasInsurance":       {"type": "boolean"},
	"insuranceTypes":     {
		"type": "array",
		"uniqueItems": true,
		"items": {"type": "string", "enum": ["health", "life", "long-term-care", "disability", "home", "supplemental"]}
	},
	"healthStatus":       {"type": "string", "enum": ["excellent", "good", "okay", "needs-help"]},
	"planningConfidence": {"type": "integer", "minimum": %d, "maximum": 5}
}`

// ProfileSchema is a profile submitted at the end of the readiness flow.
var ProfileSchema = fmt.Sprintf(`{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"properties": %s,
	"required": ["age", "incomeRange", "pensionSavings", "hasInsurance", "healthStatus", "planningConfidence"],
	"additionalProperties": false
}`, fmt.Sprintf(profileProperties, 1))

// PartialProfileSchema accepts the answers collected so far during
// onboarding. A planning confidence of 0 means not answered yet.
var PartialProfileSchema = fmt.Sprintf(`{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"properties": %s,
	"additionalProperties": false
}`, fmt.Sprintf(profileProperties, 0))

// Validator holds the compiled schemas.
type Validator struct {
	profile *gojsonschema.Schema
	partial *gojsonschema.Schema
}

func NewValidator() (*Validator, error) {
	profile, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(ProfileSchema))
	if err != nil {
		return nil, fmt.Errorf("compile profile schema: %w", err)
	}
	partial, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(PartialProfileSchema))
	if err != nil {
		return nil, fmt.Errorf("compile partial profile schema: %w", err)
	}
	return &Validator{profile: profile, partial: partial}, nil
}

// ValidateProfile checks a complete profile document.
func (v *Validator) ValidateProfile(doc []byte) error {
	return validate(v.profile, doc)
}

// ValidateOnboarding checks a partial profile document.
func (v *Validator) ValidateOnboarding(doc []byte) error {
	return validate(v.partial, doc)
}

func validate(schema *gojsonschema.Schema, doc []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return apperrors.NewInvalidRequestError(fmt.Sprintf("malformed JSON: %v", err))
	}
	if result.Valid() {
		return nil
	}

	violations := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		violations[i] = desc.String()
	}
	return apperrors.NewProfileValidationError(violations)
}
