// Package validation checks externally owned rows before the engine acts on
// them. The profile store is written by other systems and its rows are not
// trusted at face value.
package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	stderrors "applybot/internal/common/errors"
	"applybot/internal/models"
)

const applicantSchema = `{
	"type": "object",
	"required": ["user_id", "job_title", "linkedin_email", "linkedin_password"],
	"properties": {
		"user_id":           {"type": "string", "minLength": 1},
		"first_name":        {"type": "string"},
		"last_name":         {"type": "string"},
		"email":             {"type": "string"},
		"job_title":         {"type": "string", "minLength": 1},
		"job_location":      {"type": "string"},
		"linkedin_email":    {"type": "string", "minLength": 3, "pattern": "@"},
		"linkedin_password": {"type": "string", "minLength": 1},
		"current_ctc":       {"type": "string"},
		"expected_ctc":      {"type": "string"},
		"notice_period":     {"type": "string"}
	}
}`

var applicantSchemaLoader = gojsonschema.NewStringLoader(applicantSchema)

// ValidateApplicant verifies that a profile row carries everything the engine
// needs to act on the applicant's behalf.
func ValidateApplicant(a *models.Applicant) error {
	doc, err := json.Marshal(a)
	if err != nil {
		return stderrors.NewApplicantValidationFailedError(err.Error())
	}

	result, err := gojsonschema.Validate(applicantSchemaLoader, gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return stderrors.NewApplicantValidationFailedError(err.Error())
	}
	if result.Valid() {
		return nil
	}

	var problems []string
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return stderrors.NewApplicantValidationFailedError(
		fmt.Sprintf("applicant %s: %s", a.ID, strings.Join(problems, "; ")),
	)
}
