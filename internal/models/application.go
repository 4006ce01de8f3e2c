// internal/models/application.go
package models

import "time"

// ApplicationRecord is the persisted fact that an applicant submitted an
// application to a job. Created exactly once per confirmed submission;
// append-only, never mutated by the engine.
type ApplicationRecord struct {
	ID          string    `json:"id"`
	ApplicantID string    `json:"applicant_id"`
	JobTitle    string    `json:"job_title"`
	JobURL      string    `json:"job_url"`
	CompanyName string    `json:"company_name"`
	AppliedAt   time.Time `json:"applied_at"`
}
