// internal/models/applicant.go
package models

// Applicant is one row of the applicant source. Owned by the external profile
// store; read-only to the engine.
type Applicant struct {
	ID                 string `json:"user_id"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	Email              string `json:"email"`
	PhoneCountryCode   string `json:"phone_country_code"`
	Phone              string `json:"phone_number"`
	JobTitle           string `json:"job_title"`
	JobLocation        string `json:"job_location"`
	CurrentLocation    string `json:"current_location"`
	PreferredLocation  string `json:"preferred_location"`
	City               string `json:"city"`
	PostalCode         string `json:"postal_code"`
	CurrentCTC         string `json:"current_ctc"`
	ExpectedCTC        string `json:"expected_ctc"`
	TotalExperience    string `json:"total_experience"`
	RelevantExperience string `json:"relevant_experience"`
	NoticePeriod       string `json:"notice_period"`
	LinkedInEmail      string `json:"linkedin_email"`
	LinkedInPassword   string `json:"linkedin_password"`
	LinkedInURL        string `json:"linkedin_url"`
	CoverLetter        string `json:"cover_letter"`
	ResumeURL          string `json:"resume_url"`
	Status             string `json:"status"`
}

// Eligible reports whether the applicant can be processed by the bot. Only
// rows with both credential fields populated are eligible.
func (a *Applicant) Eligible() bool {
	return a.LinkedInEmail != "" && a.LinkedInPassword != ""
}

// FullName is used for log context only.
func (a *Applicant) FullName() string {
	return a.FirstName + " " + a.LastName
}
