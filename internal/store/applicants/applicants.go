// Package applicants reads the externally owned profile store. The engine
// never writes to it.
package applicants

import (
	"context"
	"database/sql"
	"fmt"

	"applybot/internal/common/logger"
	"applybot/internal/common/validation"
	"applybot/internal/models"
)

// Store fetches applicant profiles from Postgres.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func New(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "applicants"}),
	}
}

const applicantColumns = `
	user_id, first_name, last_name, email, phone_country_code, phone_number,
	job_title, job_location, current_location, preferred_location, city,
	postal_code, current_ctc, expected_ctc, total_experience,
	relevant_experience, notice_period, linkedin_email, linkedin_password,
	linkedin_url, cover_letter, resume_url, status`

// Eligible returns every profile the bot may act on: rows with both surface
// credentials present. Rows that fail schema validation are logged and
// skipped; one malformed profile never blocks the cycle.
func (s *Store) Eligible(ctx context.Context) ([]models.Applicant, error) {
	query := `
		SELECT ` + applicantColumns + `
		FROM applicant_profiles
		WHERE linkedin_email IS NOT NULL AND linkedin_email <> ''
		  AND linkedin_password IS NOT NULL AND linkedin_password <> ''
		ORDER BY user_id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query applicant profiles: %w", err)
	}
	defer rows.Close()

	var applicants []models.Applicant
	for rows.Next() {
		a, err := scanApplicant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan applicant profile: %w", err)
		}
		if err := validation.ValidateApplicant(&a); err != nil {
			s.logger.Warn("skipping invalid applicant profile", map[string]interface{}{
				"applicantId": a.ID,
				"error":       err.Error(),
			})
			continue
		}
		applicants = append(applicants, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate applicant profiles: %w", err)
	}

	s.logger.Info("eligible applicants loaded", map[string]interface{}{
		"count": len(applicants),
	})
	return applicants, nil
}

// All returns every profile regardless of eligibility. Used by the export.
func (s *Store) All(ctx context.Context) ([]models.Applicant, error) {
	query := `
		SELECT ` + applicantColumns + `
		FROM applicant_profiles
		ORDER BY user_id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query applicant profiles: %w", err)
	}
	defer rows.Close()

	var applicants []models.Applicant
	for rows.Next() {
		a, err := scanApplicant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan applicant profile: %w", err)
		}
		applicants = append(applicants, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate applicant profiles: %w", err)
	}
	return applicants, nil
}

// scanApplicant maps one row. Every column except user_id is nullable in the
// profile store, so everything scans through NullString.
func scanApplicant(rows *sql.Rows) (models.Applicant, error) {
	var a models.Applicant
	var (
		firstName, lastName, email, phoneCC, phone           sql.NullString
		jobTitle, jobLocation, currentLoc, preferredLoc      sql.NullString
		city, postalCode, currentCTC, expectedCTC            sql.NullString
		totalExp, relevantExp, noticePeriod                  sql.NullString
		liEmail, liPassword, liURL, coverLetter, resumeURL   sql.NullString
		status                                               sql.NullString
	)

	if err := rows.Scan(
		&a.ID, &firstName, &lastName, &email, &phoneCC, &phone,
		&jobTitle, &jobLocation, &currentLoc, &preferredLoc, &city,
		&postalCode, &currentCTC, &expectedCTC, &totalExp,
		&relevantExp, &noticePeriod, &liEmail, &liPassword,
		&liURL, &coverLetter, &resumeURL, &status,
	); err != nil {
		return a, err
	}

	a.FirstName = firstName.String
	a.LastName = lastName.String
	a.Email = email.String
	a.PhoneCountryCode = phoneCC.String
	a.Phone = phone.String
	a.JobTitle = jobTitle.String
	a.JobLocation = jobLocation.String
	a.CurrentLocation = currentLoc.String
	a.PreferredLocation = preferredLoc.String
	a.City = city.String
	a.PostalCode = postalCode.String
	a.CurrentCTC = currentCTC.String
	a.ExpectedCTC = expectedCTC.String
	a.TotalExperience = totalExp.String
	a.RelevantExperience = relevantExp.String
	a.NoticePeriod = noticePeriod.String
	a.LinkedInEmail = liEmail.String
	a.LinkedInPassword = liPassword.String
	a.LinkedInURL = liURL.String
	a.CoverLetter = coverLetter.String
	a.ResumeURL = resumeURL.String
	a.Status = status.String
	return a, nil
}
