// internal/store/applicants/applicants_test.go
package applicants

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"applybot/internal/common/logger"
)

var profileColumns = []string{
	"user_id", "first_name", "last_name", "email", "phone_country_code", "phone_number",
	"job_title", "job_location", "current_location", "preferred_location", "city",
	"postal_code", "current_ctc", "expected_ctc", "total_experience",
	"relevant_experience", "notice_period", "linkedin_email", "linkedin_password",
	"linkedin_url", "cover_letter", "resume_url", "status",
}

func addProfile(rows *sqlmock.Rows, id, jobTitle, liEmail, liPassword string) *sqlmock.Rows {
	return rows.AddRow(
		id, "Priya", "Sharma", "priya@example.com", "+91", "9876543210",
		jobTitle, "Bengaluru", "Pune", "Bengaluru", "Pune",
		"411001", "1800000", "2400000", "6",
		"4", "60 days", liEmail, liPassword,
		"https://linkedin.com/in/priya", "cover", nil, "active",
	)
}

func TestEligible_ReturnsValidProfiles(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows(profileColumns)
	addProfile(rows, "user-001", "Backend Engineer", "priya@example.com", "secret")
	addProfile(rows, "user-002", "Data Engineer", "amit@example.com", "secret2")

	mock.ExpectQuery("FROM applicant_profiles").WillReturnRows(rows)

	store := New(db, logger.NewTestLogger(t))
	applicants, err := store.Eligible(context.Background())
	require.NoError(t, err)
	require.Len(t, applicants, 2)

	assert.Equal(t, "user-001", applicants[0].ID)
	assert.Equal(t, "Backend Engineer", applicants[0].JobTitle)
	assert.Equal(t, "60 days", applicants[0].NoticePeriod)
	assert.True(t, applicants[0].Eligible())
	assert.Equal(t, "user-002", applicants[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEligible_SkipsRowsFailingValidation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows(profileColumns)
	addProfile(rows, "user-001", "Backend Engineer", "priya@example.com", "secret")
	// Job title missing: the row is present in the store but unusable.
	addProfile(rows, "user-002", "", "amit@example.com", "secret2")

	mock.ExpectQuery("FROM applicant_profiles").WillReturnRows(rows)

	store := New(db, logger.NewTestLogger(t))
	applicants, err := store.Eligible(context.Background())
	require.NoError(t, err)
	require.Len(t, applicants, 1)
	assert.Equal(t, "user-001", applicants[0].ID)
}

func TestEligible_NullColumnsScanAsEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows(profileColumns).AddRow(
		"user-001", nil, nil, nil, nil, nil,
		"Backend Engineer", nil, nil, nil, nil,
		nil, nil, nil, nil,
		nil, nil, "priya@example.com", "secret",
		nil, nil, nil, nil,
	)

	mock.ExpectQuery("FROM applicant_profiles").WillReturnRows(rows)

	store := New(db, logger.NewTestLogger(t))
	applicants, err := store.Eligible(context.Background())
	require.NoError(t, err)
	require.Len(t, applicants, 1)
	assert.Empty(t, applicants[0].FirstName)
	assert.Empty(t, applicants[0].NoticePeriod)
	assert.Equal(t, "priya@example.com", applicants[0].LinkedInEmail)
}

func TestEligible_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM applicant_profiles").
		WillReturnError(errors.New("relation does not exist"))

	store := New(db, logger.NewTestLogger(t))
	_, err = store.Eligible(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query applicant profiles")
}

func TestAll_ReturnsEveryProfileWithoutValidation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows(profileColumns)
	addProfile(rows, "user-001", "Backend Engineer", "priya@example.com", "secret")
	// Invalid for the bot, still exported.
	addProfile(rows, "user-002", "", "", "")

	mock.ExpectQuery("FROM applicant_profiles").WillReturnRows(rows)

	store := New(db, logger.NewTestLogger(t))
	applicants, err := store.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, applicants, 2)
}
