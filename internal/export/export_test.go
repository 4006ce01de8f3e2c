// internal/export/export_test.go
package export

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"applybot/internal/common/config"
	stderrors "applybot/internal/common/errors"
	"applybot/internal/common/logger"
	"applybot/internal/models"
)

type fakeSource struct {
	applicants []models.Applicant
	err        error
}

func (f *fakeSource) All(context.Context) ([]models.Applicant, error) {
	return f.applicants, f.err
}

func TestRun_WritesDatedWorkbook(t *testing.T) {
	dir := t.TempDir()
	src := &fakeSource{applicants: []models.Applicant{
		{ID: "user-001", FirstName: "Priya", LastName: "Sharma", JobTitle: "Backend Engineer", NoticePeriod: "60 days"},
		{ID: "user-002", FirstName: "Amit", LastName: "Verma", JobTitle: "Data Engineer"},
	}}

	e := New(src, config.ExportConfig{Dir: dir}, logger.NewTestLogger(t))
	e.now = func() time.Time { return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC) }

	path, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, path, "applications_2026-08-29.xlsx")

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellValue("Sheet1", "A1")
	require.NoError(t, err)
	assert.Equal(t, "User ID", header)

	firstName, err := f.GetCellValue("Sheet1", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Priya", firstName)

	notice, err := f.GetCellValue("Sheet1", "Q2")
	require.NoError(t, err)
	assert.Equal(t, "60 days", notice)

	secondRow, err := f.GetCellValue("Sheet1", "A3")
	require.NoError(t, err)
	assert.Equal(t, "user-002", secondRow)
}

func TestRun_EmptySourceStillWritesHeaders(t *testing.T) {
	dir := t.TempDir()
	e := New(&fakeSource{}, config.ExportConfig{Dir: dir}, logger.NewTestLogger(t))

	path, err := e.Run(context.Background())
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellValue("Sheet1", "G1")
	require.NoError(t, err)
	assert.Equal(t, "Job Title", header)
}

func TestRun_SourceError(t *testing.T) {
	e := New(&fakeSource{err: errors.New("connection refused")},
		config.ExportConfig{Dir: t.TempDir()}, logger.NewTestLogger(t))

	_, err := e.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeExportFailed, err.(*stderrors.StandardError).Code)
}
