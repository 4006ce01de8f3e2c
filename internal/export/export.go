// Package export materializes the applicant source as a dated spreadsheet.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"applybot/internal/common/config"
	stderrors "applybot/internal/common/errors"
	"applybot/internal/common/logger"
	"applybot/internal/models"
)

// Source provides the rows to export.
type Source interface {
	All(ctx context.Context) ([]models.Applicant, error)
}

// Column order matches the profile store layout so exported sheets line up
// with what operators see in the database.
var columns = []struct {
	header string
	value  func(a *models.Applicant) string
}{
	{"User ID", func(a *models.Applicant) string { return a.ID }},
	{"First Name", func(a *models.Applicant) string { return a.FirstName }},
	{"Last Name", func(a *models.Applicant) string { return a.LastName }},
	{"Email", func(a *models.Applicant) string { return a.Email }},
	{"Phone Country Code", func(a *models.Applicant) string { return a.PhoneCountryCode }},
	{"Phone Number", func(a *models.Applicant) string { return a.Phone }},
	{"Job Title", func(a *models.Applicant) string { return a.JobTitle }},
	{"Job Location", func(a *models.Applicant) string { return a.JobLocation }},
	{"Current Location", func(a *models.Applicant) string { return a.CurrentLocation }},
	{"Preferred Location", func(a *models.Applicant) string { return a.PreferredLocation }},
	{"City", func(a *models.Applicant) string { return a.City }},
	{"Postal Code", func(a *models.Applicant) string { return a.PostalCode }},
	{"Current CTC", func(a *models.Applicant) string { return a.CurrentCTC }},
	{"Expected CTC", func(a *models.Applicant) string { return a.ExpectedCTC }},
	{"Total Experience", func(a *models.Applicant) string { return a.TotalExperience }},
	{"Relevant Experience", func(a *models.Applicant) string { return a.RelevantExperience }},
	{"Notice Period", func(a *models.Applicant) string { return a.NoticePeriod }},
	{"LinkedIn URL", func(a *models.Applicant) string { return a.LinkedInURL }},
	{"Resume URL", func(a *models.Applicant) string { return a.ResumeURL }},
	{"Status", func(a *models.Applicant) string { return a.Status }},
}

// Exporter writes one workbook per run.
type Exporter struct {
	source Source
	cfg    config.ExportConfig
	logger logger.Logger
	now    func() time.Time
}

func New(source Source, cfg config.ExportConfig, log logger.Logger) *Exporter {
	return &Exporter{
		source: source,
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "export"}),
		now:    time.Now,
	}
}

// Run writes applications_YYYY-MM-DD.xlsx into the configured directory and
// returns the written path.
func (e *Exporter) Run(ctx context.Context) (string, error) {
	applicants, err := e.source.All(ctx)
	if err != nil {
		return "", stderrors.NewExportFailedError(err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	for col, c := range columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return "", stderrors.NewExportFailedError(err)
		}
		if err := f.SetCellValue(sheet, cell, c.header); err != nil {
			return "", stderrors.NewExportFailedError(err)
		}
	}

	for row, a := range applicants {
		for col, c := range columns {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return "", stderrors.NewExportFailedError(err)
			}
			if err := f.SetCellValue(sheet, cell, c.value(&a)); err != nil {
				return "", stderrors.NewExportFailedError(err)
			}
		}
	}

	if err := os.MkdirAll(e.cfg.Dir, 0o755); err != nil {
		return "", stderrors.NewExportFailedError(err)
	}
	path := filepath.Join(e.cfg.Dir, fmt.Sprintf("applications_%s.xlsx", e.now().Format("2006-01-02")))
	if err := f.SaveAs(path); err != nil {
		return "", stderrors.NewExportFailedError(err)
	}

	e.logger.Info("applicant export written", map[string]interface{}{
		"path": path,
		"rows": len(applicants),
	})
	return path, nil
}
