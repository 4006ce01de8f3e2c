// internal/bot/form/form_test.go
package form

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"applybot/internal/common/config"
	"applybot/internal/common/logger"
	"applybot/internal/models"
	"applybot/internal/surface/surfacetest"
)

type fakeQuota struct {
	allow bool
	calls int
}

func (q *fakeQuota) CanSubmit(context.Context, string) bool {
	q.calls++
	return q.allow
}

type fakeLedger struct {
	records []*models.ApplicationRecord
	err     error
}

func (l *fakeLedger) Insert(_ context.Context, rec *models.ApplicationRecord) error {
	if l.err != nil {
		return l.err
	}
	l.records = append(l.records, rec)
	return nil
}

func testConfig() config.BotConfig {
	return config.BotConfig{
		MaxDailyApplications: 50,
		FormFillTimeout:      60000,
		MaxFormSteps:         10,
		VerifyTimeout:        100,
		SettleDelay:          0,
	}
}

func testApplicant() *models.Applicant {
	return &models.Applicant{
		ID:           "user-001",
		FirstName:    "Priya",
		NoticePeriod: "60 days",
	}
}

func newMachine(t *testing.T, cfg config.BotConfig, q *fakeQuota, l *fakeLedger) *Machine {
	t.Helper()
	return NewMachine(cfg, q, l, nil, logger.NewTestLogger(t))
}

func scriptSuccess(f *surfacetest.Fake) {
	f.ExistsMap[successContainerSel] = true
	f.TextMap[successMessageSel] = "Your application was sent! Applied just now"
	f.TextMap[confirmTitleSel] = "Backend Engineer"
	f.TextMap[confirmCompanySel] = "Acme Corp"
	f.URLValue = "https://example.com/jobs/view/42"
}

func TestRun_SingleStepSubmit(t *testing.T) {
	f := surfacetest.New()
	f.ExistsMap[navSubmitSel] = true
	f.ExistsMap[dismissSel] = true
	scriptSuccess(f)

	q := &fakeQuota{allow: true}
	l := &fakeLedger{}
	m := newMachine(t, testConfig(), q, l)

	out := m.Run(context.Background(), f, testApplicant())

	assert.Equal(t, Submitted, out.State)
	assert.Equal(t, ReasonNone, out.Reason)
	assert.Equal(t, 1, out.Steps)
	require.NotNil(t, out.Record)
	assert.Equal(t, "Backend Engineer", out.Record.JobTitle)
	assert.Equal(t, "Acme Corp", out.Record.CompanyName)
	assert.Equal(t, "https://example.com/jobs/view/42", out.Record.JobURL)
	assert.Equal(t, "user-001", out.Record.ApplicantID)

	require.Len(t, l.records, 1)
	assert.Equal(t, 1, q.calls, "quota re-checked exactly once before the write")
	assert.Equal(t, 1, f.ClickCount(dismissSel), "residual dialog dismissed")
}

func TestRun_MultiStepAdvanceReviewSubmit(t *testing.T) {
	f := surfacetest.New()
	scriptSuccess(f)
	f.ExistsFn = func(sel string) (bool, error) {
		switch sel {
		case navContinueSel:
			return f.ClickCount(navContinueSel) < 2, nil
		case navReviewSel:
			return f.ClickCount(navReviewSel) < 1, nil
		case navSubmitSel:
			return true, nil
		default:
			return f.ExistsMap[sel], nil
		}
	}

	q := &fakeQuota{allow: true}
	l := &fakeLedger{}
	m := newMachine(t, testConfig(), q, l)

	out := m.Run(context.Background(), f, testApplicant())

	assert.Equal(t, Submitted, out.State)
	assert.Equal(t, 4, out.Steps)
	assert.Equal(t, 2, f.ClickCount(navContinueSel))
	assert.Equal(t, 1, f.ClickCount(navReviewSel))
	assert.Equal(t, 1, f.ClickCount(navSubmitSel))
	assert.Len(t, l.records, 1)
}

func TestRun_FillsResolvableFieldsAndSkipsEmail(t *testing.T) {
	f := surfacetest.New()
	f.ExistsMap[navSubmitSel] = true
	scriptSuccess(f)
	f.EvaluateFn = func(script string, out interface{}) error {
		if strings.Contains(script, "input[required]") {
			*(out.(*[]requiredField)) = []requiredField{
				{ID: "q-notice", Label: "Notice Period"},
				{ID: "q-email", Label: "Email address"},
			}
		}
		return nil
	}

	m := newMachine(t, testConfig(), &fakeQuota{allow: true}, &fakeLedger{})
	out := m.Run(context.Background(), f, testApplicant())

	assert.Equal(t, Submitted, out.State)
	assert.Equal(t, "60 days", f.Typed[`input[id="q-notice"]`])
	assert.Equal(t, "", f.SetValues[`input[id="q-notice"]`], "field cleared before typing")
	assert.NotContains(t, f.Typed, `input[id="q-email"]`, "email left untouched")
	assert.Contains(t, f.ClickAlls, yesOptionSel, "affirmative pass ran")
}

func TestRun_NoNavigationFound(t *testing.T) {
	f := surfacetest.New()
	f.ExistsMap[dismissSel] = true
	f.ExistsMap[discardSel] = true

	l := &fakeLedger{}
	m := newMachine(t, testConfig(), &fakeQuota{allow: true}, l)

	out := m.Run(context.Background(), f, testApplicant())

	assert.Equal(t, Abandoned, out.State)
	assert.Equal(t, ReasonNoNavigationFound, out.Reason)
	assert.Empty(t, l.records)
	assert.Equal(t, 1, f.ClickCount(dismissSel), "cleanup dismissed the dialog")
	assert.Equal(t, 1, f.ClickCount(discardSel), "cleanup confirmed the discard")
}

func TestRun_StepLimitExceeded(t *testing.T) {
	f := surfacetest.New()
	f.ExistsMap[navContinueSel] = true

	cfg := testConfig()
	cfg.MaxFormSteps = 3
	l := &fakeLedger{}
	m := newMachine(t, cfg, &fakeQuota{allow: true}, l)

	out := m.Run(context.Background(), f, testApplicant())

	assert.Equal(t, Abandoned, out.State)
	assert.Equal(t, ReasonStepLimitExceeded, out.Reason)
	assert.Equal(t, 4, out.Steps)
	assert.Equal(t, 3, f.ClickCount(navContinueSel))
	assert.Empty(t, l.records)
}

func TestRun_Timeout(t *testing.T) {
	f := surfacetest.New()
	f.ExistsMap[navContinueSel] = true

	cfg := testConfig()
	cfg.FormFillTimeout = 0
	m := newMachine(t, cfg, &fakeQuota{allow: true}, &fakeLedger{})

	out := m.Run(context.Background(), f, testApplicant())

	assert.Equal(t, Abandoned, out.State)
	assert.Equal(t, ReasonTimeout, out.Reason)
}

func TestRun_NoConfirmationMeansNoRecord(t *testing.T) {
	f := surfacetest.New()
	f.ExistsMap[navSubmitSel] = true
	// Success feedback never appears.

	q := &fakeQuota{allow: true}
	l := &fakeLedger{}
	m := newMachine(t, testConfig(), q, l)

	out := m.Run(context.Background(), f, testApplicant())

	assert.Equal(t, Abandoned, out.State)
	assert.Equal(t, ReasonVerificationFailed, out.Reason)
	assert.Empty(t, l.records)
	assert.Zero(t, q.calls, "quota never consulted without proof of submission")
}

func TestRun_ConfirmationWithoutAcknowledgement(t *testing.T) {
	f := surfacetest.New()
	f.ExistsMap[navSubmitSel] = true
	f.ExistsMap[successContainerSel] = true
	f.TextMap[successMessageSel] = "Submitting your application..."

	l := &fakeLedger{}
	m := newMachine(t, testConfig(), &fakeQuota{allow: true}, l)

	out := m.Run(context.Background(), f, testApplicant())

	assert.Equal(t, Abandoned, out.State)
	assert.Equal(t, ReasonVerificationFailed, out.Reason)
	assert.Empty(t, l.records)
}

func TestRun_QuotaRaceLost(t *testing.T) {
	f := surfacetest.New()
	f.ExistsMap[navSubmitSel] = true
	scriptSuccess(f)

	l := &fakeLedger{}
	m := newMachine(t, testConfig(), &fakeQuota{allow: false}, l)

	out := m.Run(context.Background(), f, testApplicant())

	assert.Equal(t, Abandoned, out.State)
	assert.Equal(t, ReasonQuotaRace, out.Reason)
	assert.Empty(t, l.records)
}

func TestRun_LedgerFailureStillSubmitted(t *testing.T) {
	f := surfacetest.New()
	f.ExistsMap[navSubmitSel] = true
	scriptSuccess(f)

	l := &fakeLedger{err: errors.New("connection refused")}
	m := newMachine(t, testConfig(), &fakeQuota{allow: true}, l)

	out := m.Run(context.Background(), f, testApplicant())

	assert.Equal(t, Submitted, out.State, "real-world submission is a fact regardless of the ledger")
	require.NotNil(t, out.Record)
	assert.Empty(t, l.records)
}

func TestRun_FieldScanErrorIsInternalError(t *testing.T) {
	f := surfacetest.New()
	f.EvaluateFn = func(script string, out interface{}) error {
		if strings.Contains(script, "input[required]") {
			return errors.New("execution context destroyed")
		}
		return nil
	}

	m := newMachine(t, testConfig(), &fakeQuota{allow: true}, &fakeLedger{})
	out := m.Run(context.Background(), f, testApplicant())

	assert.Equal(t, Abandoned, out.State)
	assert.Equal(t, ReasonInternalError, out.Reason)
}

func TestRun_CancelledContext(t *testing.T) {
	f := surfacetest.New()
	f.ExistsMap[navContinueSel] = true

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := newMachine(t, testConfig(), &fakeQuota{allow: true}, &fakeLedger{})
	out := m.Run(ctx, f, testApplicant())

	assert.Equal(t, Abandoned, out.State)
	assert.Equal(t, ReasonInternalError, out.Reason)
}
