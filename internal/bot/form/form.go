// Package form drives one opened application flow to submission or
// abandonment.
//
// The flow is modeled as an explicit state machine over Form Steps. Each
// iteration recomputes the step from the live view, fills what it finds,
// and follows exactly one navigation affordance. Every failure mode is a
// named terminal outcome, not an exception path. Two hard invariants:
//
//   - the step counter strictly increases and is bounded, so the machine
//     always terminates, and
//   - a ledger record is written if and only if the surface showed an
//     explicit success confirmation. No proof, no record.
package form

import (
	"context"
	"fmt"
	"strings"
	"time"

	"applybot/internal/bot/resolver"
	"applybot/internal/common/config"
	stderrors "applybot/internal/common/errors"
	"applybot/internal/common/logger"
	"applybot/internal/common/observability"
	"applybot/internal/models"
	"applybot/internal/surface"
)

const (
	yesOptionSel  = `input[data-test-text-selectable-option__input="Yes"]`
	entityListSel = `select[data-test-text-entity-list-form-select]`

	navContinueSel = `button[aria-label="Continue to next step"]`
	navReviewSel   = `button[aria-label="Review your application"]`
	navSubmitSel   = `button[aria-label="Submit application"]`

	successContainerSel = `.jobs-s-apply--fadein .artdeco-inline-feedback--success`
	successMessageSel   = `.artdeco-inline-feedback__message`

	confirmTitleSel   = `.job-details-jobs-unified-top-card__job-title a`
	confirmCompanySel = `.job-details-jobs-unified-top-card__company-name a`

	dismissSel      = `button[aria-label="Dismiss"]`
	dismissModalSel = `button[data-test-modal-close-btn]`
	discardSel      = `button[data-control-name="discard_application_confirm_btn"]`
)

// requiredFieldsScript collects every required free-text input together with
// its label text. Fields without an id cannot be addressed and are skipped.
const requiredFieldsScript = `
	(function() {
		var out = [];
		document.querySelectorAll('form input[required]').forEach(function(el) {
			if (!el.id) { return; }
			var lab = document.querySelector('label[for="' + el.id + '"]');
			out.push({ id: el.id, label: lab ? lab.textContent.trim() : '' });
		});
		return out;
	})()`

// entityListScript forces every recognized entity-list select to "Yes" and
// raises the change notification the surface listens for.
const entityListScript = `
	(function() {
		var els = document.querySelectorAll('select[data-test-text-entity-list-form-select]');
		els.forEach(function(el) {
			el.value = 'Yes';
			el.dispatchEvent(new Event('change', { bubbles: true }));
		});
		return els.length;
	})()`

type State string

const (
	Submitted State = "Submitted"
	Abandoned State = "Abandoned"
)

type Reason string

const (
	ReasonNone               Reason = ""
	ReasonTimeout            Reason = "Timeout"
	ReasonStepLimitExceeded  Reason = "StepLimitExceeded"
	ReasonNoNavigationFound  Reason = "NoNavigationFound"
	ReasonQuotaRace          Reason = "QuotaRace"
	ReasonVerificationFailed Reason = "VerificationFailed"
	ReasonInternalError      Reason = "InternalError"
)

// Outcome is the terminal result of one application flow.
type Outcome struct {
	State    State
	Reason   Reason
	Record   *models.ApplicationRecord
	Steps    int
	Duration time.Duration
}

// QuotaGate re-authorizes the submission immediately before the record write.
type QuotaGate interface {
	CanSubmit(ctx context.Context, applicantID string) bool
}

// Ledger persists confirmed submissions.
type Ledger interface {
	Insert(ctx context.Context, rec *models.ApplicationRecord) error
}

type requiredField struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Machine completes one application flow per Run call.
type Machine struct {
	quota   QuotaGate
	ledger  Ledger
	metrics *observability.Observability
	cfg     config.BotConfig
	logger  logger.Logger
}

func NewMachine(cfg config.BotConfig, quota QuotaGate, ledger Ledger, obs *observability.Observability, log logger.Logger) *Machine {
	return &Machine{
		quota:   quota,
		ledger:  ledger,
		metrics: obs,
		cfg:     cfg,
		logger:  log.WithFields(map[string]interface{}{"component": "form"}),
	}
}

// Run drives the already-opened application flow for one listing.
func (m *Machine) Run(ctx context.Context, s surface.Surface, applicant *models.Applicant) Outcome {
	start := time.Now()
	out := m.run(ctx, s, applicant, start)
	out.Duration = time.Since(start)

	if out.State == Abandoned {
		m.cleanup(ctx, s)
	}
	m.record(ctx, out, applicant)
	return out
}

func (m *Machine) run(ctx context.Context, s surface.Surface, applicant *models.Applicant, start time.Time) Outcome {
	ceiling := config.GetDuration(m.cfg.FormFillTimeout)

	for step := 1; ; step++ {
		if time.Since(start) > ceiling {
			return Outcome{State: Abandoned, Reason: ReasonTimeout, Steps: step}
		}
		if step > m.cfg.MaxFormSteps {
			return Outcome{State: Abandoned, Reason: ReasonStepLimitExceeded, Steps: step}
		}
		if err := ctx.Err(); err != nil {
			return Outcome{State: Abandoned, Reason: ReasonInternalError, Steps: step}
		}

		if err := m.fillStep(ctx, s, applicant); err != nil {
			m.logger.Warn("form step fill failed", map[string]interface{}{
				"applicantId": applicant.ID,
				"step":        step,
				"error":       err.Error(),
			})
			return Outcome{State: Abandoned, Reason: ReasonInternalError, Steps: step}
		}

		sleep(ctx, config.GetDuration(m.cfg.SettleDelay))

		// Navigation priority is fixed: advance, then review, then submit.
		switch {
		case exists(ctx, s, navContinueSel):
			if err := s.Click(ctx, navContinueSel); err != nil {
				return Outcome{State: Abandoned, Reason: ReasonInternalError, Steps: step}
			}
		case exists(ctx, s, navReviewSel):
			if err := s.Click(ctx, navReviewSel); err != nil {
				return Outcome{State: Abandoned, Reason: ReasonInternalError, Steps: step}
			}
		case exists(ctx, s, navSubmitSel):
			if err := s.Click(ctx, navSubmitSel); err != nil {
				return Outcome{State: Abandoned, Reason: ReasonInternalError, Steps: step}
			}
			return m.verify(ctx, s, applicant, step)
		default:
			return Outcome{State: Abandoned, Reason: ReasonNoNavigationFound, Steps: step}
		}
	}
}

// fillStep completes every control visible on the current Form Step.
func (m *Machine) fillStep(ctx context.Context, s surface.Surface, applicant *models.Applicant) error {
	// Binary choices: default-affirmative, maximal completion over precise
	// truthfulness on low-stakes questions.
	if err := s.ClickAll(ctx, yesOptionSel); err != nil {
		m.logger.Debug("yes-option pass failed", map[string]interface{}{"error": err.Error()})
	}

	var selectsTouched int
	if err := s.Evaluate(ctx, entityListScript, &selectsTouched); err != nil {
		m.logger.Debug("entity-list pass failed", map[string]interface{}{"error": err.Error()})
	}

	var fields []requiredField
	if err := s.Evaluate(ctx, requiredFieldsScript, &fields); err != nil {
		return fmt.Errorf("required field scan failed: %w", err)
	}

	for _, field := range fields {
		value, ok := resolver.Resolve(field.Label, applicant)
		if !ok {
			continue
		}
		sel := fmt.Sprintf(`input[id=%q]`, field.ID)
		if err := s.SetValue(ctx, sel, ""); err != nil {
			m.logger.Debug("field clear failed", map[string]interface{}{
				"label": field.Label,
				"error": err.Error(),
			})
			continue
		}
		if err := s.TypeSlow(ctx, sel, value); err != nil {
			return fmt.Errorf("typing into %q failed: %w", field.Label, err)
		}
	}
	return nil
}

// verify waits for the surface's explicit success confirmation after the
// submit click, then records the application.
func (m *Machine) verify(ctx context.Context, s surface.Surface, applicant *models.Applicant, step int) Outcome {
	verifyTimeout := config.GetDuration(m.cfg.VerifyTimeout)
	if err := s.WaitVisible(ctx, successContainerSel, verifyTimeout); err != nil {
		m.logger.Warn("no submission confirmation observed", map[string]interface{}{
			"applicantId": applicant.ID,
			"error":       err.Error(),
		})
		return Outcome{State: Abandoned, Reason: ReasonVerificationFailed, Steps: step}
	}

	msg, err := s.Text(ctx, successMessageSel)
	if err != nil || !strings.Contains(msg, "Applied") {
		m.logger.Warn("confirmation feedback did not acknowledge submission", map[string]interface{}{
			"applicantId": applicant.ID,
			"message":     msg,
		})
		return Outcome{State: Abandoned, Reason: ReasonVerificationFailed, Steps: step}
	}

	// The race between the pre-attempt check and this write is closed by
	// re-checking immediately before the insert.
	if !m.quota.CanSubmit(ctx, applicant.ID) {
		m.logger.Warn("quota exhausted between attempt and record write", map[string]interface{}{
			"applicantId": applicant.ID,
		})
		return Outcome{State: Abandoned, Reason: ReasonQuotaRace, Steps: step}
	}

	rec := m.extractRecord(ctx, s, applicant)
	if err := m.ledger.Insert(ctx, rec); err != nil {
		// The real-world submission already happened and is not rolled
		// back. The missing row is a reconciliation gap, not a failure of
		// the flow.
		gap := stderrors.NewLedgerInsertFailedError(err)
		m.logger.WithError(gap).Error("record write failed after confirmed submission", map[string]interface{}{
			"applicantId": applicant.ID,
			"jobTitle":    rec.JobTitle,
		})
	}

	m.dismissResidual(ctx, s)
	return Outcome{State: Submitted, Record: rec, Steps: step}
}

// extractRecord reads job facts from the confirmation view. Each read is
// best-effort; a record with blank fields still beats no record.
func (m *Machine) extractRecord(ctx context.Context, s surface.Surface, applicant *models.Applicant) *models.ApplicationRecord {
	rec := &models.ApplicationRecord{
		ApplicantID: applicant.ID,
		AppliedAt:   time.Now().UTC(),
	}
	if title, err := s.Text(ctx, confirmTitleSel); err == nil {
		rec.JobTitle = title
	}
	if company, err := s.Text(ctx, confirmCompanySel); err == nil {
		rec.CompanyName = company
	}
	if url, err := s.URL(ctx); err == nil {
		rec.JobURL = url
	}
	return rec
}

// dismissResidual closes the post-submission dialog.
func (m *Machine) dismissResidual(ctx context.Context, s surface.Surface) {
	for _, sel := range []string{dismissSel, dismissModalSel} {
		if exists(ctx, s, sel) {
			if err := s.Click(ctx, sel); err == nil {
				return
			}
		}
	}
}

// cleanup abandons the half-filled flow: dismiss, then confirm the discard.
// Both best-effort, failures logged and never escalated.
func (m *Machine) cleanup(ctx context.Context, s surface.Surface) {
	dismissed := false
	for _, sel := range []string{dismissSel, dismissModalSel} {
		if exists(ctx, s, sel) {
			if err := s.Click(ctx, sel); err != nil {
				m.logger.Debug("dismiss failed", map[string]interface{}{"selector": sel, "error": err.Error()})
				continue
			}
			dismissed = true
			break
		}
	}
	if !dismissed {
		return
	}

	sleep(ctx, config.GetDuration(m.cfg.SettleDelay))
	if exists(ctx, s, discardSel) {
		if err := s.Click(ctx, discardSel); err != nil {
			m.logger.Debug("discard confirmation failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (m *Machine) record(ctx context.Context, out Outcome, applicant *models.Applicant) {
	outcome := "submitted"
	if out.State == Abandoned {
		outcome = strings.ToLower(string(out.Reason))
	}
	if m.metrics != nil {
		m.metrics.RecordOutcome(ctx, outcome)
		m.metrics.RecordFormDuration(ctx, out.Duration, outcome)
	}
	m.logger.Info("application flow finished", map[string]interface{}{
		"applicantId": applicant.ID,
		"state":       string(out.State),
		"reason":      string(out.Reason),
		"steps":       out.Steps,
		"durationMs":  out.Duration.Milliseconds(),
	})
}

func exists(ctx context.Context, s surface.Surface, sel string) bool {
	ok, err := s.Exists(ctx, sel)
	return err == nil && ok
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
