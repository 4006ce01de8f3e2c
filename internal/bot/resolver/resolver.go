// Package resolver maps a form field's label text to a fill value from the
// applicant profile. It is pure: same label and profile always yield the same
// answer.
//
// Resolution walks an ordered table of substring predicates and returns the
// first match. Ordering is load-bearing: many labels satisfy several
// predicates ("expected salary (gross)" matches both the expected-CTC rule
// and the generic salary rule) and first-match-wins is the contract, so do
// not reorder or "deduplicate" the table.
package resolver

import (
	"strings"

	"applybot/internal/models"
)

type rule struct {
	match func(label string) bool
	value func(a *models.Applicant) string
}

func contains(sub string) func(string) bool {
	return func(label string) bool { return strings.Contains(label, sub) }
}

func containsAny(subs ...string) func(string) bool {
	return func(label string) bool {
		for _, sub := range subs {
			if strings.Contains(label, sub) {
				return true
			}
		}
		return false
	}
}

func containsAll(subs ...string) func(string) bool {
	return func(label string) bool {
		for _, sub := range subs {
			if !strings.Contains(label, sub) {
				return false
			}
		}
		return true
	}
}

func literal(v string) func(*models.Applicant) string {
	return func(*models.Applicant) string { return v }
}

// specific is the primary rule table, in cascade order.
var specific = []rule{
	{contains("first name"), func(a *models.Applicant) string { return a.FirstName }},
	{contains("last name"), func(a *models.Applicant) string { return a.LastName }},
	{contains("phone"), func(a *models.Applicant) string { return a.Phone }},
	{contains("location"), func(a *models.Applicant) string { return a.JobLocation }},
	{contains("years"), func(a *models.Applicant) string { return a.RelevantExperience }},
	{contains("experience"), func(a *models.Applicant) string { return a.TotalExperience }},
	{contains("current location"), func(a *models.Applicant) string { return a.CurrentLocation }},
	{contains("preferred location"), func(a *models.Applicant) string { return a.PreferredLocation }},
	{contains("country"), func(a *models.Applicant) string { return a.CurrentLocation }},
	{contains("state"), func(a *models.Applicant) string { return a.CurrentLocation }},
	{containsAny("zip", "postal"), func(a *models.Applicant) string { return a.PostalCode }},
	{contains("country code"), func(a *models.Applicant) string { return a.PhoneCountryCode }},
	{contains("city"), func(a *models.Applicant) string { return a.City }},
	{contains("ctc"), func(a *models.Applicant) string { return a.CurrentCTC }},
	{contains("expected"), func(a *models.Applicant) string { return a.ExpectedCTC }},
	{containsAll("current", "compensation"), func(a *models.Applicant) string { return a.CurrentCTC }},
	{contains("current salary (gross)"), func(a *models.Applicant) string { return a.CurrentCTC }},
	{contains("expected salary (gross)"), func(a *models.Applicant) string { return a.ExpectedCTC }},
	{contains("current salary"), func(a *models.Applicant) string { return a.CurrentCTC }},
	{contains("salary"), func(a *models.Applicant) string { return a.ExpectedCTC }},
	{contains("total experience"), func(a *models.Applicant) string { return a.TotalExperience }},
	{contains("relevant experience"), func(a *models.Applicant) string { return a.RelevantExperience }},
	{contains("notice period"), func(a *models.Applicant) string { return a.NoticePeriod }},
	{contains("notice"), func(a *models.Applicant) string { return a.NoticePeriod }},
	{contains("linkedin"), func(a *models.Applicant) string { return a.LinkedInURL }},
	{contains("linkedin profile"), func(a *models.Applicant) string { return a.LinkedInURL }},
	{contains("cover letter"), func(a *models.Applicant) string { return a.CoverLetter }},
	{contains("onsite"), literal("Yes")},
	{contains("remote"), literal("Yes")},
	{contains("hybrid"), literal("Yes")},
	{contains("from scale 1 to 10"), literal("10")},
	{contains("from 1 to 10"), literal("10")},
	{contains("from 1-10"), literal("10")},
	{contains("from 1 to 5"), literal("5")},
	{contains("from 1-5"), literal("5")},
	{contains("from 1 to 3"), literal("3")},
	{contains("from 1-3"), literal("3")},
	{contains("from 1 to 2"), literal("2")},
	{contains("from 1-2"), literal("2")},
	{containsAny("grade", "cgpa", "4.0 scale", "marks"), literal("4.0")},
}

// fallback is the generic table consulted when nothing specific matched.
var fallback = []rule{
	{containsAny("why", "describe", "reason"), literal("1")},
	{containsAny("what", "salary expectation", "current compensation"), func(a *models.Applicant) string { return a.ExpectedCTC }},
	{containsAny("how many", "number"), literal("1")},
	{containsAny("authorized", "eligible", "sponsorship"), literal("Yes")},
	{containsAny("currently working", "employed"), literal("Yes")},
	{containsAll("willing", "relocate"), literal("Yes")},
}

// Resolve returns the fill value for a field label, or ok=false when the
// field must be left untouched. Email fields are the designed escape hatch:
// the surface pre-fills them and an automated overwrite would invalidate the
// account binding.
func Resolve(label string, a *models.Applicant) (string, bool) {
	l := strings.ToLower(label)

	for _, r := range specific {
		if r.match(l) {
			return r.value(a), true
		}
	}

	if strings.Contains(l, "email") {
		return "", false
	}

	for _, r := range fallback {
		if r.match(l) {
			return r.value(a), true
		}
	}

	return "N/A", true
}
