// internal/bot/discovery/selectors.go
package discovery

// Every selector the discovery flow touches, in one place. These track the
// target surface's markup and are the first thing to check when a run
// starts abandoning everything.
const (
	usernameSel    = `#username`
	passwordSel    = `#password`
	loginSubmitSel = `button[type="submit"]`
	navMarkerSel   = `.global-nav__content`
	jobsLinkSel    = `a[href="https://www.linkedin.com/jobs/?"]`

	keywordInputSel     = `input[aria-label="Search by title, skill, or company"]`
	locationInputSel    = `input[aria-label="City, state, or zip code"]`
	quickApplyFilterSel = `button[aria-label="Easy Apply filter."]`

	listingCardSel = `li.occludable-update`
	cardTitleSel   = `.job-card-list__title--link`
	cardFooterSel  = `.job-card-container__footer-item`
	applyButtonSel = `button#jobs-apply-button-id`
)
