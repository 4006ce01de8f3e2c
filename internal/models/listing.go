// internal/models/listing.go
package models

// Listing is a transient, view-scoped reference to one posting on the
// currently rendered results page. It is valid for one iteration of the
// discovery loop and is invalidated once the view is navigated or repainted.
type Listing struct {
	Index   int    // position on the current results page, 1-based
	Title   string // displayed title text
	Applied bool   // "Applied" footer marker present
}
