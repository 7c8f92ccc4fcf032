package models

// Business is a single scraped lead. Fields are filled in progressively:
// the listing scraper populates the profile fields, the email finder adds
// Emails/PrimaryEmail, and the template generator adds EmailTemplate.
type Business struct {
	Name         string   `json:"name" badgerhold:"index"`
	Address      string   `json:"address,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	Website      string   `json:"website,omitempty"`
	Category     string   `json:"category,omitempty"`
	Rating       float64  `json:"rating,omitempty"`
	ReviewCount  int      `json:"review_count,omitempty"`
	Latitude     string   `json:"latitude,omitempty"`
	Longitude    string   `json:"longitude,omitempty"`
	ListingURL   string   `json:"listing_url,omitempty"`
	Emails       []string `json:"emails,omitempty"`
	PrimaryEmail string   `json:"primary_email,omitempty"`
	// EmailTemplate holds the generated outreach message. A "(generated)"
	// suffix on PrimaryEmail marks a guessed address rather than a found one.
	EmailTemplate string `json:"email_template,omitempty"`
}

// Clone returns a deep copy so callers can hand out snapshots without
// exposing internal slices to mutation.
func (b Business) Clone() Business {
	c := b
	if b.Emails != nil {
		c.Emails = make([]string, len(b.Emails))
		copy(c.Emails, b.Emails)
	}
	return c
}

// HasRealEmail reports whether the business has at least one discovered
// (not guessed) email address.
func (b Business) HasRealEmail() bool {
	return len(b.Emails) > 0
}
