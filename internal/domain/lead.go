package domain

import "time"

// LeadConsent records what the lead agreed to. Processing consent is implied
// by submission.
type LeadConsent struct {
	Marketing  bool `json:"marketing"`
	Processing bool `json:"processing"`
}

// LeadMeta carries capture context for a lead.
type LeadMeta struct {
	Persona   string    `json:"persona,omitempty"`
	Referrer  string    `json:"referrer,omitempty"`
	UserAgent string    `json:"ua,omitempty"`
	Country   string    `json:"country,omitempty"`
	Timestamp time.Time `json:"ts"`
}

// Lead is a captured storefront lead: the visitor's email plus the persona
// image they generated.
type Lead struct {
	ID      string      `json:"id"`
	Email   string      `json:"email"`
	Consent LeadConsent `json:"consent"`
	Meta    LeadMeta    `json:"meta"`
	Image   string      `json:"image,omitempty"`
}
