package domain

import "strings"

// Subscription captures the recurring-billing entitlement of an account.
type Subscription struct {
	Active       bool   `json:"active"`
	Plan         string `json:"plan,omitempty"`
	MonthlyGrant int    `json:"monthly_grant"`
}

// UserAccount is the per-user credit balance and subscription state, keyed by
// normalized email. Accounts come into existence on first read with a zero
// balance; there is no explicit signup step.
type UserAccount struct {
	Email        string       `json:"email"`
	Credits      int          `json:"credits"`
	Subscription Subscription `json:"subscription"`
}

// Entitled reports whether the account may perform a metered action right now.
func (a *UserAccount) Entitled() bool {
	return a.Subscription.Active || a.Credits > 0
}

// NormalizeEmail canonicalizes an email for use as a store key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewAccount returns the zero-value account for an email.
func NewAccount(email string) *UserAccount {
	return &UserAccount{
		Email: NormalizeEmail(email),
		Subscription: Subscription{
			Active:       false,
			Plan:         "",
			MonthlyGrant: 0,
		},
	}
}
