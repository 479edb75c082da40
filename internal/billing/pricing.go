package billing

// Pricing maps provider-defined price identifiers to credit amounts. The
// tables are static per deployment and come from configuration; an unknown
// price resolves to zero credits and the event is a no-op for the ledger.
type Pricing struct {
	// PackCredits maps one-off pack price ids to the credits they purchase.
	PackCredits map[string]int
	// MonthlyGrants maps subscription price ids to their recurring grant.
	MonthlyGrants map[string]int
}

// CreditsForPrice resolves a one-off pack purchase.
func (p Pricing) CreditsForPrice(priceID string) int {
	return p.PackCredits[priceID]
}

// MonthlyGrantForPrice resolves a subscription plan's recurring grant.
func (p Pricing) MonthlyGrantForPrice(priceID string) int {
	return p.MonthlyGrants[priceID]
}
