package billing

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/magictales/server/internal/ledger"
)

// EventKind tags the payment-event variants the ledger reacts to.
type EventKind string

const (
	KindCheckoutCompleted   EventKind = "checkout_completed"
	KindInvoicePaid         EventKind = "invoice_paid"
	KindSubscriptionChanged EventKind = "subscription_changed"
)

// CheckoutMode distinguishes one-off purchases from subscription checkouts.
type CheckoutMode string

const (
	ModePayment      CheckoutMode = "payment"
	ModeSubscription CheckoutMode = "subscription"
)

// CheckoutCompleted is a finished checkout session mapped to its essentials.
type CheckoutCompleted struct {
	Email    string
	Mode     CheckoutMode
	PriceIDs []string
}

// InvoicePaid is a recurring subscription billing cycle that cleared.
type InvoicePaid struct {
	Email   string
	PriceID string
}

// SubscriptionChanged is any lifecycle transition of a subscription; Active
// reflects whether the provider still considers it in good standing.
type SubscriptionChanged struct {
	Email   string
	PriceID string
	Active  bool
}

// Event is the tagged union handed to the processor. Exactly one payload
// field matching Kind is set.
type Event struct {
	Kind         EventKind
	Checkout     *CheckoutCompleted
	Invoice      *InvoicePaid
	Subscription *SubscriptionChanged
}

// Processor applies payment events to the credit ledger through a dispatch
// table keyed by event kind.
type Processor struct {
	ledger   *ledger.Ledger
	pricing  Pricing
	logger   zerolog.Logger
	handlers map[EventKind]func(ctx context.Context, ev Event) error
}

// NewProcessor builds the dispatch table over the given ledger and pricing.
func NewProcessor(l *ledger.Ledger, pricing Pricing, logger zerolog.Logger) *Processor {
	p := &Processor{ledger: l, pricing: pricing, logger: logger}
	p.handlers = map[EventKind]func(ctx context.Context, ev Event) error{
		KindCheckoutCompleted:   p.handleCheckout,
		KindInvoicePaid:         p.handleInvoicePaid,
		KindSubscriptionChanged: p.handleSubscriptionChanged,
	}
	return p
}

// Apply routes an event to its handler. Unknown kinds are an error so a
// mis-translated event cannot vanish silently.
func (p *Processor) Apply(ctx context.Context, ev Event) error {
	handler, ok := p.handlers[ev.Kind]
	if !ok {
		return fmt.Errorf("billing: no handler for event kind %q", ev.Kind)
	}
	return handler(ctx, ev)
}

func (p *Processor) handleCheckout(ctx context.Context, ev Event) error {
	co := ev.Checkout
	if co == nil || co.Email == "" {
		return nil
	}
	for _, priceID := range co.PriceIDs {
		switch co.Mode {
		case ModePayment:
			credits := p.pricing.CreditsForPrice(priceID)
			if credits <= 0 {
				continue
			}
			if _, err := p.ledger.IncrementCredits(ctx, co.Email, credits); err != nil {
				return err
			}
			p.logger.Info().Str("email", co.Email).Int("credits", credits).Msg("pack purchase credited")
		case ModeSubscription:
			monthly := p.pricing.MonthlyGrantForPrice(priceID)
			grant := monthly
			if _, err := p.ledger.SetSubscription(ctx, co.Email, ledger.SubscriptionUpdate{
				Active:       true,
				Plan:         priceID,
				MonthlyGrant: &grant,
			}); err != nil {
				return err
			}
			// Welcome grant equals one monthly allowance.
			if monthly > 0 {
				if _, err := p.ledger.IncrementCredits(ctx, co.Email, monthly); err != nil {
					return err
				}
			}
			p.logger.Info().Str("email", co.Email).Str("plan", priceID).Int("welcome", monthly).Msg("subscription activated")
		}
	}
	return nil
}

func (p *Processor) handleInvoicePaid(ctx context.Context, ev Event) error {
	inv := ev.Invoice
	if inv == nil || inv.Email == "" {
		return nil
	}
	monthly := p.pricing.MonthlyGrantForPrice(inv.PriceID)
	if monthly <= 0 {
		return nil
	}
	if _, err := p.ledger.GrantMonthly(ctx, inv.Email, monthly); err != nil {
		return err
	}
	grant := monthly
	_, err := p.ledger.SetSubscription(ctx, inv.Email, ledger.SubscriptionUpdate{
		Active:       true,
		Plan:         inv.PriceID,
		MonthlyGrant: &grant,
	})
	return err
}

func (p *Processor) handleSubscriptionChanged(ctx context.Context, ev Event) error {
	sub := ev.Subscription
	if sub == nil || sub.Email == "" {
		return nil
	}
	// MonthlyGrant omitted on purpose: lifecycle transitions keep the
	// previously recorded grant.
	_, err := p.ledger.SetSubscription(ctx, sub.Email, ledger.SubscriptionUpdate{
		Active: sub.Active,
		Plan:   sub.PriceID,
	})
	if err == nil {
		p.logger.Info().Str("email", sub.Email).Bool("active", sub.Active).Msg("subscription state updated")
	}
	return err
}
