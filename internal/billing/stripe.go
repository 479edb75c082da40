package billing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/customer"
	"github.com/stripe/stripe-go/v76/webhook"
)

// CustomerEmails resolves a Stripe customer id to an email address.
// Subscription and invoice events only reference the customer id.
type CustomerEmails interface {
	EmailForCustomer(ctx context.Context, customerID string) (string, error)
}

// SessionLineItems expands a checkout session into its price identifiers.
type SessionLineItems interface {
	PriceIDs(ctx context.Context, sessionID string) ([]string, error)
}

// StripeDirectory answers both lookups against the live Stripe API.
type StripeDirectory struct{}

func (StripeDirectory) EmailForCustomer(ctx context.Context, customerID string) (string, error) {
	c, err := customer.Get(customerID, nil)
	if err != nil {
		return "", fmt.Errorf("billing: retrieve customer %s: %w", customerID, err)
	}
	return c.Email, nil
}

func (StripeDirectory) PriceIDs(ctx context.Context, sessionID string) ([]string, error) {
	params := &stripe.CheckoutSessionListLineItemsParams{
		Session: stripe.String(sessionID),
	}
	params.Limit = stripe.Int64(10)
	iter := session.ListLineItems(params)
	var ids []string
	for iter.Next() {
		li := iter.LineItem()
		if li.Price != nil && li.Price.ID != "" {
			ids = append(ids, li.Price.ID)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("billing: list line items for %s: %w", sessionID, err)
	}
	return ids, nil
}

// StripeWebhook verifies raw webhook payloads and translates the provider's
// event taxonomy into the typed variants the processor dispatches on.
type StripeWebhook struct {
	secret    string
	customers CustomerEmails
	lineItems SessionLineItems
	logger    zerolog.Logger
}

// NewStripeWebhook wires the webhook translator. A StripeDirectory serves
// both lookups in production; tests substitute fakes.
func NewStripeWebhook(secret string, customers CustomerEmails, lineItems SessionLineItems, logger zerolog.Logger) *StripeWebhook {
	return &StripeWebhook{secret: secret, customers: customers, lineItems: lineItems, logger: logger}
}

// Verify checks the signature header and parses the raw event.
func (w *StripeWebhook) Verify(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, signature, w.secret)
}

// Translate maps a verified Stripe event to a typed billing event. The
// second return is false for event types this service ignores.
func (w *StripeWebhook) Translate(ctx context.Context, event stripe.Event) (Event, bool, error) {
	switch event.Type {
	case "checkout.session.completed":
		return w.translateCheckout(ctx, event)
	case "invoice.payment_succeeded":
		return w.translateInvoice(ctx, event)
	case "customer.subscription.deleted",
		"customer.subscription.paused",
		"customer.subscription.updated":
		return w.translateSubscription(ctx, event)
	default:
		w.logger.Debug().Str("type", string(event.Type)).Msg("ignoring webhook event type")
		return Event{}, false, nil
	}
}

func (w *StripeWebhook) translateCheckout(ctx context.Context, event stripe.Event) (Event, bool, error) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return Event{}, false, fmt.Errorf("billing: decode checkout session: %w", err)
	}

	email := ""
	if sess.CustomerDetails != nil {
		email = sess.CustomerDetails.Email
	}
	if email == "" {
		email = sess.CustomerEmail
	}
	if email == "" {
		email = sess.Metadata["email"]
	}
	if email == "" {
		w.logger.Warn().Str("session", sess.ID).Msg("checkout session without resolvable email")
		return Event{}, false, nil
	}

	priceIDs, err := w.lineItems.PriceIDs(ctx, sess.ID)
	if err != nil {
		return Event{}, false, err
	}

	return Event{
		Kind: KindCheckoutCompleted,
		Checkout: &CheckoutCompleted{
			Email:    email,
			Mode:     CheckoutMode(sess.Mode),
			PriceIDs: priceIDs,
		},
	}, true, nil
}

func (w *StripeWebhook) translateInvoice(ctx context.Context, event stripe.Event) (Event, bool, error) {
	var inv stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		return Event{}, false, fmt.Errorf("billing: decode invoice: %w", err)
	}
	if inv.Customer == nil || inv.Customer.ID == "" {
		return Event{}, false, nil
	}
	email, err := w.customers.EmailForCustomer(ctx, inv.Customer.ID)
	if err != nil {
		return Event{}, false, err
	}
	if email == "" {
		return Event{}, false, nil
	}

	priceID := ""
	if inv.Lines != nil && len(inv.Lines.Data) > 0 && inv.Lines.Data[0].Price != nil {
		priceID = inv.Lines.Data[0].Price.ID
	}

	return Event{
		Kind:    KindInvoicePaid,
		Invoice: &InvoicePaid{Email: email, PriceID: priceID},
	}, true, nil
}

func (w *StripeWebhook) translateSubscription(ctx context.Context, event stripe.Event) (Event, bool, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return Event{}, false, fmt.Errorf("billing: decode subscription: %w", err)
	}
	if sub.Customer == nil || sub.Customer.ID == "" {
		return Event{}, false, nil
	}
	email, err := w.customers.EmailForCustomer(ctx, sub.Customer.ID)
	if err != nil {
		return Event{}, false, err
	}
	if email == "" {
		return Event{}, false, nil
	}

	priceID := ""
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		priceID = sub.Items.Data[0].Price.ID
	}

	return Event{
		Kind: KindSubscriptionChanged,
		Subscription: &SubscriptionChanged{
			Email:   email,
			PriceID: priceID,
			Active:  sub.Status == stripe.SubscriptionStatusActive,
		},
	}, true, nil
}
