package handlers

import (
	"io"
	"net/http"
)

// maxWebhookBytes bounds the Stripe payload read, per their webhook docs.
const maxWebhookBytes = 1 << 16

// StripeWebhook verifies, translates and applies a payment event. Events the
// ledger does not react to are acknowledged so Stripe stops retrying them.
func (a *App) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if a.Webhook == nil || a.Processor == nil {
		a.error(w, http.StatusNotImplemented, "DISABLED", "billing is not configured")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		a.error(w, http.StatusBadRequest, "BAD_REQUEST", "could not read payload")
		return
	}

	stripeEvent, err := a.Webhook.Verify(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		a.Logger.Warn().Err(err).Msg("webhook signature rejected")
		a.error(w, http.StatusBadRequest, "BAD_SIGNATURE", "signature verification failed")
		return
	}

	event, relevant, err := a.Webhook.Translate(r.Context(), stripeEvent)
	if err != nil {
		a.Logger.Error().Err(err).Str("type", string(stripeEvent.Type)).Msg("webhook translation failed")
		a.error(w, http.StatusInternalServerError, "INTERNAL", "event handling failed")
		return
	}
	if !relevant {
		a.json(w, http.StatusOK, map[string]any{"received": true, "ignored": true})
		return
	}

	if err := a.Processor.Apply(r.Context(), event); err != nil {
		a.Logger.Error().Err(err).Str("kind", string(event.Kind)).Msg("payment event failed")
		a.error(w, http.StatusInternalServerError, "INTERNAL", "event handling failed")
		return
	}

	a.json(w, http.StatusOK, map[string]any{"received": true})
}
