package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/magictales/server/internal/domain"
)

// User returns the account record for an email, defaulting fresh accounts to
// zero credits and no subscription.
func (a *App) User(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		a.error(w, http.StatusBadRequest, "BAD_REQUEST", "email is required")
		return
	}

	acct, err := a.Ledger.GetAccount(r.Context(), email)
	if err != nil {
		if errors.Is(err, domain.ErrStorageUnavailable) {
			a.error(w, http.StatusServiceUnavailable, "STORE_DOWN", "account store unavailable")
			return
		}
		a.Logger.Error().Err(err).Msg("account lookup failed")
		a.error(w, http.StatusInternalServerError, "INTERNAL", "account lookup failed")
		return
	}

	a.json(w, http.StatusOK, map[string]any{
		"email":   acct.Email,
		"credits": acct.Credits,
		"subscription": map[string]any{
			"active":        acct.Subscription.Active,
			"plan":          acct.Subscription.Plan,
			"monthly_grant": acct.Subscription.MonthlyGrant,
		},
		"entitled": acct.Entitled(),
	})
}

type unlockRequest struct {
	Email string `json:"email"`
}

// Unlock performs the entitlement check for one metered action. Subscribers
// pass for free; everyone else spends exactly one credit.
func (a *App) Unlock(w http.ResponseWriter, r *http.Request) {
	var req unlockRequest
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		a.error(w, http.StatusBadRequest, "BAD_REQUEST", "email is required")
		return
	}

	result, err := a.Ledger.Unlock(r.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInsufficientCredit):
			a.error(w, http.StatusPaymentRequired, "NO_CREDITS", "no credits remaining")
		case errors.Is(err, domain.ErrStorageUnavailable):
			a.error(w, http.StatusServiceUnavailable, "STORE_DOWN", "account store unavailable")
		default:
			a.Logger.Error().Err(err).Msg("unlock failed")
			a.error(w, http.StatusInternalServerError, "INTERNAL", "unlock failed")
		}
		return
	}

	a.json(w, http.StatusOK, map[string]any{
		"ok":           true,
		"remaining":    result.Remaining,
		"subscription": result.Subscription,
	})
}
