package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/magictales/server/internal/adapter/repo"
	"github.com/magictales/server/internal/billing"
	"github.com/magictales/server/internal/domain"
	"github.com/magictales/server/internal/infra/geoip"
	"github.com/magictales/server/internal/leads"
	"github.com/magictales/server/internal/ledger"
	"github.com/magictales/server/internal/persona"
	"github.com/magictales/server/internal/replicate"
	"github.com/magictales/server/internal/storage"
)

// App bundles the collaborators every handler needs. Audit and GeoIP are
// optional and may be nil.
type App struct {
	Ledger      *ledger.Ledger
	Persona     *persona.Service
	Leads       *leads.Store
	Blobs       storage.BlobStore
	Predictions *replicate.Client
	Webhook     *billing.StripeWebhook
	Processor   *billing.Processor
	Audit       repo.RequestRepository
	GeoIP       geoip.CountryResolver
	Logger      zerolog.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]any{
		"error": message,
		"code":  code,
	})
}

// generationError maps the typed generation failures onto the HTTP surface.
func (a *App) generationError(w http.ResponseWriter, err error) {
	var failed *domain.JobFailedError
	switch {
	case errors.Is(err, domain.ErrJobTimeout):
		a.error(w, http.StatusGatewayTimeout, "TIMEOUT", "generation timed out")
	case errors.As(err, &failed):
		a.error(w, http.StatusBadGateway, "JOB_FAILED", failed.Error())
	case errors.Is(err, domain.ErrEmptyOutput), errors.Is(err, domain.ErrUnrecognizedOutput):
		a.error(w, http.StatusBadGateway, "NO_OUTPUT", "model returned no usable output")
	default:
		a.Logger.Error().Err(err).Msg("generation failed")
		a.error(w, http.StatusInternalServerError, "INTERNAL", "generation failed")
	}
}

func (a *App) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		a.error(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body")
		return false
	}
	return true
}
