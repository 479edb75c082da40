package handlers

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/magictales/server/internal/domain"
	"github.com/magictales/server/internal/leads"
)

type saveLeadRequest struct {
	Email     string `json:"email"`
	Image     string `json:"image"`
	Persona   string `json:"persona"`
	Marketing bool   `json:"marketing"`
}

// SaveLead captures a storefront lead, annotating it with request context
// and a best-effort country lookup.
func (a *App) SaveLead(w http.ResponseWriter, r *http.Request) {
	var req saveLeadRequest
	if !a.decode(w, r, &req) {
		return
	}

	lead := domain.Lead{
		Email:   req.Email,
		Image:   req.Image,
		Consent: domain.LeadConsent{Marketing: req.Marketing},
		Meta: domain.LeadMeta{
			Persona:   req.Persona,
			Referrer:  r.Referer(),
			UserAgent: r.UserAgent(),
			Country:   a.countryOf(r),
		},
	}

	result, err := a.Leads.Append(r.Context(), lead)
	if err != nil {
		if errors.Is(err, leads.ErrInvalidEmail) {
			a.error(w, http.StatusBadRequest, "BAD_EMAIL", "a valid email is required")
			return
		}
		a.Logger.Error().Err(err).Msg("lead save failed")
		a.error(w, http.StatusInternalServerError, "INTERNAL", "lead save failed")
		return
	}

	a.json(w, http.StatusOK, map[string]any{
		"ok":      true,
		"id":      result.Lead.ID,
		"total":   result.Size,
		"existed": result.Existed,
	})
}

// Leads lists captured leads, newest first.
func (a *App) ListLeads(w http.ResponseWriter, r *http.Request) {
	items, err := a.Leads.List(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("lead list failed")
		a.error(w, http.StatusInternalServerError, "INTERNAL", "lead list failed")
		return
	}
	if items == nil {
		items = []domain.Lead{}
	}
	a.json(w, http.StatusOK, map[string]any{"leads": items, "total": len(items)})
}

func (a *App) countryOf(r *http.Request) string {
	if a.GeoIP == nil {
		return ""
	}
	ip := clientIP(r)
	if ip == "" {
		return ""
	}
	code, err := a.GeoIP.CountryCode(ip)
	if err != nil {
		return ""
	}
	return code
}

func clientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		parts := strings.Split(xf, ",")
		if ip := strings.TrimSpace(parts[0]); net.ParseIP(ip) != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
