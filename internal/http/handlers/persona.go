package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/magictales/server/internal/persona"
)

type personaRequest struct {
	Image         string `json:"image"`
	Prompt        string `json:"prompt"`
	Transform     string `json:"transform"`
	Control       string `json:"control"`
	PreserveFaces bool   `json:"preserve_faces"`
}

// GeneratePersona runs the themed group-photo transform.
func (a *App) GeneratePersona(w http.ResponseWriter, r *http.Request) {
	var req personaRequest
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Image) == "" {
		a.error(w, http.StatusBadRequest, "BAD_REQUEST", "image is required")
		return
	}

	params := persona.PersonaParams{
		Image:         req.Image,
		Prompt:        req.Prompt,
		Transform:     persona.Transform(req.Transform),
		Control:       persona.Control(req.Control),
		PreserveFaces: req.PreserveFaces,
	}

	start := time.Now()
	url, err := a.Persona.GeneratePersona(r.Context(), params)
	a.audit(r.Context(), "/api/generate-persona", string(params.Transform), url, err, time.Since(start))
	if err != nil {
		a.generationError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"url": url})
}
