package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/magictales/server/internal/adapter/repo"
)

type generateRequest struct {
	Image  string `json:"image"`
	Prompt string `json:"prompt"`
}

// Generate runs the single-stage storefront edit. The request blocks until
// the provider job resolves; the artifact URL comes back in the response.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Image) == "" {
		a.error(w, http.StatusBadRequest, "BAD_REQUEST", "image is required")
		return
	}

	start := time.Now()
	url, err := a.Persona.Generate(r.Context(), req.Image, req.Prompt)
	a.audit(r.Context(), "/api/generate", "generate", url, err, time.Since(start))
	if err != nil {
		a.generationError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"image": url})
}

// GenerateAvatar renders the hero avatar used by the storybook flow.
func (a *App) GenerateAvatar(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Image) == "" {
		a.error(w, http.StatusBadRequest, "BAD_REQUEST", "image is required")
		return
	}

	start := time.Now()
	url, err := a.Persona.GenerateAvatar(r.Context(), req.Image, req.Prompt)
	a.audit(r.Context(), "/api/generate-avatar", "avatar", url, err, time.Since(start))
	if err != nil {
		a.generationError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"url": url})
}

// PollAvatar is a passthrough for clients that submitted asynchronously and
// poll the prediction themselves.
func (a *App) PollAvatar(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		a.error(w, http.StatusBadRequest, "BAD_REQUEST", "id is required")
		return
	}
	pred, err := a.Predictions.Poll(r.Context(), id)
	if err != nil {
		a.Logger.Error().Err(err).Str("prediction_id", id).Msg("poll failed")
		a.error(w, http.StatusBadGateway, "UPSTREAM", "provider poll failed")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"id":     pred.ID,
		"status": pred.Status,
		"output": pred.Output,
		"error":  pred.Error,
	})
}

// audit best-effort records a generation request. A nil repository or a
// write failure never affects the response.
func (a *App) audit(ctx context.Context, endpoint, model, artifactURL string, genErr error, latency time.Duration) {
	if a.Audit == nil {
		return
	}
	rec := &repo.GenerationRecord{
		Endpoint:    endpoint,
		Model:       model,
		Status:      "succeeded",
		LatencyMS:   latency.Milliseconds(),
		ArtifactURL: artifactURL,
	}
	if genErr != nil {
		rec.Status = "failed"
		rec.ErrorText = genErr.Error()
	}
	if err := a.Audit.Record(ctx, rec); err != nil {
		a.Logger.Warn().Err(err).Msg("audit record failed")
	}
}
