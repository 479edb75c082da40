package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/magictales/server/internal/persona"
)

type storyPagesRequest struct {
	Image   string   `json:"image"`
	Prompts []string `json:"prompts"`
}

// GenerateStoryPages renders one illustration per prompt, in order.
func (a *App) GenerateStoryPages(w http.ResponseWriter, r *http.Request) {
	var req storyPagesRequest
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Image) == "" {
		a.error(w, http.StatusBadRequest, "BAD_REQUEST", "image is required")
		return
	}
	if len(req.Prompts) == 0 {
		a.error(w, http.StatusBadRequest, "BAD_REQUEST", "at least one prompt is required")
		return
	}

	start := time.Now()
	pages, err := a.Persona.GenerateStoryPages(r.Context(), req.Image, req.Prompts)
	a.audit(r.Context(), "/api/generate-story-pages", "story", strings.Join(pages, ","), err, time.Since(start))
	if err != nil {
		a.generationError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"pages": pages})
}

type bookRequest struct {
	ChildName      string `json:"child_name"`
	AvatarDesc     string `json:"avatar_desc"`
	AvatarImageURL string `json:"avatar_image_url"`
	PageCount      int    `json:"page_count"`
	DryRun         bool   `json:"dry_run"`
}

// ComposeBook plans and renders a personalized city storybook. With dry_run
// set only the planned copy and prompts come back.
func (a *App) ComposeBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if !a.decode(w, r, &req) {
		return
	}

	start := time.Now()
	book, err := a.Persona.ComposeBook(r.Context(), persona.BookRequest{
		ChildName:      req.ChildName,
		AvatarDesc:     req.AvatarDesc,
		AvatarImageURL: req.AvatarImageURL,
		PageCount:      req.PageCount,
		DryRun:         req.DryRun,
	})
	if !req.DryRun {
		a.audit(r.Context(), "/api/magictales/book", "book", "", err, time.Since(start))
	}
	if err != nil {
		a.generationError(w, err)
		return
	}
	a.json(w, http.StatusOK, book)
}
