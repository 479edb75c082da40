package persona

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/magictales/server/internal/replicate"
	"github.com/magictales/server/internal/storage"
)

// Models names the provider model slugs each stage runs on.
type Models struct {
	Kontext string // single-stage photo edit
	Fill    string // masked inpainting
	Segment string // person/face mask extraction
	Canny   string // edge structure probe
	Depth   string // depth structure probe
	Page    string // storybook page text-to-image
}

func (m Models) withDefaults() Models {
	if m.Kontext == "" {
		m.Kontext = "black-forest-labs/flux-kontext-pro"
	}
	if m.Fill == "" {
		m.Fill = "black-forest-labs/flux-fill-pro"
	}
	if m.Segment == "" {
		m.Segment = "meta/sam-2"
	}
	if m.Canny == "" {
		m.Canny = "replicate/canny"
	}
	if m.Depth == "" {
		m.Depth = "chenxwh/depth-anything-v2"
	}
	if m.Page == "" {
		m.Page = "black-forest-labs/flux-schnell"
	}
	return m
}

// Awaiter is the submit-and-wait surface the orchestration composes.
// *replicate.Poller satisfies it.
type Awaiter interface {
	SubmitAndAwait(ctx context.Context, model string, input replicate.Input, opts replicate.PollOptions) (string, error)
}

// Service composes poller calls into the product's generation flows. Pipeline
// fallback policy lives here, not in the poller: a failed intermediate stage
// degrades to a simpler transform instead of failing the request.
type Service struct {
	poller Awaiter
	models Models
	blobs  storage.BlobStore
	fetch  *http.Client
	opts   replicate.PollOptions
	logger zerolog.Logger
}

// NewService wires the orchestration layer.
func NewService(poller Awaiter, models Models, blobs storage.BlobStore, opts replicate.PollOptions, logger zerolog.Logger) *Service {
	return &Service{
		poller: poller,
		models: models.withDefaults(),
		blobs:  blobs,
		fetch:  &http.Client{Timeout: 60 * time.Second},
		opts:   opts,
		logger: logger,
	}
}

// Generate runs the plain single-stage edit used by the main storefront flow.
func (s *Service) Generate(ctx context.Context, image, prompt string) (string, error) {
	return s.poller.SubmitAndAwait(ctx, s.models.Kontext, replicate.Input{
		"prompt":       prompt,
		"input_image":  image,
		"aspect_ratio": "4:5",
		"guidance":     3,
		"strength":     0.7,
		"num_outputs":  1,
	}, s.opts)
}

// GenerateAvatar renders the uploaded face into the storybook hero
// illustration, falling back to the default theme when no prompt is given.
func (s *Service) GenerateAvatar(ctx context.Context, image, prompt string) (string, error) {
	if prompt == "" {
		prompt = DefaultAvatarPrompt
	}
	return s.poller.SubmitAndAwait(ctx, s.models.Kontext, replicate.Input{
		"input_image":   image,
		"prompt":        prompt,
		"output_format": "jpg",
	}, s.opts)
}

// PersonaParams selects the persona transform pipeline.
type PersonaParams struct {
	Image         string
	Prompt        string
	Transform     Transform
	Control       Control
	PreserveFaces bool
}

// GeneratePersona runs the themed group-photo transform. The two-stage
// transforms (mask, then inpaint) degrade to the single-stage global edit
// when the mask stage fails.
func (s *Service) GeneratePersona(ctx context.Context, params PersonaParams) (string, error) {
	if params.Image == "" {
		return "", errors.New("persona: image is required")
	}
	if params.Transform == "" {
		params.Transform = TransformGlobal
	}

	hint := s.probeStructure(ctx, params.Image, params.Control)
	finalPrompt := BuildGuardedPrompt(params.Prompt, hint)

	switch params.Transform {
	case TransformGlobal:
		return s.globalTransform(ctx, params.Image, finalPrompt)
	case TransformOutfitsBG:
		task := "person"
		if params.PreserveFaces {
			task = "face"
		}
		return s.maskedTransform(ctx, params.Image, finalPrompt, task)
	case TransformBackgroundOnly:
		return s.maskedTransform(ctx, params.Image, finalPrompt, "person")
	default:
		return "", fmt.Errorf("persona: unknown transform %q", params.Transform)
	}
}

// probeStructure best-effort warms a structure model and returns the matching
// prompt hint. Probe failures are ignored: the hint still applies.
func (s *Service) probeStructure(ctx context.Context, image string, control Control) string {
	var model string
	switch control {
	case ControlCanny:
		model = s.models.Canny
	case ControlDepth:
		model = s.models.Depth
	default:
		return ""
	}
	if _, err := s.poller.SubmitAndAwait(ctx, model, replicate.Input{"image": image}, s.opts); err != nil {
		s.logger.Debug().Err(err).Str("control", string(control)).Msg("structure probe failed, hint only")
	}
	return StructureHint(control)
}

func (s *Service) globalTransform(ctx context.Context, image, prompt string) (string, error) {
	return s.poller.SubmitAndAwait(ctx, s.models.Kontext, replicate.Input{
		"input_image":   image,
		"prompt":        prompt,
		"output_format": "jpg",
	}, s.opts)
}

func (s *Service) maskedTransform(ctx context.Context, image, prompt, task string) (string, error) {
	maskURL, err := s.poller.SubmitAndAwait(ctx, s.models.Segment, replicate.Input{
		"image": image,
		"task":  task,
	}, s.opts)
	if err != nil {
		s.logger.Warn().Err(err).Str("task", task).Msg("mask stage failed, degrading to global transform")
		return s.globalTransform(ctx, image, prompt)
	}
	return s.poller.SubmitAndAwait(ctx, s.models.Fill, replicate.Input{
		"image":         image,
		"mask":          maskURL,
		"prompt":        prompt,
		"output_format": "jpg",
		"mask_invert":   true,
	}, s.opts)
}

// GenerateStoryPages renders one artifact per prompt against the same source
// image, in order. Pages run sequentially so a request holds at most one
// provider job; the first failure aborts with its typed error.
func (s *Service) GenerateStoryPages(ctx context.Context, image string, prompts []string) ([]string, error) {
	pages := make([]string, 0, len(prompts))
	for i, prompt := range prompts {
		url, err := s.poller.SubmitAndAwait(ctx, s.models.Kontext, replicate.Input{
			"prompt":      prompt,
			"input_image": image,
		}, s.opts)
		if err != nil {
			return nil, fmt.Errorf("persona: page %d: %w", i+1, err)
		}
		pages = append(pages, url)
	}
	return pages, nil
}

// BookRequest plans a personalized city storybook.
type BookRequest struct {
	ChildName      string
	AvatarDesc     string
	AvatarImageURL string
	PageCount      int
	DryRun         bool
}

// Book is the composed result: page copy plus persisted illustrations. PDF
// assembly happens client-side.
type Book struct {
	City  string     `json:"city"`
	Pages []BookPage `json:"pages"`
}

// ComposeBook expands the template, generates each illustration, and pins the
// artifacts to the blob store so they outlive the provider's ephemeral URLs.
// DryRun skips generation and returns the planned copy and prompts only.
func (s *Service) ComposeBook(ctx context.Context, req BookRequest) (*Book, error) {
	pages := PlanBook(DefaultCity, req.ChildName, req.AvatarDesc, req.AvatarImageURL, req.PageCount)
	if req.DryRun {
		return &Book{City: DefaultCity.Name, Pages: pages}, nil
	}

	for i := range pages {
		input := replicate.Input{
			"prompt": pages[i].Prompt,
			"seed":   rand.Intn(1_000_000_000),
		}
		if req.AvatarImageURL != "" {
			input["image"] = req.AvatarImageURL
			input["guide_strength"] = 0.85
		}
		genURL, err := s.poller.SubmitAndAwait(ctx, s.models.Page, input, s.opts)
		if err != nil {
			return nil, fmt.Errorf("persona: book page %s: %w", pages[i].ID, err)
		}
		pinned, err := s.pinArtifact(ctx, genURL)
		if err != nil {
			return nil, err
		}
		pages[i].ImageURL = pinned
	}
	return &Book{City: DefaultCity.Name, Pages: pages}, nil
}

// pinArtifact copies a provider artifact into our own blob storage.
func (s *Service) pinArtifact(ctx context.Context, artifactURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artifactURL, nil)
	if err != nil {
		return "", fmt.Errorf("persona: fetch artifact: %w", err)
	}
	resp, err := s.fetch.Do(req)
	if err != nil {
		return "", fmt.Errorf("persona: fetch artifact: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("persona: fetch artifact: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return "", fmt.Errorf("persona: read artifact: %w", err)
	}
	key := fmt.Sprintf("pages/%d-%s.png", time.Now().UnixMilli(), uuid.NewString())
	url, err := s.blobs.Put(ctx, key, data, "image/png")
	if err != nil {
		return "", fmt.Errorf("persona: pin artifact: %w", err)
	}
	return url, nil
}
