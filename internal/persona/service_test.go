package persona

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/magictales/server/internal/replicate"
)

// call records one SubmitAndAwait invocation.
type call struct {
	model string
	input replicate.Input
}

// scriptedAwaiter answers each model with a scripted result or error.
type scriptedAwaiter struct {
	calls   []call
	results map[string]string
	errs    map[string]error
}

func (s *scriptedAwaiter) SubmitAndAwait(ctx context.Context, model string, input replicate.Input, opts replicate.PollOptions) (string, error) {
	s.calls = append(s.calls, call{model: model, input: input})
	if err := s.errs[model]; err != nil {
		return "", err
	}
	return s.results[model], nil
}

func testService(awaiter Awaiter) *Service {
	return NewService(awaiter, Models{}, nil, replicate.PollOptions{}, zerolog.Nop())
}

func TestGenerateAvatarDefaultsPrompt(t *testing.T) {
	awaiter := &scriptedAwaiter{results: map[string]string{
		"black-forest-labs/flux-kontext-pro": "https://cdn.test/avatar.jpg",
	}}
	svc := testService(awaiter)

	url, err := svc.GenerateAvatar(context.Background(), "https://cdn.test/face.jpg", "")
	if err != nil {
		t.Fatalf("GenerateAvatar() error = %v", err)
	}
	if url != "https://cdn.test/avatar.jpg" {
		t.Fatalf("url = %q", url)
	}
	if got := awaiter.calls[0].input["prompt"]; got != DefaultAvatarPrompt {
		t.Fatalf("prompt = %v, want default avatar prompt", got)
	}
}

func TestGeneratePersonaRequiresImage(t *testing.T) {
	svc := testService(&scriptedAwaiter{})
	if _, err := svc.GeneratePersona(context.Background(), PersonaParams{}); err == nil {
		t.Fatal("expected error for missing image")
	}
}

func TestGeneratePersonaGlobalTransform(t *testing.T) {
	awaiter := &scriptedAwaiter{results: map[string]string{
		"black-forest-labs/flux-kontext-pro": "https://cdn.test/out.jpg",
	}}
	svc := testService(awaiter)

	url, err := svc.GeneratePersona(context.Background(), PersonaParams{
		Image:  "https://cdn.test/group.jpg",
		Prompt: "victorian explorers",
	})
	if err != nil {
		t.Fatalf("GeneratePersona() error = %v", err)
	}
	if url != "https://cdn.test/out.jpg" {
		t.Fatalf("url = %q", url)
	}
	if len(awaiter.calls) != 1 {
		t.Fatalf("calls = %d, want single global edit", len(awaiter.calls))
	}
	prompt, _ := awaiter.calls[0].input["prompt"].(string)
	if !strings.Contains(prompt, "victorian explorers") {
		t.Fatalf("prompt missing theme: %q", prompt)
	}
	if !strings.Contains(prompt, "preserving each person's facial features") {
		t.Fatalf("prompt missing guardrails: %q", prompt)
	}
}

func TestGeneratePersonaMaskedTransform(t *testing.T) {
	awaiter := &scriptedAwaiter{results: map[string]string{
		"meta/sam-2":                      "https://cdn.test/mask.png",
		"black-forest-labs/flux-fill-pro": "https://cdn.test/filled.jpg",
	}}
	svc := testService(awaiter)

	url, err := svc.GeneratePersona(context.Background(), PersonaParams{
		Image:     "https://cdn.test/group.jpg",
		Prompt:    "space crew",
		Transform: TransformOutfitsBG,
	})
	if err != nil {
		t.Fatalf("GeneratePersona() error = %v", err)
	}
	if url != "https://cdn.test/filled.jpg" {
		t.Fatalf("url = %q", url)
	}
	if len(awaiter.calls) != 2 {
		t.Fatalf("calls = %d, want mask then fill", len(awaiter.calls))
	}
	if awaiter.calls[0].model != "meta/sam-2" {
		t.Fatalf("first call = %q", awaiter.calls[0].model)
	}
	if got := awaiter.calls[1].input["mask"]; got != "https://cdn.test/mask.png" {
		t.Fatalf("fill mask = %v", got)
	}
}

func TestGeneratePersonaDegradesWhenMaskFails(t *testing.T) {
	awaiter := &scriptedAwaiter{
		results: map[string]string{
			"black-forest-labs/flux-kontext-pro": "https://cdn.test/global.jpg",
		},
		errs: map[string]error{
			"meta/sam-2": errors.New("segmentation unavailable"),
		},
	}
	svc := testService(awaiter)

	url, err := svc.GeneratePersona(context.Background(), PersonaParams{
		Image:     "https://cdn.test/group.jpg",
		Prompt:    "pirates",
		Transform: TransformBackgroundOnly,
	})
	if err != nil {
		t.Fatalf("GeneratePersona() error = %v, mask failure must degrade", err)
	}
	if url != "https://cdn.test/global.jpg" {
		t.Fatalf("url = %q, want global fallback", url)
	}
}

func TestGeneratePersonaPreserveFacesTask(t *testing.T) {
	awaiter := &scriptedAwaiter{results: map[string]string{
		"meta/sam-2":                      "https://cdn.test/mask.png",
		"black-forest-labs/flux-fill-pro": "https://cdn.test/filled.jpg",
	}}
	svc := testService(awaiter)

	_, err := svc.GeneratePersona(context.Background(), PersonaParams{
		Image:         "https://cdn.test/group.jpg",
		Transform:     TransformOutfitsBG,
		PreserveFaces: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := awaiter.calls[0].input["task"]; got != "face" {
		t.Fatalf("task = %v, want face mask when preserving faces", got)
	}
}

func TestGeneratePersonaControlHintSurvivesProbeFailure(t *testing.T) {
	awaiter := &scriptedAwaiter{
		results: map[string]string{
			"black-forest-labs/flux-kontext-pro": "https://cdn.test/out.jpg",
		},
		errs: map[string]error{
			"replicate/canny": errors.New("probe down"),
		},
	}
	svc := testService(awaiter)

	_, err := svc.GeneratePersona(context.Background(), PersonaParams{
		Image:   "https://cdn.test/group.jpg",
		Control: ControlCanny,
	})
	if err != nil {
		t.Fatalf("GeneratePersona() error = %v, probe failure must be ignored", err)
	}
	prompt, _ := awaiter.calls[len(awaiter.calls)-1].input["prompt"].(string)
	if !strings.Contains(prompt, "edge contours") {
		t.Fatalf("prompt missing canny hint: %q", prompt)
	}
}

func TestGenerateStoryPagesSequential(t *testing.T) {
	awaiter := &scriptedAwaiter{results: map[string]string{
		"black-forest-labs/flux-kontext-pro": "https://cdn.test/page.png",
	}}
	svc := testService(awaiter)

	pages, err := svc.GenerateStoryPages(context.Background(), "https://cdn.test/hero.jpg", []string{"p1", "p2", "p3"})
	if err != nil {
		t.Fatalf("GenerateStoryPages() error = %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("pages = %d, want 3", len(pages))
	}
	if len(awaiter.calls) != 3 {
		t.Fatalf("calls = %d, want one per prompt", len(awaiter.calls))
	}
	for i, want := range []string{"p1", "p2", "p3"} {
		if got := awaiter.calls[i].input["prompt"]; got != want {
			t.Fatalf("call %d prompt = %v, want %q", i, got, want)
		}
	}
}

func TestGenerateStoryPagesAbortsOnFailure(t *testing.T) {
	boom := errors.New("model exploded")
	awaiter := &scriptedAwaiter{errs: map[string]error{
		"black-forest-labs/flux-kontext-pro": boom,
	}}
	svc := testService(awaiter)

	_, err := svc.GenerateStoryPages(context.Background(), "img", []string{"p1", "p2"})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped page failure", err)
	}
	if len(awaiter.calls) != 1 {
		t.Fatalf("calls = %d, want abort after first failure", len(awaiter.calls))
	}
}

func TestComposeBookDryRun(t *testing.T) {
	awaiter := &scriptedAwaiter{}
	svc := testService(awaiter)

	book, err := svc.ComposeBook(context.Background(), BookRequest{
		ChildName: "maya",
		PageCount: 4,
		DryRun:    true,
	})
	if err != nil {
		t.Fatalf("ComposeBook() error = %v", err)
	}
	if len(awaiter.calls) != 0 {
		t.Fatalf("dry run must not hit the provider, got %d calls", len(awaiter.calls))
	}
	if book.City != "Toronto" {
		t.Fatalf("city = %q", book.City)
	}
	if len(book.Pages) != 4 {
		t.Fatalf("pages = %d, want 4", len(book.Pages))
	}
	for _, page := range book.Pages {
		if page.ImageURL != "" {
			t.Fatalf("dry run page has image: %+v", page)
		}
		if page.Prompt == "" {
			t.Fatalf("page %s missing prompt", page.ID)
		}
	}
}
