package persona

import (
	"strings"
	"testing"
)

func TestPlanBookFillsTokens(t *testing.T) {
	pages := PlanBook(DefaultCity, "maya", "curly hair, green jacket", "", 4)
	if len(pages) != 4 {
		t.Fatalf("pages = %d, want 4", len(pages))
	}

	if pages[0].Heading != "Hello, Maya!" {
		t.Fatalf("intro heading = %q", pages[0].Heading)
	}
	for _, page := range pages {
		if strings.Contains(page.Heading+page.Body+page.Prompt, "{{") {
			t.Fatalf("page %s has unfilled tokens: %+v", page.ID, page)
		}
	}

	closing := pages[len(pages)-1]
	if closing.ID != "closing" {
		t.Fatalf("last page = %q, want closing", closing.ID)
	}
	if !strings.Contains(closing.Body, "CN Tower") {
		t.Fatalf("closing should list visited landmarks: %q", closing.Body)
	}
}

func TestPlanBookClampsPageCount(t *testing.T) {
	if got := len(PlanBook(DefaultCity, "x", "", "", 0)); got != 2 {
		t.Fatalf("pages = %d, want clamp to 2", got)
	}
	// The template caps the upper bound regardless of the requested count.
	if got := len(PlanBook(DefaultCity, "x", "", "", 99)); got != len(bookTemplate) {
		t.Fatalf("pages = %d, want template length %d", got, len(bookTemplate))
	}
}

func TestPlanBookReferenceImageInPrompt(t *testing.T) {
	pages := PlanBook(DefaultCity, "leo", "", "https://cdn.test/avatar.jpg", 3)
	for _, page := range pages {
		if !strings.Contains(page.Prompt, "https://cdn.test/avatar.jpg") {
			t.Fatalf("page %s prompt missing reference image", page.ID)
		}
	}
}

func TestHeroName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"maya", "Maya"},
		{"  LEO  ", "Leo"},
		{"", "Ella"},
		{"mary jane", "Mary Jane"},
	}
	for _, tc := range tests {
		if got := HeroName(tc.in); got != tc.want {
			t.Errorf("HeroName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestChooseLandmarkMatchesTags(t *testing.T) {
	lm := chooseLandmark(DefaultCity, []string{"zoo"})
	if lm.ID != "toronto_zoo" {
		t.Fatalf("landmark = %q, want toronto_zoo", lm.ID)
	}
	// No tag match falls back to the first landmark.
	lm = chooseLandmark(DefaultCity, []string{"beach"})
	if lm.ID != "cntower" {
		t.Fatalf("landmark = %q, want first as fallback", lm.ID)
	}
}
