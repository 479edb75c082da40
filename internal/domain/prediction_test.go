package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestPredictionStatusTerminal(t *testing.T) {
	terminal := []PredictionStatus{PredictionSucceeded, PredictionFailed, PredictionCanceled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%q should be terminal", s)
		}
	}
	running := []PredictionStatus{PredictionStarting, PredictionQueued, PredictionProcessing, "weird"}
	for _, s := range running {
		if s.Terminal() {
			t.Errorf("%q should not be terminal", s)
		}
	}
}

func TestFirstArtifact(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    string
		wantErr error
	}{
		{"bare string", `"https://cdn/x.png"`, "https://cdn/x.png", nil},
		{"array first wins", `["https://cdn/a.png","https://cdn/b.png"]`, "https://cdn/a.png", nil},
		{"single element array", `["https://cdn/only.png"]`, "https://cdn/only.png", nil},
		{"missing output", ``, "", ErrEmptyOutput},
		{"null output", `null`, "", ErrEmptyOutput},
		{"empty array", `[]`, "", ErrEmptyOutput},
		{"empty string", `""`, "", ErrEmptyOutput},
		{"empty first element", `[""]`, "", ErrEmptyOutput},
		{"object output", `{"frames":[]}`, "", ErrUnrecognizedOutput},
		{"number output", `42`, "", ErrUnrecognizedOutput},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := &Prediction{Status: PredictionSucceeded}
			if tc.output != "" {
				p.Output = json.RawMessage(tc.output)
			}
			got, err := p.FirstArtifact()
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("FirstArtifact() error = %v, want %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Fatalf("FirstArtifact() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Alice@Example.COM", "alice@example.com"},
		{"  bob@example.com  ", "bob@example.com"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := NormalizeEmail(tc.in); got != tc.want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestAccountEntitled(t *testing.T) {
	acct := NewAccount("kid@example.com")
	if acct.Entitled() {
		t.Fatal("fresh account should not be entitled")
	}
	acct.Credits = 1
	if !acct.Entitled() {
		t.Fatal("account with credits should be entitled")
	}
	acct.Credits = 0
	acct.Subscription.Active = true
	if !acct.Entitled() {
		t.Fatal("active subscriber should be entitled")
	}
}
