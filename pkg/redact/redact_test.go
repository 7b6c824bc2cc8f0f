package redact

import (
	"strings"
	"testing"
)

func TestRedactHidesEmailAndAPIKey(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New error = %v", err)
	}

	input := "Email me at alice@example.com and use sk-abcdef0123456789 for auth."
	out := r.Redact(input)

	if strings.Contains(out, "alice@example.com") {
		t.Errorf("output still contains email: %s", out)
	}
	if strings.Contains(out, "sk-abcdef0123456789") {
		t.Errorf("output still contains api key: %s", out)
	}
	if !strings.Contains(out, "[[redacted:email:") {
		t.Errorf("expected email placeholder in output: %s", out)
	}
	if !strings.Contains(out, "[[redacted:apikey:") {
		t.Errorf("expected apikey placeholder in output: %s", out)
	}
}

func TestRedactRehydrateRoundTrip(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatal(err)
	}

	input := "Email me at alice@example.com and use sk-abcdef0123456789 for auth."
	redacted := r.Redact(input)
	rehydrated := r.Rehydrate(redacted)

	if rehydrated != input {
		t.Errorf("Rehydrate(Redact(x)) = %q, want %q", rehydrated, input)
	}
}

func TestRedactStablePlaceholders(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatal(err)
	}

	input := "contact bob@example.com or bob@example.com again"
	out := r.Redact(input)

	var placeholders []string
	for _, field := range strings.Fields(out) {
		if strings.HasPrefix(field, "[[redacted:email:") {
			placeholders = append(placeholders, field)
		}
	}
	if len(placeholders) != 2 {
		t.Fatalf("expected 2 placeholders, got %d: %v", len(placeholders), placeholders)
	}
	if placeholders[0] != placeholders[1] {
		t.Errorf("expected identical placeholders for identical input, got %q vs %q", placeholders[0], placeholders[1])
	}
}

func TestRehydrateLeavesUnknownPlaceholdersAlone(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatal(err)
	}

	text := "see [[redacted:email:abcdef]] for details"
	out := r.Rehydrate(text)
	if out != text {
		t.Errorf("Rehydrate() = %q, want unchanged %q", out, text)
	}
}

func TestDifferentInstancesUseDifferentSalts(t *testing.T) {
	r1, err := New()
	if err != nil {
		t.Fatal(err)
	}
	r2, err := New()
	if err != nil {
		t.Fatal(err)
	}

	out1 := r1.Redact("alice@example.com")
	out2 := r2.Redact("alice@example.com")

	if out1 == out2 {
		t.Error("expected different placeholders across instances with independent salts (extremely unlikely collision)")
	}
}
