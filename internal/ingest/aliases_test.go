package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"calibot/internal/domain"
)

func TestResolveBuiltinsAndLiterals(t *testing.T) {
	var a *RatingAliases // nil is valid

	cases := []struct {
		in   string
		want domain.Rating
		ok   bool
	}{
		{"High", domain.RatingHigh, true},
		{"m", domain.RatingMedium, true},
		{"EXCEEDS EXPECTATIONS", domain.RatingHigh, true},
		{"meets expectations", domain.RatingMedium, true},
		{" Needs Improvement ", domain.RatingLow, true},
		{"galactic", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := a.Resolve(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("Resolve(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestResolveFileTermsBeatBuiltins(t *testing.T) {
	a := &RatingAliases{Terms: []RatingAlias{{Phrase: "Solid", Rating: "Low"}}}
	got, ok := a.Resolve("solid")
	if !ok || got != domain.RatingLow {
		t.Fatalf("expected the file term to win over the builtin, got %q, %v", got, ok)
	}
}

func TestLoadRatingAliases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	content := "terms:\n  - phrase: Rockstar\n    rating: High\n  - phrase: Coasting\n    rating: low\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write aliases failed: %v", err)
	}

	a, err := LoadRatingAliases(path)
	if err != nil {
		t.Fatalf("LoadRatingAliases failed: %v", err)
	}
	if got, ok := a.Resolve("ROCKSTAR"); !ok || got != domain.RatingHigh {
		t.Fatalf("Resolve(ROCKSTAR) = %q, %v", got, ok)
	}
	if got, ok := a.Resolve("coasting"); !ok || got != domain.RatingLow {
		t.Fatalf("Resolve(coasting) = %q, %v", got, ok)
	}

	if _, err := LoadRatingAliases(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestAppendRatingAlias(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yaml")

	if err := AppendRatingAlias(path, "Crushing It", "high"); err != nil {
		t.Fatalf("AppendRatingAlias failed: %v", err)
	}
	a, err := LoadRatingAliases(path)
	if err != nil {
		t.Fatalf("LoadRatingAliases failed: %v", err)
	}
	if got, ok := a.Resolve("crushing it"); !ok || got != domain.RatingHigh {
		t.Fatalf("appended alias not resolvable: %q, %v", got, ok)
	}

	// Duplicate phrases are left alone.
	if err := AppendRatingAlias(path, "  CRUSHING IT ", "low"); err != nil {
		t.Fatalf("duplicate append failed: %v", err)
	}
	a, err = LoadRatingAliases(path)
	if err != nil {
		t.Fatalf("LoadRatingAliases failed: %v", err)
	}
	if len(a.Terms) != 1 {
		t.Fatalf("expected 1 term after duplicate append, got %d", len(a.Terms))
	}
	if got, _ := a.Resolve("crushing it"); got != domain.RatingHigh {
		t.Fatalf("duplicate append changed the rating to %q", got)
	}

	if err := AppendRatingAlias(path, "Meh", "mediocre"); err == nil {
		t.Fatal("expected an error for an unknown rating")
	}

	// Empty phrases are ignored without touching the file.
	if err := AppendRatingAlias(path, "   ", "high"); err != nil {
		t.Fatalf("empty phrase append failed: %v", err)
	}
	a, err = LoadRatingAliases(path)
	if err != nil {
		t.Fatalf("LoadRatingAliases failed: %v", err)
	}
	if len(a.Terms) != 1 {
		t.Fatalf("expected 1 term after empty append, got %d", len(a.Terms))
	}
}
