package ingest

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"calibot/internal/domain"
)

// RatingAliases maps org-specific rating vocabulary onto the three-band
// scale. Terms loaded from file are checked before the builtin ones, so
// a deployment can override a builtin phrase.
type RatingAliases struct {
	Terms []RatingAlias `yaml:"terms"`
}

type RatingAlias struct {
	Phrase string `yaml:"phrase"`
	Rating string `yaml:"rating"`
}

var builtinAliases = map[string]domain.Rating{
	"exceeds expectations": domain.RatingHigh,
	"outstanding":          domain.RatingHigh,
	"exceptional":          domain.RatingHigh,
	"top talent":           domain.RatingHigh,
	"meets expectations":   domain.RatingMedium,
	"solid":                domain.RatingMedium,
	"on track":             domain.RatingMedium,
	"below expectations":   domain.RatingLow,
	"needs improvement":    domain.RatingLow,
	"underperforming":      domain.RatingLow,
}

func normalizeTerm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Resolve turns a raw cell value into a rating. Literal band names win,
// then file-loaded terms, then the builtin vocabulary. Safe on a nil
// receiver.
func (a *RatingAliases) Resolve(raw string) (domain.Rating, bool) {
	if r, ok := domain.ParseRating(raw); ok {
		return r, true
	}
	key := normalizeTerm(raw)
	if key == "" {
		return "", false
	}
	if a != nil {
		for _, t := range a.Terms {
			if normalizeTerm(t.Phrase) != key {
				continue
			}
			if r, ok := domain.ParseRating(t.Rating); ok {
				return r, true
			}
		}
	}
	if r, ok := builtinAliases[key]; ok {
		return r, true
	}
	return "", false
}

func LoadRatingAliases(path string) (*RatingAliases, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rating aliases: %w", err)
	}
	var a RatingAliases
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse rating aliases yaml: %w", err)
	}
	return &a, nil
}

// AppendRatingAlias records a new phrase in the alias file, creating the
// file on first use. Duplicate phrases are left alone.
func AppendRatingAlias(path, phrase, rating string) error {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return nil
	}
	band, ok := domain.ParseRating(rating)
	if !ok {
		return fmt.Errorf("unknown rating %q, want High, Medium or Low", rating)
	}

	var aliases RatingAliases
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &aliases); err != nil {
			return fmt.Errorf("parse existing rating aliases: %w", err)
		}
	}

	normalized := normalizeTerm(phrase)
	for _, t := range aliases.Terms {
		if normalizeTerm(t.Phrase) == normalized {
			return nil // already exists
		}
	}

	aliases.Terms = append(aliases.Terms, RatingAlias{
		Phrase: phrase,
		Rating: string(band),
	})
	return saveAliases(path, &aliases)
}

func saveAliases(path string, aliases *RatingAliases) error {
	data, err := yaml.Marshal(aliases)
	if err != nil {
		return fmt.Errorf("marshal rating aliases: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
