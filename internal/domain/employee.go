package domain

import "strings"

// Rating is one of the three calibration bands used on both axes of the
// talent grid.
type Rating string

const (
	RatingLow    Rating = "Low"
	RatingMedium Rating = "Medium"
	RatingHigh   Rating = "High"
)

// ParseRating normalizes a raw rating cell to one of the three bands.
// It accepts the canonical words and their common single-letter and
// abbreviated forms; anything else is rejected so the caller can decide
// whether to warn or consult the alias glossary.
func ParseRating(raw string) (Rating, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low", "l":
		return RatingLow, true
	case "medium", "med", "m", "mid":
		return RatingMedium, true
	case "high", "h":
		return RatingHigh, true
	}
	return "", false
}

func ratingIndex(r Rating) int {
	switch r {
	case RatingLow:
		return 0
	case RatingMedium:
		return 1
	case RatingHigh:
		return 2
	}
	return -1
}

// GridPosition maps a performance/potential pair to its nine-box cell,
// numbered 1..9 bottom-left to top-right: performance moves along the row,
// potential picks the row. Returns 0 if either rating is not one of the
// three bands.
func GridPosition(performance, potential Rating) int {
	pi := ratingIndex(performance)
	ti := ratingIndex(potential)
	if pi < 0 || ti < 0 {
		return 0
	}
	return ti*3 + pi + 1
}

// EmployeeRecord is one row of a calibration snapshot. Manager is the
// display name written in the HRIS export, not an employee ID; the org
// package resolves it against the rest of the snapshot.
type EmployeeRecord struct {
	ID             string
	Name           string
	Location       string
	Function       string
	JobLevel       string
	TenureCategory string
	ManagerName    string
	Performance    Rating
	Potential      Rating
}
