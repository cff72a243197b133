package domain

import "time"

// Snapshot is a stored calibration roster: one uploaded workbook,
// normalized and kept so scans can be re-run and compared over time.
type Snapshot struct {
	ID            string
	Filename      string
	UploadedBy    string // Slack user ID, or "schedule" for automated imports
	EmployeeCount int
	WarningCount  int
	CreatedAt     time.Time
}

// ScanRecord is the persisted header of one bias scan run.
type ScanRecord struct {
	ID           string
	SnapshotID   string
	Axis         string // "performance" or "potential"
	QualityScore int
	GreenCount   int
	YellowCount  int
	RedCount     int
	SampleSize   int
	TriggeredBy  string // Slack user ID, or "schedule"
	CreatedAt    time.Time
}

// Finding is one persisted per-analysis row of a scan: the headline
// numbers plus the strongest deviation, enough to rebuild history views
// without re-running the engine.
type Finding struct {
	ID             int64
	ScanID         string
	Dimension      string
	Status         string
	ChiSquare      float64
	PValue         float64
	EffectSize     float64
	DF             int
	SampleSize     int
	TopCategory    string
	TopZScore      float64
	Interpretation string
	FailureReason  string // non-empty when the analysis itself errored
}

// NarrativeRecord tracks one LLM narrative generation for a scan,
// including token usage for cost accounting.
type NarrativeRecord struct {
	ID           int64
	ScanID       string
	Provider     string
	Model        string
	InputTokens  int64
	OutputTokens int64
	CreatedAt    time.Time
}

// ScanTrendPoint is one week of scan activity, used by the history
// dashboard.
type ScanTrendPoint struct {
	WeekStart   string
	Scans       int
	AvgQuality  float64
	RedFindings int
}
