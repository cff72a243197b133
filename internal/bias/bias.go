// Package bias runs the calibration analyses: four demographic
// dimensions plus manager-level rating distributions, each tested for
// systematic skew in who gets High ratings. Results carry a traffic
// light status so a facilitator can read a scan at a glance: green is
// no detected skew, yellow is a statistically significant pattern, red
// is a significant pattern with at least one strongly deviating
// category.
package bias

import (
	"calibot/internal/domain"
)

// Axis selects which of the two grid ratings a scan examines.
type Axis string

const (
	AxisPerformance Axis = "performance"
	AxisPotential   Axis = "potential"
)

// ParseAxis normalizes user input to an axis.
func ParseAxis(s string) (Axis, bool) {
	switch s {
	case "performance", "perf":
		return AxisPerformance, true
	case "potential", "pot":
		return AxisPotential, true
	}
	return "", false
}

// Dimension names one of the five analyses of a scan.
type Dimension string

const (
	DimensionLocation Dimension = "location"
	DimensionFunction Dimension = "function"
	DimensionJobLevel Dimension = "job_level"
	DimensionTenure   Dimension = "tenure"
	DimensionManager  Dimension = "manager"
)

// Status is the traffic light attached to each analysis.
type Status string

const (
	StatusGreen  Status = "green"
	StatusYellow Status = "yellow"
	StatusRed    Status = "red"
)

// Analysis thresholds. These are fixed properties of the method, not
// configuration: moving them would change what a status means across
// every stored scan.
const (
	// MinSampleSize is the smallest snapshot a dimension analysis will
	// touch.
	MinSampleSize = 30
	// MinCategorySize is the smallest category kept on its own; smaller
	// ones are grouped into "Other".
	MinCategorySize = 10
	// SignificantZ is the absolute z-score at which a single category's
	// High-rate deviation counts as strong. The comparison is
	// inclusive.
	SignificantZ = 2.0
	// Alpha is the p-value threshold for statistical significance.
	Alpha = 0.05

	DefaultMinTeamSize          = 10
	DefaultMaxDisplayedManagers = 10
)

// Baseline is the rating distribution managers are compared against,
// in percent. The default is the classic 20/70/10 guideline.
type Baseline struct {
	HighPct   float64
	MediumPct float64
	LowPct    float64
}

// DefaultBaseline returns the 20/70/10 guideline distribution.
func DefaultBaseline() Baseline {
	return Baseline{HighPct: 20, MediumPct: 70, LowPct: 10}
}

func (b Baseline) isZero() bool {
	return b.HighPct == 0 && b.MediumPct == 0 && b.LowPct == 0
}

// Options configures a scan run. Zero values fall back to the package
// defaults, so Options{} runs a performance scan against 20/70/10.
type Options struct {
	Axis         Axis
	Baseline     Baseline
	MinTeamSize  int
	MaxDisplayed int
}

func (o Options) withDefaults() Options {
	if o.Axis == "" {
		o.Axis = AxisPerformance
	}
	if o.Baseline.isZero() {
		o.Baseline = DefaultBaseline()
	}
	if o.MinTeamSize <= 0 {
		o.MinTeamSize = DefaultMinTeamSize
	}
	if o.MaxDisplayed <= 0 {
		o.MaxDisplayed = DefaultMaxDisplayedManagers
	}
	return o
}

// Deviation is one category's High-rate deviation inside a dimension
// analysis. CategorySize and HighCount carry the raw counts so report
// layers can rebuild two-by-two tables without re-deriving them from
// percentages.
type Deviation struct {
	Category        string
	CategorySize    int
	HighCount       int
	ObservedHighPct float64
	ExpectedHighPct float64
	ZScore          float64
	IsSignificant   bool
}

// DimensionResult is the outcome of one dimension analysis. Deviations
// are sorted by absolute z-score, strongest first.
type DimensionResult struct {
	Dimension        Dimension
	ChiSquare        float64
	PValue           float64
	EffectSize       float64
	DegreesOfFreedom int
	SampleSize       int
	Status           Status
	Deviations       []Deviation
	Interpretation   string
}

// ManagerFinding is one manager's rating distribution compared against
// the baseline.
type ManagerFinding struct {
	ManagerID     string
	ManagerName   string
	TeamSize      int
	ChiSquare     float64
	PValue        float64
	ZScore        float64
	HighPct       float64
	MediumPct     float64
	LowPct        float64
	HighDeviation float64
	IsSignificant bool
}

// ManagerResult is the outcome of the manager analysis. Findings are
// ranked by total absolute percentage deviation from the baseline and
// truncated to the configured display limit; Qualifying counts every
// analyzed manager before truncation.
type ManagerResult struct {
	Dimension      Dimension
	PValue         float64
	SampleSize     int
	Qualifying     int
	Status         Status
	Findings       []ManagerFinding
	Interpretation string
}

func ratingFor(e domain.EmployeeRecord, axis Axis) domain.Rating {
	if axis == AxisPotential {
		return e.Potential
	}
	return e.Performance
}

func dimensionValue(e domain.EmployeeRecord, dim Dimension) string {
	switch dim {
	case DimensionLocation:
		return e.Location
	case DimensionFunction:
		return e.Function
	case DimensionJobLevel:
		return e.JobLevel
	case DimensionTenure:
		return e.TenureCategory
	}
	return ""
}

func dimensionLabel(dim Dimension) string {
	switch dim {
	case DimensionJobLevel:
		return "job level"
	case DimensionManager:
		return "manager"
	}
	return string(dim)
}
