package bias

import (
	"sync"

	"calibot/internal/domain"
)

// Outcome is the result-or-error of one analysis. Exactly one of
// Result and Managers is set on success; Err is set when the analysis
// itself failed on defective data.
type Outcome struct {
	Dimension Dimension
	Result    *DimensionResult
	Managers  *ManagerResult
	Err       error
}

// Status returns the traffic light for this outcome. A failed analysis
// is red: a scan that cannot check a dimension is a problem to chase,
// not a clean bill.
func (o Outcome) Status() Status {
	switch {
	case o.Err != nil:
		return StatusRed
	case o.Managers != nil:
		return o.Managers.Status
	case o.Result != nil:
		return o.Result.Status
	}
	return StatusGreen
}

// Interpretation returns the human-readable line for this outcome,
// including the failure text for errored analyses.
func (o Outcome) Interpretation() string {
	switch {
	case o.Err != nil:
		return "Analysis failed: " + o.Err.Error()
	case o.Managers != nil:
		return o.Managers.Interpretation
	case o.Result != nil:
		return o.Result.Interpretation
	}
	return ""
}

// AnomalyCount tallies the five analysis statuses of a scan. The three
// buckets always sum to the number of analyses.
type AnomalyCount struct {
	Green  int
	Yellow int
	Red    int
}

// ScanReport is the complete output of one scan run.
type ScanReport struct {
	Axis         Axis
	SampleSize   int
	Results      map[Dimension]Outcome
	QualityScore int
	AnomalyCount AnomalyCount
}

// AnalysisDescriptor names one analysis of the scan and how to run it.
type AnalysisDescriptor struct {
	Dimension Dimension
	Title     string
	Run       func([]domain.EmployeeRecord, Options) Outcome
}

// The analysis set is fixed: five analyses, always in this order.
// Rendering layers and stored findings both rely on the order being
// stable across runs and releases.
var analyses = []AnalysisDescriptor{
	{Dimension: DimensionLocation, Title: "Location", Run: runDimension(DimensionLocation)},
	{Dimension: DimensionFunction, Title: "Function", Run: runDimension(DimensionFunction)},
	{Dimension: DimensionJobLevel, Title: "Job Level", Run: runDimension(DimensionJobLevel)},
	{Dimension: DimensionTenure, Title: "Tenure", Run: runDimension(DimensionTenure)},
	{Dimension: DimensionManager, Title: "Manager Teams", Run: runManagers},
}

// Analyses returns the scan's analysis set in execution order.
func Analyses() []AnalysisDescriptor {
	return append([]AnalysisDescriptor(nil), analyses...)
}

func runDimension(dim Dimension) func([]domain.EmployeeRecord, Options) Outcome {
	return func(employees []domain.EmployeeRecord, opts Options) Outcome {
		res, err := AnalyzeDimension(employees, dim, opts.Axis)
		if err != nil {
			return Outcome{Dimension: dim, Err: err}
		}
		return Outcome{Dimension: dim, Result: &res}
	}
}

func runManagers(employees []domain.EmployeeRecord, opts Options) Outcome {
	res, err := AnalyzeManagers(employees, opts)
	if err != nil {
		return Outcome{Dimension: DimensionManager, Err: err}
	}
	return Outcome{Dimension: DimensionManager, Managers: &res}
}

// RunScan executes all five analyses over the snapshot and aggregates
// their statuses into a quality score. The analyses are independent and
// read-only over the input, so they run concurrently; a failure in one
// is captured in its outcome and never takes down the others.
func RunScan(employees []domain.EmployeeRecord, opts Options) ScanReport {
	opts = opts.withDefaults()

	outcomes := make([]Outcome, len(analyses))
	var wg sync.WaitGroup
	for i, a := range analyses {
		wg.Add(1)
		go func(idx int, a AnalysisDescriptor) {
			defer wg.Done()
			outcomes[idx] = a.Run(employees, opts)
		}(i, a)
	}
	wg.Wait()

	report := ScanReport{
		Axis:       opts.Axis,
		SampleSize: len(employees),
		Results:    make(map[Dimension]Outcome, len(outcomes)),
	}
	for _, o := range outcomes {
		report.Results[o.Dimension] = o
		switch o.Status() {
		case StatusRed:
			report.AnomalyCount.Red++
		case StatusYellow:
			report.AnomalyCount.Yellow++
		default:
			report.AnomalyCount.Green++
		}
	}
	report.QualityScore = qualityScore(report.AnomalyCount)
	return report
}

// qualityScore condenses the anomaly counts into a 0-100 number. One
// red costs more than two yellows, and a fully green scan is 100.
func qualityScore(c AnomalyCount) int {
	score := 100 - 20*c.Red - 8*c.Yellow
	if score < 0 {
		score = 0
	}
	return score
}
