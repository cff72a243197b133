// Package report renders scan results for delivery: a Slack summary, a
// markdown report file and an xlsx workbook.
package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"calibot/internal/bias"
	"calibot/internal/stats"
)

func statusEmoji(s bias.Status) string {
	switch s {
	case bias.StatusRed:
		return ":red_circle:"
	case bias.StatusYellow:
		return ":large_yellow_circle:"
	}
	return ":large_green_circle:"
}

// RenderSlackSummary formats a scan as one Slack mrkdwn message, one
// line per analysis in the fixed scan order.
func RenderSlackSummary(orgName string, rep bias.ScanReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s calibration scan (%s axis)*\n", orgName, rep.Axis)
	fmt.Fprintf(&b, "Quality score %d/100 on %d employees: %d green, %d yellow, %d red\n\n",
		rep.QualityScore, rep.SampleSize,
		rep.AnomalyCount.Green, rep.AnomalyCount.Yellow, rep.AnomalyCount.Red)
	for _, a := range bias.Analyses() {
		o := rep.Results[a.Dimension]
		fmt.Fprintf(&b, "%s *%s:* %s\n", statusEmoji(o.Status()), a.Title, o.Interpretation())
	}
	return b.String()
}

// RenderMarkdownReport formats the full scan for the report file, one
// section per analysis with the deviation and manager tables.
func RenderMarkdownReport(orgName string, generatedAt time.Time, rep bias.ScanReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Calibration Scan: %s\n\n", orgName)
	fmt.Fprintf(&b, "- Generated: %s\n", generatedAt.Format("2006-01-02"))
	fmt.Fprintf(&b, "- Axis: %s\n", rep.Axis)
	fmt.Fprintf(&b, "- Employees: %d\n", rep.SampleSize)
	fmt.Fprintf(&b, "- Quality score: %d/100 (%d green, %d yellow, %d red)\n",
		rep.QualityScore, rep.AnomalyCount.Green, rep.AnomalyCount.Yellow, rep.AnomalyCount.Red)

	for _, a := range bias.Analyses() {
		o := rep.Results[a.Dimension]
		fmt.Fprintf(&b, "\n## %s\n\n", a.Title)
		fmt.Fprintf(&b, "Status: %s\n\n", strings.ToUpper(string(o.Status())))
		if line := o.Interpretation(); line != "" {
			b.WriteString(line)
			b.WriteString("\n")
		}
		if o.Result != nil {
			writeDimensionDetail(&b, o.Result)
		}
		if o.Managers != nil {
			writeManagerDetail(&b, o.Managers)
		}
	}
	return b.String()
}

func writeDimensionDetail(b *strings.Builder, res *bias.DimensionResult) {
	if len(res.Deviations) == 0 {
		return
	}
	b.WriteString("\n| Category | Employees | High | Observed High | Expected High | z-score |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, d := range res.Deviations {
		fmt.Fprintf(b, "| %s | %d | %d | %.1f%% | %.1f%% | %.2f |\n",
			d.Category, d.CategorySize, d.HighCount, d.ObservedHighPct, d.ExpectedHighPct, d.ZScore)
	}
	fmt.Fprintf(b, "\nChi-square %.3f (df=%d), p=%.3f, effect size %.3f.\n",
		res.ChiSquare, res.DegreesOfFreedom, res.PValue, res.EffectSize)

	if res.Status != bias.StatusGreen {
		if fr, category, ok := fisherCrossCheck(res); ok {
			fmt.Fprintf(b, "Fisher cross-check for %s against the rest: odds ratio %s, p=%.3f.\n",
				category, formatOddsRatio(fr.OddsRatio), fr.PValue)
		}
	}
}

// fisherCrossCheck rebuilds the two-by-two table for the strongest
// deviating category against everyone else. Display only; it never
// changes a status.
func fisherCrossCheck(res *bias.DimensionResult) (stats.FisherResult, string, bool) {
	if len(res.Deviations) == 0 {
		return stats.FisherResult{}, "", false
	}
	top := res.Deviations[0]
	totalHigh := 0
	for _, d := range res.Deviations {
		totalHigh += d.HighCount
	}
	a := top.HighCount
	b := top.CategorySize - top.HighCount
	c := totalHigh - a
	d := (res.SampleSize - top.CategorySize) - c
	fr, err := stats.FisherExact(a, b, c, d)
	if err != nil {
		return stats.FisherResult{}, "", false
	}
	return fr, top.Category, true
}

func formatOddsRatio(or float64) string {
	if math.IsInf(or, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", or)
}

func writeManagerDetail(b *strings.Builder, res *bias.ManagerResult) {
	if len(res.Findings) == 0 {
		return
	}
	b.WriteString("\n| Manager | Team | High | Medium | Low | High deviation | p-value |\n")
	b.WriteString("|---|---|---|---|---|---|---|\n")
	for _, f := range res.Findings {
		fmt.Fprintf(b, "| %s | %d | %.0f%% | %.0f%% | %.0f%% | %+.0f%% | %.3f |\n",
			f.ManagerName, f.TeamSize, f.HighPct, f.MediumPct, f.LowPct, f.HighDeviation, f.PValue)
	}
	if res.Qualifying > len(res.Findings) {
		fmt.Fprintf(b, "\nShowing %d of %d analyzed managers.\n", len(res.Findings), res.Qualifying)
	}
}
