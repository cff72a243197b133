// Package scan runs the bias engine against stored snapshots and
// persists the outcome, for both slash commands and the scheduler.
package scan

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"calibot/internal/bias"
	"calibot/internal/config"
	"calibot/internal/domain"
	"calibot/internal/storage/sqlite"
)

// Result pairs the persisted scan row with the in-memory report it was
// built from, so callers can render without a second DB round trip.
type Result struct {
	Scan     domain.ScanRecord
	Report   bias.ScanReport
	Snapshot domain.Snapshot
}

// Options maps the deployment baseline and display limits onto the engine.
func Options(cfg config.Config, axis bias.Axis) bias.Options {
	return bias.Options{
		Axis: axis,
		Baseline: bias.Baseline{
			HighPct:   cfg.BaselineHighPct,
			MediumPct: cfg.BaselineMediumPct,
			LowPct:    cfg.BaselineLowPct,
		},
		MinTeamSize:  cfg.MinTeamSize,
		MaxDisplayed: cfg.MaxDisplayedManagers,
	}
}

// RunStored scans the latest snapshot and records the scan with one
// finding row per analysis.
func RunStored(db *sql.DB, cfg config.Config, axis bias.Axis, triggeredBy string) (Result, error) {
	snap, err := sqlite.GetLatestSnapshot(db)
	if errors.Is(err, sql.ErrNoRows) {
		return Result{}, fmt.Errorf("no snapshot uploaded yet")
	}
	if err != nil {
		return Result{}, fmt.Errorf("loading latest snapshot: %w", err)
	}
	employees, err := sqlite.GetSnapshotEmployees(db, snap.ID)
	if err != nil {
		return Result{}, fmt.Errorf("loading snapshot roster: %w", err)
	}
	if len(employees) == 0 {
		return Result{}, fmt.Errorf("snapshot %s has no employees", snap.ID)
	}

	rep := bias.RunScan(employees, Options(cfg, axis))

	rec := domain.ScanRecord{
		SnapshotID:   snap.ID,
		Axis:         string(rep.Axis),
		QualityScore: rep.QualityScore,
		GreenCount:   rep.AnomalyCount.Green,
		YellowCount:  rep.AnomalyCount.Yellow,
		RedCount:     rep.AnomalyCount.Red,
		SampleSize:   rep.SampleSize,
		TriggeredBy:  triggeredBy,
	}
	id, err := sqlite.InsertScan(db, rec, Findings(rep))
	if err != nil {
		return Result{}, fmt.Errorf("storing scan: %w", err)
	}
	rec.ID = id

	log.Printf("scan stored id=%s axis=%s quality=%d sample=%d triggered_by=%s",
		rec.ID, rec.Axis, rec.QualityScore, rec.SampleSize, triggeredBy)
	return Result{Scan: rec, Report: rep, Snapshot: snap}, nil
}

// Findings flattens a report into persistable rows, one per analysis in
// the fixed analysis order.
func Findings(rep bias.ScanReport) []domain.Finding {
	var findings []domain.Finding
	for _, a := range bias.Analyses() {
		out, ok := rep.Results[a.Dimension]
		if !ok {
			continue
		}
		f := domain.Finding{
			Dimension:      string(a.Dimension),
			Status:         string(out.Status()),
			Interpretation: out.Interpretation(),
		}
		if out.Err != nil {
			f.FailureReason = out.Err.Error()
		}
		if res := out.Result; res != nil {
			f.ChiSquare = res.ChiSquare
			f.PValue = res.PValue
			f.EffectSize = res.EffectSize
			f.DF = res.DegreesOfFreedom
			f.SampleSize = res.SampleSize
			if len(res.Deviations) > 0 {
				f.TopCategory = res.Deviations[0].Category
				f.TopZScore = res.Deviations[0].ZScore
			}
		}
		if mgr := out.Managers; mgr != nil {
			f.PValue = mgr.PValue
			f.SampleSize = mgr.SampleSize
			if len(mgr.Findings) > 0 {
				f.TopCategory = mgr.Findings[0].ManagerName
				f.TopZScore = mgr.Findings[0].ZScore
			}
		}
		findings = append(findings, f)
	}
	return findings
}
