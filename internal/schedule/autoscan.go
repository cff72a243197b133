// Package schedule owns the two background loops: cron-driven automatic
// scans of the latest snapshot and the weekly facilitator reminder.
package schedule

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/slack-go/slack"

	"calibot/internal/bias"
	"calibot/internal/config"
	"calibot/internal/report"
	"calibot/internal/scan"
)

// StartAutoScan schedules recurring scans of the latest snapshot and
// posts each summary to the report channel. A missing schedule disables
// the loop; a bad one is logged and disables it too, so a config typo
// never takes the bot down.
func StartAutoScan(cfg config.Config, db *sql.DB, api *slack.Client) {
	schedule := strings.TrimSpace(cfg.AutoScanSchedule)
	if schedule == "" {
		log.Println("Auto-scan disabled (auto_scan_schedule not set)")
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Printf("Invalid auto_scan_schedule '%s': %v, auto-scan disabled", schedule, err)
		return
	}

	axis, ok := bias.ParseAxis(cfg.AutoScanAxis)
	if !ok {
		axis = bias.AxisPerformance
	}

	log.Printf("Auto-scan scheduled '%s' axis=%s", schedule, axis)

	go func() {
		for {
			now := time.Now().In(cfg.Location)
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("Next auto-scan at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

			time.Sleep(wait)
			runAutoScan(api, db, cfg, axis)
		}
	}()
}

func runAutoScan(api *slack.Client, db *sql.DB, cfg config.Config, axis bias.Axis) {
	res, err := scan.RunStored(db, cfg, axis, "schedule")
	if err != nil {
		log.Printf("Auto-scan failed: %v", err)
		if cfg.ReportChannelID != "" {
			_, _, perr := api.PostMessage(cfg.ReportChannelID,
				slack.MsgOptionText(fmt.Sprintf("Scheduled scan failed: %v", err), false))
			if perr != nil {
				log.Printf("Error posting auto-scan failure: %v", perr)
			}
		}
		return
	}

	if cfg.ReportChannelID == "" {
		log.Printf("Auto-scan stored id=%s, no report_channel_id set, summary not posted", res.Scan.ID)
		return
	}

	summary := report.RenderSlackSummary(cfg.OrgName, res.Report)
	summary += fmt.Sprintf("\nScheduled scan `%s` on `%s`. Run `/scan-report %s` for the full report.",
		res.Scan.ID, res.Snapshot.Filename, res.Scan.ID)
	if _, _, err := api.PostMessage(cfg.ReportChannelID, slack.MsgOptionText(summary, false)); err != nil {
		log.Printf("Error posting auto-scan summary: %v", err)
	}
}
