package slackbot

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"calibot/internal/bias"
	"calibot/internal/config"
	"calibot/internal/domain"
	"calibot/internal/ingest"
	"calibot/internal/org"
	"calibot/internal/report"
	"calibot/internal/scan"
	"calibot/internal/storage/sqlite"
)

// maxListedIssues caps each problem list in the org-check output so a
// messy snapshot does not blow past Slack's message limits.
const maxListedIssues = 15

func handleScan(api *slack.Client, db *sql.DB, cfg config.Config, cmd slack.SlashCommand) {
	ok, err := isFacilitatorUser(api, cfg, cmd.UserID)
	if err != nil {
		postEphemeral(api, cmd, fmt.Sprintf("Error checking permissions: %v", err))
		return
	}
	if !ok {
		postEphemeral(api, cmd, "Sorry, only calibration facilitators can use this command.")
		log.Printf("Scan denied user=%s", cmd.UserID)
		return
	}

	axis, ok := parseScanAxis(cmd.Text)
	if !ok {
		postEphemeral(api, cmd, fmt.Sprintf("Unknown axis %q. Usage: `/scan [performance|potential]`", strings.TrimSpace(cmd.Text)))
		return
	}

	postEphemeral(api, cmd, fmt.Sprintf("Scanning latest snapshot (%s axis)...", axis))

	res, err := scan.RunStored(db, cfg, axis, cmd.UserID)
	if err != nil {
		if strings.Contains(err.Error(), "no snapshot") {
			postEphemeral(api, cmd, "No snapshot uploaded yet. Share a ratings .xlsx in the report channel first.")
			return
		}
		log.Printf("Scan failed user=%s axis=%s: %v", cmd.UserID, axis, err)
		postEphemeral(api, cmd, fmt.Sprintf("Scan failed: %v", err))
		return
	}

	summary := report.RenderSlackSummary(cfg.OrgName, res.Report)
	summary += fmt.Sprintf("\nScan `%s` on `%s`. Run `/scan-report %s` for the full report.",
		res.Scan.ID, res.Snapshot.Filename, res.Scan.ID)
	if _, _, err := api.PostMessage(cmd.ChannelID, slack.MsgOptionText(summary, false)); err != nil {
		log.Printf("Error posting scan summary: %v", err)
		postEphemeral(api, cmd, fmt.Sprintf("Scan stored as `%s` but posting the summary failed: %v", res.Scan.ID, err))
	}
}

func handleScanReport(api *slack.Client, db *sql.DB, cfg config.Config, cmd slack.SlashCommand) {
	ok, err := isFacilitatorUser(api, cfg, cmd.UserID)
	if err != nil {
		postEphemeral(api, cmd, fmt.Sprintf("Error checking permissions: %v", err))
		return
	}
	if !ok {
		postEphemeral(api, cmd, "Sorry, only calibration facilitators can use this command.")
		log.Printf("Scan-report denied user=%s", cmd.UserID)
		return
	}

	arg := strings.TrimSpace(cmd.Text)
	var rec domain.ScanRecord
	if arg == "" {
		rec, err = sqlite.GetLatestScan(db)
		if errors.Is(err, sql.ErrNoRows) {
			postEphemeral(api, cmd, "No scans recorded yet. Run `/scan` first.")
			return
		}
	} else {
		rec, err = sqlite.GetScanByID(db, arg)
		if errors.Is(err, sql.ErrNoRows) {
			postEphemeral(api, cmd, fmt.Sprintf("Scan `%s` not found. Run `/scan-history` to list recent scans.", arg))
			return
		}
	}
	if err != nil {
		log.Printf("Error loading scan record: %v", err)
		postEphemeral(api, cmd, fmt.Sprintf("Error loading scan: %v", err))
		return
	}

	postEphemeral(api, cmd, fmt.Sprintf("Building report for scan `%s`...", rec.ID))

	employees, err := sqlite.GetSnapshotEmployees(db, rec.SnapshotID)
	if err != nil {
		log.Printf("Error loading snapshot roster scan=%s: %v", rec.ID, err)
		postEphemeral(api, cmd, fmt.Sprintf("Error loading snapshot roster: %v", err))
		return
	}

	// The full report is recomputed from the stored roster; the engine is
	// deterministic, so this matches what the scan saw.
	axis, ok := bias.ParseAxis(rec.Axis)
	if !ok {
		axis = bias.AxisPerformance
	}
	rep := bias.RunScan(employees, scan.Options(cfg, axis))
	createdAt := rec.CreatedAt.In(cfg.Location)
	markdown := report.RenderMarkdownReport(cfg.OrgName, createdAt, rep)

	var narrativeNote string
	if cfg.LLMNarrativeEnabled {
		narrative, usage, err := generateNarrativeFn(cfg, cfg.OrgName, rep)
		if err != nil {
			log.Printf("Narrative generation failed scan=%s: %v", rec.ID, err)
			narrativeNote = fmt.Sprintf("Narrative unavailable: %v", err)
		} else {
			markdown += "\n## Facilitator Briefing\n\n" + narrative + "\n"
			narrativeNote = fmt.Sprintf("Narrative tokens used: %s.", formatTokenCount(usage.TotalTokens()))
			if err := sqlite.InsertNarrative(db, domain.NarrativeRecord{
				ScanID:       rec.ID,
				Provider:     cfg.LLMProvider,
				Model:        cfg.LLMModel,
				InputTokens:  usage.InputTokens,
				OutputTokens: usage.OutputTokens,
			}); err != nil {
				log.Printf("Error storing narrative record scan=%s: %v", rec.ID, err)
			}
		}
	}

	mdPath, err := report.WriteReportFile(markdown, cfg.ReportOutputDir, rec.ID, createdAt, cfg.OrgName)
	if err != nil {
		log.Printf("Error writing report file scan=%s: %v", rec.ID, err)
		postEphemeral(api, cmd, fmt.Sprintf("Error writing report file: %v", err))
		return
	}
	wb := report.BuildWorkbook(rep, employees)
	xlsxPath, err := report.WriteWorkbookFile(wb, cfg.ReportOutputDir, rec.ID, createdAt, cfg.OrgName)
	if err != nil {
		log.Printf("Error writing workbook file scan=%s: %v", rec.ID, err)
		postEphemeral(api, cmd, fmt.Sprintf("Error writing workbook file: %v", err))
		return
	}
	log.Printf("scan-report scan=%s files=%s,%s", rec.ID, mdPath, xlsxPath)

	mdComment := fmt.Sprintf("Calibration report for %s, %s axis, scan `%s`", cfg.OrgName, rep.Axis, rec.ID)
	if err := uploadScanFile(api, cmd.ChannelID, mdPath, fmt.Sprintf("Calibration scan %s", rec.ID), mdComment); err != nil {
		log.Printf("Error uploading report file: %v", err)
		postEphemeral(api, cmd, "Error uploading report file to channel. Check bot permissions.")
		return
	}
	xlsxComment := "Supporting workbook: summary, deviations, manager teams and the raw grid."
	if err := uploadScanFile(api, cmd.ChannelID, xlsxPath, fmt.Sprintf("Calibration workbook %s", rec.ID), xlsxComment); err != nil {
		log.Printf("Error uploading workbook file: %v", err)
		postEphemeral(api, cmd, "Error uploading workbook file to channel. Check bot permissions.")
		return
	}

	msg := fmt.Sprintf("Report ready for scan `%s` (%s axis, quality %d/100)", rec.ID, rep.Axis, rep.QualityScore)
	msg += fmt.Sprintf("\nSaved to: %s", mdPath)
	msg += fmt.Sprintf("\nSaved to: %s", xlsxPath)
	if narrativeNote != "" {
		msg += "\n" + narrativeNote
	}
	postEphemeral(api, cmd, msg)
}

func uploadScanFile(api *slack.Client, channelID, path, title, comment string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stating generated file: %w", err)
	}
	if fi.Size() <= 0 {
		return fmt.Errorf("generated file %s is empty", filepath.Base(path))
	}
	_, err = api.UploadFileV2(slack.UploadFileV2Parameters{
		File:           path,
		FileSize:       int(fi.Size()),
		Filename:       filepath.Base(path),
		Channel:        channelID,
		Title:          title,
		InitialComment: comment,
	})
	return err
}

func handleScanHistory(api *slack.Client, db *sql.DB, cfg config.Config, cmd slack.SlashCommand) {
	ok, err := isFacilitatorUser(api, cfg, cmd.UserID)
	if err != nil {
		postEphemeral(api, cmd, fmt.Sprintf("Error checking permissions: %v", err))
		return
	}
	if !ok {
		postEphemeral(api, cmd, "Sorry, only calibration facilitators can use this command.")
		log.Printf("Scan-history denied user=%s", cmd.UserID)
		return
	}

	scans, err := sqlite.GetRecentScans(db, 10)
	if err != nil {
		log.Printf("Error loading scan history: %v", err)
		postEphemeral(api, cmd, fmt.Sprintf("Error loading scan history: %v", err))
		return
	}
	if len(scans) == 0 {
		postEphemeral(api, cmd, "No scans recorded yet. Run `/scan` after uploading a snapshot.")
		return
	}

	trend, err := sqlite.GetWeeklyScanTrend(db, time.Now().AddDate(0, 0, -8*7))
	if err != nil {
		log.Printf("Error loading scan trend: %v", err)
		trend = nil
	}
	stats, err := sqlite.GetNarrativeStats(db, time.Now().AddDate(0, 0, -4*7))
	if err != nil {
		log.Printf("Error loading narrative stats: %v", err)
		stats = sqlite.NarrativeStats{}
	}

	postEphemeral(api, cmd, renderScanHistory(cfg.Location, scans, trend, stats))
}

func renderScanHistory(loc *time.Location, scans []domain.ScanRecord, trend []domain.ScanTrendPoint, stats sqlite.NarrativeStats) string {
	var b strings.Builder
	b.WriteString("*Calibration Scan History*\n\n")
	b.WriteString("*Recent Scans*\n")
	for _, s := range scans {
		fmt.Fprintf(&b, "- `%s` %s: %s axis, quality %d/100 (%dG/%dY/%dR), n=%d, by %s\n",
			s.ID, s.CreatedAt.In(loc).Format("Jan 2 15:04"), s.Axis, s.QualityScore,
			s.GreenCount, s.YellowCount, s.RedCount, s.SampleSize, s.TriggeredBy)
	}
	if len(trend) > 0 {
		b.WriteString("\n*Weekly Trend (last 8 weeks)*\n")
		for _, p := range trend {
			fmt.Fprintf(&b, "- %s: %d scans, avg quality %.0f, %d red findings\n",
				p.WeekStart, p.Scans, p.AvgQuality, p.RedFindings)
		}
	}
	if stats.Narratives > 0 {
		b.WriteString("\n*Narrative Usage (last 4 weeks)*\n")
		fmt.Fprintf(&b, "- narratives generated: %d\n", stats.Narratives)
		fmt.Fprintf(&b, "- tokens: %s in / %s out\n",
			formatTokenCount(stats.InputTokens), formatTokenCount(stats.OutputTokens))
	}
	return b.String()
}

func handleOrgCheck(api *slack.Client, db *sql.DB, cfg config.Config, cmd slack.SlashCommand) {
	ok, err := isFacilitatorUser(api, cfg, cmd.UserID)
	if err != nil {
		postEphemeral(api, cmd, fmt.Sprintf("Error checking permissions: %v", err))
		return
	}
	if !ok {
		postEphemeral(api, cmd, "Sorry, only calibration facilitators can use this command.")
		log.Printf("Org-check denied user=%s", cmd.UserID)
		return
	}

	snap, err := sqlite.GetLatestSnapshot(db)
	if errors.Is(err, sql.ErrNoRows) {
		postEphemeral(api, cmd, "No snapshot uploaded yet. Share a ratings .xlsx in the report channel first.")
		return
	}
	if err != nil {
		log.Printf("Error loading latest snapshot: %v", err)
		postEphemeral(api, cmd, fmt.Sprintf("Error loading latest snapshot: %v", err))
		return
	}
	employees, err := sqlite.GetSnapshotEmployees(db, snap.ID)
	if err != nil {
		log.Printf("Error loading snapshot roster snapshot=%s: %v", snap.ID, err)
		postEphemeral(api, cmd, fmt.Sprintf("Error loading snapshot roster: %v", err))
		return
	}

	sr := org.BuildTree(employees).Validate()
	log.Printf("org-check snapshot=%s employees=%d clean=%t", snap.ID, sr.Employees, sr.Clean())
	postEphemeral(api, cmd, renderStructureReport(snap, sr))
}

func renderStructureReport(snap domain.Snapshot, sr org.StructureReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Org structure check* for snapshot `%s` (%d employees)\n", snap.Filename, sr.Employees)
	if len(sr.Roots) > 0 {
		fmt.Fprintf(&b, "Top of tree: %s\n", strings.Join(sr.Roots, ", "))
	}
	if sr.Clean() {
		b.WriteString("\nNo structural problems found. Manager-team analysis will cover the full snapshot.")
		return b.String()
	}

	if len(sr.Orphans) > 0 {
		fmt.Fprintf(&b, "\n*Orphaned employees (%d)*, manager name not found in the snapshot:\n", len(sr.Orphans))
		lines := make([]string, 0, len(sr.Orphans))
		for _, o := range sr.Orphans {
			lines = append(lines, fmt.Sprintf("`%s` reports to unknown manager %q", o.EmployeeID, o.ManagerName))
		}
		writeIssueList(&b, lines)
	}
	if len(sr.SelfManaged) > 0 {
		fmt.Fprintf(&b, "\n*Self-managed employees (%d)*:\n", len(sr.SelfManaged))
		lines := make([]string, 0, len(sr.SelfManaged))
		for _, id := range sr.SelfManaged {
			lines = append(lines, fmt.Sprintf("`%s`", id))
		}
		writeIssueList(&b, lines)
	}
	if len(sr.Cycles) > 0 {
		fmt.Fprintf(&b, "\n*Reporting cycles (%d)*:\n", len(sr.Cycles))
		lines := make([]string, 0, len(sr.Cycles))
		for _, c := range sr.Cycles {
			lines = append(lines, strings.Join(c, " -> "))
		}
		writeIssueList(&b, lines)
	}
	if len(sr.DuplicateIDs) > 0 {
		fmt.Fprintf(&b, "\n*Duplicate employee IDs (%d)*:\n", len(sr.DuplicateIDs))
		lines := make([]string, 0, len(sr.DuplicateIDs))
		for _, id := range sr.DuplicateIDs {
			lines = append(lines, fmt.Sprintf("`%s`", id))
		}
		writeIssueList(&b, lines)
	}
	if len(sr.DuplicateNames) > 0 {
		fmt.Fprintf(&b, "\n*Duplicate names (%d)*, ambiguous when matching managers by name:\n", len(sr.DuplicateNames))
		writeIssueList(&b, sr.DuplicateNames)
	}
	b.WriteString("\nFix these in the source sheet and upload a fresh snapshot.")
	return b.String()
}

func writeIssueList(b *strings.Builder, lines []string) {
	for i, line := range lines {
		if i == maxListedIssues {
			fmt.Fprintf(b, "- and %d more\n", len(lines)-maxListedIssues)
			return
		}
		b.WriteString("- " + line + "\n")
	}
}

func handleBaseline(api *slack.Client, cfg config.Config, cmd slack.SlashCommand) {
	var b strings.Builder
	b.WriteString("*Rating Baseline*\n")
	fmt.Fprintf(&b, "- expected distribution: %.0f%% High / %.0f%% Medium / %.0f%% Low\n",
		cfg.BaselineHighPct, cfg.BaselineMediumPct, cfg.BaselineLowPct)
	fmt.Fprintf(&b, "- manager teams analyzed at %d+ direct reports\n", cfg.MinTeamSize)
	fmt.Fprintf(&b, "- top %d most deviating teams shown per scan\n", cfg.MaxDisplayedManagers)
	postEphemeral(api, cmd, b.String())
}

func handleScanAlias(api *slack.Client, cfg config.Config, cmd slack.SlashCommand) {
	ok, err := isFacilitatorUser(api, cfg, cmd.UserID)
	if err != nil {
		postEphemeral(api, cmd, fmt.Sprintf("Error checking permissions: %v", err))
		return
	}
	if !ok {
		postEphemeral(api, cmd, "Sorry, only calibration facilitators can use this command.")
		log.Printf("Scan-alias denied user=%s", cmd.UserID)
		return
	}

	if cfg.RatingAliasesPath == "" {
		postEphemeral(api, cmd, "Rating aliases are not configured. Set rating_aliases_path in config.yaml first.")
		return
	}
	phrase, rating, ok := parseAliasArgs(cmd.Text)
	if !ok {
		postEphemeral(api, cmd, "Usage: `/scan-alias <phrase> = <High|Medium|Low>`")
		return
	}
	if err := ingest.AppendRatingAlias(cfg.RatingAliasesPath, phrase, string(rating)); err != nil {
		log.Printf("Error saving rating alias: %v", err)
		postEphemeral(api, cmd, fmt.Sprintf("Error saving alias: %v", err))
		return
	}
	log.Printf("Rating alias added by user=%s: %q -> %s", cmd.UserID, phrase, rating)
	postEphemeral(api, cmd, fmt.Sprintf("Added rating alias: %q now reads as %s.", phrase, rating))
}

// parseScanAxis reads the /scan argument. Empty input means a
// performance scan.
func parseScanAxis(text string) (bias.Axis, bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return bias.AxisPerformance, true
	}
	return bias.ParseAxis(text)
}

// parseAliasArgs splits "/scan-alias <phrase> = <rating>" input.
func parseAliasArgs(text string) (string, domain.Rating, bool) {
	parts := strings.SplitN(text, "=", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	phrase := strings.TrimSpace(parts[0])
	rating, ok := domain.ParseRating(strings.TrimSpace(parts[1]))
	if phrase == "" || !ok {
		return "", "", false
	}
	return phrase, rating, true
}
