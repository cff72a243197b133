// Package app wires config, storage, the background loops and the
// Slack surface into the running bot.
package app

import (
	"log"
	"os"

	"github.com/slack-go/slack"

	"calibot/internal/config"
	"calibot/internal/httpx"
	slackbot "calibot/internal/integrations/slack"
	"calibot/internal/schedule"
	"calibot/internal/storage/sqlite"
)

func Main() {
	cfg := config.LoadConfig()
	appliedHTTPTimeout := httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	log.Printf(
		"Config loaded. Org=%s Facilitators=%d Timezone=%s Baseline=%.0f/%.0f/%.0f MinTeamSize=%d MaxDisplayedManagers=%d NarrativeEnabled=%t ExternalHTTPTimeout=%s",
		cfg.OrgName,
		len(cfg.FacilitatorSlackIDs),
		cfg.Timezone,
		cfg.BaselineHighPct,
		cfg.BaselineMediumPct,
		cfg.BaselineLowPct,
		cfg.MinTeamSize,
		cfg.MaxDisplayedManagers,
		cfg.LLMNarrativeEnabled,
		appliedHTTPTimeout,
	)

	db, err := sqlite.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	log.Printf("Database initialized at %s", cfg.DBPath)
	defer db.Close()

	os.MkdirAll(cfg.ReportOutputDir, 0755)
	log.Printf("Report output dir: %s", cfg.ReportOutputDir)

	api := slack.New(
		cfg.SlackBotToken,
		slack.OptionAppLevelToken(cfg.SlackAppToken),
	)

	schedule.StartReminder(cfg, db, api)
	schedule.StartAutoScan(cfg, db, api)

	log.Println("Starting CaliBot...")
	if err := slackbot.StartSlackBot(cfg, db, api); err != nil {
		log.Fatalf("Slack bot error: %v", err)
	}
}
