// Package slackbot is the Slack surface of the calibration scanner:
// slash commands for scans and history, file-share ingestion for
// snapshot uploads, and report delivery.
package slackbot

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"calibot/internal/config"
	"calibot/internal/integrations/llm"
)

// generateNarrativeFn is swapped out in tests so /scan-report can be
// exercised without a provider key.
var generateNarrativeFn = llm.GenerateNarrative

func StartSlackBot(cfg config.Config, db *sql.DB, api *slack.Client) error {
	client := socketmode.New(api)

	go func() {
		for evt := range client.Events {
			switch evt.Type {
			case socketmode.EventTypeSlashCommand:
				client.Ack(*evt.Request)
				cmd, ok := evt.Data.(slack.SlashCommand)
				if !ok {
					continue
				}
				log.Printf("Slash command received: %s from user=%s channel=%s", cmd.Command, cmd.UserID, cmd.ChannelID)
				go handleSlashCommand(api, db, cfg, cmd)
			case socketmode.EventTypeEventsAPI:
				client.Ack(*evt.Request)
				eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
				if !ok {
					continue
				}
				go handleEventsAPI(api, db, cfg, eventsAPIEvent)
			}
		}
	}()

	log.Println("Slack bot connected via Socket Mode")
	return client.Run()
}

func handleSlashCommand(api *slack.Client, db *sql.DB, cfg config.Config, cmd slack.SlashCommand) {
	switch cmd.Command {
	case "/scan":
		handleScan(api, db, cfg, cmd)
	case "/scan-report":
		handleScanReport(api, db, cfg, cmd)
	case "/scan-history":
		handleScanHistory(api, db, cfg, cmd)
	case "/org-check":
		handleOrgCheck(api, db, cfg, cmd)
	case "/baseline":
		handleBaseline(api, cfg, cmd)
	case "/scan-alias":
		handleScanAlias(api, cfg, cmd)
	case "/scan-help":
		handleHelp(api, cfg, cmd)
	}
}

func handleHelp(api *slack.Client, cfg config.Config, cmd slack.SlashCommand) {
	lines := []string{
		"*CaliBot Commands*",
		"",
		"Upload a calibration snapshot (.xlsx) to the report channel to register it.",
		"",
		"`/baseline` — Show the configured rating baseline.",
		"`/scan-help` — Show this help.",
	}

	if cfg.IsFacilitatorID(cmd.UserID) {
		lines = append(lines,
			"",
			"*Facilitator Commands*",
			"",
			"`/scan [performance|potential]` — Scan the latest snapshot for rating bias.",
			"`/scan-report [scan-id]` — Full report with narrative, markdown and workbook attached.",
			"`/scan-history` — Recent scans and the weekly quality trend.",
			"`/org-check` — Validate the reporting structure of the latest snapshot.",
			"`/scan-alias <phrase> = <High|Medium|Low>` — Teach the importer a new rating term.",
		)
	}

	postEphemeral(api, cmd, strings.Join(lines, "\n"))
}

func isFacilitatorUser(_ *slack.Client, cfg config.Config, userID string) (bool, error) {
	return cfg.IsFacilitatorID(userID), nil
}

func postEphemeral(api *slack.Client, cmd slack.SlashCommand, text string) {
	postEphemeralTo(api, cmd.ChannelID, cmd.UserID, text)
}

func postEphemeralTo(api *slack.Client, channelID, userID, text string) {
	_, err := api.PostEphemeral(channelID, userID, slack.MsgOptionText(text, false))
	if err != nil {
		log.Printf("Error posting ephemeral: %v", err)
	}
}

func formatTokenCount(tokens int64) string {
	if tokens < 1000 {
		return fmt.Sprintf("%d", tokens)
	}
	rounded := (tokens + 50) / 100
	whole := rounded / 10
	decimal := rounded % 10
	if decimal == 0 {
		return fmt.Sprintf("%dk", whole)
	}
	return fmt.Sprintf("%d.%dk", whole, decimal)
}
