package slackbot

import (
	"bytes"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"calibot/internal/config"
	"calibot/internal/domain"
	"calibot/internal/ingest"
	"calibot/internal/storage/sqlite"
)

// warningPreviewLimit caps how many parse warnings the upload
// confirmation repeats; the rest stay in the log.
const warningPreviewLimit = 5

func handleEventsAPI(api *slack.Client, db *sql.DB, cfg config.Config, event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		return
	}
	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.FileSharedEvent:
		handleFileShared(api, db, cfg, ev)
	case *slackevents.MemberJoinedChannelEvent:
		handleMemberJoined(api, cfg, ev)
	}
}

func handleFileShared(api *slack.Client, db *sql.DB, cfg config.Config, ev *slackevents.FileSharedEvent) {
	if cfg.ReportChannelID != "" && ev.ChannelID != cfg.ReportChannelID {
		return
	}
	log.Printf("file-shared file=%s user=%s channel=%s", ev.FileID, ev.UserID, ev.ChannelID)

	file, _, _, err := api.GetFileInfo(ev.FileID, 0, 0)
	if err != nil {
		log.Printf("Error fetching file info file=%s: %v", ev.FileID, err)
		return
	}
	if !isSnapshotUpload(file.Name, file.Filetype) {
		return
	}

	ok, err := isFacilitatorUser(api, cfg, ev.UserID)
	if err != nil {
		log.Printf("Error checking permissions user=%s: %v", ev.UserID, err)
		return
	}
	if !ok {
		log.Printf("Snapshot upload denied user=%s file=%s", ev.UserID, ev.FileID)
		postEphemeralTo(api, ev.ChannelID, ev.UserID, "Sorry, only calibration facilitators can upload rating snapshots.")
		return
	}

	var buf bytes.Buffer
	if err := api.GetFile(file.URLPrivateDownload, &buf); err != nil {
		log.Printf("Error downloading file %s: %v", file.Name, err)
		postEphemeralTo(api, ev.ChannelID, ev.UserID, fmt.Sprintf("Error downloading %s: %v", file.Name, err))
		return
	}

	var aliases *ingest.RatingAliases
	if cfg.RatingAliasesPath != "" {
		aliases, err = ingest.LoadRatingAliases(cfg.RatingAliasesPath)
		if err != nil {
			log.Printf("Error loading rating aliases: %v", err)
			aliases = nil
		}
	}

	pr, err := ingest.ParseWorkbook(bytes.NewReader(buf.Bytes()), cfg.SnapshotSheet, aliases)
	if err != nil {
		log.Printf("Error parsing workbook %s: %v", file.Name, err)
		postEphemeralTo(api, ev.ChannelID, ev.UserID, fmt.Sprintf("Could not read %s as a ratings snapshot: %v", file.Name, err))
		return
	}
	if len(pr.Employees) == 0 {
		postEphemeralTo(api, ev.ChannelID, ev.UserID, fmt.Sprintf("No usable employee rows in %s (sheet %q).", file.Name, pr.Sheet))
		return
	}

	snap := domain.Snapshot{Filename: file.Name, UploadedBy: ev.UserID}
	id, err := sqlite.InsertSnapshot(db, snap, pr.Employees)
	if err != nil {
		log.Printf("Error storing snapshot %s: %v", file.Name, err)
		postEphemeralTo(api, ev.ChannelID, ev.UserID, fmt.Sprintf("Error storing snapshot: %v", err))
		return
	}
	log.Printf("snapshot stored id=%s file=%s employees=%d warnings=%d", id, file.Name, len(pr.Employees), len(pr.Warnings))

	msg := renderSnapshotConfirmation(id, file.Name, pr)
	if _, _, err := api.PostMessage(ev.ChannelID, slack.MsgOptionText(msg, false)); err != nil {
		log.Printf("Error posting snapshot confirmation: %v", err)
	}
}

func renderSnapshotConfirmation(id, filename string, pr *ingest.ParseResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Snapshot `%s` loaded from %s: %d employees (sheet %q).\n", id, filename, len(pr.Employees), pr.Sheet)
	if len(pr.Warnings) > 0 {
		fmt.Fprintf(&b, "Rows with problems (%d):\n", len(pr.Warnings))
		for i, w := range pr.Warnings {
			if i == warningPreviewLimit {
				fmt.Fprintf(&b, "- and %d more\n", len(pr.Warnings)-warningPreviewLimit)
				break
			}
			b.WriteString("- " + w + "\n")
		}
	}
	b.WriteString("Run `/scan` to check it for rating bias.")
	return b.String()
}

// isSnapshotUpload filters shared files down to xlsx uploads. Slack's
// filetype field is authoritative when set; the name suffix covers
// files Slack could not sniff.
func isSnapshotUpload(name, filetype string) bool {
	if strings.EqualFold(filetype, "xlsx") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(name), ".xlsx")
}

func handleMemberJoined(api *slack.Client, cfg config.Config, ev *slackevents.MemberJoinedChannelEvent) {
	log.Printf("member-joined user=%s channel=%s", ev.User, ev.Channel)

	orgName := cfg.OrgName
	if orgName == "" {
		orgName = "your org"
	}

	intro := fmt.Sprintf("Welcome! I'm CaliBot, I check %s rating snapshots for calibration bias.\n\n"+
		"Here's how to get started:\n"+
		"• Share a ratings .xlsx in the report channel to load a snapshot\n"+
		"• `/baseline` shows the distribution manager teams are compared against\n"+
		"• `/scan-help` lists all commands",
		orgName,
	)

	_, _, err := api.PostMessage(ev.Channel,
		slack.MsgOptionText(intro, false),
		slack.MsgOptionPostEphemeral(ev.User),
	)
	if err != nil {
		log.Printf("member-joined intro error user=%s channel=%s: %v", ev.User, ev.Channel, err)
	}
}
