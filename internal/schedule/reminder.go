package schedule

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"calibot/internal/config"
	"calibot/internal/storage/sqlite"
)

var dayMap = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// StartReminder DMs every facilitator once a week to upload a fresh
// snapshot and run a scan before the calibration session. Facilitators
// may be configured as Slack IDs or display names.
func StartReminder(cfg config.Config, db *sql.DB, api *slack.Client) {
	if len(cfg.FacilitatorSlackIDs) == 0 {
		log.Println("No facilitator_slack_ids configured, reminder disabled")
		return
	}

	facilitatorIDs, unresolved, err := resolveUserIDs(api, cfg.FacilitatorSlackIDs)
	if err != nil {
		log.Printf("Error resolving facilitator_slack_ids: %v", err)
		if len(facilitatorIDs) == 0 {
			return
		}
	}
	if len(unresolved) > 0 {
		log.Printf("Unresolved facilitator_slack_ids: %s", strings.Join(unresolved, ", "))
	}

	weekday, ok := dayMap[strings.ToLower(cfg.ReminderDay)]
	if !ok {
		log.Printf("Invalid reminder_day '%s', using Monday", cfg.ReminderDay)
		weekday = time.Monday
	}

	hour, min, err := config.ParseClock(cfg.ReminderTime)
	if err != nil {
		log.Printf("Invalid reminder_time '%s': %v, using 09:00", cfg.ReminderTime, err)
		hour, min = 9, 0
	}

	log.Printf("Reminder scheduled every %s at %02d:%02d for %d facilitators", weekday, hour, min, len(facilitatorIDs))

	go func() {
		for {
			now := time.Now().In(cfg.Location)
			next := nextWeekday(now, weekday, hour, min)
			wait := next.Sub(now)
			log.Printf("Next reminder at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

			time.Sleep(wait)
			sendReminders(api, db, cfg, facilitatorIDs)
		}
	}()
}

func nextWeekday(now time.Time, day time.Weekday, hour, min int) time.Time {
	daysUntil := (day - now.Weekday() + 7) % 7
	if daysUntil == 0 {
		target := time.Date(now.Year(), now.Month(), now.Day(), hour, min, 0, 0, now.Location())
		if now.Before(target) {
			return target
		}
		daysUntil = 7
	}
	return time.Date(now.Year(), now.Month(), now.Day()+int(daysUntil), hour, min, 0, 0, now.Location())
}

func sendReminders(api *slack.Client, db *sql.DB, cfg config.Config, facilitatorIDs []string) {
	var freshness string
	snap, err := sqlite.GetLatestSnapshot(db)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		freshness = "No snapshot is loaded yet."
	case err != nil:
		log.Printf("Error checking snapshot freshness: %v", err)
	default:
		days := int(time.Since(snap.CreatedAt).Hours() / 24)
		freshness = fmt.Sprintf("Latest snapshot `%s` is %d days old (%d employees).", snap.Filename, days, snap.EmployeeCount)
	}

	channelRef := ""
	if cfg.ReportChannelID != "" {
		channelRef = fmt.Sprintf(" Share it in <#%s>.", cfg.ReportChannelID)
	}
	msg := fmt.Sprintf(
		"Hey! Calibration prep reminder: upload a fresh ratings .xlsx and run `/scan` before the session.%s",
		channelRef,
	)
	if freshness != "" {
		msg += "\n" + freshness
	}

	for _, userID := range facilitatorIDs {
		channel, _, _, err := api.OpenConversation(&slack.OpenConversationParameters{
			Users: []string{userID},
		})
		if err != nil {
			log.Printf("Error opening DM with %s: %v", userID, err)
			continue
		}

		_, _, err = api.PostMessage(channel.ID, slack.MsgOptionText(msg, false))
		if err != nil {
			log.Printf("Error sending reminder to %s: %v", userID, err)
		} else {
			log.Printf("Sent reminder to %s", userID)
		}
	}
}
