package config

import (
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"calibot/internal/ingest"
)

const defaultExternalHTTPTimeout = 90 * time.Second
const defaultExternalHTTPTimeoutSeconds = int(defaultExternalHTTPTimeout / time.Second)

type Config struct {
	SlackBotToken string `yaml:"slack_bot_token"`
	SlackAppToken string `yaml:"slack_app_token"`

	ReportChannelID     string   `yaml:"report_channel_id"`
	FacilitatorSlackIDs []string `yaml:"facilitator_slack_ids"`
	OrgName             string   `yaml:"org_name"`

	LLMProvider         string `yaml:"llm_provider"`
	LLMModel            string `yaml:"llm_model"`
	LLMNarrativeEnabled bool   `yaml:"llm_narrative_enabled"`
	AnthropicAPIKey     string `yaml:"anthropic_api_key"`
	OpenAIAPIKey        string `yaml:"openai_api_key"`

	DBPath                     string `yaml:"db_path"`
	ReportOutputDir            string `yaml:"report_output_dir"`
	SnapshotSheet              string `yaml:"snapshot_sheet"`
	RatingAliasesPath          string `yaml:"rating_aliases_path"`
	ExternalHTTPTimeoutSeconds int    `yaml:"external_http_timeout_seconds"`

	BaselineHighPct      float64 `yaml:"baseline_high_pct"`
	BaselineMediumPct    float64 `yaml:"baseline_medium_pct"`
	BaselineLowPct       float64 `yaml:"baseline_low_pct"`
	MinTeamSize          int     `yaml:"min_team_size"`
	MaxDisplayedManagers int     `yaml:"max_displayed_managers"`

	AutoScanSchedule string `yaml:"auto_scan_schedule"`
	AutoScanAxis     string `yaml:"auto_scan_axis"`
	ReminderDay      string `yaml:"reminder_day"`
	ReminderTime     string `yaml:"reminder_time"`
	Timezone         string `yaml:"timezone"`

	Location *time.Location `yaml:"-"` // computed from Timezone, not from YAML
}

func LoadConfig() Config {
	var cfg Config

	// Narratives are on unless the config says otherwise; yaml only
	// touches the field when the key is present.
	cfg.LLMNarrativeEnabled = true

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackAppToken, "SLACK_APP_TOKEN")
	envOverride(&cfg.ReportChannelID, "REPORT_CHANNEL_ID")
	envOverride(&cfg.OrgName, "ORG_NAME")
	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverrideBool(&cfg.LLMNarrativeEnabled, "LLM_NARRATIVE_ENABLED")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.ReportOutputDir, "REPORT_OUTPUT_DIR")
	envOverrideAllowEmpty(&cfg.SnapshotSheet, "SNAPSHOT_SHEET")
	envOverride(&cfg.RatingAliasesPath, "RATING_ALIASES_PATH")
	envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS")
	envOverrideFloat(&cfg.BaselineHighPct, "BASELINE_HIGH_PCT")
	envOverrideFloat(&cfg.BaselineMediumPct, "BASELINE_MEDIUM_PCT")
	envOverrideFloat(&cfg.BaselineLowPct, "BASELINE_LOW_PCT")
	envOverrideInt(&cfg.MinTeamSize, "MIN_TEAM_SIZE")
	envOverrideInt(&cfg.MaxDisplayedManagers, "MAX_DISPLAYED_MANAGERS")
	envOverride(&cfg.AutoScanSchedule, "AUTO_SCAN_SCHEDULE")
	envOverride(&cfg.AutoScanAxis, "AUTO_SCAN_AXIS")
	envOverride(&cfg.ReminderDay, "REMINDER_DAY")
	envOverride(&cfg.ReminderTime, "REMINDER_TIME")
	envOverride(&cfg.Timezone, "TIMEZONE")

	if ids := os.Getenv("FACILITATOR_SLACK_IDS"); ids != "" {
		cfg.FacilitatorSlackIDs = nil
		for _, id := range strings.Split(ids, ",") {
			id = strings.TrimSpace(id)
			if id != "" {
				cfg.FacilitatorSlackIDs = append(cfg.FacilitatorSlackIDs, id)
			}
		}
	}

	if cfg.OrgName == "" {
		cfg.OrgName = "My Org"
	}
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "anthropic"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./calibot.db"
	}
	if cfg.ReportOutputDir == "" {
		cfg.ReportOutputDir = "./reports"
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = defaultExternalHTTPTimeoutSeconds
	}
	if cfg.BaselineHighPct == 0 && cfg.BaselineMediumPct == 0 && cfg.BaselineLowPct == 0 {
		cfg.BaselineHighPct = 20
		cfg.BaselineMediumPct = 70
		cfg.BaselineLowPct = 10
	}
	if cfg.MinTeamSize == 0 {
		cfg.MinTeamSize = 10
	}
	if cfg.MaxDisplayedManagers == 0 {
		cfg.MaxDisplayedManagers = 10
	}
	if cfg.AutoScanAxis == "" {
		cfg.AutoScanAxis = "performance"
	}
	if cfg.ReminderDay == "" {
		cfg.ReminderDay = "Monday"
	}
	if cfg.ReminderTime == "" {
		cfg.ReminderTime = "09:00"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}

	required := map[string]string{
		"slack_bot_token": cfg.SlackBotToken,
		"slack_app_token": cfg.SlackAppToken,
	}
	for name, val := range required {
		if val == "" {
			log.Fatalf("Required config '%s' is not set (via config.yaml or env var)", name)
		}
	}

	if cfg.LLMNarrativeEnabled {
		switch cfg.LLMProvider {
		case "anthropic":
			if cfg.AnthropicAPIKey == "" {
				log.Fatalf("anthropic_api_key is required when llm_provider=anthropic")
			}
		case "openai":
			if cfg.OpenAIAPIKey == "" {
				log.Fatalf("openai_api_key is required when llm_provider=openai")
			}
		default:
			log.Fatalf("llm_provider must be 'anthropic' or 'openai', got '%s'", cfg.LLMProvider)
		}
	}

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Fatalf("invalid timezone '%s': %v", cfg.Timezone, err)
		}
		cfg.Location = loc
	}

	if _, _, err := ParseClock(cfg.ReminderTime); err != nil {
		log.Fatalf("invalid reminder_time '%s': %v", cfg.ReminderTime, err)
	}
	if cfg.BaselineHighPct < 0 || cfg.BaselineMediumPct < 0 || cfg.BaselineLowPct < 0 {
		log.Fatalf("baseline percentages must not be negative, got %.1f/%.1f/%.1f",
			cfg.BaselineHighPct, cfg.BaselineMediumPct, cfg.BaselineLowPct)
	}
	if sum := cfg.BaselineHighPct + cfg.BaselineMediumPct + cfg.BaselineLowPct; math.Abs(sum-100) > 1e-9 {
		log.Fatalf("baseline percentages must sum to 100, got %.1f/%.1f/%.1f",
			cfg.BaselineHighPct, cfg.BaselineMediumPct, cfg.BaselineLowPct)
	}
	if cfg.MinTeamSize < 2 {
		log.Fatalf("invalid min_team_size '%d': must be >= 2", cfg.MinTeamSize)
	}
	if cfg.MaxDisplayedManagers < 1 {
		log.Fatalf("invalid max_displayed_managers '%d': must be >= 1", cfg.MaxDisplayedManagers)
	}
	if cfg.AutoScanAxis != "performance" && cfg.AutoScanAxis != "potential" {
		log.Fatalf("auto_scan_axis must be 'performance' or 'potential', got '%s'", cfg.AutoScanAxis)
	}
	if cfg.ExternalHTTPTimeoutSeconds < 5 {
		log.Fatalf("invalid external_http_timeout_seconds '%d': must be >= 5", cfg.ExternalHTTPTimeoutSeconds)
	}
	if cfg.RatingAliasesPath != "" {
		if _, err := ingest.LoadRatingAliases(cfg.RatingAliasesPath); err != nil {
			log.Fatalf("invalid rating_aliases_path '%s': %v", cfg.RatingAliasesPath, err)
		}
	}

	return cfg
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideAllowEmpty(field *string, envKey string) {
	if val, ok := os.LookupEnv(envKey); ok {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideBool(field *bool, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = strings.EqualFold(val, "true") || val == "1"
	}
}

func envOverrideFloat(field *float64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func (c Config) IsFacilitatorID(userID string) bool {
	for _, id := range c.FacilitatorSlackIDs {
		if strings.TrimSpace(id) == userID {
			return true
		}
	}
	return false
}

// ParseClock parses a "HH:MM" string into hour and minute.
func ParseClock(s string) (int, int, error) {
	var hour, min int
	_, err := fmt.Sscanf(s, "%d:%d", &hour, &min)
	if err != nil {
		return 0, 0, err
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 {
		return 0, 0, fmt.Errorf("time out of range: %02d:%02d", hour, min)
	}
	return hour, min, nil
}
