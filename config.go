package main

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	WikiAPIURL string `yaml:"wiki_api_url"`
	WikiToken  string `yaml:"wiki_token"`

	AuditDBPath string `yaml:"audit_db_path"`
	Schedule    string `yaml:"schedule"`

	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackChannelID string `yaml:"slack_channel_id"`

	Threads int `yaml:"threads"`
}

func LoadConfig() Config {
	var cfg Config

	// Load from config.yaml if it exists
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

	// Env vars override YAML values
	envOverride(&cfg.WikiAPIURL, "WIKI_API_URL")
	envOverride(&cfg.WikiToken, "WIKI_TOKEN")
	envOverride(&cfg.AuditDBPath, "AUDIT_DB_PATH")
	envOverride(&cfg.Schedule, "SCHEDULE")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")
	envOverrideInt(&cfg.Threads, "THREADS")

	// Defaults
	if cfg.WikiAPIURL == "" {
		cfg.WikiAPIURL = "https://commons.wikimedia.org/w/api.php"
	}
	if cfg.AuditDBPath == "" {
		cfg.AuditDBPath = "./fpcbot.db"
	}
	if cfg.Threads == 0 {
		cfg.Threads = 1
	}

	if cfg.Threads < 1 {
		log.Fatalf("invalid threads '%d': must be >= 1", cfg.Threads)
	}

	return cfg
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
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
