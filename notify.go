package main

import (
	"fmt"
	"log"

	"github.com/slack-go/slack"
)

// notifyRunSummary posts a one-line batch summary to the configured Slack
// channel. Optional: without a token and channel it does nothing. Failures
// here never affect the batch outcome.
func notifyRunSummary(cfg Config, operation string, result *BatchResult) {
	if cfg.SlackBotToken == "" || cfg.SlackChannelID == "" {
		return
	}

	api := slack.New(cfg.SlackBotToken)
	msg := fmt.Sprintf("fpcbot %s run complete: %s", operation, result.Summary())
	_, _, err := api.PostMessage(cfg.SlackChannelID, slack.MsgOptionText(msg, false))
	if err != nil {
		log.Printf("slack notification failed: %v", err)
	}
}
