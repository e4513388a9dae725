package main

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// runScheduler runs the close and park batches on a cron schedule until the
// context is cancelled. Scheduled runs are always non-interactive: the mode
// is forced to auto (or left dry when the operator asked for a dry daemon).
func runScheduler(ctx context.Context, cfg Config, store Store, rc RunConfig, audit *auditLog) error {
	schedule := strings.TrimSpace(cfg.Schedule)

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		return err
	}
	if rc.Mode == modeInteractive {
		rc.Mode = modeAuto
	}
	log.Printf("scheduled runs enabled (cron: %s, mode: %s)", schedule, rc.Mode)

	for {
		now := time.Now()
		next := sched.Next(now)
		log.Printf("next run at %s (in %s)", next.Format("Mon Jan 2 15:04"), next.Sub(now).Round(time.Minute))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(next.Sub(now)):
		}

		closeResult, err := runBatch(ctx, store, rc, audit, (*Candidate).close)
		if err != nil {
			log.Printf("scheduled close run failed: %v", err)
			continue
		}
		log.Printf("scheduled close run: %s", closeResult.Summary())
		notifyRunSummary(cfg, "close", closeResult)

		parkResult, err := runBatch(ctx, store, rc, audit, (*Candidate).park)
		if err != nil {
			log.Printf("scheduled park run failed: %v", err)
			continue
		}
		log.Printf("scheduled park run: %s", parkResult.Summary())
		notifyRunSummary(cfg, "park", parkResult)
	}
}
