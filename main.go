package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		if errors.Is(err, ErrUserAbort) {
			log.Println("batch aborted by user")
		} else {
			log.Printf("error: %v", err)
		}
		os.Exit(1)
	}
}

type runContext struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    Config
	store  Store
	audit  *auditLog
	rc     RunConfig
}

func rootCmd() *cobra.Command {
	var (
		dry     bool
		auto    bool
		delist  bool
		fpc     bool
		notime  bool
		threads int
		match   string
	)

	root := &cobra.Command{
		Use:           "fpcbot",
		Short:         "Counts votes on featured picture nominations and publishes the results",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.BoolVar(&dry, "dry", false, "never write, only report what would happen")
	pf.BoolVar(&auto, "auto", false, "write without asking for confirmation")
	pf.BoolVar(&fpc, "fpc", true, "include promotion nominations")
	pf.BoolVar(&delist, "delist", false, "include delisting nominations")
	pf.BoolVar(&notime, "notime", false, "suppress timestamps in log output")
	pf.IntVar(&threads, "threads", 0, "worker pool size (default from config; >1 requires --dry or --auto)")
	pf.StringVar(&match, "match", "", "only process candidates whose title contains this substring")

	setup := func() (*runContext, error) {
		if notime {
			log.SetFlags(0)
		}
		if dry && auto {
			return nil, fmt.Errorf("--dry and --auto are mutually exclusive")
		}

		cfg := LoadConfig()

		mode := modeInteractive
		if dry {
			mode = modeDry
		} else if auto {
			mode = modeAuto
		}
		if threads == 0 {
			threads = cfg.Threads
		}
		if threads > 1 && mode == modeInteractive {
			return nil, fmt.Errorf("--threads > 1 requires --dry or --auto: prompts cannot be multiplexed")
		}

		var audit *auditLog
		if cfg.AuditDBPath != "" {
			db, err := initAuditDB(cfg.AuditDBPath)
			if err != nil {
				return nil, fmt.Errorf("opening audit db: %w", err)
			}
			audit = newAuditLog(db)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		return &runContext{
			ctx:    ctx,
			cancel: cancel,
			cfg:    cfg,
			store:  NewWikiClient(cfg.WikiAPIURL, cfg.WikiToken),
			audit:  audit,
			rc: RunConfig{
				Mode:       mode,
				Threads:    threads,
				Match:      match,
				Promotions: fpc,
				Delist:     delist,
			},
		}, nil
	}

	batch := func(operation string, op workflowOp) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			r, err := setup()
			if err != nil {
				return err
			}
			defer r.cancel()

			result, err := runBatch(r.ctx, r.store, r.rc, r.audit, op)
			if result != nil {
				log.Printf("%s run: %s", operation, result.Summary())
				notifyRunSummary(r.cfg, operation, result)
			}
			return err
		}
	}

	root.AddCommand(&cobra.Command{
		Use:   "info",
		Short: "Print the vote tallies and status of every candidate",
		RunE: batch("info", func(c *Candidate, g *commitGate) error {
			fmt.Println(c.infoLine())
			return nil
		}),
	})
	root.AddCommand(&cobra.Command{
		Use:   "close",
		Short: "Append proposed results to finished nominations",
		RunE:  batch("close", (*Candidate).close),
	})
	root.AddCommand(&cobra.Command{
		Use:   "park",
		Short: "Publish reviewed nominations across the featured picture pages",
		RunE:  batch("park", (*Candidate).park),
	})
	root.AddCommand(&cobra.Command{
		Use:   "compare",
		Short: "Compare the bot's verdicts against results already on the pages",
		RunE:  batch("compare", compareExisting),
	})
	root.AddCommand(&cobra.Command{
		Use:   "daemon",
		Short: "Run close and park on the configured cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := setup()
			if err != nil {
				return err
			}
			defer r.cancel()
			if r.cfg.Schedule == "" {
				return fmt.Errorf("daemon mode needs a schedule (config key 'schedule' or SCHEDULE)")
			}
			err = runScheduler(r.ctx, r.cfg, r.store, r.rc, r.audit)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	})

	return root
}

// compareExisting checks the bot's own verdict against every result a human
// or an earlier run already left on the page. Disagreements are reported,
// never fixed automatically.
func compareExisting(c *Candidate, g *commitGate) error {
	recs := c.proposedResults()
	recs = append(recs, extractResults(filterNoise(c.text), c.vocab.verifiedR,
		c.vocab.forParam, c.vocab.againstParam, c.vocab.passedParam)...)
	if len(recs) == 0 {
		log.Printf("%s: no existing result to compare", c.subpageName())
		return nil
	}

	for _, rec := range recs {
		same := rec.Support == c.class.votesFor &&
			rec.Oppose == c.class.votesAgainst &&
			rec.Neutral == c.class.neutral &&
			rec.Passed == c.isPassed()
		if same {
			log.Printf("%s: verdict matches (%d/%d/%d, passed=%v)",
				c.subpageName(), rec.Support, rec.Oppose, rec.Neutral, rec.Passed)
		} else {
			log.Printf("%s: MISMATCH page says %d/%d/%d passed=%v, bot counts %d/%d/%d passed=%v",
				c.subpageName(), rec.Support, rec.Oppose, rec.Neutral, rec.Passed,
				c.class.votesFor, c.class.votesAgainst, c.class.neutral, c.isPassed())
		}
	}
	return nil
}
