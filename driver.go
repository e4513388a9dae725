package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// RunConfig is the immutable per-run configuration threaded from the driver
// down to the commit gate. There is no global run-mode state.
type RunConfig struct {
	Mode       commitMode
	Threads    int
	Match      string
	Promotions bool
	Delist     bool
}

var transclusionR = regexp.MustCompile(`(?m)^\{\{\s*(` + candPrefix + `[^{}|]+?)\s*\}\}`)

// findCandidateTitles scans the candidate list for nomination transclusions.
func findCandidateTitles(store Store) ([]string, error) {
	text, err := store.GetText(candListTitle, false)
	if err != nil {
		return nil, fmt.Errorf("fetching candidate list: %w", err)
	}
	var titles []string
	for _, m := range transclusionR.FindAllStringSubmatch(text, -1) {
		titles = append(titles, m[1])
	}
	return titles, nil
}

func candidateKindOf(title string) candidateKind {
	if strings.HasPrefix(strings.TrimPrefix(title, candPrefix), delistPrefix) {
		return kindDelist
	}
	return kindPromotion
}

// BatchResult is the per-run tally reported at the end of a batch. Total
// counts every candidate on the listing; Skipped counts the ones excluded by
// the match or kind filters.
type BatchResult struct {
	mu      sync.Mutex
	Total   int
	Done    int
	Skipped int
	Failed  int
}

func (r *BatchResult) Summary() string {
	return fmt.Sprintf("%d candidates: %d processed, %d skipped, %d failed",
		r.Total, r.Done, r.Skipped, r.Failed)
}

type workflowOp func(*Candidate, *commitGate) error

// runBatch fans one unit of work per candidate out over a bounded pool.
// Candidates are independent, so no ordering across them is guaranteed.
// Per-candidate errors are logged and skipped; only a user abort stops the
// whole batch. The context is checked between candidates, never mid-step:
// in-flight steps always finish.
func runBatch(ctx context.Context, store Store, rc RunConfig, audit *auditLog, op workflowOp) (*BatchResult, error) {
	titles, err := findCandidateTitles(store)
	if err != nil {
		return nil, err
	}

	gate := newCommitGate(store, rc.Mode, audit)

	threads := rc.Threads
	if threads < 1 {
		threads = 1
	}
	// Prompts cannot be multiplexed; interactive runs are strictly serial.
	if rc.Mode == modeInteractive {
		threads = 1
	}

	result := &BatchResult{}
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(threads)

	for _, title := range titles {
		if ctx.Err() != nil {
			break
		}
		result.mu.Lock()
		result.Total++
		result.mu.Unlock()

		kind := candidateKindOf(title)
		filtered := (rc.Match != "" && !strings.Contains(title, rc.Match)) ||
			(kind == kindDelist && !rc.Delist) ||
			(kind == kindPromotion && !rc.Promotions)
		if filtered {
			result.mu.Lock()
			result.Skipped++
			result.mu.Unlock()
			continue
		}

		title := title
		eg.Go(func() error {
			cand, err := NewCandidate(store, title, kind)
			if err != nil {
				log.Printf("%s: %v, skipping candidate", title, err)
				result.mu.Lock()
				result.Failed++
				result.mu.Unlock()
				return nil
			}
			if err := op(cand, gate); err != nil {
				if errors.Is(err, ErrUserAbort) {
					return err
				}
				log.Printf("%s: %v, skipping candidate", cand.subpageName(), err)
				result.mu.Lock()
				result.Failed++
				result.mu.Unlock()
				return nil
			}
			result.mu.Lock()
			result.Done++
			result.mu.Unlock()
			return nil
		})
	}

	err = eg.Wait()
	return result, err
}
