package main

import (
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"
)

// Operators place this on a nomination to keep the bot's hands off it.
var closingIgnoreR = regexp.MustCompile(`\{\{\s*FPC-closing-ignore\s*(?:\|[^}]*)?\}\}`)

var headingPartsR = regexp.MustCompile(`(?m)^(={1,4})(.+?)(={1,4}[ \t]*)$`)

const settlePeriod = 24 * time.Hour

// manualReviewNote is appended instead of tallies when a nomination shows
// more than one image. Its presence is also the single-shot guard for that
// branch.
const manualReviewNote = "'''This nomination contains more than one image; " +
	"the result must be determined manually.'''"

// close appends the proposed result to a finished nomination. Each
// precondition short-circuits with a skip, never an error: closing is
// strictly single-shot per page, re-running the batch must not stack
// annotations.
func (c *Candidate) close(g *commitGate) error {
	return c.closeAt(g, time.Now())
}

func (c *Candidate) closeAt(g *commitGate, now time.Time) error {
	// Withdrawn and contested nominations need no numeric result; they go
	// straight to the log once the discussion has had a day to settle.
	if (c.isWithdrawn() || c.isFPX()) && c.class.images <= 1 {
		if now.Sub(c.lastEdit) < settlePeriod {
			log.Printf("%s: withdrawn/contested but edited recently, letting it settle", c.subpageName())
			return nil
		}
		reason := "withdrawn"
		if c.isFPX() {
			reason = "contested (FPX)"
		}
		return c.moveToLog(g, now, reason)
	}

	done, rule := c.isDoneAt(now)
	if !done {
		log.Printf("%s: not done yet (%d days old)", c.subpageName(), c.daysOldAt(now))
		return nil
	}

	if closingIgnoreR.MatchString(c.text) {
		log.Printf("%s: closing is disabled on this page, skipping", c.subpageName())
		return nil
	}
	if len(c.proposedResults()) > 0 {
		log.Printf("%s: already closed, waiting for review", c.subpageName())
		return nil
	}
	if c.vocab.verifiedR.MatchString(c.text) {
		log.Printf("%s: already reviewed, nothing to close", c.subpageName())
		return nil
	}
	if strings.Contains(c.text, manualReviewNote) {
		log.Printf("%s: already flagged for manual review", c.subpageName())
		return nil
	}

	var annotation, comment string
	if c.isIgnored() {
		annotation = "\n\n" + manualReviewNote + " /~~~~"
		comment = fmt.Sprintf("closing %s nomination: multiple images, manual review needed", c.vocab.name)
	} else {
		rec := ResultRecord{
			Support: c.class.votesFor,
			Oppose:  c.class.votesAgainst,
			Neutral: c.class.neutral,
			Passed:  c.isPassed(),
		}
		annotation = "\n\n" + resultTemplate(c.vocab.proposedName, rec,
			c.vocab.forParam, c.vocab.againstParam, c.vocab.passedParam, "~~~~")
		comment = fmt.Sprintf("closing %s nomination: %d %s, %d %s, %d neutral => %s (%s)",
			c.vocab.name, rec.Support, c.vocab.forParam, rec.Oppose, c.vocab.againstParam,
			rec.Neutral, c.statusStringAt(now), rule)
	}

	newText := c.text + annotation
	if !c.isIgnored() {
		suffix := c.vocab.failedSuffix
		if c.isPassed() {
			suffix = c.vocab.passedSuffix
		}
		newText = patchHeading(newText, suffix)
	}

	_, err := g.commit(c.text, newText, c.title, comment)
	return err
}

// patchHeading appends an outcome suffix to the first heading line, unless
// the suffix is already there. Idempotent by pre-check, not by overwrite.
func patchHeading(text, suffix string) string {
	idx := headingPartsR.FindStringSubmatchIndex(text)
	if idx == nil {
		return text
	}
	body := text[idx[4]:idx[5]]
	if strings.Contains(body, suffix) {
		return text
	}
	newBody := strings.TrimRight(body, " \t") + suffix + " "
	return text[:idx[4]] + newBody + text[idx[5]:]
}
