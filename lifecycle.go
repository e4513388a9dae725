package main

import "time"

// Close rules, reported in commit comments.
const (
	ruleNone     = ""
	ruleNormal   = "closed after the regular voting period"
	ruleFifthDay = "closed by the rule of the fifth day"
)

const (
	fullAgeDays     = 9
	fifthDayAgeDays = 5
	earlyFailMax    = 1
	earlyPassMin    = 10
)

func (c *Candidate) daysOld() int {
	return c.daysOldAt(time.Now())
}

func (c *Candidate) daysOldAt(now time.Time) int {
	return int(now.Sub(c.created).Hours() / 24)
}

// isDone reports whether this nomination can be closed and which rule made
// it so. The regular rule is nine full days. The rule of the fifth day
// closes early when the margin is already decisive, but never for
// multi-image nominations: those always wait for the full period and manual
// review.
func (c *Candidate) isDone() (bool, string) {
	return c.isDoneAt(time.Now())
}

func (c *Candidate) isDoneAt(now time.Time) (bool, string) {
	age := c.daysOldAt(now)
	if age >= fullAgeDays {
		return true, ruleNormal
	}
	if c.class.images > 1 {
		return false, ruleNone
	}
	if age >= fifthDayAgeDays {
		clearlyFailing := c.class.votesFor <= earlyFailMax
		clearlyPassing := c.class.votesFor >= earlyPassMin && c.class.votesAgainst == 0
		if clearlyFailing || clearlyPassing {
			return true, ruleFifthDay
		}
	}
	return false, ruleNone
}

// isIgnored reports whether the nomination is routed to manual handling.
// Multi-image nominations are never counted or closed automatically, except
// for withdrawal and FPX closes, which need no numeric result.
func (c *Candidate) isIgnored() bool {
	return c.class.images > 1
}

func (c *Candidate) isWithdrawn() bool {
	return c.class.withdrawn
}

func (c *Candidate) isFPX() bool {
	return c.class.fpx
}

// isPassed applies the strict majority rule: at least the variant's
// threshold of votes in favour, and at least twice as many in favour as
// against. A withdrawn nomination never passes, whatever the tallies.
func (c *Candidate) isPassed() bool {
	if c.class.withdrawn {
		return false
	}
	return c.class.votesFor >= c.vocab.passThreshold &&
		c.class.votesFor >= 2*c.class.votesAgainst
}

// statusString, priority order: Ignored > Withdrawn > Active > outcome label.
func (c *Candidate) statusString() string {
	return c.statusStringAt(time.Now())
}

func (c *Candidate) statusStringAt(now time.Time) string {
	switch {
	case c.isIgnored():
		return "Ignored"
	case c.class.withdrawn:
		return "Withdrawn"
	default:
		if done, _ := c.isDoneAt(now); !done {
			return "Active"
		}
		if c.isPassed() {
			return c.vocab.passedLabel
		}
		return c.vocab.failedLabel
	}
}
