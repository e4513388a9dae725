package main

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Target pages of the parking sequence.
const (
	featuredListTitle  = "Commons:Featured pictures, list"
	categorizedPrefix  = "Commons:Featured pictures/"
	chronoPrefix       = "Commons:Featured pictures/chronological/"
	currentMonthTitle  = chronoPrefix + "current_month"
	featuredListWindow = 10
	animatedCategory   = "Animated"
)

var (
	assessmentsR   = regexp.MustCompile(`\{\{\s*[Aa]ssessments\s*((?:\|[^{}]*)?)\}\}`)
	featuredParamR = regexp.MustCompile(`(\|\s*featured\s*=\s*)(\d+)`)
	chronoPosR     = regexp.MustCompile(`(?m)^\|\s*(\d+)\s*$`)
)

// park publishes a reviewed nomination across the six target documents.
// It runs only once a human has confirmed the result: exactly one verified
// result template must be present. Every step re-scans its own target for
// the filename first, so an interrupted run can be repeated without
// duplicating a single entry.
func (c *Candidate) park(g *commitGate) error {
	return c.parkAt(g, time.Now())
}

func (c *Candidate) parkAt(g *commitGate, now time.Time) error {
	if c.isWithdrawn() || c.isFPX() {
		log.Printf("%s: withdrawn/contested, the closing pass handles it", c.subpageName())
		return nil
	}

	recs := extractResults(filterNoise(c.text), c.vocab.verifiedR,
		c.vocab.forParam, c.vocab.againstParam, c.vocab.passedParam)
	switch len(recs) {
	case 0:
		log.Printf("%s: no verified result yet, skipping", c.subpageName())
		return nil
	case 1:
	default:
		log.Printf("%s: %d verified results on one page, refusing to guess", c.subpageName(), len(recs))
		return fmt.Errorf("%s: %w", c.title, ErrAmbiguousResult)
	}
	rec := recs[0]

	if rec.Passed {
		var steps []func(*commitGate, ResultRecord) error
		if c.kind == kindDelist {
			steps = []func(*commitGate, ResultRecord) error{
				c.removeFromGalleries,
				c.demoteAssessment,
				c.notifyDelist,
			}
		} else {
			steps = []func(*commitGate, ResultRecord) error{
				c.addToFeaturedList,
				c.addToCategorizedList,
				c.addAssessment,
				c.addToCurrentMonth,
				c.notifyNominator,
			}
		}
		for _, step := range steps {
			if err := step(g, rec); err != nil {
				return err
			}
		}
	}

	label := c.vocab.failedLabel
	if rec.Passed {
		label = c.vocab.passedLabel
	}
	return c.moveToLog(g, now, strings.ToLower(label))
}

// addToFeaturedList puts the filename at the top of its top-level category
// gallery on the featured list, rotating out the oldest entry beyond the
// window.
func (c *Candidate) addToFeaturedList(g *commitGate, rec ResultRecord) error {
	text, err := c.store.GetText(featuredListTitle, true)
	if err != nil {
		return err
	}
	if strings.Contains(text, c.filename()) {
		log.Printf("%s: already on the featured list", c.subpageName())
		return nil
	}

	newText, err := insertInGallerySection(text, topCategory(rec.Category), c.filename(), featuredListWindow)
	if err != nil {
		return fmt.Errorf("%s: %w", featuredListTitle, err)
	}
	_, err = g.commit(text, newText, featuredListTitle,
		fmt.Sprintf("adding [[%s]] (featured under %s)", c.filename(), topCategory(rec.Category)))
	return err
}

// addToCategorizedList appends the filename to the full per-topic listing.
// The animated category keeps its newest entries first, every other page
// appends before the last gallery's closing tag.
func (c *Candidate) addToCategorizedList(g *commitGate, rec ResultRecord) error {
	title := categorizedPrefix + rec.Category
	text, err := c.store.GetText(title, true)
	if err != nil {
		return err
	}
	if strings.Contains(text, c.filename()) {
		log.Printf("%s: already on %s", c.subpageName(), title)
		return nil
	}

	var newText string
	if topCategory(rec.Category) == animatedCategory {
		newText, err = insertAfterGalleryOpen(text, c.filename())
	} else {
		newText, err = insertBeforeLastGalleryClose(text, c.filename())
	}
	if err != nil {
		return fmt.Errorf("%s: %w", title, err)
	}
	_, err = g.commit(text, newText, title,
		fmt.Sprintf("adding [[%s]]", c.filename()))
	return err
}

// addAssessment marks the image page itself as featured, merging with an
// existing assessments template rather than adding a second one. When the
// nomination promoted an alternative, the original nomination subpage is
// recorded as the cross-reference.
func (c *Candidate) addAssessment(g *commitGate, rec ResultRecord) error {
	return c.setAssessment(g, 1)
}

func (c *Candidate) setAssessment(g *commitGate, value int) error {
	text, err := c.store.GetText(c.filename(), true)
	if err != nil {
		return err
	}

	want := strconv.Itoa(value)
	var newText string
	if m := assessmentsR.FindStringSubmatch(text); m != nil {
		if pm := featuredParamR.FindStringSubmatch(m[1]); pm != nil {
			if pm[2] == want {
				log.Printf("%s: assessment already set", c.subpageName())
				return nil
			}
			patched := featuredParamR.ReplaceAllString(m[1], "${1}"+want)
			newText = strings.Replace(text, m[0], "{{Assessments"+patched+"}}", 1)
		} else {
			newText = strings.Replace(text, m[0], "{{Assessments"+m[1]+"|featured="+want+"}}", 1)
		}
	} else {
		if value != 1 {
			log.Printf("%s: no assessments template to demote on %s", c.subpageName(), c.filename())
			return nil
		}
		tmpl := "{{Assessments|featured=1"
		if c.class.alternative != "" {
			tmpl += "|com-nom=" + strings.TrimPrefix(c.subpageName(), delistPrefix)
		}
		tmpl += "}}"
		newText = tmpl + "\n" + text
	}

	_, err = g.commit(text, newText, c.filename(),
		fmt.Sprintf("updating assessments: featured=%s", want))
	return err
}

// addToCurrentMonth appends a row to the chronological listing for the
// current month. The position counter continues from the highest one
// already on the page.
func (c *Candidate) addToCurrentMonth(g *commitGate, rec ResultRecord) error {
	text, err := c.store.GetText(currentMonthTitle, true)
	if err != nil {
		return err
	}
	if strings.Contains(text, c.filename()) {
		log.Printf("%s: already on the current month page", c.subpageName())
		return nil
	}

	position := 1
	for _, m := range chronoPosR.FindAllStringSubmatch(text, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= position {
			position = n + 1
		}
	}
	uploader, err := c.uploader()
	if err != nil {
		return err
	}
	nominator, err := c.nominator()
	if err != nil {
		return err
	}

	row := fmt.Sprintf("|-\n| %d\n| [[%s|120px]]\n| [[:%s|%s]]\n| %s\n| %s\n",
		position, c.filename(), c.filename(),
		strings.TrimPrefix(c.filename(), "File:"), uploader, nominator)

	idx := strings.LastIndex(text, "\n|}")
	var newText string
	if idx < 0 {
		newText = text + "\n" + row
	} else {
		newText = text[:idx+1] + row + text[idx+1:]
	}
	_, err = g.commit(text, newText, currentMonthTitle,
		fmt.Sprintf("adding [[%s]] at position %d", c.filename(), position))
	return err
}

// notifyNominator leaves a promotion notice on the nominator's talk page,
// unless one naming this file is already there.
func (c *Candidate) notifyNominator(g *commitGate, rec ResultRecord) error {
	nominator, err := c.nominator()
	if err != nil {
		return err
	}
	return c.notifyUser(g, "User talk:"+nominator)
}

func (c *Candidate) notifyUser(g *commitGate, talkTitle string) error {
	text, err := c.store.GetText(talkTitle, true)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if strings.Contains(text, c.filename()) {
		log.Printf("%s: %s already notified", c.subpageName(), talkTitle)
		return nil
	}

	notice := fmt.Sprintf("\n\n== %s ==\n{{%s|%s}} /~~~~\n",
		c.subpageName(), c.vocab.notifyName, c.filename())
	_, err = g.commit(text, text+notice, talkTitle,
		fmt.Sprintf("%s notice for [[%s]]", c.vocab.name, c.filename()))
	return err
}

// moveToLog archives the nomination: its transclusion is appended to the
// monthly log (created on first use) and removed from the active candidate
// list. This is the terminal step; after it the nomination is parked.
func (c *Candidate) moveToLog(g *commitGate, now time.Time, reason string) error {
	logTitle := c.vocab.logPrefix + now.Format("January 2006")

	logText, err := c.store.GetText(logTitle, false)
	if errors.Is(err, ErrNotFound) {
		logText = ""
	} else if err != nil {
		return err
	}

	if strings.Contains(logText, c.title) {
		log.Printf("%s: already on %s", c.subpageName(), logTitle)
	} else {
		newLog := logText + "\n{{" + c.title + "}}"
		if logText == "" {
			newLog = "{{" + c.title + "}}"
		}
		if _, err := g.commit(logText, newLog, logTitle,
			fmt.Sprintf("archiving [[%s]] (%s)", c.title, reason)); err != nil {
			return err
		}
	}

	listText, err := c.store.GetText(candListTitle, false)
	if err != nil {
		return err
	}
	entryR := regexp.MustCompile(`(?m)^\{\{\s*` + regexp.QuoteMeta(c.title) + `\s*\}\}[ \t]*\n?`)
	if !entryR.MatchString(listText) {
		log.Printf("%s: no longer on the candidate list", c.subpageName())
		return nil
	}
	newList := entryR.ReplaceAllString(listText, "")
	_, err = g.commit(listText, newList, candListTitle,
		fmt.Sprintf("removing [[%s]] (%s)", c.title, reason))
	return err
}

// --- gallery helpers ---

func topCategory(category string) string {
	if i := strings.Index(category, "/"); i >= 0 {
		return category[:i]
	}
	return category
}

// insertInGallerySection puts an entry at the top of the gallery under the
// named section heading and drops entries beyond the window.
func insertInGallerySection(text, section, entry string, window int) (string, error) {
	secR := regexp.MustCompile(`(?m)^==\s*` + regexp.QuoteMeta(section) + `\s*==[ \t]*$`)
	loc := secR.FindStringIndex(text)
	if loc == nil {
		return "", fmt.Errorf("no section %q", section)
	}

	rest := text[loc[1]:]
	open := strings.Index(rest, "<gallery")
	if open < 0 {
		return "", fmt.Errorf("no gallery under section %q", section)
	}
	openEnd := strings.Index(rest[open:], ">")
	if openEnd < 0 {
		return "", fmt.Errorf("unterminated gallery tag under %q", section)
	}
	start := loc[1] + open + openEnd + 1
	closeIdx := strings.Index(text[start:], "</gallery>")
	if closeIdx < 0 {
		return "", fmt.Errorf("no closing gallery tag under %q", section)
	}
	end := start + closeIdx

	var lines []string
	for _, l := range strings.Split(text[start:end], "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	lines = append([]string{entry}, lines...)
	if window > 0 && len(lines) > window {
		lines = lines[:window]
	}
	return text[:start] + "\n" + strings.Join(lines, "\n") + "\n" + text[end:], nil
}

func insertAfterGalleryOpen(text, entry string) (string, error) {
	open := strings.Index(text, "<gallery")
	if open < 0 {
		return "", fmt.Errorf("no gallery on page")
	}
	openEnd := strings.Index(text[open:], ">")
	if openEnd < 0 {
		return "", fmt.Errorf("unterminated gallery tag")
	}
	pos := open + openEnd + 1
	return text[:pos] + "\n" + entry + text[pos:], nil
}

func insertBeforeLastGalleryClose(text, entry string) (string, error) {
	idx := strings.LastIndex(text, "</gallery>")
	if idx < 0 {
		return "", fmt.Errorf("no closing gallery tag on page")
	}
	return text[:idx] + entry + "\n" + text[idx:], nil
}
