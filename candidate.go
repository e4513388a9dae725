package main

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	candPrefix    = "Commons:Featured picture candidates/"
	candListTitle = "Commons:Featured picture candidates/candidate list"
	delistPrefix  = "removal/"
)

type candidateKind int

const (
	kindPromotion candidateKind = iota
	kindDelist
)

// vocabulary carries everything that differs between the promotion and the
// delisting variant: marker alias sets, pass arithmetic inputs, result
// template names and the wording used on target pages. All workflow code
// branches on the candidate's vocabulary.
type vocabulary struct {
	name string

	forR     *regexp.Regexp
	againstR *regexp.Regexp
	neutralR *regexp.Regexp

	passThreshold int

	proposedName string
	verifiedName string
	proposedR    *regexp.Regexp
	verifiedR    *regexp.Regexp
	forParam     string
	againstParam string
	passedParam  string

	passedSuffix string
	failedSuffix string
	passedLabel  string
	failedLabel  string

	logPrefix  string
	notifyName string
}

func resultTemplateRegexp(name string) *regexp.Regexp {
	return regexp.MustCompile(`\{\{\s*` + regexp.QuoteMeta(name) + `\s*\|([^{}]*)\}\}`)
}

var promotionVocab = vocabulary{
	name:          "promotion",
	forR:          supportR,
	againstR:      opposeR,
	neutralR:      neutralR,
	passThreshold: 7,
	proposedName:  "FPC-results-ready-for-review",
	verifiedName:  "FPC-results-reviewed",
	proposedR:     resultTemplateRegexp("FPC-results-ready-for-review"),
	verifiedR:     resultTemplateRegexp("FPC-results-reviewed"),
	forParam:      "support",
	againstParam:  "oppose",
	passedParam:   "featured",
	passedSuffix:  ", featured",
	failedSuffix:  ", not featured",
	passedLabel:   "Featured",
	failedLabel:   "Not featured",
	logPrefix:     "Commons:Featured picture candidates/Log/",
	notifyName:    "FPpromotion",
}

var delistVocab = vocabulary{
	name:          "delist",
	forR:          delistR,
	againstR:      keepR,
	neutralR:      neutralR,
	passThreshold: 5,
	proposedName:  "FPC-delist-results-ready-for-review",
	verifiedName:  "FPC-delist-results-reviewed",
	proposedR:     resultTemplateRegexp("FPC-delist-results-ready-for-review"),
	verifiedR:     resultTemplateRegexp("FPC-delist-results-reviewed"),
	forParam:      "delist",
	againstParam:  "keep",
	passedParam:   "delisted",
	passedSuffix:  ", delisted",
	failedSuffix:  ", not delisted",
	passedLabel:   "Delisted",
	failedLabel:   "Not delisted",
	logPrefix:     "Commons:Featured picture candidates/Delist/Log/",
	notifyName:    "FPdemotion",
}

// classification is the immutable snapshot computed once when a Candidate is
// built. Vote counts reflect active markers only: filterNoise runs before
// any counting, so struck or commented votes never appear here.
type classification struct {
	votesFor     int
	votesAgainst int
	neutral      int
	withdrawn    bool
	fpx          bool
	sections     int
	images       int
	alternative  string
}

func classify(text string, vocab *vocabulary) classification {
	clean := filterNoise(text)
	c := classification{
		votesFor:     countMarkers(clean, vocab.forR),
		votesAgainst: countMarkers(clean, vocab.againstR),
		neutral:      countMarkers(clean, vocab.neutralR),
		withdrawn:    detectFlag(clean, withdrawnR),
		fpx:          detectFlag(clean, fpxR),
		sections:     countSections(text),
		images:       countImages(clean),
	}
	// When exactly one result template names an alternative (a multi-image
	// nomination resolved by the closer), that filename wins over the page
	// title later on.
	for _, tmpl := range []*regexp.Regexp{vocab.verifiedR, vocab.proposedR} {
		recs := extractResults(clean, tmpl, vocab.forParam, vocab.againstParam, vocab.passedParam)
		if len(recs) == 1 && recs[0].Alternative != "" {
			c.alternative = recs[0].Alternative
			break
		}
	}
	return c
}

// Candidate is one nomination: its page, its variant vocabulary and the
// classification snapshot. Discarded after one workflow pass; only the page
// edits persist.
type Candidate struct {
	title string
	kind  candidateKind
	vocab *vocabulary
	store Store

	text     string
	class    classification
	created  time.Time
	lastEdit time.Time
}

// NewCandidate fetches the nomination page and classifies it up front.
func NewCandidate(store Store, title string, kind candidateKind) (*Candidate, error) {
	vocab := &promotionVocab
	if kind == kindDelist {
		vocab = &delistVocab
	}

	text, err := store.GetText(title, true)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", title, err)
	}

	first, err := store.GetHistory(title, true, 1)
	if err != nil {
		return nil, fmt.Errorf("fetching history of %s: %w", title, err)
	}
	last, err := store.GetHistory(title, false, 1)
	if err != nil {
		return nil, fmt.Errorf("fetching history of %s: %w", title, err)
	}
	if len(first) == 0 || len(last) == 0 {
		return nil, fmt.Errorf("no history for %s: %w", title, ErrNotFound)
	}

	return &Candidate{
		title:    title,
		kind:     kind,
		vocab:    vocab,
		store:    store,
		text:     text,
		class:    classify(text, vocab),
		created:  first[0].Timestamp,
		lastEdit: last[0].Timestamp,
	}, nil
}

// subpageName is the nomination's name relative to the candidate prefix,
// e.g. "File:Foo.jpg" or "removal/File:Foo.jpg".
func (c *Candidate) subpageName() string {
	return strings.TrimPrefix(c.title, candPrefix)
}

// filename is the image page this nomination is about. A resolved
// alternative (multi-image nomination) takes precedence over the title.
func (c *Candidate) filename() string {
	if c.class.alternative != "" {
		return c.class.alternative
	}
	return strings.TrimPrefix(c.subpageName(), delistPrefix)
}

func (c *Candidate) uploader() (string, error) {
	revs, err := c.store.GetHistory(c.filename(), true, 1)
	if err != nil {
		return "", err
	}
	if len(revs) == 0 {
		return "", fmt.Errorf("no history for %s: %w", c.filename(), ErrNotFound)
	}
	return revs[0].Author, nil
}

func (c *Candidate) nominator() (string, error) {
	revs, err := c.store.GetHistory(c.title, true, 1)
	if err != nil {
		return "", err
	}
	if len(revs) == 0 {
		return "", fmt.Errorf("no history for %s: %w", c.title, ErrNotFound)
	}
	return revs[0].Author, nil
}

// verifiedResult returns the single human-confirmed result on the page.
// Zero or several verified templates is an ambiguous state the bot refuses
// to resolve.
func (c *Candidate) verifiedResult() (ResultRecord, error) {
	recs := extractResults(filterNoise(c.text), c.vocab.verifiedR,
		c.vocab.forParam, c.vocab.againstParam, c.vocab.passedParam)
	switch len(recs) {
	case 0:
		return ResultRecord{}, fmt.Errorf("no verified result on %s", c.title)
	case 1:
		return recs[0], nil
	default:
		return ResultRecord{}, fmt.Errorf("%s: %w", c.title, ErrAmbiguousResult)
	}
}

// proposedResults returns every machine-proposed result on the page.
func (c *Candidate) proposedResults() []ResultRecord {
	return extractResults(filterNoise(c.text), c.vocab.proposedR,
		c.vocab.forParam, c.vocab.againstParam, c.vocab.passedParam)
}

// infoLine matches the console summary the bot has always printed:
// counts, age, structure and status at a glance.
func (c *Candidate) infoLine() string {
	name := c.subpageName()
	if r := []rune(name); len(r) > 40 {
		name = string(r[:40])
	}
	return fmt.Sprintf("%-40s S:%02d O:%02d N:%02d D:%02d Se:%d Im:%02d W:%-5v (%s)",
		name, c.class.votesFor, c.class.votesAgainst, c.class.neutral,
		c.daysOld(), c.class.sections, c.class.images, c.class.withdrawn,
		c.statusString())
}
