package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// ErrUserAbort is returned when the operator answers "q" to an interactive
// confirmation. It stops the whole batch, not just the current candidate.
var ErrUserAbort = errors.New("aborted by user")

type commitMode int

const (
	modeDry commitMode = iota
	modeInteractive
	modeAuto
)

func (m commitMode) String() string {
	switch m {
	case modeDry:
		return "dry"
	case modeAuto:
		return "auto"
	default:
		return "interactive"
	}
}

type commitOutcome int

const (
	outcomeWritten commitOutcome = iota
	outcomeSkipped
	outcomeAborted
)

func (o commitOutcome) String() string {
	switch o {
	case outcomeWritten:
		return "written"
	case outcomeAborted:
		return "aborted"
	default:
		return "skipped"
	}
}

var (
	headerColor = color.New(color.FgMagenta)
	addColor    = color.New(color.FgGreen)
	delColor    = color.New(color.FgRed)
)

// commitGate is the only component that writes to the wiki. Every call ends
// in exactly one of three outcomes: written, skipped or aborted. There are
// no partial writes.
type commitGate struct {
	store Store
	mode  commitMode
	audit *auditLog // may be nil
	in    *bufio.Reader
	out   io.Writer
}

func newCommitGate(store Store, mode commitMode, audit *auditLog) *commitGate {
	return &commitGate{
		store: store,
		mode:  mode,
		audit: audit,
		in:    bufio.NewReader(os.Stdin),
		out:   os.Stdout,
	}
}

// commit shows a line diff of the pending edit and then writes, skips or
// aborts depending on the gate's mode. A locked target page is a skip, not
// an error: the batch goes on without that step.
func (g *commitGate) commit(oldText, newText, title, comment string) (commitOutcome, error) {
	if oldText == newText {
		log.Printf("%s: no change, nothing to write", title)
		return outcomeSkipped, nil
	}

	g.showDiff(oldText, newText, title)

	switch g.mode {
	case modeDry:
		log.Printf("dry run: would write %s (%s)", title, comment)
		g.record(title, comment, outcomeSkipped)
		return outcomeSkipped, nil

	case modeInteractive:
		answer, err := g.prompt(title)
		if err != nil {
			return outcomeSkipped, err
		}
		switch answer {
		case "q":
			g.record(title, comment, outcomeAborted)
			return outcomeAborted, ErrUserAbort
		case "y":
		default:
			log.Printf("skipping write to %s", title)
			g.record(title, comment, outcomeSkipped)
			return outcomeSkipped, nil
		}
	}

	if err := g.store.Write(title, newText, comment); err != nil {
		if errors.Is(err, ErrLocked) {
			log.Printf("%s is locked, skipping this write", title)
			g.record(title, comment, outcomeSkipped)
			return outcomeSkipped, nil
		}
		return outcomeSkipped, err
	}
	log.Printf("wrote %s (%s)", title, comment)
	g.record(title, comment, outcomeWritten)
	return outcomeWritten, nil
}

func (g *commitGate) prompt(title string) (string, error) {
	fmt.Fprintf(g.out, "write %s? [y/N/q] ", title)
	line, err := g.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading confirmation: %w", err)
	}
	return strings.ToLower(strings.TrimSpace(line)), nil
}

// showDiff prints a colored line-level diff of the pending edit. Display
// only; the write itself always carries the full new text.
func (g *commitGate) showDiff(oldText, newText, title string) {
	headerColor.Fprintf(g.out, "\n>>> %s <<<\n", title)

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			for _, line := range diffLines(d.Text) {
				addColor.Fprintf(g.out, "+ %s\n", line)
			}
		case diffmatchpatch.DiffDelete:
			for _, line := range diffLines(d.Text) {
				delColor.Fprintf(g.out, "- %s\n", line)
			}
		}
	}
}

func diffLines(text string) []string {
	return strings.Split(strings.TrimRight(text, "\n"), "\n")
}

func (g *commitGate) record(title, comment string, outcome commitOutcome) {
	if g.audit == nil {
		return
	}
	if err := g.audit.record(title, comment, outcome, g.mode); err != nil {
		log.Printf("audit record failed for %s: %v", title, err)
	}
}
