package main

import (
	"fmt"
	"log"
	"regexp"
	"strings"
)

const delistedNote = "<small>(delisted)</small>"

// removeFromGalleries strikes the image from every featured-pictures page
// that still lists it. Chronological archives keep their history: those
// entries get an in-place delisted annotation. Category pages lose the
// entry entirely.
func (c *Candidate) removeFromGalleries(g *commitGate, rec ResultRecord) error {
	pages, err := c.store.GetBacklinks(c.filename(), false)
	if err != nil {
		return err
	}

	for _, title := range pages {
		if !strings.HasPrefix(title, categorizedPrefix) && title != featuredListTitle {
			continue
		}
		text, err := c.store.GetText(title, false)
		if err != nil {
			return err
		}
		if !strings.Contains(text, c.filename()) {
			continue
		}

		var newText string
		var comment string
		if strings.HasPrefix(title, chronoPrefix) {
			newText = annotateDelisted(text, c.filename())
			comment = fmt.Sprintf("marking [[%s]] as delisted", c.filename())
		} else {
			newText = removeGalleryEntry(text, c.filename())
			comment = fmt.Sprintf("removing delisted [[%s]]", c.filename())
		}
		if newText == text {
			log.Printf("%s: %s already handled", c.subpageName(), title)
			continue
		}
		if _, err := g.commit(text, newText, title, comment); err != nil {
			return err
		}
	}
	return nil
}

// demoteAssessment downgrades the image page's featured flag to "former
// featured picture" instead of removing the assessment history.
func (c *Candidate) demoteAssessment(g *commitGate, rec ResultRecord) error {
	return c.setAssessment(g, 2)
}

// notifyDelist leaves a demotion notice on the uploader's talk page.
func (c *Candidate) notifyDelist(g *commitGate, rec ResultRecord) error {
	uploader, err := c.uploader()
	if err != nil {
		return err
	}
	return c.notifyUser(g, "User talk:"+uploader)
}

// annotateDelisted appends the delisted note to every line mentioning the
// filename, unless the note is already there.
func annotateDelisted(text, filename string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.Contains(line, filename) && !strings.Contains(line, delistedNote) {
			lines[i] = strings.TrimRight(line, " \t") + " " + delistedNote
		}
	}
	return strings.Join(lines, "\n")
}

// removeGalleryEntry drops every gallery line naming the file.
func removeGalleryEntry(text, filename string) string {
	entryR := regexp.MustCompile(`(?m)^.*` + regexp.QuoteMeta(filename) + `.*\n?`)
	return entryR.ReplaceAllString(text, "")
}
