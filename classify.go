package main

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrAmbiguousResult is returned when a page carries more than one result
// template of the same kind. The bot never guesses which one is right.
var ErrAmbiguousResult = errors.New("more than one result template on page")

// Noise regions that must never be scanned for votes. Each filter is applied
// in a single non-recursive pass, so a strike-out that wraps a nowiki span is
// still removed entirely by the strike-out filter alone.
var (
	strikedR   = regexp.MustCompile(`(?s)<s>.*?</s>`)
	strikedBR  = regexp.MustCompile(`(?s)<strike>.*?</strike>`)
	nowikiR    = regexp.MustCompile(`(?s)<nowiki>.*?</nowiki>`)
	commentR   = regexp.MustCompile(`(?s)<!--.*?-->`)
	imageNoteR = regexp.MustCompile(`(?s)\{\{\s*[Ii]mageNote\s*\|.*?\{\{\s*[Ii]mageNoteEnd\s*\|.*?\}\}`)
)

// Structural signals: headings and image embeds.
var (
	sectionR = regexp.MustCompile(`(?m)^={1,4}.+={1,4}\s*$`)
	imagesR  = regexp.MustCompile(`\[\[(?:[Ff]ile|[Ii]mage):([^|\]]+)([^\]]*)\]\]`)
	imagePxR = regexp.MustCompile(`(\d+)\s*px`)
)

// Status flags. Withdrawals may carry a free-text reason as a parameter.
var (
	withdrawnR = regexp.MustCompile(`\{\{\s*(?:[Ww]ithdrawn?|[Ww]dn)\s*(?:\|[^}]*)?\}\}`)
	fpxR       = regexp.MustCompile(`\{\{\s*FPX\s*(?:\|[^}]*)?\}\}`)
)

// Vote marker alias lists. Each entry is a regex fragment; the casings that
// actually occur on the candidate pages are spelled out per alias. An alias
// list is compiled into a single alternation so overlapping spellings cannot
// be counted twice.
var (
	supportAliases = []string{
		"[Ss]upport", "[Pp]ro", "[Ss]im", "[Ww]eak [Ss]upport", "[Ss]775",
		"[Aa]poio", "[Pp]ara", "[Ff][üu]r", "[Oo]ui", "[Jj]a", "[Tt]ak",
		"[Tt]ámogatom", "За", "支持", "[Yy]es",
	}
	opposeAliases = []string{
		"[Oo]ppose", "[Cc]ontra", "[Kk]ontra", "[Cc]ontre", "[Ww]eak [Oo]ppose",
		"[Nn]ein", "[Nn][ãa]o", "[Aa]gainst", "[Ee]llenzem", "Против", "反対",
		"[Nn]o",
	}
	neutralAliases = []string{
		"[Nn]eutral", "[Nn]eutre", "[Nn]eutro", "[Oo]partisk", "中立",
	}
	delistAliases = []string{
		"[Dd]elist", "[Rr]emove", "[Dd]elistar", "[Uu]nfeature",
	}
	keepAliases = []string{
		"[Kk]eep", "[Vv][Kk]", "[Bb]ehalten", "[Gg]arder",
	}
)

var (
	supportR = markerRegexp(supportAliases)
	opposeR  = markerRegexp(opposeAliases)
	neutralR = markerRegexp(neutralAliases)
	delistR  = markerRegexp(delistAliases)
	keepR    = markerRegexp(keepAliases)
)

// markerRegexp joins an alias list into one template alternation. A marker is
// a template invocation, optionally with parameters: {{ Support }} or
// {{support|comment}}.
func markerRegexp(aliases []string) *regexp.Regexp {
	return regexp.MustCompile(`\{\{\s*(?:` + strings.Join(aliases, "|") + `)\s*(?:\|[^{}]*)?\}\}`)
}

// filterNoise strips every region that must not be scanned for votes:
// strike-outs, nowiki spans, HTML comments and paired image-note annotations.
// One pass per filter; never recursive.
func filterNoise(text string) string {
	text = strikedR.ReplaceAllString(text, "")
	text = strikedBR.ReplaceAllString(text, "")
	text = nowikiR.ReplaceAllString(text, "")
	text = commentR.ReplaceAllString(text, "")
	text = imageNoteR.ReplaceAllString(text, "")
	return text
}

// countMarkers counts non-overlapping occurrences of one marker family.
// Callers are expected to pass text through filterNoise first when counting
// active votes.
func countMarkers(text string, marker *regexp.Regexp) int {
	return len(marker.FindAllString(text, -1))
}

// detectFlag reports whether a status flag (withdrawal, FPX) is present.
func detectFlag(text string, flag *regexp.Regexp) bool {
	return flag.MatchString(text)
}

// countSections counts heading lines: 1-4 '=' characters on each side.
func countSections(text string) int {
	return len(sectionR.FindAllString(text, -1))
}

// countImages counts distinct displayed images. Repeat embeds of one file
// (the heading usually links the nominated file again) are one image. When
// two or more distinct files are present, files whose every embed is marked
// as a thumbnail or sized below minImagePx are treated as decorative and
// discounted. A lone file is never discounted, whatever its declared size.
const minImagePx = 150

func countImages(text string) int {
	// filename -> has at least one non-decorative embed
	files := make(map[string]bool)
	for _, m := range imagesR.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1])
		if !decorativeEmbed(m[2]) {
			files[name] = true
		} else if _, ok := files[name]; !ok {
			files[name] = false
		}
	}
	if len(files) < 2 {
		return len(files)
	}
	count := 0
	for _, displayed := range files {
		if displayed {
			count++
		}
	}
	return count
}

func decorativeEmbed(params string) bool {
	for _, p := range strings.Split(params, "|") {
		p = strings.TrimSpace(p)
		if p == "thumb" || p == "thumbnail" {
			return true
		}
		if m := imagePxR.FindStringSubmatch(p); m != nil {
			if px, err := strconv.Atoi(m[1]); err == nil && px < minImagePx {
				return true
			}
		}
	}
	return false
}

// ResultRecord is one parsed outcome template. For delist nominations the
// Support/Oppose fields carry the delist/keep tallies.
type ResultRecord struct {
	Support     int
	Oppose      int
	Neutral     int
	Passed      bool
	Category    string
	Alternative string
}

// extractResults returns every result record matching the given template
// pattern. Callers must treat more than one record as an ambiguous state;
// this function never picks one arbitrarily.
func extractResults(text string, tmpl *regexp.Regexp, forParam, againstParam, passedParam string) []ResultRecord {
	var out []ResultRecord
	for _, m := range tmpl.FindAllStringSubmatch(text, -1) {
		out = append(out, parseResultParams(m[1], forParam, againstParam, passedParam))
	}
	return out
}

func parseResultParams(body, forParam, againstParam, passedParam string) ResultRecord {
	var rec ResultRecord
	for _, part := range strings.Split(body, "|") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		switch k {
		case forParam:
			rec.Support, _ = strconv.Atoi(v)
		case againstParam:
			rec.Oppose, _ = strconv.Atoi(v)
		case "neutral":
			rec.Neutral, _ = strconv.Atoi(v)
		case passedParam:
			rec.Passed = v == "yes"
		case "category":
			rec.Category = v
		case "alternative":
			rec.Alternative = v
		}
	}
	return rec
}

// resultTemplate renders a ResultRecord back into template markup. The
// rendered form round-trips through extractResults.
func resultTemplate(name string, rec ResultRecord, forParam, againstParam, passedParam, sig string) string {
	passed := "no"
	if rec.Passed {
		passed = "yes"
	}
	s := fmt.Sprintf("{{%s|%s=%d|%s=%d|neutral=%d|%s=%s|category=%s",
		name, forParam, rec.Support, againstParam, rec.Oppose, rec.Neutral,
		passedParam, passed, rec.Category)
	if rec.Alternative != "" {
		s += "|alternative=" + rec.Alternative
	}
	return s + "|sig=" + sig + "}}"
}
