package main

import (
	"strings"
	"testing"
)

func TestCountMarkersBasic(t *testing.T) {
	text := "{{Support}}{{Support}}{{Oppose}}"
	if got := countMarkers(text, supportR); got != 2 {
		t.Errorf("support = %d, want 2", got)
	}
	if got := countMarkers(text, opposeR); got != 1 {
		t.Errorf("oppose = %d, want 1", got)
	}
	if got := countMarkers(text, neutralR); got != 0 {
		t.Errorf("neutral = %d, want 0", got)
	}
}

func TestCountMarkersLocalizedAliases(t *testing.T) {
	text := "{{Pro}} comment {{Für}} {{support}} {{Contra|too dark}} {{Nein}}"
	if got := countMarkers(text, supportR); got != 3 {
		t.Errorf("support = %d, want 3", got)
	}
	if got := countMarkers(text, opposeR); got != 2 {
		t.Errorf("oppose = %d, want 2", got)
	}
}

func TestStruckVotesAreNeverCounted(t *testing.T) {
	cases := []string{
		"<s>{{Support}}</s>",
		"<s>{{Support}} per above</s>\n<s>{{Oppose}}</s>",
		"<strike>{{Neutral}}</strike>",
		"<s>some text {{Support}} <nowiki>{{Support}}</nowiki> more</s>",
		"<!-- {{Support}} -->",
		"<nowiki>{{Oppose}}</nowiki>",
	}
	for _, text := range cases {
		clean := filterNoise(text)
		if got := countMarkers(clean, supportR); got != 0 {
			t.Errorf("countMarkers(filterNoise(%q), support) = %d, want 0", text, got)
		}
		if got := countMarkers(clean, opposeR); got != 0 {
			t.Errorf("countMarkers(filterNoise(%q), oppose) = %d, want 0", text, got)
		}
		if got := countMarkers(clean, neutralR); got != 0 {
			t.Errorf("countMarkers(filterNoise(%q), neutral) = %d, want 0", text, got)
		}
	}
}

func TestFilterNoiseKeepsActiveVotes(t *testing.T) {
	text := "{{Support}}\n<s>{{Support}}</s>\n{{Oppose}}"
	clean := filterNoise(text)
	if got := countMarkers(clean, supportR); got != 1 {
		t.Errorf("support = %d, want 1", got)
	}
	if got := countMarkers(clean, opposeR); got != 1 {
		t.Errorf("oppose = %d, want 1", got)
	}
}

func TestDetectWithdrawnWithReason(t *testing.T) {
	cases := map[string]bool{
		"{{Withdraw}}":                          true,
		"{{withdraw}}":                          true,
		"{{Withdrawn|better version available}}": true,
		"{{wdn}}":                               true,
		"no withdrawal here":                    false,
	}
	for text, want := range cases {
		if got := detectFlag(text, withdrawnR); got != want {
			t.Errorf("detectFlag(%q) = %v, want %v", text, got, want)
		}
	}
}

func TestDetectFPX(t *testing.T) {
	if !detectFlag("{{FPX|obviously out of scope}}", fpxR) {
		t.Error("FPX with reason not detected")
	}
	if detectFlag("{{FPXish}}", fpxR) {
		t.Error("false positive on FPXish")
	}
}

func TestCountSections(t *testing.T) {
	text := "== One ==\nbody\n=== Two ===\n==== Four ====\nnot = a heading\n"
	if got := countSections(text); got != 3 {
		t.Errorf("countSections = %d, want 3", got)
	}
}

func TestCountImagesSingleEmbedNeverDiscounted(t *testing.T) {
	cases := []string{
		"[[File:Foo.jpg]]",
		"[[File:Foo.jpg|thumb]]",
		"[[File:Foo.jpg|100px]]",
		"[[Image:Foo.jpg|thumb|50px|tiny]]",
	}
	for _, text := range cases {
		if got := countImages(text); got != 1 {
			t.Errorf("countImages(%q) = %d, want 1", text, got)
		}
	}
}

func TestCountImagesDiscountsDecorativeEmbeds(t *testing.T) {
	text := "[[File:Main.jpg|400px]]\n[[File:Detail.jpg|thumb]]"
	if got := countImages(text); got != 1 {
		t.Errorf("countImages = %d, want 1 (thumb discounted)", got)
	}

	text = "[[File:Main.jpg|400px]]\n[[File:Small.jpg|100px]]\n[[File:Other.jpg|300px]]"
	if got := countImages(text); got != 2 {
		t.Errorf("countImages = %d, want 2 (sub-150px discounted)", got)
	}

	text = "[[File:A.jpg|400px]]\n[[File:B.jpg|200px]]"
	if got := countImages(text); got != 2 {
		t.Errorf("countImages = %d, want 2 (nothing decorative)", got)
	}
}

func TestCountImagesRepeatEmbedsOfOneFileCountOnce(t *testing.T) {
	text := "== [[File:Sunset.jpg]] ==\n[[File:Sunset.jpg|400px]]\nA sunset over the bay.\n"
	if got := countImages(text); got != 1 {
		t.Errorf("countImages = %d, want 1 (heading links the same file)", got)
	}

	// A second distinct file still makes the nomination multi-image.
	text += "[[File:Other.jpg|400px]]\n"
	if got := countImages(text); got != 2 {
		t.Errorf("countImages = %d, want 2", got)
	}

	// A file shown as a thumb somewhere still counts when it is also
	// embedded at full size.
	text = "[[File:Main.jpg|400px]]\n[[File:Main.jpg|thumb]]\n[[File:Inset.jpg|thumb]]"
	if got := countImages(text); got != 1 {
		t.Errorf("countImages = %d, want 1", got)
	}
}

func TestExtractResultsRoundTrip(t *testing.T) {
	rec := ResultRecord{Support: 9, Oppose: 2, Neutral: 1, Passed: true, Category: "Animals"}
	text := resultTemplate(promotionVocab.proposedName, rec,
		"support", "oppose", "featured", "~~~~")

	recs := extractResults(text, promotionVocab.proposedR, "support", "oppose", "featured")
	if len(recs) != 1 {
		t.Fatalf("extracted %d records, want 1", len(recs))
	}
	got := recs[0]
	got.Alternative = "" // not set either way
	if got != rec {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, rec)
	}
}

func TestExtractResultsAlternative(t *testing.T) {
	rec := ResultRecord{Support: 8, Oppose: 0, Neutral: 0, Passed: true,
		Category: "Places", Alternative: "File:Alt version.jpg"}
	text := resultTemplate(promotionVocab.verifiedName, rec,
		"support", "oppose", "featured", "~~~~")

	recs := extractResults(text, promotionVocab.verifiedR, "support", "oppose", "featured")
	if len(recs) != 1 {
		t.Fatalf("extracted %d records, want 1", len(recs))
	}
	if recs[0] != rec {
		t.Errorf("got %+v, want %+v", recs[0], rec)
	}
}

func TestExtractResultsReturnsEveryMatch(t *testing.T) {
	one := resultTemplate(promotionVocab.verifiedName,
		ResultRecord{Support: 7, Passed: true}, "support", "oppose", "featured", "~~~~")
	text := one + "\nsome discussion\n" + one
	recs := extractResults(text, promotionVocab.verifiedR, "support", "oppose", "featured")
	if len(recs) != 2 {
		t.Fatalf("extracted %d records, want 2 (caller must treat as ambiguous)", len(recs))
	}
}

func TestDelistResultTemplates(t *testing.T) {
	rec := ResultRecord{Support: 6, Oppose: 2, Neutral: 0, Passed: true}
	text := resultTemplate(delistVocab.verifiedName, rec, "delist", "keep", "delisted", "~~~~")
	if !strings.Contains(text, "delist=6") || !strings.Contains(text, "keep=2") {
		t.Fatalf("unexpected delist template: %s", text)
	}
	recs := extractResults(text, delistVocab.verifiedR, "delist", "keep", "delisted")
	if len(recs) != 1 || recs[0] != rec {
		t.Errorf("got %+v, want %+v", recs, rec)
	}
}
