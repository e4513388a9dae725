package main

import (
	"strings"
	"testing"
)

const delistNomination = `== Delist [[File:Dated.jpg]] ==
[[File:Dated.jpg|400px]]
Quality is no longer up to standard.
{{Delist}} blurry by today's standards
{{Delist}}
{{Delist}}
{{Delist}}
{{Delist}}
{{Keep}} still historic
{{FPC-delist-results-reviewed|delist=5|keep=1|neutral=0|delisted=yes|sig=Reviewer}}
`

func delistFixture(t *testing.T) (*fakeStore, *Candidate) {
	t.Helper()
	store := newFakeStore()
	title := candPrefix + delistPrefix + "File:Dated.jpg"
	store.addPage(title, delistNomination, "Requester", testNow.AddDate(0, 0, -10))

	old := testNow.AddDate(0, 0, -400)
	store.addPage("File:Dated.jpg",
		"{{Information|description=Old photo}}\n{{Assessments|featured=1}}\n", "Uploader", old)
	store.addPage(categorizedPrefix+"Places", `<gallery>
File:Dated.jpg
File:Keeper.jpg
</gallery>
`, "Editor", old)
	store.addPage(chronoPrefix+"2019-03", `{| class="wikitable"
|-
| 12
| [[File:Dated.jpg|120px]]
| [[:File:Dated.jpg|Dated.jpg]]
|}
`, "Editor", old)
	store.addPage(candListTitle, "{{"+title+"}}\n", "Editor", old)

	c, err := NewCandidate(store, title, kindDelist)
	if err != nil {
		t.Fatalf("NewCandidate: %v", err)
	}
	return store, c
}

func TestDelistParkRemovesAndDemotes(t *testing.T) {
	store, c := delistFixture(t)
	if err := c.parkAt(autoGate(store), testNow); err != nil {
		t.Fatalf("park: %v", err)
	}

	cat := store.page(t, categorizedPrefix+"Places")
	if strings.Contains(cat, "File:Dated.jpg") {
		t.Errorf("category page still lists the image:\n%s", cat)
	}
	if !strings.Contains(cat, "File:Keeper.jpg") {
		t.Error("unrelated gallery entry was removed")
	}

	chrono := store.page(t, chronoPrefix+"2019-03")
	if !strings.Contains(chrono, "File:Dated.jpg") {
		t.Error("chronological archive entry must be kept")
	}
	if !strings.Contains(chrono, delistedNote) {
		t.Errorf("chronological archive entry not annotated:\n%s", chrono)
	}

	img := store.page(t, "File:Dated.jpg")
	if !strings.Contains(img, "featured=2") {
		t.Errorf("assessment not demoted:\n%s", img)
	}

	talk := store.page(t, "User talk:Uploader")
	if !strings.Contains(talk, "{{FPdemotion|File:Dated.jpg}}") {
		t.Errorf("uploader not notified:\n%s", talk)
	}

	logTitle := delistVocab.logPrefix + testNow.Format("January 2006")
	if !strings.Contains(store.page(t, logTitle), c.title) {
		t.Error("delist log missing the nomination")
	}
	if strings.Contains(store.page(t, candListTitle), c.title) {
		t.Error("nomination still on the candidate list")
	}
}

func TestDelistParkIsIdempotent(t *testing.T) {
	store, c := delistFixture(t)
	if err := c.parkAt(autoGate(store), testNow); err != nil {
		t.Fatalf("first park: %v", err)
	}
	writes := store.writeCount()

	again, err := NewCandidate(store, c.title, kindDelist)
	if err != nil {
		t.Fatalf("NewCandidate: %v", err)
	}
	if err := again.parkAt(autoGate(store), testNow); err != nil {
		t.Fatalf("second park: %v", err)
	}
	if store.writeCount() != writes {
		t.Errorf("second park performed %d extra writes", store.writeCount()-writes)
	}
}

func TestAnnotateDelistedIdempotent(t *testing.T) {
	text := "| [[File:X.jpg|120px]]\n| other line\n"
	once := annotateDelisted(text, "File:X.jpg")
	if !strings.Contains(once, delistedNote) {
		t.Fatalf("note missing: %q", once)
	}
	if annotateDelisted(once, "File:X.jpg") != once {
		t.Error("annotateDelisted stacked a second note")
	}
}

func TestRemoveGalleryEntry(t *testing.T) {
	text := "<gallery>\nFile:A.jpg\nFile:B.jpg|caption\nFile:C.jpg\n</gallery>\n"
	got := removeGalleryEntry(text, "File:B.jpg")
	if strings.Contains(got, "File:B.jpg") {
		t.Errorf("entry not removed: %q", got)
	}
	if !strings.Contains(got, "File:A.jpg") || !strings.Contains(got, "File:C.jpg") {
		t.Errorf("neighbouring entries damaged: %q", got)
	}
}
