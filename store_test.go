package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeStore is an in-memory Store for workflow tests. It records every
// write so tests can assert on idempotency.
type fakeStore struct {
	mu      sync.Mutex
	pages   map[string]string
	history map[string][]Revision
	locked  map[string]bool
	writes  []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		pages:   make(map[string]string),
		history: make(map[string][]Revision),
		locked:  make(map[string]bool),
	}
}

func (f *fakeStore) Exists(title string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.pages[title]
	return ok, nil
}

func (f *fakeStore) GetText(title string, followRedirect bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	text, ok := f.pages[title]
	if !ok {
		return "", fmt.Errorf("%s: %w", title, ErrNotFound)
	}
	return text, nil
}

func (f *fakeStore) GetHistory(title string, reverse bool, limit int) ([]Revision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	revs, ok := f.history[title]
	if !ok {
		return nil, fmt.Errorf("%s: %w", title, ErrNotFound)
	}
	out := make([]Revision, len(revs))
	copy(out, revs)
	if !reverse {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) GetBacklinks(title string, withTransclusions bool) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var titles []string
	for page, text := range f.pages {
		if page != title && strings.Contains(text, title) {
			titles = append(titles, page)
		}
	}
	return titles, nil
}

func (f *fakeStore) Write(title, text, comment string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locked[title] {
		return fmt.Errorf("%s: %w", title, ErrLocked)
	}
	f.pages[title] = text
	f.writes = append(f.writes, title)
	return nil
}

func (f *fakeStore) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func (f *fakeStore) page(t *testing.T, title string) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	text, ok := f.pages[title]
	if !ok {
		t.Fatalf("page %s does not exist", title)
	}
	return text
}

// addPage registers a page with a single-revision history.
func (f *fakeStore) addPage(title, text, author string, created time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[title] = text
	f.history[title] = []Revision{{Timestamp: created, Author: author}}
}

var testNow = time.Date(2026, time.August, 20, 12, 0, 0, 0, time.UTC)

// testCandidate builds a promotion candidate nominated ten days before
// testNow, old enough to close under the regular rule.
func testCandidate(t *testing.T, store *fakeStore, name, text string) *Candidate {
	t.Helper()
	title := candPrefix + name
	store.addPage(title, text, "Nominator", testNow.AddDate(0, 0, -10))
	cand, err := NewCandidate(store, title, kindPromotion)
	if err != nil {
		t.Fatalf("NewCandidate(%s): %v", title, err)
	}
	return cand
}

// dryGate is a commit gate that never writes and never prompts.
func dryGate(store Store) *commitGate {
	g := newCommitGate(store, modeDry, nil)
	g.out = io.Discard
	return g
}

// autoGate writes unconditionally, without prompting.
func autoGate(store Store) *commitGate {
	g := newCommitGate(store, modeAuto, nil)
	g.out = io.Discard
	return g
}
