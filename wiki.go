package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

var (
	// ErrNotFound: the page does not exist. Skipped and logged, never fatal.
	ErrNotFound = errors.New("page not found")
	// ErrLocked: the write target is protected. The step is skipped and the
	// batch continues.
	ErrLocked = errors.New("page is locked")
)

// Revision is one history entry of a page.
type Revision struct {
	Timestamp time.Time
	Author    string
}

// Store is the document-store surface the workflows need. The bot performs
// no retries: any fetch or write error aborts processing of that one
// candidate only.
type Store interface {
	Exists(title string) (bool, error)
	GetText(title string, followRedirect bool) (string, error)
	GetHistory(title string, reverse bool, limit int) ([]Revision, error)
	GetBacklinks(title string, withTransclusions bool) ([]string, error)
	Write(title, text, comment string) error
}

// wikiClient talks to a MediaWiki api.php endpoint. Authentication happens
// outside the bot; an OAuth bearer token is passed through when configured.
type wikiClient struct {
	apiURL string
	token  string
	client *http.Client
}

func NewWikiClient(apiURL, token string) *wikiClient {
	return &wikiClient{
		apiURL: strings.TrimRight(apiURL, "/"),
		token:  token,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (w *wikiClient) get(params url.Values) (gjson.Result, error) {
	params.Set("format", "json")
	params.Set("formatversion", "2")
	req, err := http.NewRequest("GET", w.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("creating request: %w", err)
	}
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("querying wiki: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return gjson.Result{}, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != 200 {
		return gjson.Result{}, fmt.Errorf("wiki API returned %d: %s", resp.StatusCode, string(body))
	}

	parsed := gjson.ParseBytes(body)
	if apiErr := parsed.Get("error.code"); apiErr.Exists() {
		return gjson.Result{}, fmt.Errorf("wiki API error %s: %s",
			apiErr.String(), parsed.Get("error.info").String())
	}
	return parsed, nil
}

func (w *wikiClient) Exists(title string) (bool, error) {
	res, err := w.get(url.Values{
		"action": {"query"},
		"titles": {title},
	})
	if err != nil {
		return false, err
	}
	page := res.Get("query.pages.0")
	return page.Exists() && !page.Get("missing").Bool(), nil
}

func (w *wikiClient) GetText(title string, followRedirect bool) (string, error) {
	params := url.Values{
		"action":  {"query"},
		"prop":    {"revisions"},
		"rvprop":  {"content"},
		"rvslots": {"main"},
		"titles":  {title},
	}
	if followRedirect {
		params.Set("redirects", "1")
	}
	res, err := w.get(params)
	if err != nil {
		return "", err
	}
	page := res.Get("query.pages.0")
	if page.Get("missing").Bool() {
		return "", fmt.Errorf("%s: %w", title, ErrNotFound)
	}
	return page.Get("revisions.0.slots.main.content").String(), nil
}

func (w *wikiClient) GetHistory(title string, reverse bool, limit int) ([]Revision, error) {
	dir := "older"
	if reverse {
		dir = "newer"
	}
	res, err := w.get(url.Values{
		"action":  {"query"},
		"prop":    {"revisions"},
		"rvprop":  {"timestamp|user"},
		"rvlimit": {fmt.Sprintf("%d", limit)},
		"rvdir":   {dir},
		"titles":  {title},
	})
	if err != nil {
		return nil, err
	}
	page := res.Get("query.pages.0")
	if page.Get("missing").Bool() {
		return nil, fmt.Errorf("%s: %w", title, ErrNotFound)
	}

	var revs []Revision
	for _, rev := range page.Get("revisions").Array() {
		ts, err := time.Parse(time.RFC3339, rev.Get("timestamp").String())
		if err != nil {
			continue
		}
		revs = append(revs, Revision{Timestamp: ts, Author: rev.Get("user").String()})
	}
	return revs, nil
}

func (w *wikiClient) GetBacklinks(title string, withTransclusions bool) ([]string, error) {
	listParam, prefix := "backlinks", "bl"
	if withTransclusions {
		listParam, prefix = "embeddedin", "ei"
	}
	var titles []string
	cont := map[string]string{}
	for {
		params := url.Values{
			"action":         {"query"},
			"list":           {listParam},
			prefix + "title": {title},
			prefix + "limit": {"500"},
		}
		// The continue object must be echoed back key for key
		// (blcontinue/eicontinue carry the actual cursor).
		for k, v := range cont {
			params.Set(k, v)
		}
		res, err := w.get(params)
		if err != nil {
			return nil, err
		}
		for _, p := range res.Get("query." + listParam).Array() {
			titles = append(titles, p.Get("title").String())
		}
		next := res.Get("continue")
		if !next.Exists() {
			break
		}
		cont = map[string]string{}
		next.ForEach(func(k, v gjson.Result) bool {
			cont[k.String()] = v.String()
			return true
		})
	}
	return titles, nil
}

func (w *wikiClient) csrfToken() (string, error) {
	res, err := w.get(url.Values{
		"action": {"query"},
		"meta":   {"tokens"},
		"type":   {"csrf"},
	})
	if err != nil {
		return "", err
	}
	return res.Get("query.tokens.csrftoken").String(), nil
}

func (w *wikiClient) Write(title, text, comment string) error {
	token, err := w.csrfToken()
	if err != nil {
		return fmt.Errorf("fetching edit token: %w", err)
	}

	form := url.Values{
		"action":  {"edit"},
		"title":   {title},
		"text":    {text},
		"summary": {comment},
		"bot":     {"1"},
		"token":   {token},
		"format":  {"json"},
	}
	req, err := http.NewRequest("POST", w.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("creating edit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("writing %s: %w", title, err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("reading edit response: %w", err)
	}

	parsed := gjson.ParseBytes(body)
	switch parsed.Get("error.code").String() {
	case "":
	case "protectedpage", "cascadeprotected", "customjsprotected":
		return fmt.Errorf("%s: %w", title, ErrLocked)
	case "missingtitle":
		return fmt.Errorf("%s: %w", title, ErrNotFound)
	default:
		return fmt.Errorf("edit of %s failed: %s: %s", title,
			parsed.Get("error.code").String(), parsed.Get("error.info").String())
	}
	return nil
}
