package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoalert/listingworker/config"
	"autoalert/listingworker/helpers"
	"autoalert/listingworker/internal/scraper"
	"autoalert/listingworker/services/cache"
	"autoalert/listingworker/services/notifier"
	"autoalert/listingworker/services/store"
	"autoalert/listingworker/services/worker"
)

// listingItem renders one bazos-shaped result box
const listingItem = `
<div class="inzeraty">
  <div class="inzeratynadpis">
    <h2 class="nadpis"><a href="/inzerat/%d/%s.php">%s</a></h2>
    <span class="velikost10">Auto - [%s]</span>
  </div>
  <div class="popis">%s</div>
  <div class="inzeratycena">%s</div>
  <div class="inzeratylok">Bratislava<br>811 01</div>
  <div class="inzeratyview">%d x</div>
</div>`

type fakeListing struct {
	id    int
	title string
	price string
}

// resultsPage wraps listing boxes in the surrounding bazos page chrome
func resultsPage(listings []fakeListing) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="maincontent">`)
	for _, l := range listings {
		fmt.Fprintf(&b, listingItem, l.id, "test-listing", l.title, "1.3. 2026", "Test description for "+l.title, l.price, 42)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

// webhookRecorder captures embed payloads posted to the webhook endpoint
type webhookRecorder struct {
	mu     sync.Mutex
	titles []string
}

func (r *webhookRecorder) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		var payload struct {
			Embeds []struct {
				Title string `json:"title"`
			} `json:"embeds"`
		}
		if err := json.Unmarshal(body, &payload); err == nil {
			r.mu.Lock()
			for _, e := range payload.Embeds {
				r.titles = append(r.titles, e.Title)
			}
			r.mu.Unlock()
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (r *webhookRecorder) sent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.titles...)
}

// TestPipelineEndToEnd drives a full search cycle twice against a local
// bazos-shaped server: fetch, extract, store, webhook delivery, then a
// second cycle where only the newly appeared listing is delivered.
func TestPipelineEndToEnd(t *testing.T) {
	current := []fakeListing{
		{184000001, "Fiat Ducato 2.3", "12 500 €"},
		{184000002, "Skoda Octavia Combi", "8 900 €"},
		{184000003, "VW Transporter T5", "15 000 €"},
	}

	var mu sync.Mutex
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		page := resultsPage(current)
		mu.Unlock()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, page)
	}))
	defer source.Close()

	recorder := &webhookRecorder{}
	webhook := httptest.NewServer(recorder.handler())
	defer webhook.Close()

	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	defer st.Close()

	retry := helpers.RetryPolicy{MaxAttempts: 2, InitialBackoff: time.Millisecond}
	fetcher := helpers.NewHTTPFetcher(cache.NewMemoryCache(), retry)
	hook := notifier.NewWebhookNotifier(webhook.URL, retry)

	w := worker.New(worker.Deps{
		Runner:     scraper.NewRunner(fetcher),
		Store:      st,
		Dispatcher: notifier.NewDispatcher(hook, st, 0),
		Searches: []config.SearchSpec{
			{Name: "vans", Source: "bazos_sk", URL: source.URL + "/auto/", MaxPages: 2},
		},
		MaxConcurrent: 1,
	})

	// First cycle: everything is new and gets delivered
	report, err := w.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Searches, 1)
	assert.Equal(t, string(scraper.StatusSuccess), report.Searches[0].Status)
	assert.Equal(t, 3, report.Searches[0].Found)
	assert.Equal(t, 3, report.Searches[0].New)
	assert.Equal(t, 3, report.Notify.Sent)
	assert.ElementsMatch(t,
		[]string{"Fiat Ducato 2.3", "Skoda Octavia Combi", "VW Transporter T5"},
		recorder.sent())

	count, err := st.Count("")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	stored, err := st.Get("bazos_sk", "184000001")
	require.NoError(t, err)
	assert.True(t, stored.Notified)
	assert.Equal(t, "12 500 €", stored.Price)
	assert.Equal(t, "Bratislava, 811 01", stored.Location)
	firstSeen := stored.FirstSeen

	// Second cycle: one listing disappears, one appears
	mu.Lock()
	current = []fakeListing{
		{184000001, "Fiat Ducato 2.3", "12 500 €"},
		{184000002, "Skoda Octavia Combi", "8 900 €"},
		{184000009, "Citroen Jumper L2H2", "11 200 €"},
	}
	mu.Unlock()

	report, err = w.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Searches[0].New)
	assert.Equal(t, 1, report.Notify.Sent)
	assert.Equal(t, "Citroen Jumper L2H2", recorder.sent()[3])

	count, err = st.Count("")
	require.NoError(t, err)
	assert.Equal(t, 4, count, "listings absent from later runs are kept")

	stored, err = st.Get("bazos_sk", "184000001")
	require.NoError(t, err)
	assert.Equal(t, firstSeen.Unix(), stored.FirstSeen.Unix(), "re-seen listings keep their first-seen time")
	assert.True(t, stored.LastChecked.After(firstSeen) || stored.LastChecked.Equal(firstSeen))
}

// TestPipelineWebhookOutage verifies undelivered listings are resubmitted on
// the next cycle without being re-counted as new
func TestPipelineWebhookOutage(t *testing.T) {
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, resultsPage([]fakeListing{{184000042, "Peugeot Boxer", "9 400 €"}}))
	}))
	defer source.Close()

	var down = true
	var mu sync.Mutex
	recorder := &webhookRecorder{}
	inner := recorder.handler()
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		failing := down
		mu.Unlock()
		if failing {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		inner(w, r)
	}))
	defer webhook.Close()

	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	defer st.Close()

	retry := helpers.RetryPolicy{MaxAttempts: 2, InitialBackoff: time.Millisecond}
	w := worker.New(worker.Deps{
		Runner:     scraper.NewRunner(helpers.NewHTTPFetcher(cache.NewMemoryCache(), retry)),
		Store:      st,
		Dispatcher: notifier.NewDispatcher(notifier.NewWebhookNotifier(webhook.URL, retry), st, 0),
		Searches: []config.SearchSpec{
			{Name: "vans", Source: "bazos_sk", URL: source.URL + "/auto/", MaxPages: 1},
		},
		MaxConcurrent: 1,
	})

	report, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Searches[0].New)
	assert.Equal(t, 1, report.Notify.Failed)

	notified, err := st.IsNotified("bazos_sk", "184000042")
	require.NoError(t, err)
	assert.False(t, notified)

	mu.Lock()
	down = false
	mu.Unlock()

	report, err = w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Searches[0].New, "resubmission does not re-flag the listing as new")
	assert.Equal(t, 1, report.Notify.Sent)
	assert.Equal(t, []string{"Peugeot Boxer"}, recorder.sent())

	notified, err = st.IsNotified("bazos_sk", "184000042")
	require.NoError(t, err)
	assert.True(t, notified)
}
