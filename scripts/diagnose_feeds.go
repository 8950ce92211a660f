// Command diagnose_feeds probes every feed in the database and reports
// which ones are fetchable. Run it before re-enabling feeds that the sync
// scheduler disabled, to separate dead feeds from transient failures.
//
//	DATABASE_URL=postgres://... go run scripts/diagnose_feeds.go
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/mmcdole/gofeed"
)

type feedRow struct {
	ID                  string
	URL                 string
	IsActive            bool
	ConsecutiveFailures int
}

type diagnostic struct {
	FeedID              string `json:"feed_id"`
	URL                 string `json:"url"`
	IsActive            bool   `json:"is_active"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	Status              string `json:"status"`
	HTTPCode            int    `json:"http_code,omitempty"`
	ItemCount           int    `json:"item_count"`
	NewestItem          string `json:"newest_item,omitempty"`
	ResponseMillis      int64  `json:"response_ms"`
	Error               string `json:"error,omitempty"`
}

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	feeds, err := loadFeeds(db)
	if err != nil {
		log.Fatalf("load feeds: %v", err)
	}
	log.Printf("diagnosing %d feeds", len(feeds))

	results := make([]diagnostic, 0, len(feeds))
	for i, f := range feeds {
		log.Printf("[%d/%d] %s", i+1, len(feeds), f.ID)
		results = append(results, probe(f))
		// Spread requests so that feeds on shared hosts do not see a burst.
		time.Sleep(500 * time.Millisecond)
	}

	printSummary(results)
	if err := writeJSON(results); err != nil {
		log.Fatalf("write report: %v", err)
	}
	writeReactivations(results)
}

func loadFeeds(db *sql.DB) ([]feedRow, error) {
	rows, err := db.Query(`SELECT id, url, is_active, consecutive_failures FROM feeds ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var feeds []feedRow
	for rows.Next() {
		var f feedRow
		if err := rows.Scan(&f.ID, &f.URL, &f.IsActive, &f.ConsecutiveFailures); err != nil {
			return nil, err
		}
		feeds = append(feeds, f)
	}
	return feeds, rows.Err()
}

func probe(f feedRow) diagnostic {
	d := diagnostic{
		FeedID:              f.ID,
		URL:                 f.URL,
		IsActive:            f.IsActive,
		ConsecutiveFailures: f.ConsecutiveFailures,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		d.Status = "bad_url"
		d.Error = err.Error()
		return d
	}
	req.Header.Set("User-Agent", "rss-coordinator-diagnostic/1.0")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")

	resp, err := http.DefaultClient.Do(req)
	d.ResponseMillis = time.Since(start).Milliseconds()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			d.Status = "timeout"
		} else {
			d.Status = "unreachable"
		}
		d.Error = err.Error()
		return d
	}
	defer resp.Body.Close()

	d.HTTPCode = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		d.Status = "http_error"
		d.Error = resp.Status
		return d
	}

	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		d.Status = "parse_error"
		d.Error = err.Error()
		return d
	}

	d.ItemCount = len(parsed.Items)
	if d.ItemCount == 0 {
		d.Status = "empty"
		return d
	}
	if t := parsed.Items[0].PublishedParsed; t != nil {
		d.NewestItem = t.Format(time.RFC3339)
	}
	d.Status = "ok"
	return d
}

func printSummary(results []diagnostic) {
	byStatus := make(map[string]int)
	for _, d := range results {
		byStatus[d.Status]++
	}
	log.Printf("done: %d feeds", len(results))
	for status, n := range byStatus {
		log.Printf("  %-12s %d", status, n)
	}
}

func writeJSON(results []diagnostic) error {
	f, err := os.Create("feed_diagnostics.json")
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return err
	}
	log.Print("report written to feed_diagnostics.json")
	return nil
}

// writeReactivations emits UPDATE statements for feeds that were disabled
// but now respond with a parsable document. The operator reviews and applies
// them by hand.
func writeReactivations(results []diagnostic) {
	var recovered []diagnostic
	for _, d := range results {
		if d.Status == "ok" && !d.IsActive {
			recovered = append(recovered, d)
		}
	}
	if len(recovered) == 0 {
		return
	}

	f, err := os.Create("feed_reactivations.sql")
	if err != nil {
		log.Printf("write reactivations: %v", err)
		return
	}
	defer f.Close()

	fmt.Fprintf(f, "-- Disabled feeds that respond again, generated %s\n", time.Now().Format(time.RFC3339))
	for _, d := range recovered {
		fmt.Fprintf(f, "UPDATE feeds SET is_active = TRUE, consecutive_failures = 0, disable_reason = '' WHERE id = '%s';\n", d.FeedID)
	}
	log.Printf("%d recovered feeds written to feed_reactivations.sql", len(recovered))
}
