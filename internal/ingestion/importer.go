// Package ingestion loads FAQ entries into the corpus from JSON seed
// files and from help-center HTML pages.
package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/fleetassist/backend/internal/storage/models"
	"github.com/fleetassist/backend/internal/storage/sqlite"
	"github.com/fleetassist/backend/pkg/logger"
	"github.com/fleetassist/backend/pkg/retry"
	"github.com/fleetassist/backend/pkg/utils"
)

type seedEntry struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category"`
}

type Importer struct {
	store      *sqlite.Client
	httpClient *http.Client
	retryCfg   retry.Config
}

func NewImporter(store *sqlite.Client) *Importer {
	return &Importer{
		store:      store,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		retryCfg:   retry.DefaultConfig(),
	}
}

// Seed imports the JSON file only when the corpus is empty, so restarts
// never clobber entries edited since the first boot.
func (i *Importer) Seed(ctx context.Context, path string) error {
	count, err := i.store.CountFAQs(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		logger.Debug("corpus already populated, skipping seed",
			zap.Int("entries", count))
		return nil
	}

	imported, err := i.ImportJSONFile(ctx, path)
	if err != nil {
		return err
	}

	logger.Info("corpus seeded",
		zap.String("path", path),
		zap.Int("entries", imported))
	return nil
}

// ImportJSONFile upserts every entry of a JSON seed file and returns how
// many were written.
func (i *Importer) ImportJSONFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read seed file: %w", err)
	}

	var entries []seedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return 0, fmt.Errorf("failed to parse seed file: %w", err)
	}

	return i.upsertAll(ctx, entries)
}

// ImportHTML scrapes question/answer pairs from a help-center page and
// upserts them. Supported layouts are definition lists (dt/dd) and
// heading-plus-paragraph sections (h2 or h3 followed by p).
func (i *Importer) ImportHTML(ctx context.Context, url, category string) (int, error) {
	var body *goquery.Document
	err := retry.Do(ctx, i.retryCfg, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := i.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
		}

		body, err = goquery.NewDocumentFromReader(resp.Body)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to fetch help page: %w", err)
	}

	entries := extractPairs(body, category)
	if len(entries) == 0 {
		return 0, fmt.Errorf("no question/answer pairs found at %s", url)
	}

	return i.upsertAll(ctx, entries)
}

func extractPairs(doc *goquery.Document, category string) []seedEntry {
	var entries []seedEntry

	doc.Find("dt").Each(func(_ int, dt *goquery.Selection) {
		dd := dt.NextFiltered("dd")
		question := clean(dt.Text())
		answer := clean(dd.Text())
		if question != "" && answer != "" {
			entries = append(entries, seedEntry{Question: question, Answer: answer, Category: category})
		}
	})

	doc.Find("h2, h3").Each(func(_ int, h *goquery.Selection) {
		question := clean(h.Text())
		if !strings.HasSuffix(question, "?") {
			return
		}
		answer := clean(h.NextFiltered("p").Text())
		if answer != "" {
			entries = append(entries, seedEntry{Question: question, Answer: answer, Category: category})
		}
	})

	return entries
}

func (i *Importer) upsertAll(ctx context.Context, entries []seedEntry) (int, error) {
	now := time.Now().UTC()
	imported := 0

	for _, e := range entries {
		if strings.TrimSpace(e.Question) == "" || strings.TrimSpace(e.Answer) == "" {
			continue
		}

		id := e.ID
		if id == "" {
			// Deterministic so re-imports update instead of duplicating.
			id = "faq-" + utils.HashString(strings.ToLower(strings.TrimSpace(e.Question)))[:12]
		}

		entry := &models.FAQEntry{
			ID:        id,
			Question:  strings.TrimSpace(e.Question),
			Answer:    strings.TrimSpace(e.Answer),
			Category:  strings.TrimSpace(e.Category),
			CreatedAt: now,
			UpdatedAt: now,
		}

		err := retry.Do(ctx, i.retryCfg, func() error {
			return i.store.UpsertFAQ(ctx, entry)
		})
		if err != nil {
			return imported, fmt.Errorf("failed to import %q: %w", entry.Question, err)
		}
		imported++
	}

	return imported, nil
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
