package tracker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/llamagate-ai/llamagate/pkg/models"
)

func newTestTracker(t *testing.T) *SQLiteTracker {
	t.Helper()
	tr, err := New(filepath.Join(t.TempDir(), "usage.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { tr.Close() })
	return tr
}

func record(model, channel string, total int, cached bool, at time.Time) models.UsageRecord {
	return models.UsageRecord{
		Model:            model,
		Channel:          channel,
		PromptTokens:     total / 2,
		CompletionTokens: total - total/2,
		TotalTokens:      total,
		Cached:           cached,
		CreatedAt:        at,
	}
}

func TestRecordAndQuery(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := tr.Record(ctx, record("llama3.2:3b", "api", 100, false, now)); err != nil {
		t.Fatal(err)
	}
	if err := tr.Record(ctx, record("llama3.2:3b", "cli", 40, true, now.Add(time.Second))); err != nil {
		t.Fatal(err)
	}

	records, err := tr.Query(ctx, now.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	// newest first
	if records[0].Channel != "cli" || !records[0].Cached {
		t.Errorf("unexpected first record: %+v", records[0])
	}
	if records[1].TotalTokens != 100 {
		t.Errorf("unexpected second record: %+v", records[1])
	}
}

func TestQuerySinceFilters(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := tr.Record(ctx, record("m", "api", 10, false, now.Add(-2*time.Hour))); err != nil {
		t.Fatal(err)
	}
	if err := tr.Record(ctx, record("m", "api", 20, false, now)); err != nil {
		t.Fatal(err)
	}

	records, err := tr.Query(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].TotalTokens != 20 {
		t.Errorf("since filter failed: %+v", records)
	}
}

func TestTotalSinceExcludesCacheHits(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := tr.Record(ctx, record("m", "api", 100, false, now)); err != nil {
		t.Fatal(err)
	}
	if err := tr.Record(ctx, record("m", "api", 100, true, now)); err != nil {
		t.Fatal(err)
	}

	total, err := tr.TotalSince(ctx, now.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if total != 100 {
		t.Errorf("TotalSince = %d, want 100 (cache hits cost nothing)", total)
	}
}

func TestSummaryGroupsByModel(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, rec := range []models.UsageRecord{
		record("alpha:1b", "api", 100, false, now),
		record("alpha:1b", "api", 100, true, now),
		record("alpha:1b", "cli", 50, false, now),
		record("beta:7b", "api", 200, false, now),
	} {
		if err := tr.Record(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	summaries, err := tr.Summary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}

	alpha := summaries[0]
	if alpha.Model != "alpha:1b" {
		t.Fatalf("expected alpha:1b first, got %s", alpha.Model)
	}
	if alpha.RequestCount != 3 {
		t.Errorf("alpha requests = %d, want 3", alpha.RequestCount)
	}
	if alpha.CachedCount != 1 {
		t.Errorf("alpha cached = %d, want 1", alpha.CachedCount)
	}
	if alpha.TotalTokens != 150 {
		t.Errorf("alpha tokens = %d, want 150 (cached rows excluded)", alpha.TotalTokens)
	}

	beta := summaries[1]
	if beta.Model != "beta:7b" || beta.TotalTokens != 200 {
		t.Errorf("unexpected beta summary: %+v", beta)
	}
}

func TestEmptySummary(t *testing.T) {
	tr := newTestTracker(t)
	summaries, err := tr.Summary(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 0 {
		t.Errorf("expected no summaries, got %d", len(summaries))
	}
}
