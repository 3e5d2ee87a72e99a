package audit

import (
	"testing"
	"time"

	"github.com/amishk599/vacancyfeed/internal/model"
)

func record(id string, desc, summary model.Outcome, sent bool) model.Record {
	return model.Record{
		ID:          id,
		Title:       "Vacancy " + id,
		URL:         "https://hh.ru/vacancy/" + id,
		PublishedAt: "2025-03-14T09:30:00+0300",
		Description: desc,
		Summary:     summary,
		Sent:        sent,
		FirstSeenAt: time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
	}
}

func sampleRecords() []model.Record {
	ok := model.Succeeded("text")
	return []model.Record{
		record("pending", ok, model.Pending(), false),
		record("ready", ok, model.Succeeded("summary"), false),
		record("bad-summary", ok, model.Failed("Error: 500"), false),
		record("bad-desc", model.Failed("Error: 404"), model.Failed("description unavailable"), false),
		record("sent", ok, model.Succeeded("summary"), true),
	}
}

func TestView_Match(t *testing.T) {
	recs := sampleRecords()
	tests := []struct {
		view View
		want []string
	}{
		{ViewAll, []string{"pending", "ready", "bad-summary", "bad-desc", "sent"}},
		{ViewAwaitingSummary, []string{"pending"}},
		{ViewReady, []string{"ready"}},
		{ViewWithheld, []string{"bad-summary", "bad-desc"}},
		{ViewPublished, []string{"sent"}},
	}
	for _, tt := range tests {
		t.Run(tt.view.String(), func(t *testing.T) {
			got := Select(recs, tt.view)
			if len(got) != len(tt.want) {
				t.Fatalf("Select = %d records, want %d", len(got), len(tt.want))
			}
			for i, rec := range got {
				if rec.ID != tt.want[i] {
					t.Errorf("record %d = %q, want %q", i, rec.ID, tt.want[i])
				}
			}
		})
	}
}

func TestCount(t *testing.T) {
	counts := Count(sampleRecords())
	want := map[View]int{
		ViewAll:             5,
		ViewAwaitingSummary: 1,
		ViewReady:           1,
		ViewWithheld:        2,
		ViewPublished:       1,
	}
	for v, n := range want {
		if counts[v] != n {
			t.Errorf("Count[%s] = %d, want %d", v, counts[v], n)
		}
	}
}
