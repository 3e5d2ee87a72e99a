package audit

import "github.com/amishk599/vacancyfeed/internal/model"

// View is a named slice of the record store, by pipeline stage.
type View int

const (
	ViewAll View = iota
	ViewAwaitingSummary
	ViewReady
	ViewWithheld
	ViewPublished
)

// Views lists every view in picker order.
var Views = []View{ViewAll, ViewAwaitingSummary, ViewReady, ViewWithheld, ViewPublished}

func (v View) String() string {
	switch v {
	case ViewAll:
		return "All records"
	case ViewAwaitingSummary:
		return "Awaiting summary"
	case ViewReady:
		return "Ready to publish"
	case ViewWithheld:
		return "Withheld (failed)"
	case ViewPublished:
		return "Published"
	}
	return "Unknown"
}

// Match reports whether rec belongs to the view.
func (v View) Match(rec model.Record) bool {
	switch v {
	case ViewAll:
		return true
	case ViewAwaitingSummary:
		return !rec.Sent && rec.Summary.IsPending()
	case ViewReady:
		return !rec.Sent && rec.Summary.IsSucceeded() && !rec.HasFailure()
	case ViewWithheld:
		return !rec.Sent && !rec.Summary.IsPending() && rec.HasFailure()
	case ViewPublished:
		return rec.Sent
	}
	return false
}

// Select returns the records in v, keeping their order.
func Select(records []model.Record, v View) []model.Record {
	var out []model.Record
	for _, rec := range records {
		if v.Match(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// Count returns the number of records in each view.
func Count(records []model.Record) map[View]int {
	counts := make(map[View]int, len(Views))
	for _, rec := range records {
		for _, v := range Views {
			if v.Match(rec) {
				counts[v]++
			}
		}
	}
	return counts
}
