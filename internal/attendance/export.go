package attendance

import (
	"encoding/csv"
	"io"
	"sort"
	"time"
)

// WriteCSV renders events with the USN,Subject,Time columns. Times are shown
// in loc; a nil loc keeps each timestamp's own zone.
func WriteCSV(w io.Writer, events []Event, loc *time.Location) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"USN", "Subject", "Time"}); err != nil {
		return err
	}
	for _, e := range events {
		at := e.MarkedAt
		if loc != nil {
			at = at.In(loc)
		}
		if err := cw.Write([]string{e.IdentityID, e.SubjectCode, at.Format(time.TimeOnly)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SubjectGroup is one section of the per-subject report.
type SubjectGroup struct {
	Subject string  `json:"subject"`
	Events  []Event `json:"events"`
}

// GroupBySubject groups events by subject code, subjects sorted, events kept
// in ledger order.
func GroupBySubject(events []Event) []SubjectGroup {
	idx := make(map[string]int)
	var groups []SubjectGroup
	for _, e := range events {
		i, ok := idx[e.SubjectCode]
		if !ok {
			i = len(groups)
			idx[e.SubjectCode] = i
			groups = append(groups, SubjectGroup{Subject: e.SubjectCode})
		}
		groups[i].Events = append(groups[i].Events, e)
	}
	sort.SliceStable(groups, func(a, b int) bool { return groups[a].Subject < groups[b].Subject })
	return groups
}
