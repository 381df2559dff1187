package attendance

import (
	"bytes"
	"testing"
	"time"
)

func TestWriteCSV(t *testing.T) {
	at := time.Date(2024, time.January, 1, 9, 31, 5, 0, time.UTC)
	events := []Event{
		{IdentityID: "1VE22IS001", SubjectCode: "CS101", Date: "2024-01-01", MarkedAt: at},
		{IdentityID: "1VE22IS002", SubjectCode: "CS101", Date: "2024-01-01", MarkedAt: at.Add(time.Minute)},
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, events, time.UTC); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := "USN,Subject,Time\n1VE22IS001,CS101,09:31:05\n1VE22IS002,CS101,09:32:05\n"
	if buf.String() != want {
		t.Errorf("WriteCSV =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestWriteCSVUsesLocation(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+1800)
	// Postgres hands TIMESTAMPTZ back in the session zone, here UTC.
	events := []Event{{IdentityID: "1VE22IS001", SubjectCode: "CS101", Date: "2024-01-01",
		MarkedAt: time.Date(2024, time.January, 1, 4, 1, 0, 0, time.UTC)}}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, events, kolkata); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if want := "USN,Subject,Time\n1VE22IS001,CS101,09:31:00\n"; buf.String() != want {
		t.Errorf("WriteCSV = %q, want %q", buf.String(), want)
	}
}

func TestGroupBySubject(t *testing.T) {
	events := []Event{
		{IdentityID: "a", SubjectCode: "MA201"},
		{IdentityID: "b", SubjectCode: "CS101"},
		{IdentityID: "c", SubjectCode: "MA201"},
	}
	groups := GroupBySubject(events)
	if len(groups) != 2 {
		t.Fatalf("len(groups) = %d, want 2", len(groups))
	}
	if groups[0].Subject != "CS101" || groups[1].Subject != "MA201" {
		t.Errorf("groups order = %s, %s", groups[0].Subject, groups[1].Subject)
	}
	if len(groups[1].Events) != 2 || groups[1].Events[0].IdentityID != "a" || groups[1].Events[1].IdentityID != "c" {
		t.Errorf("MA201 events = %+v", groups[1].Events)
	}
}
