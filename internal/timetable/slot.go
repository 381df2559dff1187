package timetable

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Day is a day of the week, encoded by its English name.
type Day time.Weekday

// ParseDay accepts full English weekday names, case-insensitively.
func ParseDay(s string) (Day, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(strings.TrimSpace(s), d.String()) {
			return Day(d), nil
		}
	}
	return 0, fmt.Errorf("unknown day %q", s)
}

func (d Day) String() string { return time.Weekday(d).String() }

func (d Day) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

func (d *Day) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseDay(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func (d Day) MarshalYAML() (any, error) { return d.String(), nil }

func (d *Day) UnmarshalYAML(n *yaml.Node) error {
	v, err := ParseDay(n.Value)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Clock is a minute of the day, 0..1440. 1440 ("24:00") is only useful as
// an exclusive end.
type Clock int

const endOfDay Clock = 24 * 60

// ParseClock parses "HH:MM".
func ParseClock(s string) (Clock, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	return Clock(h*60 + m), nil
}

// ClockOf returns the minute of day of t in t's location.
func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*60 + t.Minute())
}

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60) }

func (c Clock) MarshalJSON() ([]byte, error) { return json.Marshal(c.String()) }

func (c *Clock) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func (c Clock) MarshalYAML() (any, error) { return c.String(), nil }

func (c *Clock) UnmarshalYAML(n *yaml.Node) error {
	v, err := ParseClock(n.Value)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Slot is one scheduled class. The interval is half-open: [Start, End).
type Slot struct {
	SubjectCode string `json:"code" yaml:"code"`
	SubjectName string `json:"name" yaml:"name"`
	Day         Day    `json:"day" yaml:"day"`
	Start       Clock  `json:"startTime" yaml:"startTime"`
	End         Clock  `json:"endTime" yaml:"endTime"`
}

// slotFields is Slot with presence tracking, so a missing day is not
// mistaken for Sunday.
type slotFields struct {
	SubjectCode string `json:"code" yaml:"code"`
	SubjectName string `json:"name" yaml:"name"`
	Day         *Day   `json:"day" yaml:"day"`
	Start       *Clock `json:"startTime" yaml:"startTime"`
	End         *Clock `json:"endTime" yaml:"endTime"`
}

func (f slotFields) slot() (Slot, error) {
	switch {
	case f.Day == nil:
		return Slot{}, fmt.Errorf("%w: slot %s: day required", ErrInvalidSlot, f.SubjectCode)
	case f.Start == nil || f.End == nil:
		return Slot{}, fmt.Errorf("%w: slot %s: startTime and endTime required", ErrInvalidSlot, f.SubjectCode)
	}
	return Slot{SubjectCode: f.SubjectCode, SubjectName: f.SubjectName, Day: *f.Day, Start: *f.Start, End: *f.End}, nil
}

func (s *Slot) UnmarshalJSON(b []byte) error {
	var f slotFields
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	v, err := f.slot()
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s *Slot) UnmarshalYAML(n *yaml.Node) error {
	var f slotFields
	if err := n.Decode(&f); err != nil {
		return err
	}
	v, err := f.slot()
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Validate checks a single slot in isolation.
func (s Slot) Validate() error {
	if strings.TrimSpace(s.SubjectCode) == "" {
		return fmt.Errorf("subject code required")
	}
	if s.Day < Day(time.Sunday) || s.Day > Day(time.Saturday) {
		return fmt.Errorf("slot %s: invalid day %d", s.SubjectCode, int(s.Day))
	}
	if s.Start < 0 || s.End > endOfDay {
		return fmt.Errorf("slot %s: time out of range", s.SubjectCode)
	}
	if s.Start >= s.End {
		return fmt.Errorf("slot %s: start %s must be before end %s", s.SubjectCode, s.Start, s.End)
	}
	return nil
}

// Overlaps reports whether two slots share a day and any minute.
func (s Slot) Overlaps(o Slot) bool {
	return s.Day == o.Day && s.Start < o.End && o.Start < s.End
}

// Contains reports whether minute c on day d falls inside the slot.
func (s Slot) Contains(d Day, c Clock) bool {
	return s.Day == d && s.Start <= c && c < s.End
}

func (s Slot) String() string {
	return fmt.Sprintf("%s %s %s-%s", s.SubjectCode, s.Day, s.Start, s.End)
}
