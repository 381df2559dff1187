package timetable

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is the on-disk and wire form of a timetable.
type Document struct {
	Subjects []Slot `json:"subjects" yaml:"subjects"`
}

// ReadFile parses a YAML timetable document and validates it.
func ReadFile(path string) ([]Slot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read timetable file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML (or JSON) timetable document.
func Parse(data []byte) ([]Slot, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse timetable: %w", err)
	}
	if err := Validate(doc.Subjects); err != nil {
		return nil, err
	}
	return doc.Subjects, nil
}
