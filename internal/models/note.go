package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Note is a free-text entry about one subject.
type Note struct {
	ID        string    `json:"id"`
	SubjectID int64     `json:"subject_id"`
	RawText   string    `json:"raw_text"`
	Analysis  *Analysis `json:"analysis,omitempty"`
	Mood      *int      `json:"mood,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SetAnalysis stores the analysis and mirrors its mood onto the note.
func (n *Note) SetAnalysis(a Analysis) {
	n.Analysis = &a
	n.Mood = nil
	if a.Mood != nil {
		mood := *a.Mood
		n.Mood = &mood
	}
}

// Analysis is the structured summary returned by the analyzer.
type Analysis struct {
	Mood        *int     `json:"mood"`
	MoodText    string   `json:"mood_text,omitempty"`
	Summary     string   `json:"summary"`
	ActionItems []string `json:"action_items"`
	Positive    *string  `json:"positive"`
	Negative    *string  `json:"negative"`
	Tags        []string `json:"tags"`
	Error       string   `json:"error,omitempty"`
}

// Degraded reports whether the analysis is a placeholder after a failure.
func (a Analysis) Degraded() bool {
	return a.Error != ""
}

// Value stores the analysis as JSON text.
func (a Analysis) Value() (driver.Value, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan reads the analysis from a JSON column.
func (a *Analysis) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported analysis column type %T", src)
	}
	return json.Unmarshal(data, a)
}
