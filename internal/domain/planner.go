package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the textual form of planner deadlines.
const DateLayout = "2006-01-02"

// PlannerEntry is a study goal with a deadline.
type PlannerEntry struct {
	Subject  string
	Goal     string
	Deadline time.Time
}

// NewPlannerEntry validates subject and goal and normalizes the deadline to a
// calendar date. Both fields must be non-empty.
func NewPlannerEntry(subject, goal string, deadline time.Time) (PlannerEntry, error) {
	if strings.TrimSpace(subject) == "" {
		return PlannerEntry{}, &ValidationError{Field: "subject", Message: "Please fill in both fields."}
	}
	if strings.TrimSpace(goal) == "" {
		return PlannerEntry{}, &ValidationError{Field: "goal", Message: "Please fill in both fields."}
	}
	return PlannerEntry{
		Subject:  subject,
		Goal:     goal,
		Deadline: DateOf(deadline),
	}, nil
}

// DeadlineString formats the deadline as YYYY-MM-DD.
func (e PlannerEntry) DeadlineString() string {
	return e.Deadline.Format(DateLayout)
}

// MarshalJSON renders the deadline as a plain date.
func (e PlannerEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Subject  string `json:"subject"`
		Goal     string `json:"goal"`
		Deadline string `json:"deadline"`
	}{
		Subject:  e.Subject,
		Goal:     e.Goal,
		Deadline: e.DeadlineString(),
	})
}

// UnmarshalJSON accepts the form written by MarshalJSON.
func (e *PlannerEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Subject  string `json:"subject"`
		Goal     string `json:"goal"`
		Deadline string `json:"deadline"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	deadline, err := time.Parse(DateLayout, raw.Deadline)
	if err != nil {
		return fmt.Errorf("parse deadline: %w", err)
	}
	*e = PlannerEntry{Subject: raw.Subject, Goal: raw.Goal, Deadline: deadline}
	return nil
}

// DateOf drops the clock part of t, keeping its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDeadline parses a YYYY-MM-DD date. An empty value means today.
func ParseDeadline(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return DateOf(now), nil
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, &ValidationError{
			Field:   "deadline",
			Message: fmt.Sprintf("Deadline must be a date like %s.", DateLayout),
		}
	}
	return t, nil
}
