package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventGradesSubmitted EventType = "grades.submitted"
)

// GradeEvent is emitted after each grade-passback run so downstream consumers
// (gradebook dashboards, audit) can observe delivery outcomes.
type GradeEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`

	Data GradesSubmittedEvent `json:"data"`
}

type GradesSubmittedEvent struct {
	AssignmentExternalID string `json:"assignment_external_id"`
	ExamID               uint   `json:"exam_id"`
	Attempted            int    `json:"attempted"`
	Delivered            int    `json:"delivered"`
	Failed               int    `json:"failed"`
}

func NewGradesSubmittedEvent(data GradesSubmittedEvent) *GradeEvent {
	return &GradeEvent{
		ID:        uuid.NewString(),
		Type:      EventGradesSubmitted,
		Source:    "exam-service",
		Version:   "1.0",
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}
