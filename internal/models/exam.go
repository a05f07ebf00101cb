package models

import (
	"time"
)

type Exam struct {
	ID uint `json:"id" gorm:"primaryKey"`

	// ExternalAssignmentID is the LMS assignment identity. Exam creation is an
	// upsert keyed on it so re-launching an assignment never duplicates the exam.
	ExternalAssignmentID string `json:"external_assignment_id" gorm:"uniqueIndex;not null;size:255" validate:"required,max=255"`

	Title string `json:"title" gorm:"size:200" validate:"omitempty,max=200"`

	// TotalPoints is a derived cache owned by the grade aggregator. It is never
	// written by authoring or learner activity.
	TotalPoints int `json:"total_points" gorm:"not null;default:0"`

	ShowPointsPossible bool `json:"show_points_possible" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:ExamID"`
	ExamUsers []ExamUser `json:"-" gorm:"foreignKey:ExamID"`
}

func (Exam) TableName() string {
	return "exams"
}

// ExamUser is the enrollment/attempt record for one student on one exam.
// OutcomeServiceURL and ResultSourcedID come from the LTI launch; either may be
// missing (the LMS session can expire before the student submits) and that is a
// valid state the passback pipeline has to tolerate.
type ExamUser struct {
	ExamID uint   `json:"exam_id" gorm:"primaryKey;autoIncrement:false"`
	UserID string `json:"user_id" gorm:"primaryKey;size:255"`

	// ScoredPoints is written only by the grade aggregator.
	ScoredPoints int  `json:"scored_points" gorm:"not null;default:0"`
	HasTaken     bool `json:"has_taken" gorm:"default:false;index"`

	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`

	OutcomeServiceURL *string `json:"outcome_service_url" gorm:"size:500"`
	ResultSourcedID   *string `json:"result_sourcedid" gorm:"size:255"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Exam Exam `json:"-" gorm:"foreignKey:ExamID"`
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (ExamUser) TableName() string {
	return "exams_users"
}
