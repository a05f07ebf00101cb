package models

import (
	"time"
)

// StudentResponse is one student's answer to one question. Exactly one of
// TextResponse/AnswerResponse is populated, selected by IsTextResponse. The
// (question, user) pair is unique — recording is always an upsert.
type StudentResponse struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null;uniqueIndex:idx_responses_question_user"`
	UserID     string `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_responses_question_user"`

	IsTextResponse bool   `json:"is_text_response" gorm:"not null;default:false"`
	TextResponse   string `json:"text_response" gorm:"type:text"`
	AnswerResponse string `json:"answer_response" gorm:"type:text"`

	// Instructor grading work. Preserved across answer re-submissions: the
	// response recorder never touches these columns on conflict.
	InstructorFeedback string `json:"instructor_feedback" gorm:"type:text"`
	ScoredPoints       *int   `json:"scored_points"`

	ConfidenceRating *int `json:"confidence_rating" validate:"omitempty,min=0,max=100"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Question Question `json:"-" gorm:"foreignKey:QuestionID"`
	User     User     `json:"-" gorm:"foreignKey:UserID"`
}

func (StudentResponse) TableName() string {
	return "student_responses"
}
