package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	ShortAnswer    QuestionType = "short_answer"
	TrueFalse      QuestionType = "true_false"
	CodingAnswer   QuestionType = "coding_answer"
	ParsonsProblem QuestionType = "parsons_problem"
)

type Question struct {
	ID     uint `json:"id" gorm:"primaryKey"`
	ExamID uint `json:"exam_id" gorm:"not null;index"`

	Text string       `json:"text" gorm:"type:text;not null" validate:"required"`
	Type QuestionType `json:"type" gorm:"not null;size:30;index" validate:"required,question_type"`

	// AnswerData is the type-specific answer key (see answer_data.go). Short
	// answer and coding questions carry none — they are graded manually.
	AnswerData datatypes.JSON `json:"answer_data" gorm:"type:jsonb"`

	PointsPossible int `json:"points_possible" gorm:"not null;default:0" validate:"min=0"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Exam Exam `json:"-" gorm:"foreignKey:ExamID"`
}

func (Question) TableName() string {
	return "exam_questions"
}
