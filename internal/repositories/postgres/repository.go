package postgres

import (
	"gorm.io/gorm"

	"github.com/openexam/exam-service/internal/repositories"
)

type Repository struct {
	db       *gorm.DB
	user     repositories.UserRepository
	exam     repositories.ExamRepository
	question repositories.QuestionRepository
	examUser repositories.ExamUserRepository
	response repositories.ResponseRepository
}

func NewRepository(db *gorm.DB) repositories.Repository {
	return &Repository{
		db:       db,
		user:     NewUserPostgreSQL(db),
		exam:     NewExamPostgreSQL(db),
		question: NewQuestionPostgreSQL(db),
		examUser: NewExamUserPostgreSQL(db),
		response: NewResponsePostgreSQL(db),
	}
}

func (r *Repository) User() repositories.UserRepository         { return r.user }
func (r *Repository) Exam() repositories.ExamRepository         { return r.exam }
func (r *Repository) Question() repositories.QuestionRepository { return r.question }
func (r *Repository) ExamUser() repositories.ExamUserRepository { return r.examUser }
func (r *Repository) Response() repositories.ResponseRepository { return r.response }
