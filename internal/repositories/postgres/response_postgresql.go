package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openexam/exam-service/internal/models"
	"github.com/openexam/exam-service/internal/repositories"
)

type ResponsePostgreSQL struct {
	db *gorm.DB
}

func NewResponsePostgreSQL(db *gorm.DB) repositories.ResponseRepository {
	return &ResponsePostgreSQL{db: db}
}

func (r ResponsePostgreSQL) Upsert(ctx context.Context, resp *models.StudentResponse) error {
	// Only the answer columns are assignable on conflict. Grading work
	// (instructor_feedback, scored_points) and confidence survive a
	// re-submission of the answer.
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "question_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"is_text_response", "text_response", "answer_response", "updated_at",
		}),
	}).Create(resp).Error; err != nil {
		return err
	}

	// Reload so the caller sees the stored row, preserved columns included.
	return r.db.WithContext(ctx).
		Where("question_id = ? AND user_id = ?", resp.QuestionID, resp.UserID).
		First(resp).Error
}

func (r ResponsePostgreSQL) Get(ctx context.Context, questionID uint, userID string) (*models.StudentResponse, error) {
	var resp models.StudentResponse
	if err := r.db.WithContext(ctx).
		Where("question_id = ? AND user_id = ?", questionID, userID).
		First(&resp).Error; err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r ResponsePostgreSQL) ListByExamAndUser(ctx context.Context, examID uint, userID string) ([]*models.StudentResponse, error) {
	var responses []*models.StudentResponse
	if err := r.db.WithContext(ctx).
		Joins("JOIN exam_questions ON exam_questions.id = student_responses.question_id").
		Where("exam_questions.exam_id = ? AND exam_questions.deleted_at IS NULL", examID).
		Where("student_responses.user_id = ?", userID).
		Order("student_responses.question_id").
		Find(&responses).Error; err != nil {
		return nil, err
	}
	return responses, nil
}

func (r ResponsePostgreSQL) ListByQuestion(ctx context.Context, questionID uint) ([]*models.StudentResponse, error) {
	var responses []*models.StudentResponse
	if err := r.db.WithContext(ctx).
		Where("question_id = ?", questionID).
		Order("user_id").
		Find(&responses).Error; err != nil {
		return nil, err
	}
	return responses, nil
}

func (r ResponsePostgreSQL) SumScoresByUser(ctx context.Context, examID uint) (map[string]int, error) {
	var rows []struct {
		UserID string
		Total  int
	}
	if err := r.db.WithContext(ctx).Model(&models.StudentResponse{}).
		Select("student_responses.user_id AS user_id, COALESCE(SUM(student_responses.scored_points), 0) AS total").
		Joins("JOIN exam_questions ON exam_questions.id = student_responses.question_id").
		Where("exam_questions.exam_id = ? AND exam_questions.deleted_at IS NULL", examID).
		Group("student_responses.user_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	sums := make(map[string]int, len(rows))
	for _, row := range rows {
		sums[row.UserID] = row.Total
	}
	return sums, nil
}

func (r ResponsePostgreSQL) SetGrade(ctx context.Context, questionID uint, userID string, points *int, feedback *string) error {
	updates := map[string]interface{}{}
	if points != nil {
		updates["scored_points"] = *points
	}
	if feedback != nil {
		updates["instructor_feedback"] = *feedback
	}
	if len(updates) == 0 {
		return nil
	}

	res := r.db.WithContext(ctx).Model(&models.StudentResponse{}).
		Where("question_id = ? AND user_id = ?", questionID, userID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r ResponsePostgreSQL) SetConfidence(ctx context.Context, questionID uint, userID string, rating int) error {
	res := r.db.WithContext(ctx).Model(&models.StudentResponse{}).
		Where("question_id = ? AND user_id = ?", questionID, userID).
		Update("confidence_rating", rating)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
