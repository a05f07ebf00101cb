package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openexam/exam-service/internal/models"
	"github.com/openexam/exam-service/internal/repositories"
)

type ExamUserPostgreSQL struct {
	db *gorm.DB
}

func NewExamUserPostgreSQL(db *gorm.DB) repositories.ExamUserRepository {
	return &ExamUserPostgreSQL{db: db}
}

func (e ExamUserPostgreSQL) Upsert(ctx context.Context, examUser *models.ExamUser) error {
	// Launches refresh the passback coordinates; scored_points and has_taken
	// are owned elsewhere and never overwritten here.
	return e.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "exam_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"outcome_service_url", "result_sourcedid", "updated_at",
		}),
	}).Create(examUser).Error
}

func (e ExamUserPostgreSQL) Get(ctx context.Context, examID uint, userID string) (*models.ExamUser, error) {
	var examUser models.ExamUser
	if err := e.db.WithContext(ctx).
		Where("exam_id = ? AND user_id = ?", examID, userID).
		First(&examUser).Error; err != nil {
		return nil, err
	}
	return &examUser, nil
}

func (e ExamUserPostgreSQL) ListByExam(ctx context.Context, examID uint) ([]*models.ExamUser, error) {
	var rows []*models.ExamUser
	if err := e.db.WithContext(ctx).
		Where("exam_id = ?", examID).
		Preload("User").
		Order("user_id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (e ExamUserPostgreSQL) ListTakers(ctx context.Context, examID uint) ([]*models.ExamUser, error) {
	var rows []*models.ExamUser
	if err := e.db.WithContext(ctx).
		Where("exam_id = ? AND has_taken = ?", examID, true).
		Order("user_id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (e ExamUserPostgreSQL) UpdateScoredPoints(ctx context.Context, examID uint, userID string, points int) error {
	return e.db.WithContext(ctx).Model(&models.ExamUser{}).
		Where("exam_id = ? AND user_id = ?", examID, userID).
		Update("scored_points", points).Error
}

func (e ExamUserPostgreSQL) MarkTaken(ctx context.Context, examID uint, userID string, finishedAt time.Time) error {
	return e.db.WithContext(ctx).Model(&models.ExamUser{}).
		Where("exam_id = ? AND user_id = ?", examID, userID).
		Updates(map[string]interface{}{
			"has_taken":   true,
			"finished_at": finishedAt,
		}).Error
}
