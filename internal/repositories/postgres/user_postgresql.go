package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/openexam/exam-service/internal/models"
	"github.com/openexam/exam-service/internal/repositories"
)

type UserPostgreSQL struct {
	db *gorm.DB
}

func NewUserPostgreSQL(db *gorm.DB) repositories.UserRepository {
	return &UserPostgreSQL{db: db}
}

func (u UserPostgreSQL) FirstOrCreate(ctx context.Context, user *models.User) error {
	return u.db.WithContext(ctx).
		Where(&models.User{ID: user.ID}).
		Attrs(&models.User{FullName: user.FullName, Email: user.Email}).
		FirstOrCreate(user).Error
}

func (u UserPostgreSQL) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (u UserPostgreSQL) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	var users []*models.User
	if len(ids) == 0 {
		return users, nil
	}
	if err := u.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
