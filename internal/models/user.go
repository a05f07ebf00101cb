package models

import (
	"time"
)

type UserRole string

const (
	RoleInstructor UserRole = "Instructor"
	RoleLearner    UserRole = "Learner"
)

// User mirrors the identity handed to us by the LMS launch. The LMS user id is
// the primary key — the service never mints its own user identifiers.
type User struct {
	ID       string `json:"id" gorm:"primaryKey;size:255"`
	FullName string `json:"full_name" gorm:"size:100"`
	Email    string `json:"email" gorm:"index;size:255"`

	// Role is session-scoped, supplied by the launch, never persisted.
	Role UserRole `json:"role" gorm:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
