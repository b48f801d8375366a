package repository

import (
	"database/sql"

	"gorm.io/gorm"

	"github.com/d60-Lab/contest-communication/internal/model"
	"github.com/d60-Lab/contest-communication/pkg/errs"
)

// UserRepository token 鉴权
type UserRepository interface {
	IsAdmin(db *gorm.DB, token string) (bool, error)
	Create(db *gorm.DB, token string, admin bool) error
}

type userRepository struct{}

func NewUserRepository() UserRepository { return userRepository{} }

// IsAdmin never reports an unknown token as an error.
func (userRepository) IsAdmin(db *gorm.DB, token string) (bool, error) {
	var flags []sql.NullInt64
	if err := db.Raw(`SELECT isAdmin FROM users WHERE token = ?`, token).Scan(&flags).Error; err != nil {
		return false, errs.Storage(err, "lookup token")
	}
	return resolveAdmin(flags), nil
}

// resolveAdmin grants admin only for exactly one matching record flagged 1.
// Duplicate tokens are ambiguous and fail closed.
func resolveAdmin(flags []sql.NullInt64) bool {
	if len(flags) != 1 {
		return false
	}
	return flags[0].Valid && flags[0].Int64 == 1
}

func (userRepository) Create(db *gorm.DB, token string, admin bool) error {
	u := &model.User{Token: token}
	if admin {
		u.IsAdmin = 1
	}
	return errs.Storage(db.Create(u).Error, "insert user")
}
