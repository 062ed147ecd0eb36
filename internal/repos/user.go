package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/quizforge/quizforge-backend/internal/logger"
	"github.com/quizforge/quizforge-backend/internal/types"
)

type UserRepo interface {
	// Find matches by username, and additionally by password when password
	// is non-empty. Returns (nil, nil) when no user matches.
	Find(ctx context.Context, username, password string) (*types.User, error)
	Create(ctx context.Context, user *types.User) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (ur *userRepo) Find(ctx context.Context, username, password string) (*types.User, error) {
	query := ur.db.WithContext(ctx).Where("username = ?", username)
	if password != "" {
		query = query.Where("password = ?", password)
	}

	var user types.User
	if err := query.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (ur *userRepo) Create(ctx context.Context, user *types.User) error {
	if err := ur.db.WithContext(ctx).Create(user).Error; err != nil {
		ur.log.Error("Failed to insert user", "username", user.Username, "error", err)
		return err
	}
	return nil
}
