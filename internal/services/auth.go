package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/quizforge/quizforge-backend/internal/logger"
	"github.com/quizforge/quizforge-backend/internal/repos"
	"github.com/quizforge/quizforge-backend/internal/types"
)

// ErrUserExists is returned by Register when the username is already taken.
var ErrUserExists = errors.New("user already exists")

// AuthService implements registration and login. Passwords are stored and
// compared as plaintext and no session or token is issued; the check-then-
// insert registration flow is kept as-is, with the unique index on username
// as the backstop for concurrent registrations.
type AuthService interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) (bool, error)
}

type authService struct {
	log      *logger.Logger
	userRepo repos.UserRepo
}

func NewAuthService(log *logger.Logger, userRepo repos.UserRepo) AuthService {
	return &authService{
		log:      log.With("service", "AuthService"),
		userRepo: userRepo,
	}
}

func (as *authService) Register(ctx context.Context, username, password string) error {
	existing, err := as.userRepo.Find(ctx, username, "")
	if err != nil {
		return fmt.Errorf("error checking username: %w", err)
	}
	if existing != nil {
		return ErrUserExists
	}

	user := types.User{Username: username, Password: password}
	if err := as.userRepo.Create(ctx, &user); err != nil {
		return fmt.Errorf("error inserting user: %w", err)
	}
	as.log.Info("Registered new user", "username", username)
	return nil
}

func (as *authService) Login(ctx context.Context, username, password string) (bool, error) {
	user, err := as.userRepo.Find(ctx, username, password)
	if err != nil {
		return false, fmt.Errorf("error fetching user: %w", err)
	}
	return user != nil, nil
}
