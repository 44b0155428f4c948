package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/accordmusic/accord-backend/pkg/auth/session"
	"github.com/accordmusic/accord-backend/pkg/db/models"
	"github.com/accordmusic/accord-backend/pkg/enums"
	pkgerrors "github.com/accordmusic/accord-backend/pkg/errors"
	"github.com/accordmusic/accord-backend/pkg/security"
	"gorm.io/gorm"
)

type userFinder interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type sessionIssuer interface {
	Create(ctx context.Context, identity session.Identity) (string, error)
	Revoke(ctx context.Context, token string) error
}

// LoginInput carries the credentials posted to the login endpoint.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult returns the session token plus the authenticated profile.
type LoginResult struct {
	Token    string     `json:"-"`
	UserID   int64      `json:"user_id"`
	Role     enums.Role `json:"role"`
	FullName string     `json:"full_name"`
}

// Service authenticates users and manages their sessions.
type Service interface {
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	Logout(ctx context.Context, token string) error
}

type service struct {
	users    userFinder
	sessions sessionIssuer
}

// NewService builds the auth service with the required dependencies.
func NewService(users userFinder, sessions sessionIssuer) (Service, error) {
	if users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session manager required")
	}
	return &service{users: users, sessions: sessions}, nil
}

func (s *service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if input.Email == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password required")
	}

	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Same response as a wrong password so the endpoint does not
			// leak which emails exist.
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	role, err := enums.RoleFromCode(user.RoleCode)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve user role")
	}

	token, err := s.sessions.Create(ctx, session.Identity{UserID: user.ID, Role: role})
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Token:    token,
		UserID:   user.ID,
		Role:     role,
		FullName: user.FullName,
	}, nil
}

func (s *service) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}
