package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rituelsdebene/boutique/app/models"
	"github.com/rituelsdebene/boutique/app/repositories"
	"github.com/rituelsdebene/boutique/pkg/auth"
	"github.com/rituelsdebene/boutique/pkg/event"
	"gorm.io/gorm"
)

// EventUserRegistered is fired after an account row is committed.
const EventUserRegistered = "user.registered"

// UserRegistered is the payload of EventUserRegistered.
type UserRegistered struct {
	UserID uint
	Email  string
	Prenom string
	Token  string
}

type RegisterInput struct {
	Nom        string `json:"nom" validate:"required,max=100"`
	Prenom     string `json:"prenom" validate:"required,max=100"`
	Email      string `json:"email" validate:"required,email,max=191"`
	MotDePasse string `json:"mdp" validate:"required,min=8,max=72"`
}

type LoginInput struct {
	Email      string `json:"email" validate:"required,email"`
	MotDePasse string `json:"mdp" validate:"required"`
}

// LoginResult is returned to the client after a successful login.
type LoginResult struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

type AuthService struct {
	users *repositories.UserRepository
}

func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{users: repositories.NewUserRepository(db)}
}

// Register creates an unconfirmed client account and fires
// EventUserRegistered so the confirmation email goes out asynchronously.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	const op = "auth.register"
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return models.User{}, conflict(op, "Email déjà utilisé")
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return models.User{}, internal(op, err)
	}

	hash, err := auth.HashPassword(in.MotDePasse)
	if err != nil {
		return models.User{}, internal(op, err)
	}
	token, err := auth.NewConfirmationToken()
	if err != nil {
		return models.User{}, internal(op, err)
	}

	user := models.User{
		Nom:               strings.TrimSpace(in.Nom),
		Prenom:            strings.TrimSpace(in.Prenom),
		Email:             email,
		MotDePasse:        hash,
		Role:              auth.RoleClient,
		JetonConfirmation: &token,
	}
	if err := s.users.Create(ctx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.User{}, conflict(op, "Email déjà utilisé")
		}
		return models.User{}, internal(op, err)
	}

	event.Fire(EventUserRegistered, UserRegistered{
		UserID: user.ID,
		Email:  user.Email,
		Prenom: user.Prenom,
		Token:  token,
	})
	return user, nil
}

// Confirm activates the account holding token.
func (s *AuthService) Confirm(ctx context.Context, token string) error {
	const op = "auth.confirm"
	if token == "" {
		return notFound(op, "Lien de confirmation invalide")
	}

	user, err := s.users.FindByConfirmationToken(ctx, token)
	if errors.Is(err, repositories.ErrNotFound) {
		return notFound(op, "Lien de confirmation invalide")
	}
	if err != nil {
		return internal(op, err)
	}

	if err := s.users.Confirm(ctx, user.ID); err != nil {
		return internal(op, err)
	}
	return nil
}

// Login checks credentials and issues a bearer token. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	const op = "auth.login"

	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if errors.Is(err, repositories.ErrNotFound) {
		return LoginResult{}, ErrBadCredentials
	}
	if err != nil {
		return LoginResult{}, internal(op, err)
	}

	if !auth.CheckPassword(user.MotDePasse, in.MotDePasse) {
		return LoginResult{}, ErrBadCredentials
	}
	if !user.Confirme {
		return LoginResult{}, ErrAccountNotConfirmed
	}

	token, err := auth.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return LoginResult{}, internal(op, err)
	}
	return LoginResult{Token: token, Role: user.Role}, nil
}
