package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/domain/models"
	security "github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/jwt-new"
	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/storage"
)

const minPasswordLen = 8

type AuthServiceInterface interface {
	Register(ctx context.Context, in RegisterInput) (*models.User, string, error)
	Login(ctx context.Context, email, password string) (*models.User, string, error)
	Profile(ctx context.Context, caller models.Caller) (*models.User, error)
}

// RegisterInput is a new account. Farm fields are only meaningful for farmers.
type RegisterInput struct {
	Email       string
	Password    string
	Name        string
	Role        models.Role
	FarmName    *string
	FarmAddress *string
	Phone       *string
}

type AuthService struct {
	log       *slog.Logger
	userRepo  storage.UserStorage
	tokenTTL  time.Duration
	jwtSecret []byte
}

func NewAuthService(log *slog.Logger, userRepo storage.UserStorage, tokenTTL time.Duration, jwtSecret string) *AuthService {
	return &AuthService{
		log:       log,
		userRepo:  userRepo,
		tokenTTL:  tokenTTL,
		jwtSecret: []byte(jwtSecret),
	}
}

// Register creates the account and returns it with a fresh token.
// The password is stored as a bcrypt hash.
func (a *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	const op = "auth.Register"
	logger := a.log.With(
		slog.String("op", op),
		slog.String("email", in.Email),
	)

	switch {
	case in.Email == "" || in.Password == "" || in.Name == "":
		return nil, "", newError(ErrBadRequest, "email, password, name and role are required")
	case !in.Role.Valid():
		return nil, "", newError(ErrBadRequest, "role must be CUSTOMER or FARMER")
	case len(in.Password) < minPasswordLen:
		return nil, "", newError(ErrBadRequest, "password must be at least %d characters", minPasswordLen)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to hash password", slog.Any("error", err))
		return nil, "", fmt.Errorf("%s: failed to hash password: %w", op, err)
	}

	user := &models.User{
		Email:    in.Email,
		Name:     in.Name,
		PassHash: passHash,
		Role:     in.Role,
	}
	if in.Role == models.RoleFarmer {
		user.FarmName = in.FarmName
		user.FarmAddress = in.FarmAddress
	}
	user.Phone = in.Phone

	user, err = a.userRepo.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			logger.Warn("user already exists")
			return nil, "", newError(ErrConflict, "user with this email already exists")
		}
		logger.Error("failed to create user", slog.Any("error", err))
		return nil, "", fmt.Errorf("%s: failed to create user: %w", op, err)
	}

	token, err := security.NewToken(user, a.tokenTTL, a.jwtSecret)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return nil, "", fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	logger.Info("user registered", slog.Int64("userID", user.ID), slog.String("role", string(user.Role)))
	return user, token, nil
}

// Login checks the password against the stored hash and issues a token.
// Unknown email and wrong password are indistinguishable to the client.
func (a *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	const op = "auth.Login"
	logger := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)
	logger.Info("checking user")

	user, err := a.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			logger.Warn("user not found")
			return nil, "", newError(ErrUnauthorized, "invalid credentials")
		}
		logger.Error("failed to get user", slog.Any("error", err))
		return nil, "", fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		logger.Warn("invalid password")
		return nil, "", newError(ErrUnauthorized, "invalid credentials")
	}

	token, err := security.NewToken(user, a.tokenTTL, a.jwtSecret)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return nil, "", fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	logger.Info("user logged in successfully", slog.Int64("userID", user.ID))
	return user, token, nil
}

func (a *AuthService) Profile(ctx context.Context, caller models.Caller) (*models.User, error) {
	const op = "auth.Profile"

	user, err := a.userRepo.GetUserByID(ctx, caller.ID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, newError(ErrNotFound, "user not found")
		}
		a.log.Error("failed to get user", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get user: %w", op, err)
	}
	return user, nil
}
