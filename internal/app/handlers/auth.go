package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/domain/models"
	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/service"
)

type RegisterRequest struct {
	Email       string  `json:"email" validate:"required,email"`
	Password    string  `json:"password" validate:"required,min=8"`
	Name        string  `json:"name" validate:"required"`
	Role        string  `json:"role" validate:"required,oneof=CUSTOMER FARMER"`
	FarmName    *string `json:"farmName"`
	FarmAddress *string `json:"farmAddress"`
	Phone       *string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Message string       `json:"message"`
	User    *models.User `json:"user"`
	Token   string       `json:"token"`
}

type ProfileResponse struct {
	User *models.User `json:"user"`
}

// RegisterHandler handles POST /api/auth/register.
func RegisterHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RegisterHandler"
		logger := log.With(slog.String("op", op))

		var req RegisterRequest
		if !decodeAndValidate(w, r, logger, &req) {
			return
		}

		user, token, err := authService.Register(r.Context(), service.RegisterInput{
			Email:       req.Email,
			Password:    req.Password,
			Name:        req.Name,
			Role:        models.Role(req.Role),
			FarmName:    req.FarmName,
			FarmAddress: req.FarmAddress,
			Phone:       req.Phone,
		})
		if err != nil {
			writeServiceError(w, logger, err, errorStatus(err))
			return
		}

		writeJSON(w, logger, http.StatusCreated, AuthResponse{
			Message: "User registered successfully",
			User:    user,
			Token:   token,
		})
	}
}

// LoginHandler handles POST /api/auth/login.
func LoginHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.LoginHandler"
		logger := log.With(slog.String("op", op))

		var req LoginRequest
		if !decodeAndValidate(w, r, logger, &req) {
			return
		}

		user, token, err := authService.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeServiceError(w, logger, err, errorStatus(err))
			return
		}

		writeJSON(w, logger, http.StatusOK, AuthResponse{
			Message: "Login successful",
			User:    user,
			Token:   token,
		})
	}
}

func ProfileHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ProfileHandler"
		logger := log.With(slog.String("op", op))

		caller, ok := callerFrom(w, r, logger)
		if !ok {
			return
		}

		user, err := authService.Profile(r.Context(), caller)
		if err != nil {
			writeServiceError(w, logger, err, errorStatus(err))
			return
		}
		writeJSON(w, logger, http.StatusOK, ProfileResponse{User: user})
	}
}
