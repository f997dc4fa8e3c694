package service

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/roster-console/internal/client"
	"github.com/noah-isme/roster-console/internal/models"
	"github.com/noah-isme/roster-console/internal/session"
	appErrors "github.com/noah-isme/roster-console/pkg/errors"
)

const (
	msgLoginEmpty       = "Email and Password fields cannot be empty."
	msgRegisterEmpty    = "All fields are required."
	msgPasswordMismatch = "Passwords do not match."
	msgRegistered       = "Registered successfully"
)

type authGateway interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Register(ctx context.Context, req models.RegisterRequest) error
}

// AuthService runs the login and registration flows against the backend.
type AuthService struct {
	gateway   authGateway
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(gateway authGateway, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{gateway: gateway, validator: validate, logger: logger}
}

// Login authenticates the administrator and returns the session to store.
// Empty fields are rejected before any request is sent.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, msgLoginEmpty)
	}

	resp, err := s.gateway.Login(ctx, req)
	if err != nil {
		if client.StatusCode(err) == http.StatusUnauthorized {
			return nil, appErrors.WrapAs(err, appErrors.ErrInvalidCredentials, "")
		}
		s.logger.Warn("login request failed", zap.Error(err))
		return nil, appErrors.WrapAs(err, appErrors.ErrConnection, "")
	}

	name, err := session.DisplayName(resp.Token)
	if err != nil {
		s.logger.Warn("backend issued an undecodable token", zap.Error(err))
		return nil, appErrors.WrapAs(err, appErrors.ErrConnection, "")
	}

	s.logger.Info("administrator signed in", zap.String("name", name))
	return &models.Session{Token: resp.Token, DisplayName: name}, nil
}

// Register creates an administrator account and returns the success notice.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.Notice, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, msgRegisterEmpty)
	}
	if req.Password != req.ConfirmPassword {
		return nil, appErrors.Clone(appErrors.ErrValidation, msgPasswordMismatch)
	}

	if err := s.gateway.Register(ctx, req); err != nil {
		if client.StatusCode(err) == http.StatusConflict {
			return nil, appErrors.WrapAs(err, appErrors.ErrEmailInUse, "")
		}
		s.logger.Warn("registration request failed", zap.Error(err))
		return nil, appErrors.WrapAs(err, appErrors.ErrRegistration, "")
	}

	return models.NewNotice(models.NoticeSuccess, "Success", msgRegistered), nil
}
