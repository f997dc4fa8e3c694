package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/roster-console/internal/models"
	"github.com/noah-isme/roster-console/internal/service"
	appErrors "github.com/noah-isme/roster-console/pkg/errors"
	"github.com/noah-isme/roster-console/pkg/response"
)

// HomePath is where the browser lands after signing in.
const HomePath = "/"

type authService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.Session, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.Notice, error)
}

type sessionStore interface {
	Save(w http.ResponseWriter, r *http.Request, sess models.Session) error
	Current(r *http.Request) (models.Session, bool)
	Clear(w http.ResponseWriter, r *http.Request) error
}

type viewDiscarder interface {
	Discard(ctx context.Context, sess models.Session) error
}

// AuthHandler wires the sign-in, sign-up and sign-out endpoints.
type AuthHandler struct {
	service  authService
	sessions sessionStore
	views    viewDiscarder
	logger   *zap.Logger
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService, sessions sessionStore, views viewDiscarder, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{service: svc, sessions: sessions, views: views, logger: logger}
}

// Login godoc
// @Summary Sign in
// @Description Exchange administrator credentials for a session cookie
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	sess, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.sessions.Save(c.Writer, c.Request, *sess); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrInternal, ""))
		return
	}

	response.OK(c, sess, response.WithRedirect(HomePath))
}

// Register godoc
// @Summary Register administrator
// @Description Create an administrator account on the roster backend
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	notice, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusCreated, nil, response.WithNotice(notice), response.WithRedirect(response.LoginPath))
}

// Logout godoc
// @Summary Sign out
// @Description Clear the session cookie and forget the roster view
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if sess, ok := h.sessions.Current(c.Request); ok {
		if err := h.views.Discard(c.Request.Context(), sess); err != nil {
			h.logger.Warn("discard view on logout", zap.Error(err))
		}
	}
	if err := h.sessions.Clear(c.Writer, c.Request); err != nil {
		h.logger.Warn("clear session cookie", zap.Error(err))
	}
	response.OK(c, nil, response.WithRedirect(response.LoginPath))
}

type passwordStrengthRequest struct {
	Password string `json:"password"`
}

// PasswordStrength godoc
// @Summary Score a password
// @Description Report which registration strength criteria a password meets
// @Tags Authentication
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auth/password-strength [post]
func (h *AuthHandler) PasswordStrength(c *gin.Context) {
	var req passwordStrengthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	response.OK(c, service.EvaluatePasswordStrength(req.Password))
}
