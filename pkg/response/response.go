package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roster-console/internal/models"
	appErrors "github.com/noah-isme/roster-console/pkg/errors"
)

// LoginPath is where the browser is sent when a session is missing or ends.
const LoginPath = "/login"

// Envelope represents the common response contract. Notice is the blocking
// message the browser shows; Redirect is a client-side navigation target.
type Envelope struct {
	Data       interface{}        `json:"data,omitempty"`
	Error      *appErrors.Error   `json:"error,omitempty"`
	Notice     *models.Notice     `json:"notice,omitempty"`
	Redirect   string             `json:"redirect,omitempty"`
	Pagination *models.PageWindow `json:"pagination,omitempty"`
}

// Option decorates an envelope before it is written.
type Option func(*Envelope)

// WithNotice attaches a user-facing notice.
func WithNotice(n *models.Notice) Option {
	return func(e *Envelope) { e.Notice = n }
}

// WithRedirect attaches a navigation target.
func WithRedirect(path string) Option {
	return func(e *Envelope) { e.Redirect = path }
}

// WithPagination attaches the page window.
func WithPagination(p models.PageWindow) Option {
	return func(e *Envelope) { e.Pagination = &p }
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}

// JSON sends a success response.
func JSON(c *gin.Context, status int, data interface{}, opts ...Option) {
	noStore(c)
	envelope := Envelope{Data: data}
	for _, opt := range opts {
		opt(&envelope)
	}
	c.JSON(status, envelope)
}

// OK responds with HTTP 200.
func OK(c *gin.Context, data interface{}, opts ...Option) {
	JSON(c, http.StatusOK, data, opts...)
}

// Snapshot answers a roster action with the view, its page window and any
// notice raised along the way.
func Snapshot(c *gin.Context, snap *models.RosterSnapshot) {
	OK(c, snap, WithNotice(snap.Notice), WithPagination(snap.Page))
}

// Error sends an error response. The notice carries only the user-facing
// message; diagnostic detail stays in the logs.
func Error(c *gin.Context, err error, opts ...Option) {
	appErr := appErrors.FromError(err)
	noStore(c)
	_ = c.Error(err)

	envelope := Envelope{
		Error:  appErr,
		Notice: noticeFor(appErr),
	}
	if appErr.Code == appErrors.ErrSessionExpired.Code || appErr.Code == appErrors.ErrUnauthorized.Code {
		envelope.Redirect = LoginPath
	}
	for _, opt := range opts {
		opt(&envelope)
	}
	c.JSON(appErr.Status, envelope)
}

func noticeFor(appErr *appErrors.Error) *models.Notice {
	level := models.NoticeError
	title := "Error"
	switch appErr.Code {
	case appErrors.ErrValidation.Code:
		level = models.NoticeWarning
	case appErrors.ErrSessionExpired.Code:
		level, title = models.NoticeInfo, "Session Expired"
	case appErrors.ErrUnauthorized.Code:
		return nil
	}
	return models.NewNotice(level, title, appErr.Message)
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
