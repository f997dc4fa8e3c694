package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/roster-console/internal/models"
	"github.com/noah-isme/roster-console/internal/session"
	appErrors "github.com/noah-isme/roster-console/pkg/errors"
	"github.com/noah-isme/roster-console/pkg/response"
)

// ContextSessionKey is the gin context key storing the credential session.
const ContextSessionKey = "rosterSession"

type credentialStore interface {
	Current(r *http.Request) (models.Session, bool)
	Clear(w http.ResponseWriter, r *http.Request) error
}

// RequireSession admits requests carrying a stored, decodable token. Anything
// else is sent back to the login page; an undecodable token is cleared on the
// way out.
func RequireSession(store credentialStore, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		sess, ok := store.Current(c.Request)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "Please log in to continue."))
			c.Abort()
			return
		}

		name, err := session.DisplayName(sess.Token)
		if err != nil {
			logger.Info("clearing session with undecodable token", zap.Error(err))
			if clearErr := store.Clear(c.Writer, c.Request); clearErr != nil {
				logger.Warn("clear session cookie", zap.Error(clearErr))
			}
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "Please log in to continue."))
			c.Abort()
			return
		}
		if sess.DisplayName == "" {
			sess.DisplayName = name
		}

		c.Set(ContextSessionKey, sess)
		c.Next()
	}
}
