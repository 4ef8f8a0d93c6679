package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/finpoint/bankscrape/internal/session"
)

const sessionContextKey = "session"

// ExtractSessionID pulls the session identifier from the request. Accepted
// locations, in order: the sessionId query parameter, the Session-Id
// header, an Authorization bearer token.
func ExtractSessionID(c *gin.Context) string {
	if id := c.Query("sessionId"); id != "" {
		return id
	}
	if id := c.GetHeader("Session-Id"); id != "" {
		return id
	}

	auth := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return token
	}
	return ""
}

// RequireSession rejects requests that do not carry a valid, unexpired
// session. The resolved session is stored on the request context.
func RequireSession(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := ExtractSessionID(c)
		if sessionID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "session ID is required",
			})
			return
		}

		sess, ok := store.Get(sessionID)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired session",
			})
			return
		}

		c.Set(sessionContextKey, sess)
		c.Next()
	}
}

// SessionFromContext returns the session resolved by RequireSession. Only
// valid on handlers behind that middleware.
func SessionFromContext(c *gin.Context) session.Session {
	value, _ := c.Get(sessionContextKey)
	sess, _ := value.(session.Session)
	return sess
}
