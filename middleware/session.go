package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/bloghub/models"
	"github.com/cppla/bloghub/repository"
	"github.com/cppla/bloghub/utils"
)

const (
	// SessionCookie holds the signed session token.
	SessionCookie = "session"

	contextUserKey   = "current_user"
	contextClaimsKey = "session_claims"
)

// Sessions binds users to browser sessions through a signed, revocable token cookie.
type Sessions struct {
	users     repository.UserStore
	blacklist *utils.TokenBlacklist
	secret    string
	ttl       time.Duration
	secure    bool
}

// NewSessions creates a session manager. Tokens are signed with secret and live for ttl.
func NewSessions(users repository.UserStore, blacklist *utils.TokenBlacklist, secret string, ttl time.Duration, secure bool) *Sessions {
	return &Sessions{users: users, blacklist: blacklist, secret: secret, ttl: ttl, secure: secure}
}

// Identify resolves the session cookie to a user for the rest of the request.
// Missing, invalid, expired or revoked tokens and deleted accounts leave the request anonymous.
func (s *Sessions) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(SessionCookie)
		if err != nil || raw == "" {
			c.Next()
			return
		}
		claims, err := utils.ParseToken(s.secret, raw)
		if err != nil || s.blacklist.IsRevoked(c.Request.Context(), claims.ID) {
			s.clearCookie(c)
			c.Next()
			return
		}
		user, err := s.users.UserByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				utils.Sugar.Errorw("session user lookup failed", "user_id", claims.UserID, "error", err)
			}
			s.clearCookie(c)
			c.Next()
			return
		}
		c.Set(contextUserKey, user)
		c.Set(contextClaimsKey, claims)
		c.Next()
	}
}

// Login binds user to the client's session.
func (s *Sessions) Login(c *gin.Context, user *models.User) error {
	token, claims, err := utils.GenerateToken(s.secret, user.ID, s.ttl)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, int(s.ttl.Seconds()), "/", "", s.secure, true)
	c.Set(contextUserKey, user)
	c.Set(contextClaimsKey, claims)
	return nil
}

// Logout revokes the current token and clears the cookie. The request is anonymous afterwards.
func (s *Sessions) Logout(c *gin.Context) error {
	defer func() {
		s.clearCookie(c)
		delete(c.Keys, contextUserKey)
		delete(c.Keys, contextClaimsKey)
	}()
	v, ok := c.Get(contextClaimsKey)
	if !ok {
		return nil
	}
	claims := v.(*utils.Claims)
	return s.blacklist.Revoke(c.Request.Context(), claims.ID, claims.ExpiresAt.Time)
}

func (s *Sessions) clearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", s.secure, true)
}

// CurrentUser returns the user bound to this request, or nil when anonymous.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(contextUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// IsAuthenticated reports whether a user is bound to this request.
func IsAuthenticated(c *gin.Context) bool {
	return CurrentUser(c) != nil
}
