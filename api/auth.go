package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/inkwell/pkg/llm"
	"github.com/papercomputeco/inkwell/pkg/storage"
)

const (
	// SessionCookie carries the session token for browser clients.
	SessionCookie = "inkwell_session"

	localUser    = "user"
	localSession = "session"
)

// sessionToken reads the token from the cookie, then the bearer header.
func sessionToken(c *fiber.Ctx) string {
	if tok := c.Cookies(SessionCookie); tok != "" {
		return tok
	}
	auth := c.Get(fiber.HeaderAuthorization)
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// requireSession rejects requests without a live session and stores the
// session's user in the request locals.
func (s *Server) requireSession(c *fiber.Ctx) error {
	token := sessionToken(c)
	if token == "" {
		return unauthorized(c)
	}

	ctx := c.UserContext()
	session, err := s.driver.SessionByToken(ctx, token)
	if err != nil {
		if !storage.IsNotFound(err) {
			s.logger.Error("failed to look up session", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "internal error"})
		}
		return unauthorized(c)
	}

	user, err := s.driver.GetUser(ctx, session.UserID)
	if err != nil {
		s.logger.Warn("session references missing user", zap.String("user_id", session.UserID), zap.Error(err))
		return unauthorized(c)
	}

	c.Locals(localUser, user)
	c.Locals(localSession, session)
	return c.Next()
}

func currentUser(c *fiber.Ctx) *storage.User {
	u, _ := c.Locals(localUser).(*storage.User)
	return u
}

func currentSession(c *fiber.Ctx) *storage.Session {
	sess, _ := c.Locals(localSession).(*storage.Session)
	return sess
}

// sessionCookie builds the inkwell_session cookie; an empty value clears it.
func (s *Server) sessionCookie(value string, expires time.Time) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(llm.ErrorResponse{Error: "UNAUTHORIZED"})
}
