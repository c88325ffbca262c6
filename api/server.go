// Package api serves the inkwell blogging procedures over HTTP.
package api

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/papercomputeco/inkwell/pkg/llm"
	"github.com/papercomputeco/inkwell/pkg/metrics"
	"github.com/papercomputeco/inkwell/pkg/postgen"
	"github.com/papercomputeco/inkwell/pkg/storage"
)

// Server exposes posts, generation and draft history as JSON procedures.
// It holds no state of its own; everything lives in the storage.Driver.
type Server struct {
	config    Config
	driver    storage.Driver
	generator *postgen.Generator
	metrics   *metrics.PrometheusCollector
	logger    *zap.Logger
	app       *fiber.App
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics serves the collector's registry on /metrics.
func WithMetrics(c *metrics.PrometheusCollector) Option {
	return func(s *Server) { s.metrics = c }
}

// NewServer creates a Server and registers its routes.
func NewServer(config Config, driver storage.Driver, generator *postgen.Generator, logger *zap.Logger, opts ...Option) (*Server, error) {
	if driver == nil {
		return nil, errors.New("api: nil storage driver")
	}
	if generator == nil {
		return nil, errors.New("api: nil generator")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		// Generations may take the whole upstream timeout, twice with the retry
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 90 * time.Second,
		ErrorHandler: errorHandler,
	})

	s := &Server{
		config:    config,
		driver:    driver,
		generator: generator,
		logger:    logger,
		app:       app,
	}
	for _, o := range opts {
		o(s)
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	if s.metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))
	}

	api := app.Group("/api", s.requireSession)
	api.Get("/me", s.handleMe)
	api.Post("/session", s.handleSessionCookie)
	api.Post("/logout", s.handleLogout)

	api.Get("/posts/latest", s.handleLatestPost)
	api.Post("/posts", s.handleCreatePost)
	api.Post("/generate", s.handleGenerate)

	api.Get("/drafts/:hash", s.handleGetDraft)

	api.Get("/users", s.handleListUsers)
	api.Get("/users/:id/posts", s.handleUserPosts)

	return s, nil
}

// RunWithListener serves on an already bound listener until Shutdown is called.
func (s *Server) RunWithListener(ln net.Listener) error {
	s.logger.Info("starting api server", zap.String("listen", ln.Addr().String()))
	return s.app.Listener(ln)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "internal error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}
	return c.Status(code).JSON(llm.ErrorResponse{Error: msg})
}

func (s *Server) handleMe(c *fiber.Ctx) error {
	return c.JSON(currentUser(c))
}

// SessionInfo is the body of POST /api/session.
type SessionInfo struct {
	User    *storage.User `json:"user"`
	Expires time.Time     `json:"expires"`
}

// handleSessionCookie stores the presented token in the session cookie, so a
// browser that signed in with a bearer token can drop the header.
func (s *Server) handleSessionCookie(c *fiber.Ctx) error {
	session := currentSession(c)
	c.Cookie(s.sessionCookie(session.Token, session.Expires))
	return c.JSON(SessionInfo{User: currentUser(c), Expires: session.Expires})
}

func (s *Server) handleLogout(c *fiber.Ctx) error {
	session := currentSession(c)
	if err := s.driver.DeleteSession(c.UserContext(), session.Token); err != nil {
		s.logger.Error("failed to delete session", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "internal error"})
	}

	c.Cookie(s.sessionCookie("", time.Unix(0, 0)))
	return c.SendStatus(fiber.StatusNoContent)
}

// handleLatestPost returns the caller's newest post, or null.
func (s *Server) handleLatestPost(c *fiber.Ctx) error {
	user := currentUser(c)

	post, err := s.driver.LatestPost(c.UserContext(), user.ID)
	if err != nil {
		s.logger.Error("failed to load latest post", zap.String("user_id", user.ID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to load latest post"})
	}
	if post == nil {
		return c.JSON(nil)
	}
	return c.JSON(post)
}

// CreatePostRequest is the body of POST /api/posts.
type CreatePostRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

func (s *Server) handleCreatePost(c *fiber.Ctx) error {
	var req CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}
	if strings.TrimSpace(req.Name) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "Название поста не может быть пустым"})
	}

	user := currentUser(c)
	ctx := c.UserContext()

	post, err := s.driver.CreatePost(ctx, user.ID, req.Name, req.Content)
	if err != nil {
		s.logger.Error("failed to create post", zap.String("user_id", user.ID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to create post"})
	}

	s.logger.Info("post created",
		zap.Int64("post_id", post.ID),
		zap.String("user_id", user.ID),
		zap.String("name", truncate(post.Name, 50)),
	)

	if s.metrics != nil {
		if n, err := s.driver.CountPosts(ctx); err == nil {
			s.metrics.SetStorageCount(ctx, "posts", n)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

// handleGenerate runs one post generation for the caller.
func (s *Server) handleGenerate(c *fiber.Ctx) error {
	var req postgen.Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	user := currentUser(c)
	s.logger.Debug("received generate request",
		zap.String("user_id", user.ID),
		zap.String("name", truncate(req.Name, 50)),
		zap.String("style", string(req.Style)),
	)

	result, err := s.generator.Generate(c.UserContext(), user.ID, req)
	if err != nil {
		var verr *postgen.ValidationError
		switch {
		case errors.As(err, &verr):
			return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: verr.Error()})
		case errors.Is(err, postgen.ErrRateLimited):
			return c.Status(fiber.StatusTooManyRequests).JSON(llm.ErrorResponse{Error: err.Error()})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: err.Error()})
		}
	}

	return c.JSON(result)
}

// DraftHistory is the lineage of a generated draft.
type DraftHistory struct {
	// Messages in chronological order, ending with the requested node
	Messages []DraftMessage `json:"messages"`
	HeadHash string         `json:"head_hash"`
	Depth    int            `json:"depth"`
}

// DraftMessage is one node of a draft history.
type DraftMessage struct {
	Hash       string  `json:"hash"`
	ParentHash *string `json:"parent_hash,omitempty"`
	Role       string  `json:"role"`
	Content    string  `json:"content"`
	Model      string  `json:"model,omitempty"`
	Style      string  `json:"style,omitempty"`
}

func (s *Server) handleGetDraft(c *fiber.Ctx) error {
	hash := c.Params("hash")

	history, err := s.buildDraftHistory(c.UserContext(), hash)
	if err != nil {
		if storage.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "draft not found"})
		}
		s.logger.Error("failed to load draft history", zap.String("hash", hash), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to load draft"})
	}
	return c.JSON(history)
}

func (s *Server) buildDraftHistory(ctx context.Context, hash string) (*DraftHistory, error) {
	ancestry, err := s.driver.DraftAncestry(ctx, hash)
	if err != nil {
		return nil, err
	}

	nodes := storage.Reverse(ancestry)
	messages := make([]DraftMessage, len(nodes))
	for i, n := range nodes {
		messages[i] = DraftMessage{
			Hash:       n.Hash,
			ParentHash: n.ParentHash,
			Role:       n.Bucket.Role,
			Content:    n.Bucket.Content,
			Model:      n.Bucket.Model,
			Style:      n.Bucket.Style,
		}
	}

	return &DraftHistory{
		Messages: messages,
		HeadHash: hash,
		Depth:    len(messages),
	}, nil
}

// UserSummary is a user as shown in listings.
type UserSummary struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
}

func (s *Server) handleListUsers(c *fiber.Ctx) error {
	users, err := s.driver.ListUsers(c.UserContext())
	if err != nil {
		s.logger.Error("failed to list users", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to list users"})
	}

	out := make([]UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, UserSummary{ID: u.ID, DisplayName: u.DisplayName(), Email: u.Email})
	}
	return c.JSON(out)
}

func (s *Server) handleUserPosts(c *fiber.Ctx) error {
	id := c.Params("id")
	ctx := c.UserContext()

	if _, err := s.driver.GetUser(ctx, id); err != nil {
		if storage.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "user not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to load user"})
	}

	posts, err := s.driver.PostsByUser(ctx, id)
	if err != nil {
		s.logger.Error("failed to list posts", zap.String("user_id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to list posts"})
	}
	if posts == nil {
		posts = []*storage.Post{}
	}
	return c.JSON(posts)
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
