// Package api serves boards over HTTP: an SSE snapshot stream plus the
// write operations.
package api

import (
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/nhle/crafthub/internal/auth"
	"github.com/nhle/crafthub/internal/board"
	"github.com/nhle/crafthub/internal/feed"
	"github.com/nhle/crafthub/internal/store"
)

const identityKey = "identity"

// Authenticator resolves the caller from an Authorization header.
type Authenticator interface {
	FromHeader(h string) (auth.Identity, error)
}

// Server holds the dependencies shared by all handlers.
type Server struct {
	hub      *feed.Hub
	auth     Authenticator
	log      *logrus.Logger
	dispatch board.Dispatcher

	// closing is closed on shutdown so open streams end.
	closing   chan struct{}
	closeOnce sync.Once
}

// NewServer creates a server over hub.
func NewServer(hub *feed.Hub, a Authenticator, logger *logrus.Logger) *Server {
	return &Server{hub: hub, auth: a, log: logger, closing: make(chan struct{})}
}

// Close ends every open stream. http.Server.Shutdown does not cancel
// running requests, so Register hooks this into e.Server's shutdown.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.closing) })
}

// Register wires up all routes on e.
func (s *Server) Register(e *echo.Echo) {
	e.Server.RegisterOnShutdown(s.Close)

	e.GET("/healthz", s.healthz)

	g := e.Group("", s.authenticate)
	g.GET("/stream", s.stream)
	g.GET("/projects", s.listProjects)
	g.POST("/tasks", s.createTask)
	g.PATCH("/tasks/:id", s.patchTask)
	g.POST("/tasks/:id/move", s.moveTask)
	g.DELETE("/tasks/:id", s.deleteTask)
	g.GET("/tasks/:id/comments", s.listComments)
	g.POST("/tasks/:id/comments", s.addComment)
	g.PATCH("/tasks/:id/comments/:cid", s.editComment)
	g.DELETE("/tasks/:id/comments/:cid", s.deleteComment)
	g.GET("/tasks/:id/activity", s.listActivity)
	g.GET("/activity", s.listUserActivity)
}

func (s *Server) healthz(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// authenticate accepts a Bearer header or, for EventSource clients that
// cannot set headers, a token query parameter.
func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if token := c.QueryParam("token"); header == "" && token != "" {
			header = "Bearer " + token
		}
		id, err := s.auth.FromHeader(header)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		c.Set(identityKey, id)
		return next(c)
	}
}

func identity(c echo.Context) auth.Identity {
	id, _ := c.Get(identityKey).(auth.Identity)
	return id
}

// scope resolves the board addressed by the project query parameter and
// checks that the caller owns the project.
func (s *Server) scope(c echo.Context) (store.Scope, error) {
	id := identity(c)
	projectID := strings.TrimSpace(c.QueryParam("project"))
	if projectID != "" {
		if _, err := s.hub.Store().GetProject(c.Request().Context(), id.UserID, projectID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return store.Scope{}, echo.NewHTTPError(http.StatusNotFound, "project not found")
			}
			return store.Scope{}, err
		}
	}
	return id.Scope(projectID), nil
}

func (s *Server) actions(c echo.Context) (*board.Actions, error) {
	scope, err := s.scope(c)
	if err != nil {
		return nil, err
	}
	return board.NewActions(s.hub, scope, s.boardOptions(c))
}

func (s *Server) boardOptions(c echo.Context) board.Options {
	return board.Options{
		Author:   identity(c).Author(),
		Logger:   s.log,
		Dispatch: s.dispatch,
	}
}

// writeError maps store and board errors to HTTP responses.
func (s *Server) writeError(c echo.Context, err error) error {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return err
	case errors.Is(err, store.ErrNotFound):
		return c.String(http.StatusNotFound, "not found")
	case errors.Is(err, board.ErrSignedOut):
		return c.String(http.StatusUnauthorized, err.Error())
	default:
		s.log.WithError(err).WithField("path", c.Path()).Error("request failed")
		return c.String(http.StatusInternalServerError, "internal error")
	}
}
