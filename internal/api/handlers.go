package api

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"github.com/nhle/crafthub/internal/board"
	"github.com/nhle/crafthub/internal/model"
)

const (
	maxBodySize     = 64 << 10
	maxActivityRows = 100
)

var sseDataPrefix = []byte("data: ")

type createTaskRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      model.Status   `json:"status"`
	Priority    model.Priority `json:"priority"`
	DueDate     *time.Time     `json:"due_date"`
}

type createTaskResponse struct {
	ID string `json:"id"`
}

type patchTaskRequest struct {
	Title        *string         `json:"title"`
	Description  *string         `json:"description"`
	Status       *model.Status   `json:"status"`
	Priority     *model.Priority `json:"priority"`
	Archived     *bool           `json:"archived"`
	DueDate      *time.Time      `json:"due_date"`
	ClearDueDate bool            `json:"clear_due_date"`
}

func (r patchTaskRequest) patch() model.TaskPatch {
	p := model.TaskPatch{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		Priority:    r.Priority,
		Archived:    r.Archived,
	}
	switch {
	case r.ClearDueDate:
		var none *time.Time
		p.DueDate = &none
	case r.DueDate != nil:
		p.DueDate = &r.DueDate
	}
	return p
}

type moveTaskRequest struct {
	From model.Status `json:"from"`
	To   model.Status `json:"to"`
}

type commentRequest struct {
	Text string `json:"text"`
}

func decode(c echo.Context, v any) error {
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(c.Request().Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return nil
}

// stream writes one SSE data frame per board view until the client goes
// away or the server shuts down.
func (s *Server) stream(c echo.Context) error {
	scope, err := s.scope(c)
	if err != nil {
		return s.writeError(c, err)
	}
	ctx := c.Request().Context()

	sess, err := board.Open(ctx, s.hub, scope, s.boardOptions(c))
	if err != nil {
		return s.writeError(c, err)
	}
	defer sess.Close()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	flusher, ok := res.Writer.(http.Flusher)
	if !ok {
		return c.String(http.StatusInternalServerError, "stream unsupported")
	}
	res.WriteHeader(http.StatusOK)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.closing:
			return nil
		case view, ok := <-sess.Views():
			if !ok {
				return nil
			}
			data, err := sonic.Marshal(view)
			if err != nil {
				s.log.WithError(err).Error("encoding view")
				return nil
			}
			if _, err := res.Write(sseDataPrefix); err != nil {
				return nil
			}
			if _, err := res.Write(data); err != nil {
				return nil
			}
			if _, err := res.Write([]byte("\n\n")); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}

func (s *Server) listProjects(c echo.Context) error {
	projects, err := s.hub.Store().ListProjects(c.Request().Context(), identity(c).UserID, c.QueryParam("archived") == "true")
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, projects)
}

func (s *Server) createTask(c echo.Context) error {
	var req createTaskRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	a, err := s.actions(c)
	if err != nil {
		return s.writeError(c, err)
	}

	id, err := a.CreateDraft(c.Request().Context(), model.TaskDraft{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	})
	if err != nil {
		return s.writeError(c, err)
	}
	if id == "" {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusCreated, createTaskResponse{ID: id})
}

func (s *Server) patchTask(c echo.Context) error {
	var req patchTaskRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	a, err := s.actions(c)
	if err != nil {
		return s.writeError(c, err)
	}
	if err := a.Edit(c.Request().Context(), c.Param("id"), req.patch()); err != nil {
		return s.writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// moveTask answers 202 when a status write was dispatched and 204 when
// the drop was a no-op.
func (s *Server) moveTask(c echo.Context) error {
	var req moveTaskRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	a, err := s.actions(c)
	if err != nil {
		return s.writeError(c, err)
	}
	if a.Move(c.Request().Context(), c.Param("id"), req.From, req.To) {
		return c.NoContent(http.StatusAccepted)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) deleteTask(c echo.Context) error {
	a, err := s.actions(c)
	if err != nil {
		return s.writeError(c, err)
	}
	if err := a.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return s.writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) listComments(c echo.Context) error {
	a, err := s.actions(c)
	if err != nil {
		return s.writeError(c, err)
	}
	comments, err := a.Comments(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, comments)
}

func (s *Server) addComment(c echo.Context) error {
	var req commentRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	a, err := s.actions(c)
	if err != nil {
		return s.writeError(c, err)
	}
	id, err := a.AddComment(c.Request().Context(), c.Param("id"), req.Text)
	if err != nil {
		return s.writeError(c, err)
	}
	if id == "" {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusCreated, createTaskResponse{ID: id})
}

func (s *Server) editComment(c echo.Context) error {
	var req commentRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	a, err := s.actions(c)
	if err != nil {
		return s.writeError(c, err)
	}
	if err := a.EditComment(c.Request().Context(), c.Param("cid"), req.Text); err != nil {
		return s.writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) deleteComment(c echo.Context) error {
	a, err := s.actions(c)
	if err != nil {
		return s.writeError(c, err)
	}
	if err := a.DeleteComment(c.Request().Context(), c.Param("cid")); err != nil {
		return s.writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// listUserActivity returns the caller's recent activity across boards.
// limit defaults to the store's page size and is capped.
func (s *Server) listUserActivity(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = min(n, maxActivityRows)
	}
	a, err := s.actions(c)
	if err != nil {
		return s.writeError(c, err)
	}
	entries, err := a.UserActivity(c.Request().Context(), limit)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}

func (s *Server) listActivity(c echo.Context) error {
	a, err := s.actions(c)
	if err != nil {
		return s.writeError(c, err)
	}
	entries, err := a.Activity(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}
