package api

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/nhle/crafthub/internal/auth"
	"github.com/nhle/crafthub/internal/board"
	"github.com/nhle/crafthub/internal/feed"
	"github.com/nhle/crafthub/internal/model"
	"github.com/nhle/crafthub/internal/store"
	"github.com/nhle/crafthub/tests/testutil"
)

type fakeAuth struct{}

func (fakeAuth) FromHeader(h string) (auth.Identity, error) {
	if h != "Bearer good" {
		return auth.Identity{}, auth.ErrInvalidToken
	}
	return auth.Identity{UserID: "user-1", DisplayName: "Ana"}, nil
}

type flushRecorder struct{ *httptest.ResponseRecorder }

func (flushRecorder) Flush() {}

var me = store.Scope{UserID: "user-1"}

func newTestServer(t *testing.T) (*echo.Echo, *store.SQLiteStore) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	s := testutil.NewTestStore(t)
	hub := feed.NewHub(s, feed.Options{Logger: logger, ResyncInterval: time.Hour})
	srv := NewServer(hub, fakeAuth{}, logger)
	srv.dispatch = func(fn func()) { fn() }

	e := echo.New()
	srv.Register(e)
	return e, s
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set(echo.HeaderAuthorization, "Bearer good")
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRequiresAuth(t *testing.T) {
	e, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/tasks", strings.NewReader(`{"title":"x"}`))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestHealthzIsPublic(t *testing.T) {
	e, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestCreateTask(t *testing.T) {
	e, s := newTestServer(t)

	rec := do(e, http.MethodPost, "/tasks", `{"title":"  Buy milk  "}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp createTaskResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}

	got, err := s.GetTask(context.Background(), me, resp.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Title != "Buy milk" || got.Status != model.StatusTodo || got.Priority != model.PriorityMedium {
		t.Errorf("task = %+v", got)
	}
}

func TestCreateBlankTitleIsNoContent(t *testing.T) {
	e, s := newTestServer(t)

	rec := do(e, http.MethodPost, "/tasks", `{"title":"   "}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	tasks, _ := s.ListTasks(context.Background(), me, store.TaskQuery{IncludeArchived: true})
	if len(tasks) != 0 {
		t.Errorf("blank title created %d tasks", len(tasks))
	}
}

func TestCreateRejectsUnknownFields(t *testing.T) {
	e, _ := newTestServer(t)
	rec := do(e, http.MethodPost, "/tasks", `{"title":"x","owner":"someone"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestMoveTask(t *testing.T) {
	e, s := newTestServer(t)
	ctx := context.Background()
	id, err := s.CreateTask(ctx, me, model.TaskDraft{Title: "A"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	if rec := do(e, http.MethodPost, "/tasks/"+id+"/move", `{"from":"todo","to":"todo"}`); rec.Code != http.StatusNoContent {
		t.Errorf("same column: status = %d, want 204", rec.Code)
	}
	if rec := do(e, http.MethodPost, "/tasks/"+id+"/move", `{"from":"todo","to":"review"}`); rec.Code != http.StatusNoContent {
		t.Errorf("column not on personal board: status = %d, want 204", rec.Code)
	}
	if rec := do(e, http.MethodPost, "/tasks/"+id+"/move", `{"from":"todo","to":"done"}`); rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}

	got, _ := s.GetTask(ctx, me, id)
	if got.Status != model.StatusDone {
		t.Errorf("status = %q, want done", got.Status)
	}
}

func TestPatchAndDeleteTask(t *testing.T) {
	e, s := newTestServer(t)
	ctx := context.Background()
	id, err := s.CreateTask(ctx, me, model.TaskDraft{Title: "A"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	rec := do(e, http.MethodPatch, "/tasks/"+id, `{"title":"Renamed","priority":"high"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("patch status = %d, body %s", rec.Code, rec.Body.String())
	}
	got, _ := s.GetTask(ctx, me, id)
	if got.Title != "Renamed" || got.Priority != model.PriorityHigh {
		t.Errorf("task = %+v", got)
	}

	if rec := do(e, http.MethodPatch, "/tasks/missing", `{"title":"x"}`); rec.Code != http.StatusNotFound {
		t.Errorf("patch missing: status = %d, want 404", rec.Code)
	}

	if rec := do(e, http.MethodDelete, "/tasks/"+id, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if _, err := s.GetTask(ctx, me, id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("task survived delete: %v", err)
	}
	if rec := do(e, http.MethodDelete, "/tasks/"+id, ""); rec.Code != http.StatusNoContent {
		t.Errorf("second delete status = %d, want 204", rec.Code)
	}
}

func TestUnknownProjectIsNotFound(t *testing.T) {
	e, _ := newTestServer(t)
	rec := do(e, http.MethodPost, "/tasks?project=nope", `{"title":"x"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestProjectCommentsAndActivity(t *testing.T) {
	e, s := newTestServer(t)
	ctx := context.Background()
	pid, err := s.CreateProject(ctx, model.Project{UserID: "user-1", Name: "Launch"})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	rec := do(e, http.MethodPost, "/tasks?project="+pid, `{"title":"Plan"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created createTaskResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("invalid json: %v", err)
	}

	if rec := do(e, http.MethodPost, "/tasks/"+created.ID+"/comments?project="+pid, `{"text":"on it"}`); rec.Code != http.StatusCreated {
		t.Fatalf("comment status = %d", rec.Code)
	}

	rec = do(e, http.MethodGet, "/tasks/"+created.ID+"/comments?project="+pid, "")
	var comments []model.Comment
	if err := sonic.Unmarshal(rec.Body.Bytes(), &comments); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(comments) != 1 || comments[0].Author != "Ana" {
		t.Errorf("comments = %+v", comments)
	}

	rec = do(e, http.MethodGet, "/tasks/"+created.ID+"/activity?project="+pid, "")
	var entries []model.ActivityEntry
	if err := sonic.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != "task created" {
		t.Errorf("activity = %+v", entries)
	}
}

func TestStreamSendsViewFrames(t *testing.T) {
	e, s := newTestServer(t)
	ctx := context.Background()
	if _, err := s.CreateTask(ctx, me, model.TaskDraft{Title: "A"}); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	done, err := s.CreateTask(ctx, me, model.TaskDraft{Title: "B"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if err := s.UpdateTaskFields(ctx, me, done, model.StatusPatch(model.StatusDone)); err != nil {
		t.Fatalf("UpdateTaskFields: %v", err)
	}

	reqCtx, cancel := context.WithCancel(ctx)
	req := httptest.NewRequest(http.MethodGet, "/stream?token=good", nil).WithContext(reqCtx)
	rec := flushRecorder{httptest.NewRecorder()}

	finished := make(chan struct{})
	go func() {
		e.ServeHTTP(rec, req)
		close(finished)
	}()
	time.Sleep(200 * time.Millisecond)
	cancel()
	<-finished

	if ct := rec.Header().Get(echo.HeaderContentType); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "data: ") {
		t.Fatalf("body = %q", body)
	}
	frame := strings.TrimPrefix(strings.SplitN(body, "\n\n", 2)[0], "data: ")

	var view board.View
	if err := sonic.UnmarshalString(frame, &view); err != nil {
		t.Fatalf("invalid frame %q: %v", frame, err)
	}
	if view.Progress != 50 {
		t.Errorf("progress = %d, want 50", view.Progress)
	}
	if len(view.Columns) != 3 || len(view.Columns[0].Tasks) != 1 || len(view.Columns[2].Tasks) != 1 {
		t.Errorf("columns = %+v", view.Columns)
	}
}

func TestCreateWithInitialStatusOnProjectBoard(t *testing.T) {
	e, s := newTestServer(t)
	ctx := context.Background()
	pid, err := s.CreateProject(ctx, model.Project{UserID: "user-1", Name: "Launch"})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	rec := do(e, http.MethodPost, "/tasks?project="+pid, `{"title":"Check","status":"blocked"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created createTaskResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	scope := store.Scope{UserID: "user-1", ProjectID: pid}
	if got, _ := s.GetTask(ctx, scope, created.ID); got.Status != model.StatusBlocked {
		t.Errorf("status = %q, want blocked", got.Status)
	}

	rec = do(e, http.MethodPost, "/tasks", `{"title":"Mine","status":"blocked"}`)
	if err := sonic.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if got, _ := s.GetTask(ctx, me, created.ID); got.Status != model.StatusTodo {
		t.Errorf("personal status = %q, want todo", got.Status)
	}
}

func TestEditAndDeleteCommentRoutes(t *testing.T) {
	e, s := newTestServer(t)
	ctx := context.Background()
	taskID, err := s.CreateTask(ctx, me, model.TaskDraft{Title: "A"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	rec := do(e, http.MethodPost, "/tasks/"+taskID+"/comments", `{"text":"first"}`)
	var created createTaskResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	path := "/tasks/" + taskID + "/comments/" + created.ID

	if rec := do(e, http.MethodPatch, path, `{"text":" second "}`); rec.Code != http.StatusNoContent {
		t.Fatalf("edit status = %d", rec.Code)
	}
	if rec := do(e, http.MethodPatch, path, `{"text":"  "}`); rec.Code != http.StatusNoContent {
		t.Fatalf("blank edit status = %d", rec.Code)
	}
	comments, err := s.ListComments(ctx, "user-1", taskID)
	if err != nil {
		t.Fatalf("ListComments: %v", err)
	}
	if len(comments) != 1 || comments[0].Text != "second" {
		t.Fatalf("comments = %+v", comments)
	}

	if rec := do(e, http.MethodPatch, "/tasks/"+taskID+"/comments/nope", `{"text":"x"}`); rec.Code != http.StatusNotFound {
		t.Errorf("editing a missing comment = %d, want 404", rec.Code)
	}

	if rec := do(e, http.MethodDelete, path, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec := do(e, http.MethodDelete, path, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("second delete status = %d", rec.Code)
	}
	if comments, _ := s.ListComments(ctx, "user-1", taskID); len(comments) != 0 {
		t.Fatalf("comments after delete = %+v", comments)
	}
}

func TestUserActivityFeed(t *testing.T) {
	e, s := newTestServer(t)
	ctx := context.Background()
	taskID, err := s.CreateTask(ctx, me, model.TaskDraft{Title: "A"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	do(e, http.MethodPost, "/tasks/"+taskID+"/comments", `{"text":"one"}`)
	do(e, http.MethodPost, "/tasks/"+taskID+"/comments", `{"text":"two"}`)

	rec := do(e, http.MethodGet, "/activity?limit=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var entries []model.ActivityEntry
	if err := sonic.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(entries) != 1 || entries[0].Kind != model.ActivityKindComment || entries[0].Action != "comment added" {
		t.Fatalf("activity = %+v", entries)
	}

	if rec := do(e, http.MethodGet, "/activity?limit=lots", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}
}

func TestShutdownEndsOpenStreams(t *testing.T) {
	e, _ := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	e.Server.Handler = e
	go e.Server.Serve(ln)

	resp, err := http.Get("http://" + ln.Addr().String() + "/stream?token=good")
	if err != nil {
		t.Fatalf("GET /stream: %v", err)
	}
	defer resp.Body.Close()

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	if err != nil || !strings.HasPrefix(line, "data: ") {
		t.Fatalf("first line = %q, %v", line, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	start := time.Now()
	if err := e.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("shutdown waited %v for the open stream", elapsed)
	}
}
