package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nhle/crafthub/internal/model"
)

// MongoStore implements the Store interface on top of MongoDB, with one
// collection per record type.
type MongoStore struct {
	client     *mongo.Client
	tasks      *mongo.Collection
	projects   *mongo.Collection
	comments   *mongo.Collection
	activities *mongo.Collection
	now        func() time.Time
}

var _ Store = (*MongoStore)(nil)

// NewMongoStore connects to uri, pings the server and ensures indexes.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:     client,
		tasks:      db.Collection("tasks"),
		projects:   db.Collection("projects"),
		comments:   db.Collection("comments"),
		activities: db.Collection("activity"),
		// Mongo stores dates with millisecond precision.
		now: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}

	if err := s.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.tasks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "project_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("creating task index: %w", err)
	}
	_, err = s.activities.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("creating activity index: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func scopeFilter(scope Scope) bson.M {
	return bson.M{"user_id": scope.UserID, "project_id": scope.ProjectID}
}

func (s *MongoStore) CreateTask(ctx context.Context, scope Scope, draft model.TaskDraft) (string, error) {
	if !scope.Valid() {
		return "", fmt.Errorf("creating task: missing user")
	}
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return "", fmt.Errorf("task title must not be empty")
	}
	status, _ := model.ParseStatus(string(draft.Status))
	priority := draft.Priority
	if !priority.Valid() {
		priority = model.PriorityMedium
	}

	now := s.now()
	var last model.Task
	err := s.tasks.FindOne(ctx, scopeFilter(scope),
		options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	).Decode(&last)
	switch {
	case err == nil:
		if !now.After(last.CreatedAt) {
			now = last.CreatedAt.Add(time.Millisecond)
		}
	case !errors.Is(err, mongo.ErrNoDocuments):
		return "", fmt.Errorf("reading latest task time: %w", err)
	}

	task := model.Task{
		ID:          uuid.New().String(),
		UserID:      scope.UserID,
		ProjectID:   scope.ProjectID,
		Title:       title,
		Description: draft.Description,
		Status:      status,
		Priority:    priority,
		DueDate:     draft.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.tasks.InsertOne(ctx, task); err != nil {
		return "", fmt.Errorf("creating task: %w", err)
	}
	return task.ID, nil
}

func (s *MongoStore) UpdateTaskFields(ctx context.Context, scope Scope, id string, patch model.TaskPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	set := bson.M{"updated_at": s.now()}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return fmt.Errorf("task title must not be empty")
		}
		set["title"] = title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Status != nil {
		set["status"] = string(*patch.Status)
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return fmt.Errorf("invalid priority %q", *patch.Priority)
		}
		set["priority"] = string(*patch.Priority)
	}
	if patch.Archived != nil {
		set["archived"] = *patch.Archived
	}
	if patch.DueDate != nil {
		set["due_date"] = *patch.DueDate
	}

	filter := scopeFilter(scope)
	filter["_id"] = id
	result, err := s.tasks.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("updating task %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *MongoStore) DeleteTask(ctx context.Context, scope Scope, id string) error {
	filter := scopeFilter(scope)
	filter["_id"] = id
	result, err := s.tasks.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if _, err := s.comments.DeleteMany(ctx, bson.M{"task_id": id, "user_id": scope.UserID}); err != nil {
		return fmt.Errorf("deleting comments of task %s: %w", id, err)
	}
	return nil
}

func (s *MongoStore) GetTask(ctx context.Context, scope Scope, id string) (*model.Task, error) {
	filter := scopeFilter(scope)
	filter["_id"] = id
	var t model.Task
	err := s.tasks.FindOne(ctx, filter).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	}
	return &t, nil
}

func (s *MongoStore) ListTasks(ctx context.Context, scope Scope, q TaskQuery) ([]model.Task, error) {
	filter := scopeFilter(scope)
	if !q.IncludeArchived {
		filter["archived"] = false
	}
	cursor, err := s.tasks.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer cursor.Close(ctx)

	tasks := []model.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("decoding tasks: %w", err)
	}
	return tasks, nil
}

func (s *MongoStore) CreateProject(ctx context.Context, project model.Project) (string, error) {
	if project.UserID == "" {
		return "", fmt.Errorf("creating project: missing user")
	}
	project.Name = strings.TrimSpace(project.Name)
	if project.Name == "" {
		return "", fmt.Errorf("project name must not be empty")
	}
	if project.ID == "" {
		project.ID = uuid.New().String()
	}
	project.CreatedAt = s.now()
	project.UpdatedAt = project.CreatedAt

	if _, err := s.projects.InsertOne(ctx, project); err != nil {
		return "", fmt.Errorf("creating project: %w", err)
	}
	return project.ID, nil
}

func (s *MongoStore) UpdateProject(ctx context.Context, project model.Project) error {
	project.Name = strings.TrimSpace(project.Name)
	if project.Name == "" {
		return fmt.Errorf("project name must not be empty")
	}
	result, err := s.projects.UpdateOne(ctx,
		bson.M{"_id": project.ID, "user_id": project.UserID},
		bson.M{"$set": bson.M{
			"name":        project.Name,
			"description": project.Description,
			"archived":    project.Archived,
			"updated_at":  s.now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("updating project %s: %w", project.ID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("project %s: %w", project.ID, ErrNotFound)
	}
	return nil
}

func (s *MongoStore) DeleteProject(ctx context.Context, userID, id string) error {
	result, err := s.projects.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return fmt.Errorf("deleting project %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if _, err := s.tasks.DeleteMany(ctx, bson.M{"user_id": userID, "project_id": id}); err != nil {
		return fmt.Errorf("deleting tasks of project %s: %w", id, err)
	}
	return nil
}

func (s *MongoStore) GetProject(ctx context.Context, userID, id string) (*model.Project, error) {
	var p model.Project
	err := s.projects.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting project %s: %w", id, err)
	}
	return &p, nil
}

func (s *MongoStore) ListProjects(ctx context.Context, userID string, includeArchived bool) ([]model.Project, error) {
	filter := bson.M{"user_id": userID}
	if !includeArchived {
		filter["archived"] = false
	}
	cursor, err := s.projects.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	defer cursor.Close(ctx)

	projects := []model.Project{}
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, fmt.Errorf("decoding projects: %w", err)
	}
	return projects, nil
}

func (s *MongoStore) AddComment(ctx context.Context, comment model.Comment) (string, error) {
	comment.Text = strings.TrimSpace(comment.Text)
	if comment.Text == "" {
		return "", fmt.Errorf("comment text must not be empty")
	}
	n, err := s.tasks.CountDocuments(ctx, bson.M{"_id": comment.TaskID, "user_id": comment.UserID})
	if err != nil {
		return "", fmt.Errorf("checking task %s: %w", comment.TaskID, err)
	}
	if n == 0 {
		return "", fmt.Errorf("task %s: %w", comment.TaskID, ErrNotFound)
	}

	comment.ID = uuid.New().String()
	comment.CreatedAt = s.now()
	comment.UpdatedAt = comment.CreatedAt
	if _, err := s.comments.InsertOne(ctx, comment); err != nil {
		return "", fmt.Errorf("adding comment: %w", err)
	}
	return comment.ID, nil
}

func (s *MongoStore) UpdateComment(ctx context.Context, userID, id, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("comment text must not be empty")
	}
	result, err := s.comments.UpdateOne(ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": bson.M{"text": text, "updated_at": s.now()}},
	)
	if err != nil {
		return fmt.Errorf("updating comment %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *MongoStore) DeleteComment(ctx context.Context, userID, id string) error {
	result, err := s.comments.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return fmt.Errorf("deleting comment %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *MongoStore) ListComments(ctx context.Context, userID, taskID string) ([]model.Comment, error) {
	cursor, err := s.comments.Find(ctx, bson.M{"task_id": taskID, "user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("querying comments: %w", err)
	}
	defer cursor.Close(ctx)

	comments := []model.Comment{}
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, fmt.Errorf("decoding comments: %w", err)
	}
	return comments, nil
}

func (s *MongoStore) AppendActivity(ctx context.Context, entry model.ActivityEntry) error {
	if entry.UserID == "" || entry.Action == "" {
		return fmt.Errorf("activity entry needs a user and an action")
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Kind == "" {
		entry.Kind = model.ActivityKindTask
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	if _, err := s.activities.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("appending activity: %w", err)
	}
	return nil
}

func (s *MongoStore) ListTaskActivity(ctx context.Context, userID, taskID string) ([]model.ActivityEntry, error) {
	return s.findActivity(ctx, bson.M{"user_id": userID, "task_id": taskID}, 0)
}

func (s *MongoStore) ListUserActivity(ctx context.Context, userID string, limit int) ([]model.ActivityEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.findActivity(ctx, bson.M{"user_id": userID}, int64(limit))
}

func (s *MongoStore) findActivity(ctx context.Context, filter bson.M, limit int64) ([]model.ActivityEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := s.activities.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("querying activity: %w", err)
	}
	defer cursor.Close(ctx)

	entries := []model.ActivityEntry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decoding activity: %w", err)
	}
	return entries, nil
}
