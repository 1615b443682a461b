package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/nhle/crafthub/internal/model"
	"github.com/nhle/crafthub/internal/store"
)

// ErrNoUser is returned when a collection is opened without a user scope.
var ErrNoUser = errors.New("collection scope has no user")

const (
	defaultResync   = 30 * time.Second
	defaultFailures = 3

	// fetchTimeout bounds a single snapshot read.
	fetchTimeout = 15 * time.Second
)

// Query filters the tasks a subscription delivers.
type Query struct {
	IncludeArchived bool
}

// Options configures a Collection. Zero values fall back to defaults.
type Options struct {
	Notifier        Notifier
	Logger          *logrus.Logger
	ResyncInterval  time.Duration
	BreakerFailures int
}

// Collection is one user's task collection (personal board or a project
// board) bound to its store, notifier and circuit breaker.
type Collection struct {
	scope    store.Scope
	store    store.Store
	notifier Notifier
	breaker  *gobreaker.CircuitBreaker
	log      *logrus.Entry
	resync   time.Duration
}

// NewCollection binds scope to s.
func NewCollection(s store.Store, scope store.Scope, opts Options) (*Collection, error) {
	if !scope.Valid() {
		return nil, ErrNoUser
	}
	if opts.Notifier == nil {
		opts.Notifier = NewMemoryNotifier()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.ResyncInterval <= 0 {
		opts.ResyncInterval = defaultResync
	}
	if opts.BreakerFailures <= 0 {
		opts.BreakerFailures = defaultFailures
	}

	log := opts.Logger.WithFields(logrus.Fields{
		"user_id":    scope.UserID,
		"project_id": scope.ProjectID,
	})
	failures := uint32(opts.BreakerFailures)

	return &Collection{
		scope:    scope,
		store:    s,
		notifier: opts.Notifier,
		log:      log,
		resync:   opts.ResyncInterval,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        scope.Topic(),
			MaxRequests: 1,
			Timeout:     5 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, store.ErrNotFound) || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Infof("circuit breaker %s changed from %s to %s", name, from, to)
			},
		}),
	}, nil
}

// Scope returns the collection's address.
func (c *Collection) Scope() store.Scope { return c.scope }

// Create inserts a task and returns its store-assigned ID.
func (c *Collection) Create(ctx context.Context, draft model.TaskDraft) (string, error) {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.store.CreateTask(ctx, c.scope, draft)
	})
	if err != nil {
		return "", fmt.Errorf("create task: %w", err)
	}
	c.changed(ctx)
	return res.(string), nil
}

// UpdateFields writes only the fields present in patch.
func (c *Collection) UpdateFields(ctx context.Context, id string, patch model.TaskPatch) error {
	if patch.IsEmpty() {
		return nil
	}
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.store.UpdateTaskFields(ctx, c.scope, id, patch)
	})
	if err != nil {
		return fmt.Errorf("update task %s: %w", id, err)
	}
	c.changed(ctx)
	return nil
}

// Delete removes a task by ID.
func (c *Collection) Delete(ctx context.Context, id string) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.store.DeleteTask(ctx, c.scope, id)
	})
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	c.changed(ctx)
	return nil
}

// Subscribe starts a live snapshot stream. The caller must Close it.
func (c *Collection) Subscribe(ctx context.Context, q Query) (*Subscription, error) {
	signals, unsubscribe, err := c.notifier.Subscribe(ctx, c.scope.Topic())
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", c.scope.Topic(), err)
	}
	return startSubscription(ctx, c, q, signals, unsubscribe), nil
}

func (c *Collection) fetch(ctx context.Context, q Query) ([]model.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.store.ListTasks(ctx, c.scope, store.TaskQuery{IncludeArchived: q.IncludeArchived})
	})
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	return res.([]model.Task), nil
}

// changed publishes the collection topic. Failures are logged only; the
// resync tick covers missed signals.
func (c *Collection) changed(ctx context.Context) {
	if err := c.notifier.Publish(context.WithoutCancel(ctx), c.scope.Topic()); err != nil {
		c.log.WithError(err).Warn("publishing change")
	}
}
