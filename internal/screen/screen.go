// Package screen holds the per-screen orchestrators that sit between the
// UI and the store. Each screen instance owns a private state machine
// driven by lifecycle events (mount, identifier change, submit, confirmed
// delete, unmount) and reports back through a Sink. One store call is
// outstanding at a time; a newer request supersedes an in-flight one, and
// the stale result is discarded when it lands.
package screen

import (
	"context"
	"time"

	"sitetrack/internal/model"
	"sitetrack/internal/session"
	"sitetrack/internal/store"
	"sitetrack/internal/validate"
)

// Phase is the fetch lifecycle of a screen.
type Phase int

const (
	Idle Phase = iota
	Loading
	Ready
	LoadFailed
)

// SubmitPhase is the independent submit lifecycle of form screens.
type SubmitPhase int

const (
	SubmitIdle SubmitPhase = iota
	Submitting
	SubmitFailed
)

// EventKind names the signals a screen emits to its UI.
type EventKind int

const (
	// EventLoading: a fetch started; render a spinner.
	EventLoading EventKind = iota
	// EventReady: data arrived; read it off the screen's accessors.
	EventReady
	// EventLoadFailed: the fetch failed; offer retry or navigate-back.
	EventLoadFailed
	// EventSubmitting: a write is in flight.
	EventSubmitting
	// EventFieldInvalid: local validation blocked the submit; no store
	// call was made and the screen is still Ready.
	EventFieldInvalid
	// EventSubmitFailed: the store rejected the write; entered field
	// values are preserved.
	EventSubmitFailed
	// EventSaved: the write was acknowledged.
	EventSaved
	// EventNavigateBack: the screen is done; return to the parent list.
	EventNavigateBack
	// EventRequireSignIn: the session is gone; redirect to sign-in,
	// superseding whatever else the screen was doing.
	EventRequireSignIn
)

// Event is one signal to the UI. Err is set for the failure kinds, Field
// for EventFieldInvalid.
type Event struct {
	Kind  EventKind
	Err   error
	Field *validate.FieldError
}

// Sink consumes a screen's signals. Screens call it from their own
// goroutines; implementations marshal onto the UI thread as needed.
type Sink func(Event)

// Store is the slice of the remote store client the screens consume.
// *store.Client satisfies it; tests substitute fakes.
type Store interface {
	ListProjects(ctx context.Context) ([]model.Project, error)
	FetchProject(ctx context.Context, id string) (model.Project, error)
	CreateProject(ctx context.Context, ins store.ProjectInsert) (model.Project, error)
	UpdateProject(ctx context.Context, id string, upd store.ProjectUpdate) (model.Project, error)
	DeleteProject(ctx context.Context, id string) error
	FetchTasks(ctx context.Context, projectID string) ([]model.TaskWithCategory, error)
	FetchTask(ctx context.Context, id string) (model.TaskWithCategory, error)
	CreateTask(ctx context.Context, ins store.TaskInsert) (model.Task, error)
	UpdateTask(ctx context.Context, id string, upd store.TaskUpdate) (model.Task, error)
	DeleteTask(ctx context.Context, id string) error
	ListCategories(ctx context.Context) ([]model.WorkCategory, error)
}

// IdentitySource supplies the signed-in identity for owner-stamped
// inserts. *session.Guard satisfies it.
type IdentitySource interface {
	Identity() (session.Identity, error)
}

// DefaultTimeout bounds each store call made by a screen. The source
// backend specifies none; an expired deadline surfaces as a transport
// error like any other network failure.
const DefaultTimeout = 30 * time.Second

func callCtx(d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(context.Background(), d)
}

// emit guards against a nil sink so screens are usable headless.
func emit(sink Sink, ev Event) {
	if sink != nil {
		sink(ev)
	}
}

// failEvent picks the signal for a failed call: a dead session always
// redirects to sign-in, everything else keeps its lane.
func failEvent(kind EventKind, err error) Event {
	if store.IsUnauthenticated(err) {
		return Event{Kind: EventRequireSignIn, Err: err}
	}
	return Event{Kind: kind, Err: err}
}
