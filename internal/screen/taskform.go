package screen

import (
	"sync"
	"time"

	"sitetrack/internal/model"
	"sitetrack/internal/validate"
)

// TaskForm drives task create and edit for one project. Mounting always
// loads the category list for the picker; in edit mode it loads the task
// row as well. Delete follows the same confirmed-by-caller contract as
// the project screen.
type TaskForm struct {
	store Store
	sink  Sink

	Timeout time.Duration

	mu         sync.Mutex
	gen        uint64
	projectID  string
	taskID     string
	phase      Phase
	submit     SubmitPhase
	form       validate.TaskForm
	categories []model.WorkCategory
	err        error
}

func NewTaskForm(st Store, sink Sink) *TaskForm {
	return &TaskForm{store: st, sink: sink}
}

// Mount prepares the form. An empty taskID selects create mode.
func (s *TaskForm) Mount(projectID, taskID string) {
	s.load(projectID, taskID)
}

// Retry reloads after a failure.
func (s *TaskForm) Retry() {
	s.mu.Lock()
	projectID, taskID := s.projectID, s.taskID
	s.mu.Unlock()
	s.load(projectID, taskID)
}

// Unmount discards whatever is still in flight.
func (s *TaskForm) Unmount() {
	s.mu.Lock()
	s.gen++
	s.phase = Idle
	s.mu.Unlock()
}

// Phase returns the current fetch phase.
func (s *TaskForm) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Form returns the current field values, preserved across failed submits.
func (s *TaskForm) Form() validate.TaskForm {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form
}

// Categories returns the picker options loaded on mount.
func (s *TaskForm) Categories() []model.WorkCategory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.categories
}

// Err returns the most recent failure.
func (s *TaskForm) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Submit validates locally, then creates or updates. A dangling category
// reference comes back from the store as a constraint error and lands in
// SubmitFailed like any other store rejection.
func (s *TaskForm) Submit(form validate.TaskForm) {
	s.mu.Lock()
	if s.phase != Ready || s.submit == Submitting {
		s.mu.Unlock()
		return
	}
	s.form = form
	s.mu.Unlock()

	if fe := validate.Task(form); fe != nil {
		emit(s.sink, Event{Kind: EventFieldInvalid, Field: fe})
		return
	}

	s.mu.Lock()
	s.submit = Submitting
	gen := s.gen
	projectID, taskID := s.projectID, s.taskID
	s.mu.Unlock()

	emit(s.sink, Event{Kind: EventSubmitting})
	go s.save(gen, projectID, taskID, form)
}

// Delete removes the task being edited. Caller confirmation must precede
// the call. No-op in create mode.
func (s *TaskForm) Delete() {
	s.mu.Lock()
	if s.phase != Ready || s.submit == Submitting || s.taskID == "" {
		s.mu.Unlock()
		return
	}
	s.submit = Submitting
	gen := s.gen
	taskID := s.taskID
	s.mu.Unlock()

	emit(s.sink, Event{Kind: EventSubmitting})
	go s.runDelete(gen, taskID)
}

func (s *TaskForm) save(gen uint64, projectID, taskID string, form validate.TaskForm) {
	ctx, cancel := callCtx(s.Timeout)
	defer cancel()

	var err error
	if taskID == "" {
		_, err = s.store.CreateTask(ctx, taskInsert(form, projectID))
	} else {
		_, err = s.store.UpdateTask(ctx, taskID, taskUpdate(form, time.Now()))
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.submit = SubmitFailed
		s.err = err
		s.mu.Unlock()
		emit(s.sink, failEvent(EventSubmitFailed, err))
		return
	}
	s.submit = SubmitIdle
	s.err = nil
	s.mu.Unlock()
	emit(s.sink, Event{Kind: EventSaved})
	emit(s.sink, Event{Kind: EventNavigateBack})
}

func (s *TaskForm) runDelete(gen uint64, taskID string) {
	ctx, cancel := callCtx(s.Timeout)
	defer cancel()

	err := s.store.DeleteTask(ctx, taskID)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.submit = SubmitFailed
		s.err = err
		s.mu.Unlock()
		emit(s.sink, failEvent(EventSubmitFailed, err))
		return
	}
	s.submit = SubmitIdle
	s.mu.Unlock()
	emit(s.sink, Event{Kind: EventNavigateBack})
}

func (s *TaskForm) load(projectID, taskID string) {
	s.mu.Lock()
	s.projectID = projectID
	s.taskID = taskID
	s.gen++
	gen := s.gen
	s.phase = Loading
	s.submit = SubmitIdle
	s.mu.Unlock()

	emit(s.sink, Event{Kind: EventLoading})
	go s.fetch(gen, taskID)
}

func (s *TaskForm) fetch(gen uint64, taskID string) {
	ctx, cancel := callCtx(s.Timeout)
	defer cancel()

	categories, err := s.store.ListCategories(ctx)

	var form validate.TaskForm
	if err == nil && taskID != "" {
		var row model.TaskWithCategory
		row, err = s.store.FetchTask(ctx, taskID)
		if err == nil {
			form = TaskFormOf(row.Task)
		}
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.phase = LoadFailed
		s.err = err
		s.mu.Unlock()
		emit(s.sink, failEvent(EventLoadFailed, err))
		return
	}
	s.phase = Ready
	s.categories = categories
	s.form = form
	s.err = nil
	s.mu.Unlock()
	emit(s.sink, Event{Kind: EventReady})
}
