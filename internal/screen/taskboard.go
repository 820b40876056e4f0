package screen

import (
	"sync"
	"time"

	"sitetrack/internal/grouping"
)

// TaskBoard drives the per-project task view: fetch the category-joined
// tasks, group them, render sections. Each successful fetch replaces the
// whole grouping atomically.
type TaskBoard struct {
	store Store
	sink  Sink

	Timeout time.Duration

	mu        sync.Mutex
	gen       uint64
	projectID string
	phase     Phase
	view      grouping.View
	err       error
}

func NewTaskBoard(st Store, sink Sink) *TaskBoard {
	return &TaskBoard{store: st, sink: sink}
}

// Mount starts the fetch for the given project's tasks.
func (s *TaskBoard) Mount(projectID string) {
	s.load(projectID)
}

// SetProject navigates the board to a different project, superseding any
// fetch still in flight.
func (s *TaskBoard) SetProject(projectID string) {
	s.load(projectID)
}

// Refresh refetches the current project's tasks.
func (s *TaskBoard) Refresh() {
	s.mu.Lock()
	id := s.projectID
	s.mu.Unlock()
	s.load(id)
}

// Retry is Refresh under another name, offered after LoadFailed.
func (s *TaskBoard) Retry() {
	s.Refresh()
}

// Unmount discards whatever is still in flight.
func (s *TaskBoard) Unmount() {
	s.mu.Lock()
	s.gen++
	s.phase = Idle
	s.mu.Unlock()
}

// Phase returns the current fetch phase.
func (s *TaskBoard) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// View returns the last successfully built grouping.
func (s *TaskBoard) View() grouping.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Err returns the load error when phase is LoadFailed.
func (s *TaskBoard) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *TaskBoard) load(projectID string) {
	s.mu.Lock()
	s.projectID = projectID
	s.gen++
	gen := s.gen
	s.phase = Loading
	s.mu.Unlock()

	emit(s.sink, Event{Kind: EventLoading})
	go s.fetch(gen, projectID)
}

func (s *TaskBoard) fetch(gen uint64, projectID string) {
	ctx, cancel := callCtx(s.Timeout)
	defer cancel()

	tasks, err := s.store.FetchTasks(ctx, projectID)

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
	s.view = grouping.Group(tasks)
	s.err = nil
	s.mu.Unlock()
	emit(s.sink, Event{Kind: EventReady})
}
