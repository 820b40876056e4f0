package screen

import (
	"sync"
	"time"

	"sitetrack/internal/model"
)

// ProjectList drives the projects tab: fetch on mount, refresh on demand.
type ProjectList struct {
	store Store
	sink  Sink

	// Timeout overrides DefaultTimeout when positive. Set before Mount.
	Timeout time.Duration

	mu       sync.Mutex
	gen      uint64
	phase    Phase
	projects []model.Project
	err      error
}

func NewProjectList(st Store, sink Sink) *ProjectList {
	return &ProjectList{store: st, sink: sink}
}

// Mount starts the initial fetch.
func (s *ProjectList) Mount() {
	s.load()
}

// Refresh refetches, superseding any fetch still in flight.
func (s *ProjectList) Refresh() {
	s.load()
}

// Retry re-enters Loading after a failure.
func (s *ProjectList) Retry() {
	s.load()
}

// Unmount discards whatever is still in flight.
func (s *ProjectList) Unmount() {
	s.mu.Lock()
	s.gen++
	s.phase = Idle
	s.mu.Unlock()
}

// Phase returns the current fetch phase.
func (s *ProjectList) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Projects returns the last successfully loaded list.
func (s *ProjectList) Projects() []model.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projects
}

// Err returns the load error when phase is LoadFailed.
func (s *ProjectList) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *ProjectList) load() {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.phase = Loading
	s.mu.Unlock()

	emit(s.sink, Event{Kind: EventLoading})
	go s.fetch(gen)
}

func (s *ProjectList) fetch(gen uint64) {
	ctx, cancel := callCtx(s.Timeout)
	defer cancel()

	projects, err := s.store.ListProjects(ctx)

	s.mu.Lock()
	if gen != s.gen {
		// Superseded while in flight; drop the result.
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
	s.projects = projects
	s.err = nil
	s.mu.Unlock()
	emit(s.sink, Event{Kind: EventReady})
}
