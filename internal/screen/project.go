package screen

import (
	"sync"
	"time"

	"sitetrack/internal/model"
)

// Project drives the project detail screen, including the confirmed
// delete flow.
type Project struct {
	store Store
	sink  Sink

	Timeout time.Duration

	mu      sync.Mutex
	gen     uint64
	id      string
	phase   Phase
	submit  SubmitPhase
	project model.Project
	err     error
}

func NewProject(st Store, sink Sink) *Project {
	return &Project{store: st, sink: sink}
}

// Mount starts the fetch for the given project.
func (s *Project) Mount(id string) {
	s.load(id)
}

// SetID navigates this screen to a different project. An in-flight fetch
// for the old one is superseded; its result will be discarded on arrival.
func (s *Project) SetID(id string) {
	s.load(id)
}

// Retry refetches the current project after a failure.
func (s *Project) Retry() {
	s.mu.Lock()
	id := s.id
	s.mu.Unlock()
	s.load(id)
}

// Unmount discards whatever is still in flight.
func (s *Project) Unmount() {
	s.mu.Lock()
	s.gen++
	s.phase = Idle
	s.mu.Unlock()
}

// Phase returns the current fetch phase.
func (s *Project) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Current returns the loaded project.
func (s *Project) Current() model.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project
}

// Err returns the most recent failure.
func (s *Project) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Delete runs the destructive call. The UI must have collected the user's
// explicit confirmation first; the dialog is a decision point for the
// caller, not a state of this machine. Success ends in navigate-back;
// failure stays on the screen with the project data unchanged.
func (s *Project) Delete() {
	s.mu.Lock()
	if s.phase != Ready || s.submit == Submitting {
		s.mu.Unlock()
		return
	}
	s.submit = Submitting
	gen := s.gen
	id := s.id
	s.mu.Unlock()

	emit(s.sink, Event{Kind: EventSubmitting})
	go s.runDelete(gen, id)
}

func (s *Project) runDelete(gen uint64, id string) {
	ctx, cancel := callCtx(s.Timeout)
	defer cancel()

	err := s.store.DeleteProject(ctx, id)

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

func (s *Project) load(id string) {
	s.mu.Lock()
	s.id = id
	s.gen++
	gen := s.gen
	s.phase = Loading
	s.submit = SubmitIdle
	s.mu.Unlock()

	emit(s.sink, Event{Kind: EventLoading})
	go s.fetch(gen, id)
}

func (s *Project) fetch(gen uint64, id string) {
	ctx, cancel := callCtx(s.Timeout)
	defer cancel()

	p, err := s.store.FetchProject(ctx, id)

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
	s.project = p
	s.err = nil
	s.mu.Unlock()
	emit(s.sink, Event{Kind: EventReady})
}
