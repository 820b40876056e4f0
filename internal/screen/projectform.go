package screen

import (
	"sync"
	"time"

	"sitetrack/internal/validate"
)

// ProjectForm drives project create and edit. An empty id means create:
// the screen is Ready immediately and the insert is stamped with the
// signed-in owner. A non-empty id means edit: the row is fetched first to
// pre-fill the form, and the owner is never touched.
type ProjectForm struct {
	store Store
	ids   IdentitySource
	sink  Sink

	Timeout time.Duration

	mu     sync.Mutex
	gen    uint64
	id     string
	phase  Phase
	submit SubmitPhase
	form   validate.ProjectForm
	err    error
}

func NewProjectForm(st Store, ids IdentitySource, sink Sink) *ProjectForm {
	return &ProjectForm{store: st, ids: ids, sink: sink}
}

// Mount prepares the form. id selects edit mode; empty selects create.
func (s *ProjectForm) Mount(id string) {
	if id == "" {
		s.mu.Lock()
		s.id = ""
		s.gen++
		s.phase = Ready
		s.submit = SubmitIdle
		s.form = validate.ProjectForm{}
		s.mu.Unlock()
		emit(s.sink, Event{Kind: EventReady})
		return
	}
	s.load(id)
}

// Retry refetches the row being edited after a load failure.
func (s *ProjectForm) Retry() {
	s.mu.Lock()
	id := s.id
	s.mu.Unlock()
	if id != "" {
		s.load(id)
	}
}

// Unmount discards whatever is still in flight.
func (s *ProjectForm) Unmount() {
	s.mu.Lock()
	s.gen++
	s.phase = Idle
	s.mu.Unlock()
}

// Phase returns the current fetch phase.
func (s *ProjectForm) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Form returns the current field values. After a failed submit these are
// the exact values the user entered; nothing is lost on error.
func (s *ProjectForm) Form() validate.ProjectForm {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form
}

// Err returns the most recent failure.
func (s *ProjectForm) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Submit validates locally first: a bad field reports inline and makes no
// store call. A valid form goes to the store; on success the screen emits
// saved then navigate-back, on failure it keeps the entered values.
func (s *ProjectForm) Submit(form validate.ProjectForm) {
	s.mu.Lock()
	if s.phase != Ready || s.submit == Submitting {
		s.mu.Unlock()
		return
	}
	s.form = form
	s.mu.Unlock()

	if fe := validate.Project(form); fe != nil {
		emit(s.sink, Event{Kind: EventFieldInvalid, Field: fe})
		return
	}

	s.mu.Lock()
	s.submit = Submitting
	gen := s.gen
	id := s.id
	s.mu.Unlock()

	emit(s.sink, Event{Kind: EventSubmitting})
	go s.save(gen, id, form)
}

func (s *ProjectForm) save(gen uint64, id string, form validate.ProjectForm) {
	ctx, cancel := callCtx(s.Timeout)
	defer cancel()

	var err error
	if id == "" {
		ident, ierr := s.ids.Identity()
		if ierr != nil {
			err = ierr
		} else {
			_, err = s.store.CreateProject(ctx, projectInsert(form, ident.UserID))
		}
	} else {
		_, err = s.store.UpdateProject(ctx, id, projectUpdate(form, time.Now()))
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

func (s *ProjectForm) load(id string) {
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

func (s *ProjectForm) fetch(gen uint64, id string) {
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
	s.form = ProjectFormOf(p)
	s.err = nil
	s.mu.Unlock()
	emit(s.sink, Event{Kind: EventReady})
}
