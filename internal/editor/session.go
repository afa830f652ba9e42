// Package editor implements the editing session of a maintenance record:
// local form and checklist state, and the load, save and delete transitions
// around a Store.
package editor

import (
	"context"
	"errors"
	"fmt"

	"github.com/localnerve/maintdb/internal/checklist"
	"github.com/localnerve/maintdb/internal/forms"
	"github.com/localnerve/maintdb/internal/models"
	"github.com/localnerve/maintdb/internal/services"
	"github.com/localnerve/maintdb/internal/types"
	"go.uber.org/zap"
)

// State is the lifecycle position of a Session.
type State string

const (
	StateLoading        State = "loading"
	StateHydrated       State = "hydrated"
	StateDirty          State = "dirty"
	StateSaving         State = "saving"
	StateDirtyWithError State = "dirty_with_error"
	StateDeleting       State = "deleting"
	StateClosed         State = "closed"
)

var (
	ErrClosed   = errors.New("editing session is closed")
	ErrBusy     = errors.New("editing session has an operation in flight")
	ErrNotSaved = errors.New("record has not been saved")
)

// Store persists maintenance records. services.MaintenanceStore is the
// database implementation.
type Store interface {
	Load(ctx context.Context, id string) (*services.MaintenanceRecord, error)
	Create(ctx context.Context, form forms.MaintenanceForm, tasks []checklist.Task) (*services.MaintenanceRecord, error)
	Update(ctx context.Context, id string, version uint64, form forms.MaintenanceForm, tasks []checklist.Task) (*services.MaintenanceRecord, error)
	Delete(ctx context.Context, id string) error
}

// Option configures a Session.
type Option func(*Session)

// WithAutoSave saves an existing record after every checklist mutation.
func WithAutoSave(on bool) Option {
	return func(s *Session) {
		s.autoSave = on
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Session holds one editor's view of a maintenance record. It is not safe
// for concurrent use; each request or editor gets its own.
type Session struct {
	store    Store
	logger   *zap.Logger
	autoSave bool

	state   State
	err     error
	id      string
	version uint64
	form    forms.MaintenanceForm
	tasks   *checklist.Collection
	saved   *services.MaintenanceRecord
}

func newSession(store Store, opts []Option) *Session {
	s := &Session{
		store:  store,
		logger: zap.NewNop(),
		tasks:  checklist.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// New starts a session for a record that does not exist yet.
func New(store Store, opts ...Option) *Session {
	s := newSession(store, opts)
	s.state = StateHydrated
	return s
}

// Open loads the record id and starts a session on it.
func Open(ctx context.Context, store Store, id string, opts ...Option) (*Session, error) {
	s := newSession(store, opts)
	s.state = StateLoading

	rec, err := store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.hydrate(rec)
	return s, nil
}

func (s *Session) hydrate(rec *services.MaintenanceRecord) {
	s.id = rec.ID
	s.version = rec.Version
	s.form = rec.MaintenanceForm
	s.tasks = rec.Checklist()
	s.saved = rec
	s.err = nil
	s.transition(StateHydrated)
}

func (s *Session) transition(to State) {
	if s.state != to {
		s.logger.Debug("editing session transition",
			zap.String("id", s.id),
			zap.String("from", string(s.state)),
			zap.String("to", string(to)),
		)
	}
	s.state = to
}

func (s *Session) State() State { return s.state }

// Err is the error of the last failed save or delete.
func (s *Session) Err() error { return s.err }

func (s *Session) ID() string { return s.id }

func (s *Session) Version() uint64 { return s.version }

func (s *Session) Form() forms.MaintenanceForm { return s.form }

func (s *Session) Tasks() []checklist.Task { return s.tasks.Tasks() }

func (s *Session) Progress() int { return s.tasks.Progress() }

// Status is the maintenance status the current checklist implies.
func (s *Session) Status() string {
	if s.tasks.Done() {
		return models.StatusCompleted
	}
	return models.StatusInProgress
}

// Saved returns the record as last loaded or saved.
func (s *Session) Saved() *services.MaintenanceRecord { return s.saved }

// ExpectVersion sets the version the next save is based on, for clients that
// edited a copy they read earlier.
func (s *Session) ExpectVersion(v uint64) { s.version = v }

func (s *Session) mutable() error {
	switch s.state {
	case StateClosed:
		return ErrClosed
	case StateLoading, StateSaving, StateDeleting:
		return ErrBusy
	}
	return nil
}

// markDirty keeps the error of a failed save until the next save succeeds.
func (s *Session) markDirty() {
	s.transition(StateDirty)
}

// afterTaskChange marks the session dirty and saves when auto-save applies.
func (s *Session) afterTaskChange(ctx context.Context) error {
	s.markDirty()
	if s.autoSave && s.id != "" {
		return s.Save(ctx)
	}
	return nil
}

// SetForm replaces the scalar fields.
func (s *Session) SetForm(form forms.MaintenanceForm) error {
	if err := s.mutable(); err != nil {
		return err
	}
	s.form = form
	s.markDirty()
	return nil
}

// ReplaceTasks replaces the whole checklist.
func (s *Session) ReplaceTasks(tasks []checklist.Task) error {
	if err := s.mutable(); err != nil {
		return err
	}
	s.tasks = checklist.New(tasks...)
	s.markDirty()
	return nil
}

// AddTask appends a task. Blank text is a validation error and changes nothing.
func (s *Session) AddTask(ctx context.Context, text string) (checklist.Task, error) {
	if err := s.mutable(); err != nil {
		return checklist.Task{}, err
	}
	task, ok := s.tasks.Add(text)
	if !ok {
		return checklist.Task{}, types.Invalid("text", checklist.ErrEmptyText.Error())
	}
	return task, s.afterTaskChange(ctx)
}

// ToggleTask sets the completion of task id.
func (s *Session) ToggleTask(ctx context.Context, id string, completed bool) error {
	if err := s.mutable(); err != nil {
		return err
	}
	if !s.tasks.Toggle(id, completed) {
		return taskNotFound(id)
	}
	return s.afterTaskChange(ctx)
}

// EditTask renames task id, keeping its completion.
func (s *Session) EditTask(ctx context.Context, id, text string) error {
	if err := s.mutable(); err != nil {
		return err
	}
	switch err := s.tasks.Edit(id, text); {
	case errors.Is(err, checklist.ErrEmptyText):
		return types.Invalid("text", err.Error())
	case errors.Is(err, checklist.ErrTaskNotFound):
		return taskNotFound(id)
	case err != nil:
		return err
	}
	return s.afterTaskChange(ctx)
}

// DeleteTask removes task id.
func (s *Session) DeleteTask(ctx context.Context, id string) error {
	if err := s.mutable(); err != nil {
		return err
	}
	if !s.tasks.Delete(id) {
		return taskNotFound(id)
	}
	return s.afterTaskChange(ctx)
}

// ReorderTasks moves the task at from to index to.
func (s *Session) ReorderTasks(ctx context.Context, from, to int) error {
	if err := s.mutable(); err != nil {
		return err
	}
	if err := s.tasks.Reorder(from, to); err != nil {
		return types.Invalid("index", fmt.Sprintf("%v: from %d to %d", err, from, to))
	}
	if from == to {
		return nil
	}
	return s.afterTaskChange(ctx)
}

// Save validates the form locally and then creates or updates the record.
// Invalid input leaves the state unchanged without calling the store. A store
// failure keeps the local edits and moves to dirty_with_error; a cancelled
// call goes back to dirty without recording an error.
func (s *Session) Save(ctx context.Context) error {
	if err := s.mutable(); err != nil {
		return err
	}
	if err := s.form.Validate(); err != nil {
		return err
	}
	if s.state == StateHydrated && s.id != "" {
		return nil
	}

	s.transition(StateSaving)

	var (
		rec *services.MaintenanceRecord
		err error
	)
	tasks := s.tasks.Tasks()
	if s.id == "" {
		rec, err = s.store.Create(ctx, s.form, tasks)
	} else {
		rec, err = s.store.Update(ctx, s.id, s.version, s.form, tasks)
	}

	if err != nil {
		if errors.Is(err, types.ErrCancelled) {
			s.transition(StateDirty)
			return err
		}
		s.err = err
		s.transition(StateDirtyWithError)
		s.logger.Warn("maintenance save failed", zap.String("id", s.id), zap.Error(err))
		return err
	}

	s.hydrate(rec)
	return nil
}

// Delete removes the saved record and closes the session. On failure the
// session returns to its previous state with the error recorded.
func (s *Session) Delete(ctx context.Context) error {
	if err := s.mutable(); err != nil {
		return err
	}
	if s.id == "" {
		return ErrNotSaved
	}

	prev := s.state
	s.transition(StateDeleting)

	if err := s.store.Delete(ctx, s.id); err != nil {
		if !errors.Is(err, types.ErrCancelled) {
			s.err = err
			s.logger.Warn("maintenance delete failed", zap.String("id", s.id), zap.Error(err))
		}
		s.transition(prev)
		return err
	}

	s.transition(StateClosed)
	return nil
}

func taskNotFound(id string) error {
	return fmt.Errorf("task %s: %w", id, types.ErrNotFound)
}
