package console

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/boostly/backend/internal/review"
)

// ModalState is the confirmation modal's position in its cycle.
type ModalState string

const (
	ModalClosed     ModalState = "closed"
	ModalOpen       ModalState = "open"
	ModalSubmitting ModalState = "submitting"
)

// Action is the decision the open modal will submit.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// ErrSubmitInFlight is returned when Submit is called while a prior submit
// has not resolved.
var ErrSubmitInFlight = errors.New("a decision is already in flight")

// Decider is the executor surface the modal drives.
type Decider interface {
	Approve(ctx context.Context, id uuid.UUID, notes string) (*review.TaskDetail, error)
	Reject(ctx context.Context, id uuid.UUID, reason, notes string) (*review.TaskDetail, error)
}

// Notifier receives the transient outcome notifications. Rendering is the
// caller's concern.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Invalidator drops the review queue's cached pages for its active filters.
type Invalidator interface {
	Invalidate()
}

// Modal is the confirmation gate in front of a decision. Cycle:
// closed -> open -> submitting -> closed on success, or back to open with
// the draft preserved on failure. Reusable; it returns to closed after
// every completed cycle.
type Modal struct {
	exec     Decider
	queue    Invalidator
	notifier Notifier

	mu            sync.Mutex
	state         ModalState
	target        uuid.UUID
	action        Action
	notes         string
	reason        string
	validationErr string
}

func NewModal(exec Decider, queue Invalidator, notifier Notifier) *Modal {
	return &Modal{exec: exec, queue: queue, notifier: notifier, state: ModalClosed}
}

// Select opens the modal for one item and action, clearing any draft left
// from a previous target. Ignored while a submit is in flight.
func (m *Modal) Select(id uuid.UUID, action Action) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == ModalSubmitting {
		return
	}
	m.state = ModalOpen
	m.target = id
	m.action = action
	m.notes = ""
	m.reason = ""
	m.validationErr = ""
}

// Cancel closes the modal and discards the draft without calling the backend.
func (m *Modal) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != ModalOpen {
		return
	}
	m.state = ModalClosed
	m.target = uuid.Nil
	m.notes = ""
	m.reason = ""
	m.validationErr = ""
}

func (m *Modal) SetNotes(notes string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == ModalOpen {
		m.notes = notes
	}
}

func (m *Modal) SetReason(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == ModalOpen {
		m.reason = reason
		m.validationErr = ""
	}
}

// Submit runs the captured decision. A reject with an empty reason stays
// open with an inline validation error and no network call. Success emits
// exactly one queue invalidation and one success notification, then closes.
// Failure re-opens with the draft intact and emits one error notification.
func (m *Modal) Submit(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case ModalSubmitting:
		m.mu.Unlock()
		return ErrSubmitInFlight
	case ModalClosed:
		m.mu.Unlock()
		return errors.New("no item selected")
	}
	if m.action == ActionReject && strings.TrimSpace(m.reason) == "" {
		m.validationErr = "Rejection reason is required"
		m.mu.Unlock()
		return ErrReasonRequired
	}
	m.state = ModalSubmitting
	m.validationErr = ""
	target, action, notes, reason := m.target, m.action, m.notes, m.reason
	m.mu.Unlock()

	var err error
	if action == ActionApprove {
		_, err = m.exec.Approve(ctx, target, notes)
	} else {
		_, err = m.exec.Reject(ctx, target, reason, notes)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.state = ModalOpen
		m.notifier.Error(err.Error())
		return err
	}
	m.state = ModalClosed
	m.target = uuid.Nil
	m.notes = ""
	m.reason = ""
	m.queue.Invalidate()
	if action == ActionApprove {
		m.notifier.Success("Approved")
	} else {
		m.notifier.Success("Rejected")
	}
	return nil
}

func (m *Modal) State() ModalState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Modal) Target() (uuid.UUID, Action) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.target, m.action
}

func (m *Modal) Draft() (notes, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notes, m.reason
}

// ValidationError is the inline message shown inside the open modal, empty
// when the draft is submittable.
func (m *Modal) ValidationError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.validationErr
}
