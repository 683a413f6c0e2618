package console

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/boostly/backend/internal/review"
)

// ErrReasonRequired is returned by Reject before any request is issued when
// the reason is empty or whitespace.
var ErrReasonRequired = errors.New("rejection reason is required")

// Executor issues approve/reject decisions. It is stateless per call;
// serialization of submissions is the modal's job.
type Executor struct {
	session *Session
}

func NewExecutor(session *Session) *Executor {
	return &Executor{session: session}
}

type decisionBody struct {
	Reason string `json:"reason,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

// Approve settles the reviewable item behind the task: the task itself when
// it awaits admin review, otherwise its oldest pending submission. The
// backend is authoritative for the pre-state check.
func (e *Executor) Approve(ctx context.Context, id uuid.UUID, notes string) (*review.TaskDetail, error) {
	var detail review.TaskDetail
	err := e.session.post(ctx, "/admin/tasks/"+id.String()+"/approve", decisionBody{Notes: notes}, &detail)
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// Reject requires a non-whitespace reason and never touches the network
// without one.
func (e *Executor) Reject(ctx context.Context, id uuid.UUID, reason, notes string) (*review.TaskDetail, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ErrReasonRequired
	}
	var detail review.TaskDetail
	err := e.session.post(ctx, "/admin/tasks/"+id.String()+"/reject", decisionBody{Reason: reason, Notes: notes}, &detail)
	if err != nil {
		return nil, err
	}
	return &detail, nil
}
