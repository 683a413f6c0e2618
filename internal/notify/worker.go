package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

// Decision events delivered to the notification webhook.
const (
	EventTaskApproved       = "task.approved"
	EventTaskRejected       = "task.rejected"
	EventSubmissionApproved = "submission.approved"
	EventSubmissionRejected = "submission.rejected"
	EventDepositApproved    = "deposit.approved"
	EventDepositRejected    = "deposit.rejected"
	EventWithdrawalApproved = "withdrawal.approved"
	EventWithdrawalRejected = "withdrawal.rejected"
)

// DecisionJobArgs is the river payload for one admin review decision. Jobs
// are inserted with InsertTx inside the decision transaction, so a decision
// and its notification are atomic.
type DecisionJobArgs struct {
	Event     string     `json:"event"`
	UserID    uuid.UUID  `json:"user_id"`
	TaskID    *uuid.UUID `json:"task_id,omitempty"`
	RequestID *uuid.UUID `json:"request_id,omitempty"`
	Reason    *string    `json:"reason,omitempty"`
}

func (DecisionJobArgs) Kind() string { return "review_decision" }

// DecisionWorker delivers review decisions to the platform's notification
// webhook. Delivery failures return an error so river retries the job.
type DecisionWorker struct {
	river.WorkerDefaults[DecisionJobArgs]
	webhookURL string
	httpClient *http.Client
}

func NewDecisionWorker(webhookURL string) *DecisionWorker {
	return &DecisionWorker{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (w *DecisionWorker) Work(ctx context.Context, job *river.Job[DecisionJobArgs]) error {
	if w.webhookURL == "" {
		// No webhook configured; the decision is still recorded in the queue.
		return nil
	}
	body, err := json.Marshal(job.Args)
	if err != nil {
		return fmt.Errorf("marshal decision payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("network error calling notification webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification webhook returned status %d", resp.StatusCode)
	}
	return nil
}
