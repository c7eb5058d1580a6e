// Package jobs holds the asynq task definitions and background worker for
// deal maintenance.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeOverdueSweep marks pending invoices overdue once their payment
	// deadline passes.
	TaskTypeOverdueSweep = "deals:overdue_sweep"
)

// OverdueSweepPayload configures one sweep run. BatchLimit bounds how many
// invoices a single run flips; zero means no bound.
type OverdueSweepPayload struct {
	BatchLimit int `json:"batch_limit"`
}

// NewOverdueSweepTask constructs an Asynq task for the nightly sweep.
func NewOverdueSweepTask(payload OverdueSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeOverdueSweep, data), nil
}
