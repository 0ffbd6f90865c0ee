package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeBlacklistSweep prunes expired entries from the token blacklist.
	TaskTypeBlacklistSweep = "auth:blacklist_sweep"
	// TaskTypeOTPCleanup drops expired one-time codes.
	TaskTypeOTPCleanup = "otp:cleanup"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewBlacklistSweepTask constructs the periodic blacklist sweep task.
func NewBlacklistSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeBlacklistSweep, nil)
}

// NewOTPCleanupTask constructs the periodic one-time-code cleanup task.
func NewOTPCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeOTPCleanup, nil)
}
