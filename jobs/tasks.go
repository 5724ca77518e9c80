package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRolesSeed makes sure every predefined role exists.
	TaskRolesSeed = "roles:seed"
	// RolesSeedCron reconciles the predefined roles nightly.
	RolesSeedCron = "0 3 * * *"
)

// RolesSeedPayload describes a seeding run.
type RolesSeedPayload struct {
	Trigger string `json:"trigger"`
}

// NewRolesSeedTask constructs a roles:seed task.
func NewRolesSeedTask(trigger string) (*asynq.Task, error) {
	if trigger == "" {
		trigger = "manual"
	}
	data, err := json.Marshal(RolesSeedPayload{Trigger: trigger})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRolesSeed, data), nil
}
