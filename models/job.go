package models

import (
	"encoding/json"
	"time"
)

type JsonModel struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobGenerating JobStatus = "generating"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// TryOnJob tracks one async generation.
type TryOnJob struct {
	JsonModel
	Status   JobStatus `json:"status"` // pending, generating, completed, failed
	Mode     Mode      `json:"mode"`
	Gender   Gender    `json:"gender"`
	Strategy string    `json:"strategy"`

	// R2 object key when the result was stored, otherwise the provider URL
	ResultObjectKey *string `json:"-"`
	ResultURL       *string `json:"-"`

	ErrorKind    *string  `json:"error_kind"`
	ErrorMessage *string  `json:"error_message"`
	Attempts     string   `gorm:"type:text" json:"-"`
	Events       string   `gorm:"type:text" json:"-"`
	Degraded     bool     `json:"degraded"`
	Duration     *float64 `json:"duration"` // in seconds
}

func (j *TryOnJob) SetTrail(attempts []ProviderAttempt, events []DiagnosticEvent) {
	if b, err := json.Marshal(attempts); err == nil {
		j.Attempts = string(b)
	}
	if b, err := json.Marshal(events); err == nil {
		j.Events = string(b)
	}
}

func (j TryOnJob) Trail() ([]ProviderAttempt, []DiagnosticEvent) {
	var attempts []ProviderAttempt
	var events []DiagnosticEvent
	if j.Attempts != "" {
		_ = json.Unmarshal([]byte(j.Attempts), &attempts)
	}
	if j.Events != "" {
		_ = json.Unmarshal([]byte(j.Events), &events)
	}
	return attempts, events
}
