package models

import (
	"fmt"
	"time"
)

type TryOnRequest struct {
	SubjectImage  ImageReference `json:"subject_image"`
	GarmentImage  ImageReference `json:"garment_image"`
	Mode          Mode           `json:"mode"`
	SubjectGender Gender         `json:"subject_gender"`
	PriorFeedback *string        `json:"prior_feedback,omitempty"`
	Category      Category       `json:"category,omitempty"`
}

// WithDefaults fills mode, gender and category when the caller left them empty.
func (r TryOnRequest) WithDefaults() TryOnRequest {
	if r.Mode == "" {
		r.Mode = ModePart
	}
	if r.SubjectGender == "" {
		r.SubjectGender = GenderFemale
	}
	if r.Category == "" {
		r.Category = CategoryUpperBody
	}
	return r
}

// Validate returns an error whose text can be shown to the user as is.
func (r TryOnRequest) Validate() error {
	if r.SubjectImage.IsEmpty() {
		return fmt.Errorf("%w: the photo of you is missing. Please upload it and try again", ErrUnsupportedImageForm)
	}
	if r.GarmentImage.IsEmpty() {
		return fmt.Errorf("%w: the garment photo is missing. Please upload it and try again", ErrUnsupportedImageForm)
	}
	if !r.Mode.IsValid() {
		return fmt.Errorf("%w: unknown mode %q. Please choose PART or FULL_FIT and try again", ErrInvalidRequest, r.Mode)
	}
	if !r.SubjectGender.IsValid() {
		return fmt.Errorf("%w: unknown gender %q. Please choose male or female and try again", ErrInvalidRequest, r.SubjectGender)
	}
	if r.Category != "" && !r.Category.IsValid() {
		return fmt.Errorf("%w: unknown category %q. Please choose upper_body, lower_body or dresses and try again", ErrInvalidRequest, r.Category)
	}
	return nil
}

// Feedback returns the trimmed prior feedback or "".
func (r TryOnRequest) Feedback() string {
	if r.PriorFeedback == nil {
		return ""
	}
	return *r.PriorFeedback
}

type AttemptOutcome string

const (
	AttemptSucceeded AttemptOutcome = "success"
	AttemptFailed    AttemptOutcome = "failed"
	AttemptSkipped   AttemptOutcome = "skipped"
)

type ProviderAttempt struct {
	ProviderID string         `json:"provider"`
	Model      string         `json:"model"`
	Outcome    AttemptOutcome `json:"outcome"`
	ErrorKind  ErrorKind      `json:"error_kind,omitempty"`
	Error      string         `json:"error,omitempty"`
	Latency    time.Duration  `json:"-"`
	LatencyMs  int64          `json:"latency_ms"`

	// PermissionDenied marks a rejected key or a model the key cannot use.
	PermissionDenied bool `json:"permission_denied,omitempty"`
}

func (a ProviderAttempt) Label() string {
	return a.ProviderID + "/" + a.Model
}

type EventKind string

const (
	EventFaceSwapSkipped     EventKind = "face_swap_skipped"
	EventFaceSwapDegraded    EventKind = "face_swap_degraded"
	EventFaceSwapPassthrough EventKind = "face_swap_passthrough"
)

// DiagnosticEvent records a deliberate degrade taken during a run.
type DiagnosticEvent struct {
	Kind    EventKind `json:"kind"`
	Message string    `json:"message"`
}

// GenerationOutcome is produced once per request.
type GenerationOutcome struct {
	Success  bool              `json:"success"`
	Image    *ImageReference   `json:"image,omitempty"`
	Kind     ErrorKind         `json:"error_kind,omitempty"`
	Message  string            `json:"error,omitempty"`
	Attempts []ProviderAttempt `json:"attempts"`
	Events   []DiagnosticEvent `json:"events,omitempty"`
}

func SuccessOutcome(image ImageReference, attempts []ProviderAttempt, events []DiagnosticEvent) GenerationOutcome {
	return GenerationOutcome{Success: true, Image: &image, Attempts: attempts, Events: events}
}

func FailureOutcome(kind ErrorKind, message string, attempts []ProviderAttempt, events []DiagnosticEvent) GenerationOutcome {
	if message == "" {
		message = "Image generation failed. Please try again."
	}
	return GenerationOutcome{Kind: kind, Message: message, Attempts: attempts, Events: events}
}

// Degraded reports whether the face swap step was skipped, failed or left the
// image unchanged.
func (o GenerationOutcome) Degraded() bool {
	for _, event := range o.Events {
		switch event.Kind {
		case EventFaceSwapSkipped, EventFaceSwapDegraded, EventFaceSwapPassthrough:
			return true
		}
	}
	return false
}
