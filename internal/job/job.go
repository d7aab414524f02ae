// Package job records media processing requests and orchestrates the edit
// pipeline for them. Processing is synchronous; a Job is the record of what
// one request did and produced.
package job

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/maauso/mediaedit-api/internal/edit"
	"github.com/maauso/mediaedit-api/internal/job/id"
)

// Action names the kind of work a request asked for.
type Action string

const (
	// ActionEdits applies an edit specification to one upload.
	ActionEdits Action = "edits"
	// ActionAutocut removes silent parts of a video, then applies residual edits.
	ActionAutocut Action = "autocut"
	// ActionTimeline stitches several uploads into one video.
	ActionTimeline Action = "timeline"
)

// ParseAction maps a form value to an Action. Empty and unknown values
// select ActionEdits.
func ParseAction(s string) Action {
	if Action(s) == ActionAutocut {
		return ActionAutocut
	}
	return ActionEdits
}

// Status represents the current state of a Job.
type Status string

const (
	// StatusRunning indicates the request is being processed.
	StatusRunning Status = "RUNNING"
	// StatusCompleted indicates an output was written.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates processing stopped with an error.
	StatusFailed Status = "FAILED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusRunning:   {StatusCompleted, StatusFailed},
	StatusCompleted: {},
	StatusFailed:    {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	return slices.Contains(validTransitions[from], to)
}

// Job is the record of one processing request.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this job.
	ID string
	// Action is what the request asked for.
	Action Action
	// Kind is the media kind the request was processed as.
	Kind edit.Kind
	// Status is the current job state.
	Status Status
	// TemplateID is the template requested, if any.
	TemplateID string
	// Inputs are the stored upload paths.
	Inputs []string
	// OutputName is the file name of the result in the output directory.
	OutputName string
	// OutputURL is the S3 URL of the result, when published.
	OutputURL string
	// Error contains any error message if the job failed.
	Error string
	// CreatedAt is when the job was created.
	CreatedAt time.Time
	// UpdatedAt is when the job was last updated.
	UpdatedAt time.Time
	// CompletedAt is when processing finished.
	CompletedAt time.Time
}

// New creates a RUNNING job with a generated ID.
func New(action Action) *Job {
	return NewWithID(id.Generate(), action)
}

// NewWithID creates a RUNNING job with the specified ID.
// Useful for testing or when ID needs to be externally generated.
func NewWithID(jobID string, action Action) *Job {
	now := time.Now()
	return &Job{
		ID:        jobID,
		Action:    action,
		Status:    StatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.transitionLocked(status)
}

func (j *Job) transitionLocked(status Status) error {
	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}
	j.Status = status
	j.UpdatedAt = time.Now()
	j.CompletedAt = j.UpdatedAt
	return nil
}

// Complete records the output and transitions the job to COMPLETED.
func (j *Job) Complete(outputName, outputURL string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transitionLocked(StatusCompleted); err != nil {
		return err
	}
	j.OutputName = outputName
	j.OutputURL = outputURL
	return nil
}

// Fail transitions the job to FAILED state with an error message.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) Fail(errMsg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transitionLocked(StatusFailed); err != nil {
		return err
	}
	j.Error = errMsg
	return nil
}

// SetKind records the media kind the request is processed as.
func (j *Job) SetKind(kind edit.Kind) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Kind = kind
	j.UpdatedAt = time.Now()
}

// AddInput records a stored upload path.
func (j *Job) AddInput(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Inputs = append(j.Inputs, path)
	j.UpdatedAt = time.Now()
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// Clone creates a deep copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return &Job{
		ID:          j.ID,
		Action:      j.Action,
		Kind:        j.Kind,
		Status:      j.Status,
		TemplateID:  j.TemplateID,
		Inputs:      slices.Clone(j.Inputs),
		OutputName:  j.OutputName,
		OutputURL:   j.OutputURL,
		Error:       j.Error,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
		CompletedAt: j.CompletedAt,
	}
}
