// Package jobs defines the envelope for work handed from the API to the
// worker over the Redis queue.
package jobs

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

const DefaultMaxAttempts = 5

type JobType string

const JobSendMail JobType = "send_mail"

var (
	ErrInvalidJobType      = errors.New("invalid job type")
	ErrInvalidJobPayload   = errors.New("invalid job payload")
	ErrPayloadTypeMismatch = errors.New("payload type mismatch for job type")
	ErrInvalidJob          = errors.New("invalid job envelope")
)

func (t JobType) IsValid() bool {
	return t == JobSendMail
}

// Job travels through Redis as JSON, so everything the worker needs,
// attempts included, lives on the envelope.
type Job struct {
	ID          string          `json:"id"`
	Type        JobType         `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"maxAttempts"`
	EnqueuedAt  time.Time       `json:"enqueuedAt"`
	LastError   *string         `json:"lastError,omitempty"`
}

func NewJob(t JobType, payloadJSON []byte, maxAttempts int) (Job, error) {
	if !t.IsValid() {
		return Job{}, ErrInvalidJobType
	}
	if len(payloadJSON) == 0 {
		return Job{}, ErrInvalidJobPayload
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	return Job{
		ID:          uuid.NewString(),
		Type:        t,
		Payload:     payloadJSON,
		MaxAttempts: maxAttempts,
		EnqueuedAt:  time.Now().UTC(),
	}, nil
}

// Exhausted reports whether the job has used every attempt it was given.
func (j Job) Exhausted() bool {
	return j.Attempts >= j.MaxAttempts
}

// Failed returns a copy with the attempt counted and the error recorded.
func (j Job) Failed(err error) Job {
	j.Attempts++
	if err != nil {
		msg := err.Error()
		j.LastError = &msg
	}
	return j
}
