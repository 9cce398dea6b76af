package jobs

import (
	"encoding/json"
	"fmt"
)

// EncodePayload checks that payload is the concrete type t expects and is
// complete, then marshals it for NewJob.
func EncodePayload(t JobType, payload any) ([]byte, error) {
	if !t.IsValid() {
		return nil, ErrInvalidJobType
	}

	var p SendMailPayload
	switch v := payload.(type) {
	case SendMailPayload:
		p = v
	case *SendMailPayload:
		p = *v
	default:
		return nil, ErrPayloadTypeMismatch
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
	}
	return b, nil
}

// DecodePayload unmarshals job.Payload into the correct typed payload struct.
func DecodePayload(j Job) (any, error) {
	if !j.Type.IsValid() {
		return nil, ErrInvalidJobType
	}
	if len(j.Payload) == 0 {
		return nil, ErrInvalidJobPayload
	}

	switch j.Type {
	case JobSendMail:
		var p SendMailPayload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		return p, nil

	default:
		return nil, ErrInvalidJobType
	}
}

// Marshal encodes the whole envelope for the queue.
func Marshal(j Job) ([]byte, error) {
	if j.ID == "" || !j.Type.IsValid() {
		return nil, ErrInvalidJob
	}
	return json.Marshal(j)
}

func Unmarshal(b []byte) (Job, error) {
	var j Job
	if err := json.Unmarshal(b, &j); err != nil {
		return Job{}, fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	if j.ID == "" {
		return Job{}, ErrInvalidJob
	}
	if !j.Type.IsValid() {
		return Job{}, ErrInvalidJobType
	}
	if j.MaxAttempts <= 0 {
		j.MaxAttempts = DefaultMaxAttempts
	}
	return j, nil
}
