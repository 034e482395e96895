package queue

import (
	"errors"
	"strconv"
)

// Payload is the typed form of a task body. The wire form stays the bare
// decimal string of the event id, but parsing through a typed payload makes
// poison-message detection a validation step rather than a scattered
// parse-error path.
type Payload struct {
	EventID int64
}

// ErrMalformedPayload marks a task body that cannot reference an event.
// Such tasks are acknowledged and dropped, never redelivered forever.
var ErrMalformedPayload = errors.New("malformed task payload")

// EncodePayload renders the wire form of a completion task.
func EncodePayload(eventID int64) []byte {
	return strconv.AppendInt(nil, eventID, 10)
}

// ParsePayload validates and decodes a task body.
func ParsePayload(b []byte) (Payload, error) {
	id, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil || id <= 0 {
		return Payload{}, ErrMalformedPayload
	}
	return Payload{EventID: id}, nil
}
