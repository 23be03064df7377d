package protocol

import "errors"

var (
	ErrMalformedJSON    = errors.New("protocol: malformed json")
	ErrUnknownType      = errors.New("protocol: unknown message type")
	ErrMalformedPayload = errors.New("protocol: malformed payload")
	ErrEmptyDescription = errors.New("protocol: empty description")
)
