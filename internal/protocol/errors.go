package protocol

import "errors"

// Compile-time errors
var (
	ErrUnknownType   = errors.New("protocol: unknown type")
	ErrInvalidSchema = errors.New("protocol: invalid schema")
	ErrSchemaCycle   = errors.New("protocol: schema cycle")
)

// Registry errors
var (
	ErrDuplicateMessageID = errors.New("protocol: duplicate message id")
	ErrUnknownMessageID   = errors.New("protocol: unknown message id")
)

// Value errors
var (
	ErrMissingValue = errors.New("protocol: missing field value")
	ErrValueType    = errors.New("protocol: value type mismatch")
	ErrValueRange   = errors.New("protocol: value out of range")
	ErrArrayLength  = errors.New("protocol: array length mismatch")
)

// Wire errors
var (
	ErrOutOfRange      = errors.New("protocol: access beyond buffer")
	ErrPayloadTooLarge = errors.New("protocol: payload too large")
	ErrSizeMismatch    = errors.New("protocol: size mismatch")
	ErrInvalidText     = errors.New("protocol: invalid text")
)
