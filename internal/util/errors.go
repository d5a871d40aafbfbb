package util

import "errors"

var (
	ErrNotFound               = errors.New("resource not found")
	ErrInvalidTransition      = errors.New("invalid state transition")
	ErrCodeSpaceExhausted     = errors.New("code space exhausted")
	ErrDeliveryCodeMismatch   = errors.New("delivery code mismatch")
	ErrInvalidScheduleConfig  = errors.New("assessment has no scheduled start configured")
	ErrApplicationNotJoinable = errors.New("application is not accepting students")
)
