package models

import "errors"

// Error taxonomy shared by stores, search, scheduler and the dialogue engine.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrPersistence         = errors.New("persistence error")
)

// ErrInvalidSchedule is an ErrInvalidInput raised for visit times that are not in the future.
var ErrInvalidSchedule = &scheduleError{}

type scheduleError struct{}

func (*scheduleError) Error() string        { return "invalid schedule: visit time must be in the future" }
func (*scheduleError) Is(target error) bool { return target == ErrInvalidInput }
