package domain

import "errors"

var (
	// ErrInvalidRequest marks malformed or out-of-range input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInsufficientData marks a series too short to fit.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrForecaster wraps any failure raised by the remote engine.
	ErrForecaster = errors.New("forecaster failure")
	// ErrModelUnavailable is returned when an operation needs the engine and none is configured.
	ErrModelUnavailable = errors.New("ML model not available")
	ErrNotConfigured    = errors.New("not configured")
	// ErrNotSupported is returned when the engine lacks an optional capability.
	ErrNotSupported = errors.New("not supported by the forecaster")
)
