package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"hcda/dataset"
	"hcda/forecast"
)

var ErrHorizonRange = errors.New("horizon out of range")

// HorizonBounds is the slider range offered to users.
type HorizonBounds struct {
	Min     int
	Max     int
	Default int
}

// Parse accepts an empty value as the default.
func (b HorizonBounds) Parse(raw string) (int, error) {
	if raw == "" {
		return b.clamp(b.Default), nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a whole number of days", ErrHorizonRange, raw)
	}
	return b.Check(n)
}

func (b HorizonBounds) Check(n int) (int, error) {
	if n < b.Min || n > b.Max {
		return 0, fmt.Errorf("%w: must be between %d and %d days, got %d", ErrHorizonRange, b.Min, b.Max, n)
	}
	return n, nil
}

func (b HorizonBounds) clamp(n int) int {
	return min(max(n, b.Min), b.Max)
}

// statusFor maps pipeline and loading errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrHorizonRange), errors.Is(err, forecast.ErrInvalidHorizon):
		return http.StatusBadRequest
	case errors.Is(err, forecast.ErrInsufficientHistory),
		errors.Is(err, forecast.ErrMissingRegressor),
		errors.Is(err, forecast.ErrDegenerateRegressor),
		errors.Is(err, forecast.ErrInvalidFrame),
		errors.Is(err, forecast.ErrFitFailed),
		errors.Is(err, dataset.ErrEmpty),
		errors.Is(err, dataset.ErrMissingColumn),
		errors.Is(err, dataset.ErrMalformed),
		errors.Is(err, dataset.ErrNotContiguous):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
