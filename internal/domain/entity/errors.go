package entity

import "errors"

// ErrCapture marks observation failures (device disconnect, bridge timeout).
// The supervisor retries these a bounded number of times before aborting.
var ErrCapture = errors.New("observation capture failed")

// ErrNoDecision marks a planner that produced no usable action. It is a
// logic defect, fatal to the run, never retried.
var ErrNoDecision = errors.New("planner returned no decision")
