// Package errors provides the structured error type shared by the conveyor
// and dag packages. Every failure carries a machine-readable code that
// survives the trip across a worker process boundary.
package errors
