// Package logger is a standardized event logging framework for the
// interpreter. Events are newline delimited JSON objects; the recorder is
// a callback so tests and callers can store them anywhere.
package logger
