package store

import "errors"

var (
	// ErrCorrupt is returned by Load when the persisted value cannot be parsed
	// as a non-negative integer.
	ErrCorrupt = errors.New("persisted pointer is corrupt")

	// ErrNegative is returned by Save for values below zero.
	ErrNegative = errors.New("pointer must not be negative")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("store is closed")
)
