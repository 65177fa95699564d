package services

import "errors"

var (
	ErrInvalidPost     = errors.New("invalid post")
	ErrInvalidReply    = errors.New("invalid reply")
	ErrSessionNotFound = errors.New("feed session not found")
	ErrSessionClosed   = errors.New("feed session closed")
	// ErrStoreFull is returned by Grow once the store holds MaxPosts records.
	ErrStoreFull = errors.New("post store is full")
)
