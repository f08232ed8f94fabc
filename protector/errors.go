package protector

import "errors"

var (
	ErrNoImage         = errors.New("no image imported")
	ErrInvalidImage    = errors.New("invalid image")
	ErrFaceIndex       = errors.New("face index out of range")
	ErrNoFaceAtPoint   = errors.New("no face at point")
	ErrSessionNotFound = errors.New("session not found")
	ErrNotShared       = errors.New("session has not been shared")
)
