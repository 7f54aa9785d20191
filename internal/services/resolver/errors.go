package resolver

import "errors"

var (
	ErrNoCaptions     = errors.New("no caption tracks")
	ErrEmptyCaptions  = errors.New("caption track is empty")
	ErrMarkerNotFound = errors.New("player response marker not found")
	ErrTokenNotFound  = errors.New("transcript token not found")
)
