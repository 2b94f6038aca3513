package util

import "errors"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailRegistered   = errors.New("email already registered")
	ErrCourseNotFound    = errors.New("course not found")
	ErrGenerationFailed  = errors.New("generation failed after all attempts")
	ErrOutlineGeneration = errors.New("failed to generate course outline")
	ErrInvalidToken      = errors.New("invalid token")
)
