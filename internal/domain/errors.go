package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz does not exist.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrUserNotFound indicates the identity record is missing.
	ErrUserNotFound = errors.New("user not found")
	// ErrTagNotFound indicates the referenced tag does not exist.
	ErrTagNotFound = errors.New("tag not found")
	// ErrTagExists is returned when a tag name is already taken.
	ErrTagExists = errors.New("tag already exists")
	// ErrWriteUncertain means a commit may have been applied even though it
	// reported an error. Retrying such a write can apply it twice.
	ErrWriteUncertain = errors.New("write outcome unknown")
	// ErrInvalidInput wraps authoring or request data that cannot be accepted.
	ErrInvalidInput = errors.New("invalid input")
)
