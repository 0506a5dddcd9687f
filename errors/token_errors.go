// errors/token_errors.go
package errors

import "errors"

var (
	ErrTokenNotFound        = errors.New("decision token not found")
	ErrTokenAlreadyConsumed = errors.New("decision token already consumed")
	ErrTokenConflict        = errors.New("decision token conflict")

	ErrGrantNotFound = errors.New("delegation grant not found")
	ErrGrantConflict = errors.New("delegation grant conflict")
)
