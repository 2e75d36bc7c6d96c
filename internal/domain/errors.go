package domain

import "errors"

var (
	// ErrNotFound indicates an item id or route that does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrParse indicates a malformed price string.
	ErrParse = errors.New("parse error")
	// ErrConfiguration indicates catalog definitions that cannot be generated.
	ErrConfiguration = errors.New("configuration error")
	// ErrInvalidArgument indicates the caller supplied invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
)
