package services

import "errors"

// Dashboard service errors
var (
	// ErrTableNotLoaded is returned when the sales table cannot be obtained.
	ErrTableNotLoaded = errors.New("sales table not loaded")

	// ErrInvalidSelection is returned for a selection whose date range is reversed.
	ErrInvalidSelection = errors.New("invalid filter selection")
)
