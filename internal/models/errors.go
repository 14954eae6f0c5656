package models

import "errors"

var (
	ErrListingNotFound = errors.New("listing not found")
	ErrInvalidListing  = errors.New("invalid listing data")

	// ErrMalformedDocument marks a stored collection holding a listing that cannot be read.
	ErrMalformedDocument = errors.New("malformed listing document")
)
