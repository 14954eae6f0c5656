package storage

import (
	"errors"

	"estatehub/server/internal/models"
)

// Source tells which store served an operation.
type Source int

const (
	SourceRemote Source = iota
	SourceLocal
	SourceFailed
)

func (s Source) String() string {
	switch s {
	case SourceRemote:
		return "remote"
	case SourceLocal:
		return "local"
	default:
		return "failed"
	}
}

// Result is the outcome of an adapter operation: served remotely, served from the
// local fallback, or failed with Err.
type Result[T any] struct {
	Value  T
	Source Source
	Err    error
}

func remote[T any](v T) Result[T] {
	return Result[T]{Value: v, Source: SourceRemote}
}

func local[T any](v T) Result[T] {
	return Result[T]{Value: v, Source: SourceLocal}
}

// Failed builds a failed result carrying err.
func Failed[T any](err error) Result[T] {
	return Result[T]{Source: SourceFailed, Err: err}
}

// OK reports whether the operation produced a value from either store.
func (r Result[T]) OK() bool {
	return r.Source != SourceFailed
}

// Degraded reports whether the local fallback served the operation.
func (r Result[T]) Degraded() bool {
	return r.Source == SourceLocal
}

// NotFound reports whether the operation failed because the target listing is absent.
func (r Result[T]) NotFound() bool {
	return errors.Is(r.Err, models.ErrListingNotFound)
}

// Carry keeps the source of r while replacing its value. Failed results stay failed.
func Carry[T, U any](r Result[T], v U) Result[U] {
	if r.Source == SourceFailed {
		return Failed[U](r.Err)
	}
	return Result[U]{Value: v, Source: r.Source}
}
