// Package fn holds the small generic helpers the extraction chain is built from.
package fn

import (
	"errors"
	"fmt"
)

// Result is either a value or the reason there is none.
type Result[T any] struct {
	val T
	err error
	ok  bool
}

// Ok creates a successful Result.
func Ok[T any](v T) Result[T] {
	return Result[T]{val: v, ok: true}
}

// Err creates a failed Result from an error.
func Err[T any](err error) Result[T] {
	if err == nil {
		err = errors.New("unknown failure")
	}
	return Result[T]{err: err}
}

// Errf creates a failed Result from a formatted string.
func Errf[T any](format string, args ...any) Result[T] {
	return Result[T]{err: fmt.Errorf(format, args...)}
}

// FromPair creates a Result from a (value, error) pair.
func FromPair[T any](v T, err error) Result[T] {
	if err != nil {
		return Err[T](err)
	}
	return Ok(v)
}

// IsOk returns true if the result is successful.
func (r Result[T]) IsOk() bool { return r.ok }

// Unwrap returns the value and error.
func (r Result[T]) Unwrap() (T, error) { return r.val, r.err }

// UnwrapOr returns the value or a fallback on error.
func (r Result[T]) UnwrapOr(fallback T) T {
	if !r.ok {
		return fallback
	}
	return r.val
}

// Err returns the failure reason, nil when ok.
func (r Result[T]) Err() error { return r.err }

// AndThen chains a function that returns a Result.
func AndThen[T, U any](r Result[T], f func(T) Result[U]) Result[U] {
	if !r.ok {
		return Err[U](r.err)
	}
	return f(r.val)
}

// FirstOk evaluates steps in order and returns the first successful Result.
// When every step fails the reasons are joined in order.
func FirstOk[T any](steps ...func() Result[T]) Result[T] {
	var errs []error
	for _, step := range steps {
		r := step()
		if r.ok {
			return r
		}
		errs = append(errs, r.err)
	}
	if len(errs) == 0 {
		return Errf[T]("no steps")
	}
	return Err[T](errors.Join(errs...))
}
