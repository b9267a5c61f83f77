package types

// Result carries either a value or the error that prevented producing it.
// Pipeline steps return a Result so callers can tell "failed" apart from
// "succeeded with nothing".
type Result[T any] struct {
	Value T
	Err   error
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Fail wraps an error. The value is the zero value of T.
func Fail[T any](err error) Result[T] {
	return Result[T]{Err: err}
}

// IsOk reports whether the result carries no error.
func (r Result[T]) IsOk() bool {
	return r.Err == nil
}

// OrElse returns the value, or fallback when the result failed.
func (r Result[T]) OrElse(fallback T) T {
	if r.Err != nil {
		return fallback
	}
	return r.Value
}
