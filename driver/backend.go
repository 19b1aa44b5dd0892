package driver

import "context"

// Backend is the capability a Manager needs from a concrete resource technology: how to make a
// new resource and how to release one.
type Backend[T any] interface {
	Create(ctx context.Context) (T, error)
	Dispose(ctx context.Context, value T) error
}

// Funcs adapts a pair of functions to Backend. A nil CreateFunc makes Create fail with
// ErrNoFactory; a nil DisposeFunc makes Dispose a no-op.
type Funcs[T any] struct {
	CreateFunc  func(ctx context.Context) (T, error)
	DisposeFunc func(ctx context.Context, value T) error
}

func (f Funcs[T]) Create(ctx context.Context) (T, error) {
	if f.CreateFunc == nil {
		var zero T
		return zero, ErrNoFactory
	}
	return f.CreateFunc(ctx)
}

func (f Funcs[T]) Dispose(ctx context.Context, value T) error {
	if f.DisposeFunc == nil {
		return nil
	}
	return f.DisposeFunc(ctx, value)
}

// Closer returns a Backend whose Dispose calls the value's own Close method.
func Closer[T interface{ Close() error }](create func(ctx context.Context) (T, error)) Backend[T] {
	return Funcs[T]{
		CreateFunc: create,
		DisposeFunc: func(_ context.Context, value T) error {
			return value.Close()
		},
	}
}
