// Package fallback runs an ordered list of increasingly permissive attempts
// until one succeeds.
package fallback

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrExhausted is wrapped by the error Climb returns when every rung failed
// and no final strategy was given.
var ErrExhausted = errors.New("fallback ladder exhausted")

type Rung[T any] struct {
	Name string
	Do   func(ctx context.Context) (T, error)
}

// Ladder tries Rungs in order. When all of them fail, Final (if set) decides
// the outcome on its own.
type Ladder[T any] struct {
	Op     string
	Logger *zap.Logger
	Rungs  []Rung[T]
	Final  func(ctx context.Context) (T, error)
}

func (l Ladder[T]) Climb(ctx context.Context) (T, error) {
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var zero T
	var errs []error
	for i, rung := range l.Rungs {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		result, err := rung.Do(ctx)
		if err == nil {
			return result, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", rung.Name, err))

		next := "final"
		if i+1 < len(l.Rungs) {
			next = l.Rungs[i+1].Name
		} else if l.Final == nil {
			next = ""
		}
		logger.Warn("fallback rung failed",
			zap.String("op", l.Op),
			zap.String("rung", rung.Name),
			zap.String("next", next),
			zap.Error(err),
		)
	}

	if l.Final != nil {
		return l.Final(ctx)
	}
	return zero, fmt.Errorf("%s: %w: %w", l.Op, ErrExhausted, errors.Join(errs...))
}

// Steps is a convenience for ladders whose rungs return only an error.
func Steps(op string, logger *zap.Logger, rungs ...Rung[struct{}]) Ladder[struct{}] {
	return Ladder[struct{}]{Op: op, Logger: logger, Rungs: rungs}
}

// Step adapts an error-only function into a rung.
func Step(name string, fn func(ctx context.Context) error) Rung[struct{}] {
	return Rung[struct{}]{
		Name: name,
		Do: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, fn(ctx)
		},
	}
}
