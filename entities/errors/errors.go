//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2024 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package errors

import (
	"errors"
	"fmt"
)

// Error categories. Use errors.Is to classify an error returned by any
// package of this module.
var (
	// ErrValidation is returned when a DDL request is rejected before any
	// catalog mutation took place.
	ErrValidation = errors.New("validation failed")
	// ErrConsistency signals a programming or operational bug upstream, e.g.
	// a non-monotonic snapshot advance.
	ErrConsistency = errors.New("consistency violated")
	// ErrDurability is returned when the log backend could not durably
	// acknowledge a write. It is the only retryable category.
	ErrDurability = errors.New("durability failure")
	// ErrReplay is fatal to a replaying process.
	ErrReplay = errors.New("replay failed")
	// ErrNotFound is returned by lookups of unknown schema elements.
	ErrNotFound = errors.New("not found")
)

func NewValidation(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

func NewConsistency(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConsistency)
}

func NewNotFound(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// NewDurability wraps a backend error. The cause stays reachable through
// errors.Is/As.
func NewDurability(msg string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%s: %w", msg, ErrDurability)
	}
	return fmt.Errorf("%s: %w: %w", msg, ErrDurability, cause)
}

func NewReplay(msg string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%s: %w", msg, ErrReplay)
	}
	return fmt.Errorf("%s: %w: %w", msg, ErrReplay, cause)
}

// IsRetryable reports whether the caller may retry the failed call.
// Retrying an append is not idempotent at the offset level.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrDurability)
}
