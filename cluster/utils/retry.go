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

package utils

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	enterrors "github.com/weaviate/graphmeta/entities/errors"
)

// NewBackoff returns the backoff used for retrying durability failures
// unless configured otherwise.
func NewBackoff() backoff.BackOff {
	return ConstantBackoff(3, 50*time.Millisecond)
}

// ConstantBackoff retries maxrtry times with a fixed interval.
func ConstantBackoff(maxrtry int, interval time.Duration) backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), uint64(maxrtry))
}

// After MaxElapsedTime the backoff.BackOff returns Stop.
// It never stops if MaxElapsedTime == 0.
func NewExponentialBackoff(initialInverval time.Duration, maxElapsedTime time.Duration) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = initialInverval
	eb.MaxElapsedTime = maxElapsedTime
	return eb
}

// RetryDurable runs op until it succeeds, fails with an error which is not
// retryable, b gives up or ctx is done. onRetry is called before every
// retry and may be nil.
func RetryDurable(ctx context.Context, b backoff.BackOff, op func() error,
	onRetry func(err error, next time.Duration),
) error {
	wrapped := func() error {
		err := op()
		if err != nil && !enterrors.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	if onRetry == nil {
		return backoff.Retry(wrapped, backoff.WithContext(b, ctx))
	}
	return backoff.RetryNotify(wrapped, backoff.WithContext(b, ctx), onRetry)
}
