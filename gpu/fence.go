// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// FenceValue is a point on the GPU timeline. Values only increase.
type FenceValue uint64

// waitFence blocks until f reaches value. A positive timeout bounds the wait
// independently of ctx and maps expiry to ErrFenceTimeout.
func waitFence(ctx context.Context, f Fence, value FenceValue, timeout time.Duration) error {
	if f.CompletedValue() >= value {
		return nil
	}
	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	err := f.Wait(waitCtx, value)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w: value %d after %v", ErrFenceTimeout, value, timeout)
	}
	return err
}
