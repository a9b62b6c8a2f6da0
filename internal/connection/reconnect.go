package connection

import (
	"context"
	stderrors "errors"

	"github.com/wagiedev/godot-bridge-go/internal/errors"
)

// reconnector is a running background reconnect loop.
type reconnector struct {
	cancel context.CancelFunc
}

// startReconnectLocked starts the background reconnect loop unless one is
// already running. Caller must hold c.mu.
func (c *Connection) startReconnectLocked() {
	if c.reconnect != nil || c.closed {
		return
	}

	ctx, cancel := context.WithCancel(c.ctx)
	r := &reconnector{cancel: cancel}
	c.reconnect = r

	c.wg.Go(func() {
		defer cancel()

		err := c.connectLoop(ctx, true)

		c.mu.Lock()
		if c.reconnect == r {
			c.reconnect = nil
		}
		c.mu.Unlock()

		switch {
		case err == nil:
			c.log.Info("Reconnected to editor")
		case ctx.Err() != nil:
			c.log.Debug("Reconnect loop stopped")
		default:
			c.log.Error("Giving up reconnecting to editor", "error", err)
		}
	})
}

// stopReconnectLocked cancels the background reconnect loop. Caller must hold c.mu.
func (c *Connection) stopReconnectLocked() {
	if c.reconnect == nil {
		return
	}

	c.reconnect.cancel()
	c.reconnect = nil
}

// connectLoop makes connection attempts until one succeeds, ctx is done, or
// MaxReconnectAttempts attempts have failed. With delayFirst set, the backoff
// delay is also applied before the first attempt.
func (c *Connection) connectLoop(ctx context.Context, delayFirst bool) error {
	var lastErr error

	for n := 1; ; n++ {
		if limit := c.opts.MaxReconnectAttempts; limit > 0 && n > limit {
			return lastErr
		}

		if n > 1 || delayFirst {
			delay := c.backoff.Delay(n)
			c.log.Debug("Waiting before connection attempt", "attempt", n, "delay", delay)

			if err := sleepWithContext(ctx, delay); err != nil {
				return err
			}
		}

		a, err := c.beginAttempt()
		if err != nil {
			return err
		}

		if a == nil {
			return nil
		}

		err = a.wait(ctx)
		if err == nil {
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Abandoned by Disconnect or Close.
		if stderrors.Is(err, errors.ErrConnectionClosed) {
			return err
		}

		lastErr = err
		c.log.Warn("Connection attempt failed", "attempt", n, "error", err)
	}
}
