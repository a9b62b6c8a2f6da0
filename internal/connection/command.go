package connection

import (
	"context"
	"fmt"
	"time"

	"github.com/wagiedev/godot-bridge-go/internal/errors"
	"github.com/wagiedev/godot-bridge-go/internal/wire"
)

// CommandOption configures a single SendCommand call.
type CommandOption func(*commandConfig)

type commandConfig struct {
	timeout time.Duration
}

// WithTimeout overrides the default command timeout for one call.
// Non-positive values are ignored.
func WithTimeout(d time.Duration) CommandOption {
	return func(cfg *commandConfig) {
		if d > 0 {
			cfg.timeout = d
		}
	}
}

// SendCommand sends a named command and waits for its reply.
//
// When no link is up, SendCommand joins a connection attempt in progress, or
// starts one if AutoReconnect is enabled; otherwise it fails immediately with
// ErrNotConnected and nothing is sent. The command then either resolves with
// the editor's payload or fails with exactly one of:
//
//   - *errors.RemoteError if the editor reported an error
//   - *errors.ProtocolError if the reply could not be interpreted
//   - *errors.TimeoutError (ErrRequestTimeout) if no reply arrived in time
//   - ErrConnectionLost if the link dropped or the command could not be written
//
// Cancelling ctx returns ctx.Err() without cancelling the command remotely;
// it stays tracked until its deadline or the end of the link.
// SendCommand never retries.
func (c *Connection) SendCommand(
	ctx context.Context,
	name string,
	params map[string]any,
	opts ...CommandOption,
) (*wire.Result, error) {
	cfg := commandConfig{timeout: c.opts.CommandTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	al, err := c.ensureLink(ctx)
	if err != nil {
		return nil, err
	}

	id := c.nextID.Add(1)

	data, err := wire.Encode(id, name, params)
	if err != nil {
		return nil, err
	}

	h, err := c.table.Register(id, name, time.Now().Add(cfg.timeout))
	if err != nil {
		return nil, err
	}

	// The link may have been replaced between ensureLink and Register; the
	// drain that retired it could not have seen this entry.
	if c.currentLink() != al {
		c.table.Fail(id, fmt.Errorf("%w: link closed before command was sent", errors.ErrConnectionLost))

		return nil, (<-h.Done()).Err
	}

	c.log.Debug("Sending command", "id", id, "command", name, "timeout", cfg.timeout)

	writeCtx, cancel := context.WithTimeout(al.ctx, cfg.timeout)
	err = al.link.SendMessage(writeCtx, data)
	cancel()

	if err != nil {
		c.log.Warn("Failed to send command", "id", id, "command", name, "error", err)
		c.table.Fail(id, fmt.Errorf("%w: %w", errors.ErrConnectionLost, err))

		return nil, (<-h.Done()).Err
	}

	reply, err := h.Wait(ctx)
	if err != nil {
		c.log.Debug("Command failed", "id", id, "command", name, "error", err)

		return nil, err
	}

	return commandResult(id, name, reply)
}

// ensureLink returns the live link, connecting first if allowed.
func (c *Connection) ensureLink(ctx context.Context) (*activeLink, error) {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()

		return nil, errors.ErrClosed
	}

	if al := c.link; al != nil {
		c.mu.Unlock()

		return al, nil
	}

	a := c.attempt
	if a == nil {
		if !c.opts.AutoReconnect {
			c.mu.Unlock()

			return nil, errors.ErrNotConnected
		}

		a = c.beginAttemptLocked()
	}

	c.mu.Unlock()

	if err := a.wait(ctx); err != nil {
		return nil, err
	}

	if al := c.currentLink(); al != nil {
		return al, nil
	}

	return nil, errors.ErrNotConnected
}

// commandResult maps a reply to the caller-facing result.
func commandResult(id uint64, name string, reply *wire.Reply) (*wire.Result, error) {
	switch {
	case reply.Malformed != nil:
		return nil, &errors.ProtocolError{ID: id, Command: name, Err: reply.Malformed}

	case reply.Fault != nil:
		return nil, &errors.RemoteError{
			ID:      id,
			Command: name,
			Message: reply.Fault.Message,
			Code:    reply.Fault.Code,
			Data:    reply.Fault.Data,
		}
	}

	return &wire.Result{Raw: reply.Payload}, nil
}
