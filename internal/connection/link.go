package connection

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/godot-bridge-go/internal/errors"
	"github.com/wagiedev/godot-bridge-go/internal/transport"
)

// activeLink is an established link and the goroutines serving it.
type activeLink struct {
	id          ulid.ULID
	link        transport.Link
	connectedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	eg     *errgroup.Group
}

// close stops the link goroutines and closes the underlying link.
func (al *activeLink) close() error {
	err := al.link.Close()
	al.cancel()

	return err
}

// startLinkLocked installs link as the current link and starts its read
// loop, optional keepalive, and supervisor. Caller must hold c.mu.
func (c *Connection) startLinkLocked(link transport.Link) *activeLink {
	ctx, cancel := context.WithCancel(c.ctx)
	eg, egCtx := errgroup.WithContext(ctx)

	al := &activeLink{
		id:          newLinkID(),
		link:        link,
		connectedAt: time.Now(),
		ctx:         egCtx,
		cancel:      cancel,
		eg:          eg,
	}

	c.link = al
	c.state = StateConnected
	close(c.connected)
	c.touch()

	eg.Go(func() error {
		return c.readLoop(egCtx, al)
	})

	if c.opts.PingInterval > 0 {
		eg.Go(func() error {
			return c.pingLoop(egCtx, al)
		})
	}

	c.wg.Go(func() {
		c.superviseLink(al)
	})

	return al
}

// readLoop is the sole reader of the link. It dispatches every inbound frame
// and returns why reading stopped.
func (c *Connection) readLoop(ctx context.Context, al *activeLink) error {
	defer c.log.Debug("Read loop stopped", "link_id", al.id.String())

	messages, errs := al.link.ReadMessages(ctx)

	for data := range messages {
		c.touch()
		c.dispatcher.Dispatch(ctx, data)
	}

	if err, ok := <-errs; ok && err != nil {
		return err
	}

	return errors.ErrLinkClosed
}

// pingLoop pings the editor every PingInterval. A failed ping ends the link.
func (c *Connection) pingLoop(ctx context.Context, al *activeLink) error {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		pingCtx, cancel := context.WithTimeout(ctx, c.opts.PingInterval)
		err := al.link.Ping(pingCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			c.log.Warn("Keepalive ping failed", "link_id", al.id.String(), "error", err)

			return fmt.Errorf("keepalive: %w", err)
		}

		c.touch()
	}
}

// superviseLink waits for the link goroutines to stop and tears the link
// down if it was lost rather than closed on request.
func (c *Connection) superviseLink(al *activeLink) {
	cause := al.eg.Wait()

	c.mu.Lock()

	if c.link != al {
		// Disconnect already took the link down.
		c.mu.Unlock()

		return
	}

	c.link = nil
	c.state = StateDisconnected
	c.connected = make(chan struct{})

	// Drain before releasing the lock so no command on a newer link is failed
	// by this link's loss.
	drained := c.table.DrainAll(fmt.Errorf("%w: %w", errors.ErrConnectionLost, cause))

	if c.opts.AutoReconnect && !c.closed {
		c.startReconnectLocked()
	}

	c.mu.Unlock()

	c.log.Warn("Lost connection to editor", "link_id", al.id.String(), "error", cause, "failed_commands", drained)

	if err := al.close(); err != nil {
		c.log.Debug("Closing lost link failed", "link_id", al.id.String(), "error", err)
	}
}
