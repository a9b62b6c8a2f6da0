package correlation

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wagiedev/godot-bridge-go/internal/errors"
	"github.com/wagiedev/godot-bridge-go/internal/wire"
)

// Outcome is the single result delivered to a waiting caller.
type Outcome struct {
	Reply *wire.Reply
	Err   error
}

// Pending is one in-flight command owned by the Table until it is resolved.
type Pending struct {
	ID       uint64
	Command  string
	Created  time.Time
	Deadline time.Time

	done  chan Outcome
	index int
}

// complete delivers the outcome. Only the goroutine that removed the entry
// from the table may call it, so the buffered send never blocks.
func (p *Pending) complete(o Outcome) {
	p.done <- o
}

func (p *Pending) timeoutError() error {
	return &errors.TimeoutError{
		ID:      p.ID,
		Command: p.Command,
		Timeout: p.Deadline.Sub(p.Created),
	}
}

// Handle is the caller's side of a registered command.
type Handle struct {
	p *Pending
}

// ID returns the correlation id of the command.
func (h *Handle) ID() uint64 { return h.p.ID }

// Command returns the command name.
func (h *Handle) Command() string { return h.p.Command }

// Deadline returns the time after which the command is considered timed out.
func (h *Handle) Deadline() time.Time { return h.p.Deadline }

// Done returns a channel that receives exactly one Outcome.
func (h *Handle) Done() <-chan Outcome { return h.p.done }

// Wait blocks until the command is resolved or ctx is done.
// Abandoning the wait does not remove the entry; it still resolves on its
// deadline or on drain.
func (h *Handle) Wait(ctx context.Context) (*wire.Reply, error) {
	select {
	case o := <-h.p.done:
		return o.Reply, o.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Option configures a Table.
type Option func(*Table)

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(t *Table) {
		t.now = now
	}
}

// Table maps correlation ids to pending commands.
//
// All methods are safe for concurrent use from the send path, the receive
// path, and the sweeper.
type Table struct {
	log *slog.Logger
	now func() time.Time

	mu        sync.Mutex
	entries   map[uint64]*Pending
	deadlines deadlineHeap

	// wake re-arms the sweeper when a new earliest deadline is registered
	wake chan struct{}
}

// NewTable creates an empty correlation table.
func NewTable(log *slog.Logger, opts ...Option) *Table {
	t := &Table{
		log:     log.With("component", "correlation"),
		now:     time.Now,
		entries: make(map[uint64]*Pending, 16),
		wake:    make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Register inserts a pending command and returns its completion handle.
//
// Registration first sweeps entries that are already past their deadline.
// Registering an id that is still pending fails with ErrDuplicateID.
func (t *Table) Register(id uint64, command string, deadline time.Time) (*Handle, error) {
	now := t.now()
	t.Sweep(now)

	t.mu.Lock()

	if _, exists := t.entries[id]; exists {
		t.mu.Unlock()
		t.log.Error("Correlation id registered twice", "id", id, "command", command)

		return nil, fmt.Errorf("%w: %d", errors.ErrDuplicateID, id)
	}

	p := &Pending{
		ID:       id,
		Command:  command,
		Created:  now,
		Deadline: deadline,
		done:     make(chan Outcome, 1),
	}

	t.entries[id] = p
	heap.Push(&t.deadlines, p)
	earliest := t.deadlines.peek() == p

	t.mu.Unlock()

	if earliest {
		t.notify()
	}

	return &Handle{p: p}, nil
}

// Resolve completes the entry for id with reply.
//
// An unknown id (a late reply after timeout or drain) is a no-op. A reply
// observed at or after the entry's deadline completes it with a timeout, so a
// command never succeeds late. Returns true if the reply was delivered.
func (t *Table) Resolve(id uint64, reply *wire.Reply) bool {
	now := t.now()

	t.mu.Lock()
	p := t.take(id)
	t.mu.Unlock()

	if p == nil {
		t.log.Debug("Discarding reply for unknown command", "id", id)

		return false
	}

	if !now.Before(p.Deadline) {
		t.log.Debug("Reply arrived after deadline", "id", id, "command", p.Command)
		p.complete(Outcome{Err: p.timeoutError()})

		return false
	}

	p.complete(Outcome{Reply: reply})

	return true
}

// Fail completes the entry for id with err. Returns false if id is not pending.
func (t *Table) Fail(id uint64, err error) bool {
	t.mu.Lock()
	p := t.take(id)
	t.mu.Unlock()

	if p == nil {
		return false
	}

	p.complete(Outcome{Err: err})

	return true
}

// Sweep fails every entry whose deadline is at or before now with a timeout
// error and returns how many were expired.
func (t *Table) Sweep(now time.Time) int {
	t.mu.Lock()

	var expired []*Pending

	for p := t.deadlines.peek(); p != nil && !now.Before(p.Deadline); p = t.deadlines.peek() {
		heap.Pop(&t.deadlines)
		delete(t.entries, p.ID)
		expired = append(expired, p)
	}

	t.mu.Unlock()

	for _, p := range expired {
		t.log.Warn("Command timed out", "id", p.ID, "command", p.Command, "timeout", p.Deadline.Sub(p.Created))
		p.complete(Outcome{Err: p.timeoutError()})
	}

	return len(expired)
}

// DrainAll fails every pending entry with err and returns how many were drained.
func (t *Table) DrainAll(err error) int {
	t.mu.Lock()

	drained := make([]*Pending, 0, len(t.entries))
	for _, p := range t.entries {
		p.index = -1
		drained = append(drained, p)
	}

	clear(t.entries)
	t.deadlines = nil

	t.mu.Unlock()

	for _, p := range drained {
		p.complete(Outcome{Err: err})
	}

	if len(drained) > 0 {
		t.log.Info("Drained pending commands", "count", len(drained), "reason", err)
	}

	return len(drained)
}

// Len returns the number of pending entries.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.entries)
}

// NextDeadline returns the earliest pending deadline, if any.
func (t *Table) NextDeadline() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.deadlines.peek()
	if p == nil {
		return time.Time{}, false
	}

	return p.Deadline, true
}

// Run sweeps expired entries until ctx is done.
//
// A timer is armed for the earliest deadline and re-armed whenever an earlier
// one is registered. When interval is positive, a periodic sweep also runs as
// a backstop.
func (t *Table) Run(ctx context.Context, interval time.Duration) {
	var tick <-chan time.Time

	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		tick = ticker.C
	}

	timer := time.NewTimer(0)
	timer.Stop()

	defer timer.Stop()
	defer t.log.Debug("Sweeper stopped")

	for {
		if next, ok := t.NextDeadline(); ok {
			timer.Reset(max(next.Sub(t.now()), 0))
		} else {
			timer.Stop()
		}

		select {
		case <-ctx.Done():
			return
		case <-t.wake:
		case <-timer.C:
			t.Sweep(t.now())
		case <-tick:
			t.Sweep(t.now())
		}
	}
}

// take removes and returns the entry for id. Caller must hold t.mu.
func (t *Table) take(id uint64) *Pending {
	p, ok := t.entries[id]
	if !ok {
		return nil
	}

	delete(t.entries, id)

	if p.index >= 0 && p.index < len(t.deadlines) && t.deadlines[p.index] == p {
		heap.Remove(&t.deadlines, p.index)
	}

	return p
}

func (t *Table) notify() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}
