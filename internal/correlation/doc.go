// Package correlation tracks commands that are waiting for a reply.
//
// The Table maps a correlation id to a one-shot completion Handle. Every
// entry is resolved exactly once: by a matching reply, by its deadline
// passing, or by a drain when the connection goes away. Deadlines are kept in
// a min-heap so that the sweeper only ever looks at entries that are due.
//
// Example usage:
//
//	table := correlation.NewTable(log)
//	go table.Run(ctx, time.Second)
//
//	handle, err := table.Register(id, "ping", time.Now().Add(5*time.Second))
//	...
//	table.Resolve(id, reply)
//	outcome := <-handle.Done()
package correlation
