// Package session launches commands attached to a pseudo-terminal and
// supervises their lifetime.
//
// Each session owns the terminal pair, a dedicated stderr pipe, and exactly
// two background goroutines: an exit watcher that performs the only wait on
// the child and publishes the result once, and a termination scheduler that
// escalates from a graceful signal to a forced kill after a grace delay.
//
// Full process-group termination is only guaranteed on Unix-like systems,
// where the child is made the leader of a new session and signals are
// delivered to the whole group. On Windows the session runs over plain
// pipes with best-effort semantics: the interrupt and kill are delivered to
// the direct child only, and grandchildren must be cleaned up by the
// caller. The externally observable contract, graceful then forceful with
// the same timing, is identical on both backends.
package session
