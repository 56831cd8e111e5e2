// Package pty allocates and configures pseudo-terminal pairs for supervised
// sessions.
//
// The master side is placed into raw mode at allocation time so every byte
// written by the child reaches the supervisor unmodified, and reads on the
// master return as soon as at least one byte is available. The slave side is
// handed to the spawned process as its controlling terminal.
package pty
