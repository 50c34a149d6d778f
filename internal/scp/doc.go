// Package scp reads and writes SCP flux-capture containers.
//
// A container starts with a 16-byte little-endian header and a table of 168
// track offsets. Each populated track holds a "TRK" header with one
// (duration, sample count, data offset) entry per revolution, followed by
// 16-bit big-endian flux samples at a fixed 40 MHz sample clock.
//
// Parsing has two cost levels: revolution summaries only, or summaries plus
// the full sample stream. Callers ask for samples only when they need them.
package scp
