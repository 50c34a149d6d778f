// Package history records write sessions in a SQLite database.
//
// Each session row summarises one write or erase run; each track row holds
// the outcome for one track and, optionally, a zstd-compressed snapshot of
// the last verify readback.
package history
