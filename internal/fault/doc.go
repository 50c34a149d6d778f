// Package fault defines the error markers shared by the flux pipeline.
//
// Every failure that leaves a package is tagged with one of the exported
// sentinels so callers can decide with errors.Is whether it may be retried.
// Only ErrVerifyMismatch is ever retried, and only inside the write/verify
// loop; everything else aborts the session.
package fault
