// Package writer drives track write/verify sessions against a flux
// controller.
//
// A session calibrates once against the destination drive, then walks the
// requested tracks: blank tracks are bulk-erased, all others are resampled
// to the drive's revolution and written, with an optional verify loop that
// retries only on verify mismatches. Any other error ends the session.
package writer
