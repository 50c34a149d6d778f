// Package drive connects fluxkit to a flux controller and its drive.
//
// It discovers controllers attached over USB serial, waits for one to be
// plugged in, guards each device with an advisory lock so two processes never
// interleave commands, and provides Sim, an in-memory drive that stands in
// for hardware.
package drive
