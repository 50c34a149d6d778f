// Package logs reads the fluxkit log file for the `fluxkit logs` command:
// the last lines on demand, then new lines as sessions append them.
package logs
