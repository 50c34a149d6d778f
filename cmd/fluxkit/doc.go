// Package main hosts the fluxkit CLI entrypoint and command graph.
//
// The Cobra command tree inspects and rewrites SCP flux captures, generates
// the reference erase pattern, drives write and erase sessions against the
// configured drive, browses the session history and tails the log.
// Configuration resolution and logging setup live here so subcommands stay
// declarative; the heavy lifting belongs in the internal packages.
package main
