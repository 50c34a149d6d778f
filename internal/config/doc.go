// Package config loads, normalizes, and validates fluxkit configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and applies FLUXKIT_* environment overrides on top. The Config
// type centralizes every knob the CLI needs: the controller device and drive
// selection, the default cylinder range, the history database, and the
// simulated drive used when no hardware protocol is available.
package config
