// Package flux models magnetic flux timing and the pure transforms over it.
//
// A track is a sequence of flux intervals: the ticks between two consecutive
// transitions on the medium, measured against some sample clock. The package
// converts bit patterns into intervals (EncodeBits), moves intervals between
// clock domains (Rescale, Resample, NormaliseRPM), and recovers bitcells from
// intervals with a software PLL (DecodeBitcells).
//
// Nothing here performs I/O or keeps shared state; every function is safe to
// call from multiple goroutines on distinct inputs.
package flux
