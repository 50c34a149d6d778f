package writer

import (
	"context"
	"errors"
	"fmt"

	"fluxkit/internal/fault"
	"fluxkit/internal/flux"
)

// Transport is the command surface of a flux controller with a drive
// selected. Ticks are in the controller's sample clock.
type Transport interface {
	Seek(ctx context.Context, cyl, head int) error
	Erase(ctx context.Context, ticks uint32) error
	Write(ctx context.Context, intervals []uint32, terminateAtIndex bool) error
	Read(ctx context.Context, revs int) (*flux.Flux, error)
}

// VerifyReader hands a verifier readbacks of the current track, at most
// limit of them per write.
type VerifyReader struct {
	transport Transport
	limit     int
	attempts  int
	last      *flux.Flux
}

// NewVerifyReader returns a reader allowing limit readbacks.
func NewVerifyReader(t Transport, limit int) *VerifyReader {
	return &VerifyReader{transport: t, limit: limit}
}

// ReadTrack reads revs revolutions. Once the allowance is spent it fails
// with fault.ErrVerifyMismatch without touching the transport.
func (r *VerifyReader) ReadTrack(ctx context.Context, revs int) (*flux.Flux, error) {
	if r.attempts >= r.limit {
		return nil, fault.Wrap(fault.ErrVerifyMismatch, "verify", "read", fmt.Sprintf("no match within %d readbacks", r.limit), nil)
	}
	r.attempts++
	f, err := r.transport.Read(ctx, revs)
	if err != nil {
		return nil, transportError("read", err)
	}
	r.last = f
	return f, nil
}

// Attempts returns how many readbacks were taken.
func (r *VerifyReader) Attempts() int { return r.attempts }

// Last returns the most recent readback, or nil.
func (r *VerifyReader) Last() *flux.Flux { return r.last }

func transportError(operation string, err error) error {
	if errors.Is(err, fault.ErrTransport) {
		return err
	}
	return fault.Wrap(fault.ErrTransport, "transport", operation, "", err)
}
