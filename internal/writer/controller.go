package writer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"fluxkit/internal/diskimage"
	"fluxkit/internal/fault"
	"fluxkit/internal/flux"
	"fluxkit/internal/logging"
)

const (
	// CalibrationRevs is how many revolutions calibration reads.
	CalibrationRevs = 2
	// EraseMultiplier stretches a blank-track erase past one revolution.
	EraseMultiplier = 1.1
)

// Action is what a session did to a track.
type Action string

const (
	ActionWrite Action = "write"
	ActionErase Action = "erase"
)

// TrackResult is reported for every track a session touches, including the
// one that ended it.
type TrackResult struct {
	Track    flux.TrackID
	Action   Action
	Writes   int
	Readback *flux.Flux
	Duration time.Duration
	Err      error
}

// Recorder receives track results as a session progresses.
type Recorder interface {
	RecordTrack(ctx context.Context, result TrackResult) error
}

// Range selects cylinders StartCyl..EndCyl inclusive on Sides heads.
type Range struct {
	StartCyl int
	EndCyl   int
	Sides    int
}

// Tracks lists the range in write order.
func (r Range) Tracks() []flux.TrackID {
	if r.EndCyl < r.StartCyl || r.Sides <= 0 {
		return nil
	}
	out := make([]flux.TrackID, 0, (r.EndCyl-r.StartCyl+1)*r.Sides)
	for cyl := r.StartCyl; cyl <= r.EndCyl; cyl++ {
		for head := 0; head < r.Sides; head++ {
			out = append(out, flux.TrackID{Cyl: cyl, Head: head})
		}
	}
	return out
}

// TrackError reports the track that ended a session.
type TrackError struct {
	Track flux.TrackID
	Err   error
}

func (e *TrackError) Error() string {
	return fmt.Sprintf("track %s: %v", e.Track, e.Err)
}

func (e *TrackError) Unwrap() error { return e.Err }

// Summary totals a session.
type Summary struct {
	Tracks  int
	Written int
	Erased  int
	Retries int
}

// Controller serializes every command of a session onto one Transport.
type Controller struct {
	transport  Transport
	rate       flux.TickRate
	logger     *slog.Logger
	recorder   Recorder
	driveTicks float64
}

// Option configures a Controller.
type Option func(*Controller)

// WithRecorder reports every track result to r.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// New returns a Controller for t, whose sample clock is rate.
func New(t Transport, rate flux.TickRate, logger *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		transport: t,
		rate:      rate,
		logger:    logging.NewComponentLogger(logger, "writer"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DriveTicks returns the calibrated ticks per revolution, or 0.
func (c *Controller) DriveTicks() float64 {
	return c.driveTicks
}

// Calibrate measures the destination drive's revolution as the mean of two
// index-to-index intervals.
func (c *Controller) Calibrate(ctx context.Context) (float64, error) {
	f, err := c.transport.Read(ctx, CalibrationRevs)
	if err != nil {
		return 0, fault.Wrap(fault.ErrCalibration, "calibrate", "read", "", err)
	}
	if f == nil {
		return 0, fault.Wrap(fault.ErrCalibration, "calibrate", "read", "transport returned no flux", nil)
	}
	if len(f.IndexList) < CalibrationRevs {
		return 0, fault.Wrap(fault.ErrCalibration, "calibrate", "", fmt.Sprintf("need %d index pulses, got %d", CalibrationRevs, len(f.IndexList)), nil)
	}
	ticks := (f.IndexList[0] + f.IndexList[1]) / 2
	if ticks <= 0 || math.IsNaN(ticks) || math.IsInf(ticks, 0) {
		return 0, fault.Wrap(fault.ErrCalibration, "calibrate", "", fmt.Sprintf("implausible revolution of %v ticks", ticks), nil)
	}
	// Blank tracks are erased for EraseMultiplier revolutions in one
	// 32-bit command.
	if math.Ceil(ticks*EraseMultiplier) > math.MaxUint32 {
		return 0, fault.Wrap(fault.ErrCalibration, "calibrate", "", fmt.Sprintf("revolution of %v ticks is too long to erase", ticks), nil)
	}
	c.driveTicks = ticks
	logging.WithContext(ctx, c.logger).Info("drive calibrated",
		logging.Float64("drive_ticks", ticks),
		logging.String("rpm", fmt.Sprintf("%.2f", 60*c.rate.Hz()/ticks)),
	)
	return ticks, nil
}

// WriteTrack writes one track of image. The controller must be calibrated.
func (c *Controller) WriteTrack(ctx context.Context, id flux.TrackID, image diskimage.Image) (TrackResult, error) {
	res := TrackResult{Track: id, Action: ActionWrite}
	if c.driveTicks <= 0 {
		return res, fault.Wrap(fault.ErrCalibration, "write", "", "controller is not calibrated", nil)
	}
	if err := c.transport.Seek(ctx, id.Cyl, id.Head); err != nil {
		return res, transportError("seek", err)
	}

	track, ok, err := image.Track(id.Cyl, id.Head)
	if err != nil {
		return res, err
	}
	if !ok {
		res.Action = ActionErase
		if err := c.transport.Erase(ctx, uint32(math.Ceil(c.driveTicks*EraseMultiplier))); err != nil {
			return res, transportError("erase", err)
		}
		return res, nil
	}

	f, err := track.Flux()
	if err != nil {
		return res, err
	}
	if len(f.IndexList) == 0 {
		return res, fault.Wrap(fault.ErrInvalidEncoderInput, "write", "", "track flux has no index pulse", nil)
	}
	intervals, err := flux.Resample(f.Intervals, f.IndexList[0], c.driveTicks)
	if err != nil {
		return res, err
	}

	var verify VerifyFunc
	if v, ok := track.(diskimage.Verifier); ok {
		verify = v.Verify
	}
	out, err := WriteVerifyTrack(ctx, c.transport, intervals, f.TerminateAtIndex, verify, MaxRetries)
	res.Writes = out.Writes
	res.Readback = out.Readback
	return res, err
}

// WriteImage calibrates if needed, then writes every track in rng. The first
// failing track ends the session with a *TrackError. Cancellation is checked
// between tracks.
func (c *Controller) WriteImage(ctx context.Context, image diskimage.Image, rng Range) (Summary, error) {
	var sum Summary
	if c.driveTicks <= 0 {
		if _, err := c.Calibrate(ctx); err != nil {
			return sum, err
		}
	}

	tracks := rng.Tracks()
	progress := logging.NewProgressSampler(10)
	for i, id := range tracks {
		if err := ctx.Err(); err != nil {
			return sum, &TrackError{Track: id, Err: fmt.Errorf("session cancelled: %w", err)}
		}
		tctx := logging.WithTrack(ctx, id.String())
		logger := logging.WithContext(tctx, c.logger)

		started := time.Now()
		res, err := c.WriteTrack(tctx, id, image)
		res.Duration = time.Since(started)
		res.Err = err
		c.record(tctx, res)

		sum.Tracks++
		if res.Writes > 1 {
			sum.Retries += res.Writes - 1
			logging.WarnWithContext(tctx, c.logger, "verify needed rewrites", "verify_retry",
				logging.Int("writes", res.Writes),
				logging.String(logging.FieldImpact, "track written but the medium may be marginal"),
			)
		}
		if err != nil {
			logging.ErrorWithContext(tctx, c.logger, "track failed", fault.Kind(err),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, hintFor(err)),
			)
			return sum, &TrackError{Track: id, Err: err}
		}
		switch res.Action {
		case ActionErase:
			sum.Erased++
			logger.Debug("blank track erased")
		default:
			sum.Written++
			logger.Debug("track written", logging.Int("writes", res.Writes))
		}
		if progress.ShouldLog(i+1, len(tracks)) {
			logging.WithContext(ctx, c.logger).Info("session progress",
				logging.String("track", id.String()),
				logging.Int("done", i+1),
				logging.Int("total", len(tracks)),
			)
		}
	}
	return sum, nil
}

func (c *Controller) record(ctx context.Context, res TrackResult) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.RecordTrack(ctx, res); err != nil {
		logging.WarnWithContext(ctx, c.logger, "history record failed", "history_write",
			logging.Error(err),
			logging.String(logging.FieldImpact, "session continues without a history entry for this track"),
		)
	}
}

func hintFor(err error) string {
	switch fault.Kind(err) {
	case "verify_mismatch":
		return "clean the heads or try another disk; the medium did not hold the data"
	case "malformed_capture":
		return "the image file is corrupt; recapture the source disk"
	case "invalid_encoder_input":
		return "the image track has no usable flux"
	default:
		return "check the controller connection and cable"
	}
}
