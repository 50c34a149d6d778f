package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"fluxkit/internal/config"
	"fluxkit/internal/diskimage"
	"fluxkit/internal/drive"
	"fluxkit/internal/history"
	"fluxkit/internal/logging"
	"fluxkit/internal/writer"
)

type rangeFlags struct {
	startCyl    int
	endCyl      int
	singleSided bool
}

func (f *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.startCyl, "start-cyl", 0, "First cylinder (default from config)")
	cmd.Flags().IntVar(&f.endCyl, "end-cyl", 0, "Last cylinder, inclusive (default from config)")
	cmd.Flags().BoolVar(&f.singleSided, "single-sided", false, "Write head 0 only")
}

// resolve prefers explicit flags, then fallback, whose zero Sides means the
// configured range.
func (f *rangeFlags) resolve(cmd *cobra.Command, cfg *config.Config, fallback writer.Range) (writer.Range, error) {
	rng := writer.Range{StartCyl: cfg.Write.StartCyl, EndCyl: cfg.Write.EndCyl, Sides: cfg.Sides()}
	if fallback.Sides > 0 {
		rng = fallback
	}
	if cmd.Flags().Changed("start-cyl") {
		rng.StartCyl = f.startCyl
	}
	if cmd.Flags().Changed("end-cyl") {
		rng.EndCyl = f.endCyl
	}
	if cmd.Flags().Changed("single-sided") && f.singleSided {
		rng.Sides = 1
	}
	if rng.StartCyl < 0 || rng.EndCyl < rng.StartCyl || rng.EndCyl > config.MaxCylinder {
		return rng, fmt.Errorf("invalid cylinder range %d-%d", rng.StartCyl, rng.EndCyl)
	}
	return rng, nil
}

type sessionRequest struct {
	command string
	image   diskimage.Image
	label   string
	rng     writer.Range
}

// runSession opens the drive, records the session in history when enabled,
// and writes req.image across req.rng.
func runSession(cmd *cobra.Command, ctx *commandContext, req sessionRequest) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	dev, err := drive.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer dev.Close()

	sessionID := uuid.NewString()
	var opts []writer.Option
	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		sess, err := store.StartSession(cmd.Context(), history.Session{
			Command: req.command,
			Device:  dev.Path,
			Image:   req.label,
			Range:   req.rng,
		})
		if err != nil {
			return err
		}
		sessionID = sess.ID
		opts = append(opts, writer.WithRecorder(store.Recorder(sess.ID, cfg.History.KeepReadback)))
	}

	runCtx := logging.WithSession(cmd.Context(), sessionID)
	logger = logging.NewComponentLogger(logger, req.command)
	logging.WithContext(runCtx, logger).Info("session started",
		logging.String("image", req.label),
		logging.String("drive", dev.Letter.String()),
		logging.Int("start_cyl", req.rng.StartCyl),
		logging.Int("end_cyl", req.rng.EndCyl),
		logging.Int("sides", req.rng.Sides),
	)

	started := time.Now()
	ctrl := writer.New(dev.Transport, dev.Rate, logger, opts...)
	sum, runErr := ctrl.WriteImage(runCtx, req.image, req.rng)
	elapsed := time.Since(started)

	if store != nil {
		if err := store.FinishSession(context.WithoutCancel(runCtx), sessionID, ctrl.DriveTicks(), sum, runErr); err != nil {
			logging.WarnWithContext(runCtx, logger, "history update failed", "history_write",
				logging.Error(err),
				logging.String(logging.FieldImpact, "session outcome missing from history"),
			)
		}
	}

	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	fmt.Fprintln(out, renderField("Session", sessionID))
	fmt.Fprintln(out, renderField("Tracks", fmt.Sprintf("%d (%d written, %d erased)", sum.Tracks, sum.Written, sum.Erased)))
	if sum.Retries > 0 {
		fmt.Fprintln(out, renderStatusLine("Retries", statusWarn, formatCount(sum.Retries), colorize))
	}
	fmt.Fprintln(out, renderField("Elapsed", elapsed.Round(time.Millisecond).String()))
	if runErr != nil {
		fmt.Fprintln(out, renderStatusLine("Result", statusError, runErr.Error(), colorize))
		return runErr
	}
	fmt.Fprintln(out, renderStatusLine("Result", statusOK, "all tracks done", colorize))
	return nil
}
