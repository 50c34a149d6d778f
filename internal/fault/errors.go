package fault

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTransport           = errors.New("transport error")
	ErrVerifyMismatch      = errors.New("verify mismatch")
	ErrMalformedCapture    = errors.New("malformed capture")
	ErrInvalidEncoderInput = errors.New("invalid encoder input")
	ErrCalibration         = errors.New("calibration failed")
	ErrConfiguration       = errors.New("configuration error")
	ErrDeviceBusy          = errors.New("device busy")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether the write/verify loop may try again after err.
func Retryable(err error) bool {
	return errors.Is(err, ErrVerifyMismatch)
}

// Kind returns a short classification used in history records and exit
// reporting.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrVerifyMismatch):
		return "verify_mismatch"
	case errors.Is(err, ErrMalformedCapture):
		return "malformed_capture"
	case errors.Is(err, ErrInvalidEncoderInput):
		return "invalid_encoder_input"
	case errors.Is(err, ErrCalibration):
		return "calibration"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrDeviceBusy):
		return "device_busy"
	default:
		return "transport"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "flux failure"
	}
	return strings.Join(parts, ": ")
}
