package drive

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"fluxkit/internal/fault"
)

// CheckAccess verifies that path is a character device this process can
// read and write.
func CheckAccess(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fault.Wrap(fault.ErrTransport, "drive", "preflight", path, err)
	}
	if info.Mode()&os.ModeCharDevice == 0 {
		return fault.Wrap(fault.ErrTransport, "drive", "preflight", fmt.Sprintf("%s is not a character device", path), nil)
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK); err != nil {
		return fault.Wrap(fault.ErrTransport, "drive", "preflight", fmt.Sprintf("%s: insufficient permissions (is the user in the dialout group?)", path), err)
	}
	return nil
}
