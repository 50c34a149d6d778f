package drive

import (
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"fluxkit/internal/fault"
)

// USB identifiers of flux controllers.
const (
	VendorID      = 0x1209
	ProductID     = 0x4d69
	TestProductID = 0x0001

	controllerManufacturer = "Keir Fraser"
	controllerProduct      = "Greaseweazle"
)

// DefaultSysfsRoot is where ListPorts looks for tty devices.
const DefaultSysfsRoot = "/sys/class/tty"

// Port describes a USB serial port.
type Port struct {
	Device       string
	Manufacturer string
	Product      string
	VID          uint16
	PID          uint16
	Serial       string
	Location     string
}

func validSerial(serial string) bool {
	return strings.HasPrefix(strings.ToUpper(serial), "GW")
}

// ScorePort rates how likely p is a flux controller; zero means not at all.
// When reopening a known port, pass it as old so that a changed serial
// number or location disqualifies the candidate.
func ScorePort(p Port, old *Port) int {
	score := 0
	switch {
	case p.Manufacturer == controllerManufacturer && p.Product == controllerProduct:
		score = 20
	case p.VID == VendorID && p.PID == ProductID:
		score = 20
	case p.VID == VendorID && p.PID == TestProductID:
		// Shared test PID; other devices use it too.
		score = 10
	}
	if score > 0 && validSerial(p.Serial) {
		switch {
		case old == nil || !validSerial(old.Serial):
			score = 20
		case p.Serial == old.Serial:
			score = 30
		default:
			score = 0
		}
	}
	if old != nil && old.Location != "" && p.Location != old.Location {
		score = 0
	}
	return score
}

// FindPort returns the best scoring port.
func FindPort(ports []Port, old *Port) (Port, error) {
	best, bestScore := Port{}, 0
	for _, p := range ports {
		if s := ScorePort(p, old); s > bestScore {
			best, bestScore = p, s
		}
	}
	if bestScore == 0 {
		return Port{}, fault.Wrap(fault.ErrTransport, "drive", "discover", "cannot find a flux controller", nil)
	}
	return best, nil
}

// ListPorts enumerates tty devices under root that sit on a USB interface.
func ListPorts(root string) ([]Port, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var ports []Port
	for _, e := range entries {
		dev, err := filepath.EvalSymlinks(filepath.Join(root, e.Name(), "device"))
		if err != nil {
			continue
		}
		usb := usbDeviceDir(dev)
		if usb == "" {
			continue
		}
		ports = append(ports, Port{
			Device:       "/dev/" + e.Name(),
			Manufacturer: readAttr(usb, "manufacturer"),
			Product:      readAttr(usb, "product"),
			VID:          readHexAttr(usb, "idVendor"),
			PID:          readHexAttr(usb, "idProduct"),
			Serial:       readAttr(usb, "serial"),
			Location:     filepath.Base(usb),
		})
	}
	slices.SortFunc(ports, func(a, b Port) int { return strings.Compare(a.Device, b.Device) })
	return ports, nil
}

// usbDeviceDir walks up from a tty's interface directory to the USB device
// carrying idVendor.
func usbDeviceDir(dir string) string {
	for i := 0; i < 4 && dir != "/" && dir != "."; i++ {
		if _, err := os.Stat(filepath.Join(dir, "idVendor")); err == nil {
			return dir
		}
		dir = filepath.Dir(dir)
	}
	return ""
}

func readAttr(dir, name string) string {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func readHexAttr(dir, name string) uint16 {
	v, err := strconv.ParseUint(readAttr(dir, name), 16, 16)
	if err != nil {
		return 0
	}
	return uint16(v)
}
