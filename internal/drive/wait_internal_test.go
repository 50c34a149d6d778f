package drive

import (
	"testing"

	"github.com/pilebones/go-udev/netlink"
)

func TestPortFromEvent(t *testing.T) {
	ev := netlink.UEvent{
		Action: netlink.ADD,
		KObj:   "/devices/pci0000:00/usb1/1-1/1-1:1.0/tty/ttyACM0",
		Env: map[string]string{
			"SUBSYSTEM":       "tty",
			"DEVNAME":         "/dev/ttyACM0",
			"ID_VENDOR_ID":    "1209",
			"ID_MODEL_ID":     "4d69",
			"ID_SERIAL_SHORT": "GW1234",
		},
	}
	p := portFromEvent(ev)
	if p.Device != "/dev/ttyACM0" || p.VID != VendorID || p.PID != ProductID {
		t.Fatalf("unexpected port %+v", p)
	}
	if ScorePort(p, nil) != 20 {
		t.Fatalf("score = %d", ScorePort(p, nil))
	}
	if !ttyMatcher().Evaluate(ev) {
		t.Fatal("matcher rejected a tty add event")
	}
	ev.Env["SUBSYSTEM"] = "block"
	if ttyMatcher().Evaluate(ev) {
		t.Fatal("matcher accepted a block event")
	}
}
