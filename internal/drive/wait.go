package drive

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/pilebones/go-udev/netlink"

	"fluxkit/internal/fault"
	"fluxkit/internal/logging"
)

// WaitForPort returns a controller already present under root, or waits for
// udev to announce one.
func WaitForPort(ctx context.Context, root string, logger *slog.Logger) (Port, error) {
	logger = logging.NewComponentLogger(logger, "hotplug")
	if ports, err := ListPorts(root); err == nil {
		if p, err := FindPort(ports, nil); err == nil {
			return p, nil
		}
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		return Port{}, fault.Wrap(fault.ErrTransport, "drive", "wait", "connect to udev netlink socket", err)
	}
	defer conn.Close()

	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	quit := conn.Monitor(queue, errs, ttyMatcher())
	defer close(quit)

	logger.Info("waiting for flux controller", logging.String(logging.FieldEventType, "hotplug_wait"))
	for {
		select {
		case <-ctx.Done():
			return Port{}, fmt.Errorf("wait for controller: %w", ctx.Err())
		case err := <-errs:
			logging.WarnWithContext(ctx, logger, "netlink monitor error", "netlink_monitor_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "hotplug events may be missed"),
			)
		case ev := <-queue:
			p := portFromEvent(ev)
			if ScorePort(p, nil) == 0 {
				logger.Debug("ignoring tty event", logging.String("device", p.Device), logging.String("action", string(ev.Action)))
				continue
			}
			logger.Info("flux controller attached", logging.String("device", p.Device))
			return p, nil
		}
	}
}

func ttyMatcher() netlink.Matcher {
	action := "add"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "tty",
		},
	})
	return rules
}

// portFromEvent builds a Port from the properties udev attaches to a tty.
func portFromEvent(ev netlink.UEvent) Port {
	p := Port{
		Manufacturer: ev.Env["ID_VENDOR"],
		Product:      ev.Env["ID_MODEL"],
		VID:          parseHexID(ev.Env["ID_VENDOR_ID"]),
		PID:          parseHexID(ev.Env["ID_MODEL_ID"]),
		Serial:       ev.Env["ID_SERIAL_SHORT"],
		Location:     ev.Env["ID_PATH"],
	}
	if name := ev.Env["DEVNAME"]; name != "" {
		p.Device = name
	}
	return p
}

func parseHexID(s string) uint16 {
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0
	}
	return uint16(v)
}
