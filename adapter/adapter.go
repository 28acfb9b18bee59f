package adapter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Adapter defines the interface for printer communication adapters
type Adapter interface {
	// Open opens the connection to the printer
	Open() error

	// Write sends data to the printer
	Write(data []byte) (int, error)

	// Read reads data from the printer
	Read(buf []byte) (int, error)

	// Close closes the connection to the printer
	Close() error

	// IsOpen returns whether the connection is open
	IsOpen() bool
}

var (
	// ErrNoInterface is returned when no printer interface is configured
	ErrNoInterface = errors.New("printer interface not configured")

	// ErrUnsupportedInterface is returned for interface strings no adapter understands
	ErrUnsupportedInterface = errors.New("unsupported printer interface")

	errNotOpen     = errors.New("device not open")
	errAlreadyOpen = errors.New("device already open")
)

// New resolves a printer interface string to an unopened adapter.
//
// Recognised forms:
//
//	tcp://192.168.1.50:9100     raw TCP (port defaults to 9100)
//	serial:/dev/ttyUSB0?baud=9600
//	usb                         first USB printer found
//	usb://04b8:0202             USB printer by hex VID:PID
//	usb://serial/ABC123         USB printer by serial number
//	/dev/usb/lp0, file:/dev/lp0 character device or file
func New(iface string, timeout time.Duration) (Adapter, error) {
	iface = strings.TrimSpace(iface)
	if iface == "" {
		return nil, ErrNoInterface
	}

	switch {
	case strings.HasPrefix(iface, "tcp://"):
		return NewNetworkAdapter(strings.TrimPrefix(iface, "tcp://"), timeout)

	case strings.HasPrefix(iface, "serial:"):
		path, opts, err := ParseSerialInterface(iface)
		if err != nil {
			return nil, err
		}
		return NewSerialAdapter(path, opts, timeout), nil

	case iface == "usb":
		a, err := NewUSBAdapterAuto()
		if err != nil {
			return nil, err
		}
		a.timeout = timeout
		return a, nil

	case strings.HasPrefix(iface, "usb://serial/"):
		a, err := NewUSBAdapterBySerial(strings.TrimPrefix(iface, "usb://serial/"))
		if err != nil {
			return nil, err
		}
		a.timeout = timeout
		return a, nil

	case strings.HasPrefix(iface, "usb://"):
		vid, pid, err := parseVIDPID(strings.TrimPrefix(iface, "usb://"))
		if err != nil {
			return nil, err
		}
		a, err := NewUSBAdapter(vid, pid)
		if err != nil {
			return nil, err
		}
		a.timeout = timeout
		return a, nil

	case strings.HasPrefix(iface, "file:"):
		return NewFileAdapter(strings.TrimPrefix(iface, "file:")), nil

	case strings.HasPrefix(iface, "/"):
		return NewFileAdapter(iface), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedInterface, iface)
}

// parseVIDPID parses "04b8:0202" into vendor and product ids
func parseVIDPID(s string) (uint16, uint16, error) {
	vidStr, pidStr, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid usb id %q: expected VID:PID", s)
	}

	vid, err := strconv.ParseUint(vidStr, 16, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid usb vendor id %q: %w", vidStr, err)
	}

	pid, err := strconv.ParseUint(pidStr, 16, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid usb product id %q: %w", pidStr, err)
	}

	return uint16(vid), uint16(pid), nil
}
