package adapter

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

// SerialOptions describes the line settings of a serial printer
type SerialOptions struct {
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
}

// Normalize fills in 9600 8N1 for unset fields and rejects line settings
// ESC/POS printers cannot use.
func (o SerialOptions) Normalize() (SerialOptions, error) {
	if o.BaudRate <= 0 {
		o.BaudRate = 9600
	}

	switch o.DataBits {
	case 0:
		o.DataBits = 8
	case 5, 6, 7, 8:
	default:
		return o, fmt.Errorf("serial data bits %d out of range 5-8", o.DataBits)
	}

	switch o.StopBits {
	case 0:
		o.StopBits = 1
	case 1, 2:
	default:
		return o, fmt.Errorf("serial stop bits %d not supported, use 1 or 2", o.StopBits)
	}

	parity := strings.ToUpper(strings.TrimSpace(o.Parity))
	switch parity {
	case "", "N", "NONE":
		o.Parity = "N"
	case "E", "EVEN":
		o.Parity = "E"
	case "O", "ODD":
		o.Parity = "O"
	default:
		return o, fmt.Errorf("serial parity %q not supported, use none, even or odd", o.Parity)
	}

	return o, nil
}

// Mode converts the options into the serial.Mode used to open the port
func (o SerialOptions) Mode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		StopBits: serial.OneStopBit,
		Parity:   serial.NoParity,
	}

	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}

	switch opts.Parity {
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	}

	return mode, nil
}

// ParseSerialInterface splits "serial:/dev/ttyUSB0?baud=19200&parity=E" into
// the port path and its options.
func ParseSerialInterface(iface string) (string, SerialOptions, error) {
	var opts SerialOptions

	u, err := url.Parse(iface)
	if err != nil {
		return "", opts, fmt.Errorf("invalid serial interface %q: %w", iface, err)
	}

	path := u.Path
	if path == "" {
		path = u.Opaque
	}
	if path == "" {
		return "", opts, fmt.Errorf("invalid serial interface %q: missing port", iface)
	}

	q := u.Query()
	ints := map[string]*int{
		"baud":      &opts.BaudRate,
		"data_bits": &opts.DataBits,
		"stop_bits": &opts.StopBits,
	}
	for key, dst := range ints {
		v := q.Get(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return "", opts, fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = n
	}
	opts.Parity = q.Get("parity")

	opts, err = opts.Normalize()
	if err != nil {
		return "", opts, err
	}

	return path, opts, nil
}

// SerialAdapter talks to a printer attached to a serial port
type SerialAdapter struct {
	path    string
	opts    SerialOptions
	timeout time.Duration
	port    serial.Port
	mu      sync.Mutex
}

// NewSerialAdapter creates an unopened serial adapter
func NewSerialAdapter(path string, opts SerialOptions, timeout time.Duration) *SerialAdapter {
	return &SerialAdapter{
		path:    path,
		opts:    opts,
		timeout: timeout,
	}
}

// Open opens the serial port
func (a *SerialAdapter) Open() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.port != nil {
		return errAlreadyOpen
	}

	mode, err := a.opts.Mode()
	if err != nil {
		return err
	}

	port, err := serial.Open(a.path, mode)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", a.path, err)
	}

	if a.timeout > 0 {
		if err := port.SetReadTimeout(a.timeout); err != nil {
			port.Close()
			return fmt.Errorf("failed to set read timeout: %w", err)
		}
	}

	a.port = port
	return nil
}

// Write sends data to the printer and waits for it to leave the output buffer
func (a *SerialAdapter) Write(data []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.port == nil {
		return 0, errNotOpen
	}

	n, err := a.port.Write(data)
	if err != nil {
		return n, fmt.Errorf("write failed: %w", err)
	}

	if err := a.port.Drain(); err != nil {
		return n, fmt.Errorf("drain failed: %w", err)
	}

	return n, nil
}

// Read reads data from the printer
func (a *SerialAdapter) Read(buf []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.port == nil {
		return 0, errNotOpen
	}

	n, err := a.port.Read(buf)
	if err != nil {
		return n, fmt.Errorf("read failed: %w", err)
	}

	return n, nil
}

// Close closes the serial port
func (a *SerialAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.port == nil {
		return nil
	}

	err := a.port.Close()
	a.port = nil
	return err
}

// IsOpen returns whether the port is open
func (a *SerialAdapter) IsOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.port != nil
}

// Path returns the serial port path
func (a *SerialAdapter) Path() string {
	return a.path
}

// Options returns the normalized line settings
func (a *SerialAdapter) Options() SerialOptions {
	return a.opts
}
