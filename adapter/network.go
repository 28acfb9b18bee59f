package adapter

import (
	"fmt"
	"net"
	"sync"
	"time"
)

// DefaultNetworkPort is the raw printing port used by network ESC/POS printers
const DefaultNetworkPort = "9100"

// NetworkAdapter talks to a printer over a raw TCP socket
type NetworkAdapter struct {
	address string
	timeout time.Duration
	conn    net.Conn
	mu      sync.Mutex
}

// NewNetworkAdapter creates an unopened adapter for host[:port]
func NewNetworkAdapter(address string, timeout time.Duration) (*NetworkAdapter, error) {
	if address == "" {
		return nil, fmt.Errorf("%w: missing network address", ErrUnsupportedInterface)
	}

	if _, _, err := net.SplitHostPort(address); err != nil {
		address = net.JoinHostPort(address, DefaultNetworkPort)
	}

	return &NetworkAdapter{
		address: address,
		timeout: timeout,
	}, nil
}

// Open dials the printer
func (a *NetworkAdapter) Open() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn != nil {
		return errAlreadyOpen
	}

	conn, err := net.DialTimeout("tcp", a.address, a.timeout)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", a.address, err)
	}

	a.conn = conn
	return nil
}

func (a *NetworkAdapter) deadline() time.Time {
	if a.timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(a.timeout)
}

// Write sends data to the printer
func (a *NetworkAdapter) Write(data []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn == nil {
		return 0, errNotOpen
	}

	if err := a.conn.SetWriteDeadline(a.deadline()); err != nil {
		return 0, fmt.Errorf("write failed: %w", err)
	}

	n, err := a.conn.Write(data)
	if err != nil {
		return n, fmt.Errorf("write failed: %w", err)
	}

	return n, nil
}

// Read reads data from the printer
func (a *NetworkAdapter) Read(buf []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn == nil {
		return 0, errNotOpen
	}

	if err := a.conn.SetReadDeadline(a.deadline()); err != nil {
		return 0, fmt.Errorf("read failed: %w", err)
	}

	n, err := a.conn.Read(buf)
	if err != nil {
		return n, fmt.Errorf("read failed: %w", err)
	}

	return n, nil
}

// Close closes the connection
func (a *NetworkAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn == nil {
		return nil
	}

	err := a.conn.Close()
	a.conn = nil
	return err
}

// IsOpen returns whether the connection is open
func (a *NetworkAdapter) IsOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conn != nil
}

// Address returns the printer address
func (a *NetworkAdapter) Address() string {
	return a.address
}
