package adapter

import (
	"fmt"
	"os"
	"sync"
)

// FileAdapter writes to a printer exposed as a character device such as
// /dev/usb/lp0.
type FileAdapter struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// NewFileAdapter creates an unopened file adapter
func NewFileAdapter(path string) *FileAdapter {
	return &FileAdapter{path: path}
}

// Open opens the device for reading and writing
func (a *FileAdapter) Open() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file != nil {
		return errAlreadyOpen
	}

	f, err := os.OpenFile(a.path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", a.path, err)
	}

	a.file = f
	return nil
}

// Write sends data to the printer
func (a *FileAdapter) Write(data []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		return 0, errNotOpen
	}

	n, err := a.file.Write(data)
	if err != nil {
		return n, fmt.Errorf("write failed: %w", err)
	}

	return n, nil
}

// Read reads data from the printer
func (a *FileAdapter) Read(buf []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		return 0, errNotOpen
	}

	return a.file.Read(buf)
}

// Close closes the device
func (a *FileAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		return nil
	}

	err := a.file.Close()
	a.file = nil
	return err
}

// IsOpen returns whether the device is open
func (a *FileAdapter) IsOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file != nil
}

// Path returns the device path
func (a *FileAdapter) Path() string {
	return a.path
}
