package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/google/gousb"
)

// Interface class codes
// Reference: http://www.usb.org/developers/defined_class
const (
	IfaceClassAudio   = 0x01
	IfaceClassHID     = 0x03
	IfaceClassPrinter = 0x07
	IfaceClassHub     = 0x09
)

var usbLogger = log.New(io.Discard, "[USB] ", log.LstdFlags|log.Lmsgprefix)

// SetUSBLogger sets the logger used for device discovery messages
func SetUSBLogger(l *log.Logger) {
	usbLogger = l
}

// USBAdapter manages USB printer communication
type USBAdapter struct {
	device      *gousb.Device
	ctx         *gousb.Context
	cfg         *gousb.Config
	iface       *gousb.Interface
	outEndpoint *gousb.OutEndpoint
	inEndpoint  *gousb.InEndpoint
	timeout     time.Duration
	isOpen      bool
	mu          sync.Mutex
}

// NewUSBAdapter creates an adapter for the printer with the given VID/PID
func NewUSBAdapter(vid, pid uint16) (*USBAdapter, error) {
	ctx := gousb.NewContext()

	device, err := GetDeviceByVIDPID(ctx, vid, pid)
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("cannot find printer %04x:%04x: %w", vid, pid, err)
	}

	return &USBAdapter{ctx: ctx, device: device}, nil
}

// NewUSBAdapterAuto creates adapter with auto-detection
func NewUSBAdapterAuto() (*USBAdapter, error) {
	ctx := gousb.NewContext()

	devices := FindPrinters(ctx)
	if len(devices) == 0 {
		ctx.Close()
		return nil, errors.New("cannot find printer")
	}

	for _, d := range devices[1:] {
		d.Close()
	}

	return &USBAdapter{ctx: ctx, device: devices[0]}, nil
}

// NewUSBAdapterBySerial creates an adapter for the printer with the given serial number
func NewUSBAdapterBySerial(serial string) (*USBAdapter, error) {
	ctx := gousb.NewContext()

	device, err := GetDeviceBySerial(ctx, serial)
	if err != nil {
		ctx.Close()
		return nil, err
	}

	return &USBAdapter{ctx: ctx, device: device}, nil
}

// IsPrinter checks if a device is a printer
func IsPrinter(dev *gousb.Device) bool {
	if dev == nil {
		return false
	}

	cfg, err := dev.ActiveConfigNum()
	if err != nil {
		return false
	}

	cfgDesc, err := dev.Config(cfg)
	if err != nil {
		return false
	}
	defer cfgDesc.Close()

	return printerInterface(cfgDesc.Desc) >= 0
}

// printerInterface returns the number of the first printer-class interface, or -1
func printerInterface(desc gousb.ConfigDesc) int {
	for _, iface := range desc.Interfaces {
		for _, alt := range iface.AltSettings {
			if alt.Class == IfaceClassPrinter {
				return iface.Number
			}
		}
	}
	return -1
}

// FindPrinters returns all USB printer devices
func FindPrinters(ctx *gousb.Context) []*gousb.Device {
	printers := []*gousb.Device{}

	devices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return true
	})
	if err != nil {
		usbLogger.Printf("Error enumerating devices: %v", err)
	}

	for _, dev := range devices {
		if IsPrinter(dev) {
			manufacturer, _ := dev.Manufacturer()
			product, _ := dev.Product()
			usbLogger.Printf("Found printer %s %s (%s:%s)", manufacturer, product, dev.Desc.Vendor, dev.Desc.Product)
			printers = append(printers, dev)
		} else {
			dev.Close()
		}
	}

	return printers
}

// GetDeviceByVIDPID opens a device by VID and PID
func GetDeviceByVIDPID(ctx *gousb.Context, vid, pid uint16) (*gousb.Device, error) {
	device, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		return nil, err
	}
	if device == nil {
		return nil, errors.New("device not found")
	}
	return device, nil
}

// GetDeviceBySerial opens a device by serial number
func GetDeviceBySerial(ctx *gousb.Context, serial string) (*gousb.Device, error) {
	devices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return true
	})
	if err != nil && len(devices) == 0 {
		return nil, err
	}

	var found *gousb.Device
	for _, dev := range devices {
		if found == nil {
			if s, err := dev.SerialNumber(); err == nil && s == serial {
				found = dev
				continue
			}
		}
		dev.Close()
	}

	if found == nil {
		return nil, errors.New("device with serial number not found")
	}
	return found, nil
}

// Open claims the printer interface and its bulk endpoints
func (a *USBAdapter) Open() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.isOpen {
		return errAlreadyOpen
	}

	if a.device == nil {
		return errors.New("device not found")
	}

	if runtime.GOOS == "linux" {
		if err := a.device.SetAutoDetach(true); err != nil {
			usbLogger.Printf("Auto-detach unavailable: %v", err)
		}
	}

	cfgNum, err := a.device.ActiveConfigNum()
	if err != nil {
		return fmt.Errorf("failed to get active config: %w", err)
	}

	cfg, err := a.device.Config(cfgNum)
	if err != nil {
		return fmt.Errorf("failed to get config: %w", err)
	}

	num := printerInterface(cfg.Desc)
	if num < 0 {
		cfg.Close()
		return errors.New("no printer interface found")
	}

	iface, err := cfg.Interface(num, 0)
	if err != nil {
		cfg.Close()
		return fmt.Errorf("failed to claim interface: %w", err)
	}

	var out *gousb.OutEndpoint
	var in *gousb.InEndpoint
	for _, epDesc := range iface.Setting.Endpoints {
		switch {
		case epDesc.Direction == gousb.EndpointDirectionOut && out == nil:
			if ep, err := iface.OutEndpoint(epDesc.Number); err == nil {
				out = ep
			}
		case epDesc.Direction == gousb.EndpointDirectionIn && in == nil:
			if ep, err := iface.InEndpoint(epDesc.Number); err == nil {
				in = ep
			}
		}
	}

	if out == nil {
		iface.Close()
		cfg.Close()
		return errors.New("cannot find output endpoint from printer")
	}

	a.cfg = cfg
	a.iface = iface
	a.outEndpoint = out
	a.inEndpoint = in
	a.isOpen = true

	return nil
}

func (a *USBAdapter) opContext() (context.Context, context.CancelFunc) {
	if a.timeout > 0 {
		return context.WithTimeout(context.Background(), a.timeout)
	}
	return context.WithCancel(context.Background())
}

// Write sends data to the printer
func (a *USBAdapter) Write(data []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.isOpen {
		return 0, errNotOpen
	}

	ctx, cancel := a.opContext()
	defer cancel()

	n, err := a.outEndpoint.WriteContext(ctx, data)
	if err != nil {
		return n, fmt.Errorf("write failed: %w", err)
	}

	return n, nil
}

// Read reads data from the printer
func (a *USBAdapter) Read(buf []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.isOpen {
		return 0, errNotOpen
	}

	if a.inEndpoint == nil {
		return 0, errors.New("input endpoint not available")
	}

	ctx, cancel := a.opContext()
	defer cancel()

	n, err := a.inEndpoint.ReadContext(ctx, buf)
	if err != nil {
		return n, fmt.Errorf("read failed: %w", err)
	}

	return n, nil
}

// Close releases the interface and the device. Safe to call more than once.
func (a *USBAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error

	if a.iface != nil {
		a.iface.Close()
		a.iface = nil
	}

	if a.cfg != nil {
		if err := a.cfg.Close(); err != nil {
			errs = append(errs, err)
		}
		a.cfg = nil
	}

	if a.device != nil {
		if err := a.device.Close(); err != nil {
			errs = append(errs, err)
		}
		a.device = nil
	}

	if a.ctx != nil {
		if err := a.ctx.Close(); err != nil {
			errs = append(errs, err)
		}
		a.ctx = nil
	}

	a.outEndpoint = nil
	a.inEndpoint = nil
	a.isOpen = false

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %w", errors.Join(errs...))
	}

	return nil
}

// IsOpen returns whether the device is open
func (a *USBAdapter) IsOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.isOpen
}

// GetDevice returns the underlying USB device
func (a *USBAdapter) GetDevice() *gousb.Device {
	return a.device
}
