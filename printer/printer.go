// Package printer prints receipts for items of any type on a thermal printer.
package printer

import (
	"errors"
	"io"
	"log"
	"os"
	"strings"

	"github.com/SimantoR/pos-printer/escpos"
	"github.com/SimantoR/pos-printer/receipt"
)

// Driver is the subset of printer commands a receipt needs
type Driver interface {
	Clear() error
	OpenCashDrawer() error
	Print(text string) error
	Cut() error
}

// Options configures a ThermalPrinter
type Options[T any] struct {
	Printer   escpos.Config
	Receipt   receipt.Options
	Formatter func(item T) string
	Header    string
	Footer    string
}

var (
	// ErrNoFormatter is returned when Options.Formatter is nil
	ErrNoFormatter = errors.New("printer: formatter is required")

	// ErrNoDriver is returned when NewWithDriver is given a nil driver
	ErrNoDriver = errors.New("printer: driver is required")
)

// ThermalPrinter prints receipts for items of type T.
//
// It holds no lock: concurrent PrintReceipt calls interleave their commands
// on the printer.
type ThermalPrinter[T any] struct {
	driver    Driver
	receipt   *receipt.Receipt
	formatter func(item T) string
	header    string
	footer    string
	logger    *log.Logger
}

// New connects to the printer described by opts.Printer.
func New[T any](opts Options[T]) (*ThermalPrinter[T], error) {
	rcpt, err := newReceipt(opts)
	if err != nil {
		return nil, err
	}

	driver, err := escpos.New(opts.Printer)
	if err != nil {
		return nil, err
	}

	return build(driver, rcpt, opts), nil
}

// NewWithDriver is like New but prints through an existing driver.
func NewWithDriver[T any](driver Driver, opts Options[T]) (*ThermalPrinter[T], error) {
	if driver == nil {
		return nil, ErrNoDriver
	}

	rcpt, err := newReceipt(opts)
	if err != nil {
		return nil, err
	}

	return build(driver, rcpt, opts), nil
}

func newReceipt[T any](opts Options[T]) (*receipt.Receipt, error) {
	if opts.Formatter == nil {
		return nil, ErrNoFormatter
	}
	return receipt.New(opts.Receipt)
}

func build[T any](driver Driver, rcpt *receipt.Receipt, opts Options[T]) *ThermalPrinter[T] {
	return &ThermalPrinter[T]{
		driver:    driver,
		receipt:   rcpt,
		formatter: opts.Formatter,
		header:    opts.Header,
		footer:    opts.Footer,
		logger:    log.New(os.Stdout, "[PRINTER] ", log.LstdFlags|log.Lmsgprefix),
	}
}

// SetLogger replaces the printer's logger
func (p *ThermalPrinter[T]) SetLogger(logger *log.Logger) {
	p.logger = logger
}

// PrintReceipt opens the cash drawer and prints a receipt framed by the
// configured header and footer.
//
// The body line is printed empty; items are not run through the formatter.
// The first driver error is returned as is and aborts the sequence.
func (p *ThermalPrinter[T]) PrintReceipt(items []T) error {
	const text = ""
	sep := strings.Repeat("-", p.receipt.Width())

	steps := []func() error{
		p.driver.Clear,
		p.driver.OpenCashDrawer,
	}
	if p.header != "" {
		steps = append(steps, p.print(p.header), p.print(sep))
	}
	steps = append(steps, p.print(text))
	if p.footer != "" {
		steps = append(steps, p.print(sep), p.print(p.footer))
	}
	steps = append(steps, p.driver.Cut, p.driver.Clear)

	for _, step := range steps {
		if err := step(); err != nil {
			p.logger.Printf("Receipt failed (%d items): %v", len(items), err)
			return err
		}
	}

	p.logger.Printf("Printed receipt (%d items)", len(items))
	return nil
}

func (p *ThermalPrinter[T]) print(text string) func() error {
	return func() error { return p.driver.Print(text) }
}

// Receipt returns the normalized receipt settings
func (p *ThermalPrinter[T]) Receipt() *receipt.Receipt {
	return p.receipt
}

// Formatter returns the configured item formatter
func (p *ThermalPrinter[T]) Formatter() func(item T) string {
	return p.formatter
}

// Close closes the driver's connection, if it has one
func (p *ThermalPrinter[T]) Close() error {
	if c, ok := p.driver.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
