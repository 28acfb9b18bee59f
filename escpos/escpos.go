// Package escpos drives an ESC/POS thermal printer over an adapter.
//
// Commands are written to the transport as they are issued; there is no
// client-side buffer to flush.
package escpos

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/SimantoR/pos-printer/adapter"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

const (
	esc = 0x1B
	gs  = 0x1D
	lf  = 0x0A
)

// Defaults applied to unset config values.
const (
	DefaultWidth        = 48
	DefaultTimeout      = 3 * time.Second
	DefaultCharacterSet = "PC437_USA"
)

var (
	cmdInit      = []byte{esc, '@'}
	cmdDrawerPin = []byte{esc, 'p', 0x00, 0x19, 0xFA}
	cmdFeed      = []byte{esc, 'd', 0x03}
	cmdFullCut   = []byte{gs, 'V', 0x00}
)

type codePage struct {
	n       byte
	charmap *charmap.Charmap
}

var codePages = map[string]codePage{
	"PC437_USA":          {0, charmap.CodePage437},
	"PC850_MULTILINGUAL": {2, charmap.CodePage850},
	"WPC1252":            {16, charmap.Windows1252},
	"PC866_CYRILLIC2":    {17, charmap.CodePage866},
	"PC858_EURO":         {19, charmap.CodePage858},
}

// ErrUnknownCharacterSet is returned for character sets without a code page mapping
var ErrUnknownCharacterSet = errors.New("unknown character set")

// Config is the printer connection descriptor
type Config struct {
	// Interface selects the transport, see adapter.New
	Interface    string        `mapstructure:"interface"`
	Width        int           `mapstructure:"width"`
	Timeout      time.Duration `mapstructure:"timeout"`
	CharacterSet string        `mapstructure:"character_set"`
}

func (c Config) withDefaults() Config {
	if c.Width <= 0 {
		c.Width = DefaultWidth
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.CharacterSet == "" {
		c.CharacterSet = DefaultCharacterSet
	}
	return c
}

// Driver issues ESC/POS commands to a printer
type Driver struct {
	adapter  adapter.Adapter
	cfg      Config
	codePage codePage
	encoder  *encoding.Encoder
	mu       sync.Mutex
}

// New resolves cfg.Interface to an adapter, opens it and returns a driver.
func New(cfg Config) (*Driver, error) {
	cfg = cfg.withDefaults()

	if _, ok := codePages[cfg.CharacterSet]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCharacterSet, cfg.CharacterSet)
	}

	a, err := adapter.New(cfg.Interface, cfg.Timeout)
	if err != nil {
		return nil, err
	}

	d, err := NewWithAdapter(a, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	return d, nil
}

// NewWithAdapter returns a driver writing to a, opening it if needed.
func NewWithAdapter(a adapter.Adapter, cfg Config) (*Driver, error) {
	cfg = cfg.withDefaults()

	cp, ok := codePages[cfg.CharacterSet]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCharacterSet, cfg.CharacterSet)
	}

	if !a.IsOpen() {
		if err := a.Open(); err != nil {
			return nil, fmt.Errorf("failed to open printer: %w", err)
		}
	}

	return &Driver{
		adapter:  a,
		cfg:      cfg,
		codePage: cp,
		encoder:  encoding.ReplaceUnsupported(cp.charmap.NewEncoder()),
	}, nil
}

func (d *Driver) write(chunks ...[]byte) error {
	for _, c := range chunks {
		if _, err := d.adapter.Write(c); err != nil {
			return err
		}
	}
	return nil
}

// Clear resets the printer to its power-on state and selects the code page.
func (d *Driver) Clear() error {
	return d.write(cmdInit, []byte{esc, 't', d.codePage.n})
}

// OpenCashDrawer pulses the drawer kick connector (pin 2)
func (d *Driver) OpenCashDrawer() error {
	return d.write(cmdDrawerPin)
}

// Print prints text as one line.
func (d *Driver) Print(text string) error {
	d.mu.Lock()
	encoded, err := d.encoder.Bytes([]byte(text))
	d.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to encode text: %w", err)
	}

	return d.write(append(encoded, lf))
}

// Cut feeds the paper past the cutter and performs a full cut
func (d *Driver) Cut() error {
	return d.write(cmdFeed, cmdFullCut)
}

// Width returns the paper width in characters
func (d *Driver) Width() int {
	return d.cfg.Width
}

// Config returns the connection descriptor with defaults applied
func (d *Driver) Config() Config {
	return d.cfg
}

// Close closes the underlying adapter
func (d *Driver) Close() error {
	return d.adapter.Close()
}
