// Package config loads the printer daemon configuration.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/SimantoR/pos-printer/escpos"
	"github.com/SimantoR/pos-printer/receipt"
)

// Config holds the daemon configuration
type Config struct {
	ServerAddress string          `key:"server_address" validate:"required"`
	Printer       escpos.Config   `validate:"-"`
	Receipt       receipt.Options `validate:"-"`
	Header        string
	Footer        string
}

type printerRules struct {
	Interface    string        `key:"printer_interface" validate:"required"`
	Width        int           `key:"printer_width" validate:"gte=1"`
	Timeout      time.Duration `key:"printer_timeout" validate:"gt=0"`
	CharacterSet string        `key:"printer_character_set" validate:"required"`
}

var validate = newValidator()

// newValidator reports fields by their configuration key
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("key")
	})
	return v
}

// Load reads the configuration.
//
// Priority (highest to lowest):
// 1. Environment variables (e.g. PRINTER_INTERFACE)
// 2. The file named by POS_CONFIG, if set
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	setDefaults(v)

	if path := v.GetString("pos_config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{
		ServerAddress: v.GetString("server_address"),
		Printer: escpos.Config{
			Interface:    v.GetString("printer_interface"),
			Width:        v.GetInt("printer_width"),
			Timeout:      v.GetDuration("printer_timeout"),
			CharacterSet: v.GetString("printer_character_set"),
		},
		Receipt: receipt.Options{
			Currency: v.GetString("receipt_currency"),
			Locale:   v.GetString("receipt_locale"),
			Width:    v.GetInt("receipt_width"),
		},
		Header: v.GetString("receipt_header"),
		Footer: v.GetString("receipt_footer"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_address", "localhost:9100")
	v.SetDefault("printer_interface", "")
	v.SetDefault("printer_width", escpos.DefaultWidth)
	v.SetDefault("printer_timeout", escpos.DefaultTimeout)
	v.SetDefault("printer_character_set", escpos.DefaultCharacterSet)
	v.SetDefault("receipt_currency", receipt.DefaultCurrency)
	v.SetDefault("receipt_locale", receipt.DefaultLocale)
	v.SetDefault("receipt_width", 40)
	v.SetDefault("receipt_header", "")
	v.SetDefault("receipt_footer", "")
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if err := validate.Struct(c); err != nil {
		return fieldError(err)
	}

	rules := printerRules(c.Printer)
	if err := validate.Struct(rules); err != nil {
		return fieldError(err)
	}

	if c.Receipt.Width < 1 {
		return fmt.Errorf("receipt_width must be positive, got %d", c.Receipt.Width)
	}

	return nil
}

func fieldError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	e := verrs[0]
	switch e.Tag() {
	case "required":
		return fmt.Errorf("%s is required", e.Field())
	default:
		return fmt.Errorf("%s must be %s %s, got %v", e.Field(), e.Tag(), e.Param(), e.Value())
	}
}
