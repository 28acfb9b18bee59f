// Package receipt holds the normalized receipt settings a printer formats
// against: currency symbol, locale and line width.
package receipt

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"
)

// Defaults applied to unset options.
const (
	DefaultCurrency = "$"
	DefaultLocale   = "en-US"
	DefaultWidth    = 50
)

// Options describes a receipt as configured by the caller
type Options struct {
	Currency string `mapstructure:"currency" validate:"max=8"`
	Locale   string `mapstructure:"locale"`
	Width    int    `mapstructure:"width" validate:"gte=1,lte=255"`
}

// Receipt is a validated, normalized set of receipt options
type Receipt struct {
	opts   Options
	locale language.Tag
}

var validate = validator.New()

// New applies defaults to opts, validates them and canonicalizes the locale.
func New(opts Options) (*Receipt, error) {
	if opts.Currency == "" {
		opts.Currency = DefaultCurrency
	}
	if opts.Locale == "" {
		opts.Locale = DefaultLocale
	}
	if opts.Width == 0 {
		opts.Width = DefaultWidth
	}

	if err := validate.Struct(opts); err != nil {
		return nil, validationError(err)
	}

	tag, err := language.Parse(opts.Locale)
	if err != nil {
		return nil, fmt.Errorf("invalid receipt locale %q: %w", opts.Locale, err)
	}
	opts.Locale = tag.String()

	return &Receipt{opts: opts, locale: tag}, nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("invalid receipt options: %w", err)
	}

	e := verrs[0]
	return fmt.Errorf("invalid receipt %s: %v fails %s=%s", e.Field(), e.Value(), e.Tag(), e.Param())
}

// Width returns the receipt width in characters
func (r *Receipt) Width() int {
	return r.opts.Width
}

// Currency returns the currency symbol
func (r *Receipt) Currency() string {
	return r.opts.Currency
}

// Locale returns the parsed locale
func (r *Receipt) Locale() language.Tag {
	return r.locale
}

// Options returns the normalized options
func (r *Receipt) Options() Options {
	return r.opts
}
