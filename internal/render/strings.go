package render

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Strings holds the user-facing texts of the channel.
type Strings struct {
	Offer            string   // text/template over TemplateData
	OfferExpired     string   // replaces a message that could not be deleted
	BigName          string   // text/template over TemplateData, yields the name of the big variant
	ExchangeText     string   // label of the redemption button
	DecimalSeparator string
	Months           []string // January first
}

func DefaultStrings() Strings {
	return Strings{
		BigName:          "{{.Name}} (big)",
		ExchangeText:     "Redeem",
		DecimalSeparator: ".",
		Months: []string{
			"January", "February", "March", "April", "May", "June",
			"July", "August", "September", "October", "November", "December",
		},
	}
}

// LoadStrings reads the strings YAML at path. Keys missing from the file keep their defaults.
func LoadStrings(path string) (Strings, error) {
	v := viper.New()
	v.SetConfigFile(path)

	def := DefaultStrings()
	v.SetDefault("big_name", def.BigName)
	v.SetDefault("exchange_text", def.ExchangeText)
	v.SetDefault("decimal_separator", def.DecimalSeparator)
	v.SetDefault("months", def.Months)

	if err := v.ReadInConfig(); err != nil {
		return Strings{}, fmt.Errorf("read strings file: %w", err)
	}

	s := Strings{
		Offer:            v.GetString("offer"),
		OfferExpired:     v.GetString("offer_expired"),
		BigName:          v.GetString("big_name"),
		ExchangeText:     v.GetString("exchange_text"),
		DecimalSeparator: v.GetString("decimal_separator"),
		Months:           v.GetStringSlice("months"),
	}
	if err := s.validate(); err != nil {
		return Strings{}, err
	}
	return s, nil
}

func (s Strings) validate() error {
	var errs []error
	if strings.TrimSpace(s.Offer) == "" {
		errs = append(errs, errors.New("strings: offer is required"))
	}
	if strings.TrimSpace(s.OfferExpired) == "" {
		errs = append(errs, errors.New("strings: offer_expired is required"))
	}
	if len(s.Months) != 12 {
		errs = append(errs, fmt.Errorf("strings: months must list 12 names, got %d", len(s.Months)))
	}
	return errors.Join(errs...)
}
