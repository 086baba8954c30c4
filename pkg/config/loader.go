package config

import (
	"fmt"
	"reflect"

	"github.com/caarlos0/env/v10"
	"github.com/shopspring/decimal"
)

// Load parses environment variables into the provided struct using `env`
// tags. Besides the types env supports natively, decimal.Decimal fields are
// parsed so that monetary settings never pass through float64.
//
// Example:
//
//	type Config struct {
//	    Port        int             `env:"HTTP_PORT" envDefault:"8080"`
//	    StandardFee decimal.Decimal `env:"FEE_STANDARD" envDefault:"200"`
//	}
func Load(cfg any) error {
	return LoadWithPrefix(cfg, "")
}

// LoadWithPrefix is Load with every variable name prefixed by prefix.
func LoadWithPrefix(cfg any, prefix string) error {
	opts := env.Options{
		Prefix: prefix,
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(decimal.Decimal{}): parseDecimal,
		},
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func parseDecimal(v string) (any, error) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, fmt.Errorf("invalid decimal %q: %w", v, err)
	}
	return d, nil
}
