package config

import "go.uber.org/fx"

// NewProvider supplies customConfig when given, otherwise loads from the
// environment. A configuration that fails validation aborts startup.
func NewProvider(customConfig *Config) fx.Option {
	if customConfig != nil {
		return fx.Provide(func() (*Config, error) {
			if err := customConfig.Validate(); err != nil {
				return nil, err
			}
			return customConfig, nil
		})
	}

	return fx.Provide(func() *Config {
		cfg := &Config{}
		if err := LoadConfig(cfg); err != nil {
			panic(err)
		}
		return cfg
	})
}
