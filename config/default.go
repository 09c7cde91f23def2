package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// defaults are applied to v before any config file or flag is read, so
// every key has a sane value even in an empty environment. Mirrors the
// teacher's practice of seeding viper with a full default set rather
// than relying on Go zero values, which would silently pick NumWorkers=0.
func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 2407)
	v.SetDefault("serverCert", "")
	v.SetDefault("serverKey", "")
	v.SetDefault("clientCA", "")
	v.SetDefault("ciphers", []string{})
	v.SetDefault("keyDir", "")
	v.SetDefault("numWorkers", 1)
	v.SetDefault("idleTimeout", 10*time.Minute)
	v.SetDefault("pidFile", "")
	v.SetDefault("debug", false)
	v.SetDefault("silent", false)
}

// New builds a viper instance bound to KEYLESS_-prefixed environment
// variables and, if configPath is non-empty, a config file at that path.
// Load reads it into a Config.
func New(configPath string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("KEYLESS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	}
	return v
}

// Load reads configPath (if present) and environment overrides into a
// Config. It does not validate the result; callers run Config.Validate.
// A missing config file is tolerated — defaults and
// environment/flag overrides may be sufficient on their own.
func Load(v *viper.Viper) (*Config, error) {
	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
