// Package config holds the key server's startup configuration: the
// listening port, TLS material paths, worker count, and logging mode.
// Values are bound through viper so they can come from a config file or
// KEYLESS_-prefixed environment variables, the environment taking
// precedence. No config key is bound to a CLI flag; cmd only ORs the
// --debug and --silent flags into Debug and Silent after loading.
package config

import (
	"fmt"
	"time"
)

// Config is the full set of settings a keyless server instance needs to
// start. The mapstructure tag of each field is the key it is read under,
// both in a config file and as a KEYLESS_<KEY> environment variable.
type Config struct {
	Port uint32 `mapstructure:"port" yaml:"port"`

	ServerCertPath string   `mapstructure:"serverCert" yaml:"serverCert"`
	ServerKeyPath  string   `mapstructure:"serverKey" yaml:"serverKey"`
	ClientCAPath   string   `mapstructure:"clientCA" yaml:"clientCA"`
	CipherList     []string `mapstructure:"ciphers" yaml:"ciphers"`

	PrivateKeyDir string `mapstructure:"keyDir" yaml:"keyDir"`

	NumWorkers  int           `mapstructure:"numWorkers" yaml:"numWorkers"`
	IdleTimeout time.Duration `mapstructure:"idleTimeout" yaml:"idleTimeout"`
	PIDFile     string        `mapstructure:"pidFile" yaml:"pidFile"`

	Debug  bool `mapstructure:"debug" yaml:"debug"`
	Silent bool `mapstructure:"silent" yaml:"silent"`
}

// Validate checks the fields that would otherwise surface as a confusing
// failure deep inside tlsconf or the supervisor, and reports them
// together as one startup error.
func (c *Config) Validate() error {
	var missing []string
	if c.ServerCertPath == "" {
		missing = append(missing, "serverCert")
	}
	if c.ServerKeyPath == "" {
		missing = append(missing, "serverKey")
	}
	if c.ClientCAPath == "" {
		missing = append(missing, "clientCA")
	}
	if c.PrivateKeyDir == "" {
		missing = append(missing, "keyDir")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required fields: %v", missing)
	}
	if c.NumWorkers < 1 || c.NumWorkers > 32 {
		return fmt.Errorf("config: numWorkers must be between 1 and 32, got %d", c.NumWorkers)
	}
	if c.Port == 0 || c.Port > 65535 {
		return fmt.Errorf("config: port must be between 1 and 65535, got %d", c.Port)
	}
	return nil
}
