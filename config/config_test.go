package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultsLoadWithoutConfigFile(t *testing.T) {
	v := New("")
	cfg, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, uint32(2407), cfg.Port)
	require.Equal(t, 1, cfg.NumWorkers)
}

func TestLoadFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keyless.yaml")
	contents := "port: 2500\nnumWorkers: 8\nserverCert: /tmp/server.pem\nserverKey: /tmp/server.key\nclientCA: /tmp/ca.pem\nkeyDir: /tmp/keys\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

	v := New(path)
	cfg, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, uint32(2500), cfg.Port)
	require.Equal(t, 8, cfg.NumWorkers)
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsMissingFields(t *testing.T) {
	cfg := &Config{Port: 2407, NumWorkers: 4}
	err := cfg.Validate()
	require.Error(t, err)
}

func TestValidateRejectsOutOfRangeWorkers(t *testing.T) {
	cfg := &Config{
		Port:           2407,
		NumWorkers:     64,
		ServerCertPath: "a",
		ServerKeyPath:  "b",
		ClientCAPath:   "c",
		PrivateKeyDir:  "d",
	}
	require.Error(t, cfg.Validate())
}
