package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := NewLoader().Load("")
	require.NoError(t, err)

	assert.Equal(t, 12212, cfg.Server.Port)
	assert.Equal(t, "labels.db", cfg.Store.Path)
	assert.Equal(t, "standard", cfg.Label.Spec)
	assert.Equal(t, "AUTO GEEK", cfg.Label.Brand)
	assert.Equal(t, "escpos", cfg.Printer.Protocol)
	assert.Equal(t, 3, cfg.Printer.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Printer.MonitorInterval)
	assert.Equal(t, 4, cfg.Renderer.Workers)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "label-engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
label:
  spec: compact
  brand: SHOP
printer:
  protocol: tspl
  monitor_interval: 5s
  network:
    - 10.0.0.5:9100
`), 0644))

	t.Setenv("LABEL_SERVER_PORT", "9100")

	cfg, err := NewLoader().Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port, "env overrides file")
	assert.Equal(t, "compact", cfg.Label.Spec)
	assert.Equal(t, "SHOP", cfg.Label.Brand)
	assert.Equal(t, "tspl", cfg.Printer.Protocol)
	assert.Equal(t, 5*time.Second, cfg.Printer.MonitorInterval)
	assert.Equal(t, []string{"10.0.0.5:9100"}, cfg.Printer.Network)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := NewLoader().Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_UnknownSpec(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "label-engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("label:\n  spec: jumbo\n"), 0644))

	_, err := NewLoader().Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:   ServerConfig{Port: 1},
			Store:    StoreConfig{Path: "x.db"},
			Printer:  PrinterConfig{Protocol: "escpos", MonitorInterval: time.Second},
			Renderer: RendererConfig{Workers: 1, Supersample: 2},
		}
	}

	cfg := valid()
	assert.NoError(t, cfg.Validate())

	cases := map[string]func(*Config){
		"port":             func(c *Config) { c.Server.Port = 70000 },
		"store":            func(c *Config) { c.Store.Path = "" },
		"protocol":         func(c *Config) { c.Printer.Protocol = "zpl" },
		"retries":          func(c *Config) { c.Printer.MaxRetries = -1 },
		"interval":         func(c *Config) { c.Printer.MonitorInterval = 0 },
		"workers":          func(c *Config) { c.Renderer.Workers = 0 },
		"supersamp":        func(c *Config) { c.Renderer.Supersample = 0 },
		"no supersampling": func(c *Config) { c.Renderer.Supersample = 1 },
		"huge supersample": func(c *Config) { c.Renderer.Supersample = 100 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
