// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Camera.Model != "photopc" || cfg.Camera.Transport != "serial" {
		t.Errorf("camera = %+v", cfg.Camera)
	}
	if cfg.Camera.BaudRate != 115200 || cfg.Camera.Retries != 5 {
		t.Errorf("baud %d retries %d", cfg.Camera.BaudRate, cfg.Camera.Retries)
	}
	if cfg.Camera.CH347.VendorID != 0x1a86 {
		t.Errorf("ch347 vendor = %#x", cfg.Camera.CH347.VendorID)
	}
	if cfg.Camera.TCP.WriteTimeout != 5*time.Second {
		t.Errorf("tcp write timeout = %v", cfg.Camera.TCP.WriteTimeout)
	}
	if cfg.Database.Enabled {
		t.Error("database enabled by default")
	}
	if cfg.GetServerAddr() != "0.0.0.0:8085" {
		t.Errorf("addr = %s", cfg.GetServerAddr())
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
camera:
  transport: tcp
  device: camera-bridge.local:4001
  baud_rate: 57600
  refresh_interval: 90s
  tcp:
    write_timeout: 2s
logging:
  level: debug
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CAMERA_SERVICE_SERVER_PORT", "9999")
	t.Setenv("CAMERA_SERVICE_CAMERA_MODEL", "olympus-d600l")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Camera.Transport != "tcp" || cfg.Camera.Device != "camera-bridge.local:4001" {
		t.Errorf("camera = %+v", cfg.Camera)
	}
	if cfg.Camera.BaudRate != 57600 || cfg.Camera.RefreshInterval != 90*time.Second {
		t.Errorf("baud %d refresh %v", cfg.Camera.BaudRate, cfg.Camera.RefreshInterval)
	}
	if cfg.Camera.TCP.WriteTimeout != 2*time.Second {
		t.Errorf("tcp write timeout = %v", cfg.Camera.TCP.WriteTimeout)
	}
	if cfg.Server.Port != "9999" || cfg.Camera.Model != "olympus-d600l" {
		t.Errorf("env overrides not applied: port %s model %s", cfg.Server.Port, cfg.Camera.Model)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %s", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad transport", func(c *Config) { c.Camera.Transport = "bluetooth" }, "camera.transport"},
		{"bad baud", func(c *Config) { c.Camera.BaudRate = 4800 }, "camera.baud_rate"},
		{"missing device", func(c *Config) { c.Camera.Device = "" }, "camera.device"},
		{"no retries", func(c *Config) { c.Camera.Retries = 0 }, "camera.retries"},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"bad env", func(c *Config) { c.App.Environment = "qa" }, "app.environment"},
		{"mqtt without broker", func(c *Config) { c.MQTT.Enabled = true; c.MQTT.Broker = "" }, "mqtt.broker"},
		{"database without host", func(c *Config) { c.Database.Enabled = true; c.Database.Host = "" }, "database.host"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(t.TempDir())
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(cfg)
			err = validate(cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("validate = %v, want mention of %s", err, tt.want)
			}
		})
	}

	t.Run("simulator needs no device", func(t *testing.T) {
		cfg, _ := Load(t.TempDir())
		cfg.Camera.Transport = "simulator"
		cfg.Camera.Device = ""
		if err := validate(cfg); err != nil {
			t.Errorf("validate = %v", err)
		}
	})
}
