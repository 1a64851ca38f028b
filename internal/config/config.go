// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Security SecurityConfig `mapstructure:"security"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Camera   CameraConfig   `mapstructure:"camera"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	App      AppConfig      `mapstructure:"app"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	TLS          TLSConfig     `mapstructure:"tls"`
}

// TLSConfig represents TLS configuration
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// DatabaseConfig represents database configuration. With Enabled false the
// catalog and transfer log live in memory.
type DatabaseConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	DBName         string        `mapstructure:"dbname"`
	SSLMode        string        `mapstructure:"sslmode"`
	MaxOpenConns   int           `mapstructure:"max_open_conns"`
	MaxIdleConns   int           `mapstructure:"max_idle_conns"`
	MaxLifetime    time.Duration `mapstructure:"max_lifetime"`
	MigrationsPath string        `mapstructure:"migrations_path"`
}

// SecurityConfig represents security configuration
type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// CameraConfig describes the camera link and what the service does with it
type CameraConfig struct {
	Model           string           `mapstructure:"model"`
	Transport       string           `mapstructure:"transport"`
	Device          string           `mapstructure:"device"`
	BaudRate        int              `mapstructure:"baud_rate"`
	Debug           bool             `mapstructure:"debug"`
	PowerOffOnClose bool             `mapstructure:"power_off_on_close"`
	Retries         int              `mapstructure:"retries"`
	MaxImageSize    int              `mapstructure:"max_image_size"`
	CacheDir        string           `mapstructure:"cache_dir"`
	RefreshInterval time.Duration    `mapstructure:"refresh_interval"`
	TransferTTL     time.Duration    `mapstructure:"transfer_ttl"`
	Serial          SerialLinkConfig `mapstructure:"serial"`
	TCP             TCPLinkConfig    `mapstructure:"tcp"`
	CH347           CH347LinkConfig  `mapstructure:"ch347"`
	Simulator       SimulatorConfig  `mapstructure:"simulator"`
}

// SerialLinkConfig represents local serial port settings
type SerialLinkConfig struct {
	DataBits  int    `mapstructure:"data_bits"`
	StopBits  int    `mapstructure:"stop_bits"`
	Parity    string `mapstructure:"parity"`
	CtlSuffix string `mapstructure:"ctl_suffix"`
}

// TCPLinkConfig represents a serial port exported over TCP
type TCPLinkConfig struct {
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	KeepAlive      bool          `mapstructure:"keep_alive"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

// CH347LinkConfig selects a CH347 USB-HID UART bridge
type CH347LinkConfig struct {
	VendorID  uint16 `mapstructure:"vendor_id"`
	ProductID uint16 `mapstructure:"product_id"`
	Interface int    `mapstructure:"interface"`
}

// SimulatorConfig seeds the in-process camera
type SimulatorConfig struct {
	Images int `mapstructure:"images"`
}

// MQTTConfig represents the event publisher
type MQTTConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Broker      string        `mapstructure:"broker"`
	ClientID    string        `mapstructure:"client_id"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	TopicPrefix string        `mapstructure:"topic_prefix"`
	QoS         byte          `mapstructure:"qos"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// AppConfig represents application metadata
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

const envPrefix = "CAMERA_SERVICE"

var (
	validEnvs       = []string{"development", "staging", "production", "test"}
	validLevels     = []string{"debug", "info", "warn", "error", "fatal"}
	validTransports = []string{"serial", "tcp", "ch347", "simulator"}
	validBauds      = []int{0, 9600, 19200, 38400, 57600, 115200}
)

// Load reads config.yaml from the given directories (or the defaults),
// overlays CAMERA_SERVICE_* environment variables and validates the result.
// A missing file is not an error.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config", "/etc/camera-service"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8085")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.tls.enabled", false)

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "camera_service")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_lifetime", "5m")
	v.SetDefault("database.migrations_path", "migrations")

	// Security defaults
	v.SetDefault("security.allowed_origins", []string{"*"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	// Camera defaults
	v.SetDefault("camera.model", "photopc")
	v.SetDefault("camera.transport", "serial")
	v.SetDefault("camera.device", "/dev/ttyUSB0")
	v.SetDefault("camera.baud_rate", 115200)
	v.SetDefault("camera.debug", false)
	v.SetDefault("camera.power_off_on_close", true)
	v.SetDefault("camera.retries", 5)
	v.SetDefault("camera.max_image_size", 16<<20)
	v.SetDefault("camera.cache_dir", "./data/cache")
	v.SetDefault("camera.refresh_interval", "0s")
	v.SetDefault("camera.transfer_ttl", "168h")

	v.SetDefault("camera.serial.data_bits", 8)
	v.SetDefault("camera.serial.stop_bits", 1)
	v.SetDefault("camera.serial.parity", "none")
	v.SetDefault("camera.serial.ctl_suffix", "")

	v.SetDefault("camera.tcp.connect_timeout", "10s")
	v.SetDefault("camera.tcp.keep_alive", true)
	v.SetDefault("camera.tcp.write_timeout", "5s")

	v.SetDefault("camera.ch347.vendor_id", 0x1a86)
	v.SetDefault("camera.ch347.product_id", 0x55dc)
	v.SetDefault("camera.ch347.interface", 0)

	v.SetDefault("camera.simulator.images", 3)

	// MQTT defaults
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "camera-service")
	v.SetDefault("mqtt.topic_prefix", "camera")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.timeout", "5s")

	// App defaults
	v.SetDefault("app.name", "camera-service")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if config.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if config.Database.Enabled && config.Database.Host == "" {
		return fmt.Errorf("database.host is required when the database is enabled")
	}

	if !slices.Contains(validEnvs, config.App.Environment) {
		return fmt.Errorf("app.environment must be one of: %v", validEnvs)
	}
	if !slices.Contains(validLevels, config.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	if !slices.Contains(validTransports, config.Camera.Transport) {
		return fmt.Errorf("camera.transport must be one of: %v", validTransports)
	}
	if config.Camera.Transport != "simulator" && config.Camera.Transport != "ch347" && config.Camera.Device == "" {
		return fmt.Errorf("camera.device is required for the %s transport", config.Camera.Transport)
	}
	if !slices.Contains(validBauds, config.Camera.BaudRate) {
		return fmt.Errorf("camera.baud_rate must be one of: %v", validBauds)
	}
	if config.Camera.Retries < 1 {
		return fmt.Errorf("camera.retries must be at least 1")
	}
	if config.Camera.CacheDir == "" {
		return fmt.Errorf("camera.cache_dir is required")
	}
	if config.Camera.RefreshInterval < 0 {
		return fmt.Errorf("camera.refresh_interval must not be negative")
	}

	if config.MQTT.Enabled && config.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	if config.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
	}

	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.DBName, c.Database.SSLMode)
}

// GetServerAddr returns the server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction checks if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment checks if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsDebugEnabled checks if debug mode is enabled
func (c *Config) IsDebugEnabled() bool {
	return c.App.Debug || c.IsDevelopment()
}
