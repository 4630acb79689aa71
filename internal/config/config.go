// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. SMARTCLOCK_SERVER_HTTP_PORT.
const EnvPrefix = "SMARTCLOCK"

type Config struct {
	Server struct {
		HTTPPort int `mapstructure:"http_port"`
		// Dedicated push-channel listeners; 0 disables. The channels are
		// always reachable under /ws/* on the HTTP port as well.
		TimePort       int      `mapstructure:"time_port"`
		TelemetryPort  int      `mapstructure:"telemetry_port"`
		SensorPort     int      `mapstructure:"sensor_port"`
		AllowedOrigins []string `mapstructure:"allowed_origins"`
	} `mapstructure:"server"`
	Clock struct {
		Period       time.Duration `mapstructure:"period"`
		Source       string        `mapstructure:"source"` // "system" or "ntp"
		NTPServer    string        `mapstructure:"ntp_server"`
		SyncInterval time.Duration `mapstructure:"sync_interval"`
		QueryTimeout time.Duration `mapstructure:"query_timeout"`
		UTCOffset    int           `mapstructure:"utc_offset_seconds"`
	} `mapstructure:"clock"`
	Sensor struct {
		Period time.Duration `mapstructure:"period"`
		Reader string        `mapstructure:"reader"` // "simulated" or "sysfs"
		Path   string        `mapstructure:"path"`
	} `mapstructure:"sensor"`
	Alarm struct {
		Capacity int `mapstructure:"capacity"`
	} `mapstructure:"alarm"`
	PeerLink struct {
		ListenAddr  string        `mapstructure:"listen_addr"`
		ReadTimeout time.Duration `mapstructure:"read_timeout"`
	} `mapstructure:"peerlink"`
	MQTT    MQTTConfig `mapstructure:"mqtt"`
	Anomaly struct {
		Rules map[string]Rule `mapstructure:"rules"`
	} `mapstructure:"anomaly"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Influx InfluxConfig `mapstructure:"influx"`
	Log    struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
	Node NodeConfig `mapstructure:"node"`
}

type Rule struct {
	Min float64 `mapstructure:"min"`
	Max float64 `mapstructure:"max"`
}

// MQTTConfig enables the MQTT peer-link transport when Broker is set.
type MQTTConfig struct {
	Broker         string        `mapstructure:"broker"`
	ClientID       string        `mapstructure:"client_id"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	Topic          string        `mapstructure:"topic"`
	QoS            int           `mapstructure:"qos"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// RedisConfig enables the Redis mirror when Addr is set.
type RedisConfig struct {
	Addr         string `mapstructure:"addr"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	StreamMaxLen int64  `mapstructure:"stream_max_len"`
}

// InfluxConfig enables the InfluxDB mirror when URL is set.
type InfluxConfig struct {
	URL    string `mapstructure:"url"`
	Token  string `mapstructure:"token"`
	Org    string `mapstructure:"org"`
	Bucket string `mapstructure:"bucket"`
}

// NodeConfig drives cmd/sensornode, the remote peer emulator.
type NodeConfig struct {
	Hubs       []string      `mapstructure:"hubs"`
	Interval   time.Duration `mapstructure:"interval"`
	AckTimeout time.Duration `mapstructure:"ack_timeout"`
}

// Load reads config.yaml from dir (optional), a .env file in the working
// directory (optional) and SMARTCLOCK_* environment variables, on top of defaults.
func Load(dir string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config %s: %w", filepath.Join(dir, "config.yaml"), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the periodic tasks cannot run with.
func (c *Config) Validate() error {
	if c.Clock.Period <= 0 {
		return fmt.Errorf("clock.period must be positive, got %s", c.Clock.Period)
	}
	if c.Sensor.Period <= 0 {
		return fmt.Errorf("sensor.period must be positive, got %s", c.Sensor.Period)
	}
	if c.Alarm.Capacity <= 0 {
		return fmt.Errorf("alarm.capacity must be positive, got %d", c.Alarm.Capacity)
	}
	switch c.Clock.Source {
	case "system", "ntp":
	default:
		return fmt.Errorf("clock.source must be system or ntp, got %q", c.Clock.Source)
	}
	switch c.Sensor.Reader {
	case "simulated", "sysfs":
	default:
		return fmt.Errorf("sensor.reader must be simulated or sysfs, got %q", c.Sensor.Reader)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.time_port", 0)
	v.SetDefault("server.telemetry_port", 0)
	v.SetDefault("server.sensor_port", 0)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("clock.period", time.Second)
	v.SetDefault("clock.source", "system")
	v.SetDefault("clock.ntp_server", "id.pool.ntp.org")
	v.SetDefault("clock.sync_interval", time.Hour)
	v.SetDefault("clock.query_timeout", 5*time.Second)
	v.SetDefault("clock.utc_offset_seconds", 25200)

	v.SetDefault("sensor.period", 300*time.Millisecond)
	v.SetDefault("sensor.reader", "simulated")
	v.SetDefault("sensor.path", "/sys/bus/iio/devices/iio:device0/in_voltage0_raw")

	v.SetDefault("alarm.capacity", 5)

	v.SetDefault("peerlink.listen_addr", ":4210")
	v.SetDefault("peerlink.read_timeout", time.Second)

	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.client_id", "smartclock-hub")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.topic", "smartclock/telemetry")
	v.SetDefault("mqtt.qos", 0)
	v.SetDefault("mqtt.connect_timeout", 10*time.Second)

	v.SetDefault("anomaly.rules", map[string]interface{}{
		"temperature": map[string]interface{}{"min": 0.0, "max": 50.0},
		"humidity":    map[string]interface{}{"min": 20.0, "max": 90.0},
	})

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream_max_len", 1000)

	v.SetDefault("influx.url", "")
	v.SetDefault("influx.token", "")
	v.SetDefault("influx.org", "")
	v.SetDefault("influx.bucket", "smartclock")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("node.hubs", []string{"127.0.0.1:4210"})
	v.SetDefault("node.interval", 2*time.Second)
	v.SetDefault("node.ack_timeout", 500*time.Millisecond)
}
