package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. AIRRES_DATABASE_HOST.
const EnvPrefix = "AIRRES"

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Booking  BookingConfig  `yaml:"booking"`
	Worker   WorkerConfig   `yaml:"worker"`
	Log      LogConfig      `yaml:"log"`
	// Fleet is created at startup. Aircraft already present are left alone.
	Fleet []AircraftConfig `yaml:"fleet" ignored:"true"`
}

type HTTPConfig struct {
	Address     string `yaml:"address"`
	SwaggerFile string `yaml:"swagger_file" split_words:"true"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode" split_words:"true"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// RedisConfig with an empty Addr disables the flight cache and falls back to
// in-process locks.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// KafkaConfig with no brokers disables event publishing.
type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingEventsTopic string   `yaml:"booking_events_topic" split_words:"true"`
	NotificationsTopic string   `yaml:"notifications_topic" split_words:"true"`
	GroupID            string   `yaml:"group_id" split_words:"true"`
}

type BookingConfig struct {
	FlightsCacheTTL time.Duration `yaml:"flights_cache_ttl" split_words:"true"`
	LockTTL         time.Duration `yaml:"lock_ttl" split_words:"true"`
	// MinLeadTime is how far ahead of departure a new flight must be scheduled.
	MinLeadTime time.Duration `yaml:"min_lead_time" split_words:"true"`
}

type WorkerConfig struct {
	CompleteArrivedSpec string        `yaml:"complete_arrived_spec" split_words:"true"`
	InventoryReportSpec string        `yaml:"inventory_report_spec" split_words:"true"`
	ArrivedLookback     time.Duration `yaml:"arrived_lookback" split_words:"true"`
}

type AircraftConfig struct {
	Registration    string     `yaml:"registration"`
	Model           string     `yaml:"model"`
	TotalSeats      int        `yaml:"total_seats"`
	Status          string     `yaml:"status"`
	NextMaintenance *time.Time `yaml:"next_maintenance"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// LoadConfig reads the YAML file, then lets a .env file and AIRRES_* variables override it.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}

	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
	if c.Booking.LockTTL == 0 {
		c.Booking.LockTTL = 10 * time.Second
	}
	if c.Booking.MinLeadTime == 0 {
		c.Booking.MinLeadTime = 2 * time.Hour
	}
	if c.Worker.CompleteArrivedSpec == "" {
		c.Worker.CompleteArrivedSpec = "@every 15m"
	}
	if c.Worker.InventoryReportSpec == "" {
		c.Worker.InventoryReportSpec = "@hourly"
	}
	if c.Worker.ArrivedLookback == 0 {
		c.Worker.ArrivedLookback = 48 * time.Hour
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	for i := range c.Fleet {
		if c.Fleet[i].Status == "" {
			c.Fleet[i].Status = "ACTIVE"
		}
	}
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.BookingEventsTopic == "" {
		return errors.New("kafka.booking_events_topic is required when brokers are set")
	}
	if c.Booking.FlightsCacheTTL < 0 || c.Booking.LockTTL < 0 || c.Booking.MinLeadTime < 0 {
		return errors.New("booking durations must not be negative")
	}
	seen := make(map[string]bool, len(c.Fleet))
	for i, a := range c.Fleet {
		switch {
		case a.Registration == "":
			return fmt.Errorf("fleet[%d]: registration is required", i)
		case a.TotalSeats <= 0:
			return fmt.Errorf("fleet[%d] %s: total_seats must be positive", i, a.Registration)
		case seen[a.Registration]:
			return fmt.Errorf("fleet[%d]: duplicate registration %s", i, a.Registration)
		}
		switch a.Status {
		case "ACTIVE", "MAINTENANCE", "RETIRED", "GROUNDED":
		default:
			return fmt.Errorf("fleet[%d] %s: unknown status %q", i, a.Registration, a.Status)
		}
		seen[a.Registration] = true
	}
	return nil
}
